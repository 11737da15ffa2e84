package product

import (
	"time"

	"github.com/angelmondragon/farmfresh-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductDTO is the catalog payload returned to clients.
type ProductDTO struct {
	ID            uuid.UUID       `json:"id"`
	FarmerID      uuid.UUID       `json:"farmerId"`
	FarmerName    string          `json:"farmerName"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	Price         decimal.Decimal `json:"price"`
	Unit          string          `json:"unit"`
	StockQuantity int             `json:"stockQuantity"`
	Location      *string         `json:"location,omitempty"`
	Description   *string         `json:"description,omitempty"`
	Image         *string         `json:"image,omitempty"`
	IsAvailable   bool            `json:"isAvailable"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func mapProduct(p models.Product) ProductDTO {
	return ProductDTO{
		ID:            p.ID,
		FarmerID:      p.FarmerID,
		FarmerName:    p.FarmerName,
		Name:          p.Name,
		Category:      p.Category.String(),
		Price:         p.Price,
		Unit:          p.Unit.String(),
		StockQuantity: p.StockQuantity,
		Location:      p.Location,
		Description:   p.Description,
		Image:         p.ImageURL,
		IsAvailable:   p.IsAvailable,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}
