package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/farmfresh-backend/pkg/enums"
)

// Product is a farmer's listing in the marketplace catalog.
type Product struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	FarmerID      uuid.UUID             `gorm:"column:farmer_id;type:uuid;not null"`
	FarmerName    string                `gorm:"column:farmer_name;not null"`
	Name          string                `gorm:"column:name;not null"`
	Category      enums.ProductCategory `gorm:"column:category;not null"`
	Price         decimal.Decimal       `gorm:"column:price;type:numeric(12,2);not null"`
	Unit          enums.ProductUnit     `gorm:"column:unit;not null"`
	StockQuantity int                   `gorm:"column:stock_quantity;not null;default:0"`
	Location      *string               `gorm:"column:location"`
	Description   *string               `gorm:"column:description"`
	ImageURL      *string               `gorm:"column:image_url"`
	IsAvailable   bool                  `gorm:"column:is_available;not null"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	ensureCreated(&p.CreatedAt, &p.UpdatedAt)
	return nil
}
