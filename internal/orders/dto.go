package orders

import (
	"time"

	"github.com/angelmondragon/farmfresh-backend/pkg/db/models"
	"github.com/angelmondragon/farmfresh-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItemDTO is the API view of an order line.
type OrderItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Unit        string          `json:"unit,omitempty"`
	FarmerName  string          `json:"farmerName,omitempty"`
	Image       *string         `json:"image,omitempty"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// OrderDTO is the API view of an order.
type OrderDTO struct {
	ID                uuid.UUID         `json:"id"`
	UserID            uuid.UUID         `json:"userId"`
	TotalAmount       decimal.Decimal   `json:"totalAmount"`
	Status            enums.OrderStatus `json:"status"`
	ExternalSessionID string            `json:"externalSessionId"`
	Items             []OrderItemDTO    `json:"items"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// SellerOrderItem is an order line sold by a farmer, joined with its order.
type SellerOrderItem struct {
	ID             uuid.UUID         `json:"id"`
	OrderID        uuid.UUID         `json:"orderId"`
	ProductID      string            `json:"productId"`
	ProductName    string            `json:"productName"`
	Quantity       int               `json:"quantity"`
	Price          decimal.Decimal   `json:"price"`
	Unit           string            `json:"unit,omitempty"`
	FarmerName     string            `json:"farmerName"`
	OrderStatus    enums.OrderStatus `json:"orderStatus"`
	OrderCreatedAt time.Time         `json:"orderCreatedAt"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// SellerStats summarizes what a farmer sold.
type SellerStats struct {
	OrderCount int64           `json:"orderCount"`
	ItemCount  int64           `json:"itemCount"`
	Revenue    decimal.Decimal `json:"revenue"`
}

func mapOrder(order models.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, mapItem(item))
	}
	return OrderDTO{
		ID:                order.ID,
		UserID:            order.UserID,
		TotalAmount:       order.TotalAmount,
		Status:            order.Status,
		ExternalSessionID: order.ExternalSessionID,
		Items:             items,
		CreatedAt:         order.CreatedAt,
		UpdatedAt:         order.UpdatedAt,
	}
}

func mapItem(item models.OrderItem) OrderItemDTO {
	return OrderItemDTO{
		ID:          item.ID,
		ProductID:   item.ProductID,
		ProductName: item.ProductName,
		Quantity:    item.Quantity,
		Price:       item.Price,
		Unit:        item.Unit,
		FarmerName:  item.FarmerName,
		Image:       item.ImageURL,
		LineTotal:   item.LineTotal(),
	}
}
