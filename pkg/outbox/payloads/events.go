package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderReconciledEvent is emitted once a paid session became an order with items.
type OrderReconciledEvent struct {
	OrderID           uuid.UUID       `json:"order_id" validate:"required"`
	UserID            uuid.UUID       `json:"user_id" validate:"required"`
	ExternalSessionID string          `json:"external_session_id" validate:"required"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	ItemCount         int             `json:"item_count" validate:"gte=0"`
	SellerNames       []string        `json:"seller_names,omitempty"`
	Resumed           bool            `json:"resumed,omitempty"`
}

// OrderPartialDetectedEvent flags an order header that has no items.
type OrderPartialDetectedEvent struct {
	OrderID           uuid.UUID `json:"order_id" validate:"required"`
	UserID            uuid.UUID `json:"user_id" validate:"required"`
	ExternalSessionID string    `json:"external_session_id" validate:"required"`
	CreatedAt         time.Time `json:"created_at"`
	DetectedAt        time.Time `json:"detected_at"`
}

// ProductListedEvent announces a new catalog listing.
type ProductListedEvent struct {
	ProductID  uuid.UUID       `json:"product_id" validate:"required"`
	FarmerID   uuid.UUID       `json:"farmer_id" validate:"required"`
	FarmerName string          `json:"farmer_name"`
	Name       string          `json:"name" validate:"required"`
	Category   string          `json:"category" validate:"required"`
	Price      decimal.Decimal `json:"price"`
	Unit       string          `json:"unit" validate:"required"`
}
