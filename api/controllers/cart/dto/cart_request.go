package cartdto

import "github.com/shopspring/decimal"

// LineRequest is a product added to the cart.
type LineRequest struct {
	ProductID  string          `json:"productId" validate:"required"`
	Name       string          `json:"name" validate:"required"`
	Price      decimal.Decimal `json:"price" validate:"money"`
	Quantity   int             `json:"quantity" validate:"gte=0"`
	Unit       string          `json:"unit,omitempty"`
	SellerName string          `json:"sellerName,omitempty"`
	Image      string          `json:"image,omitempty"`
}

// UpdateQuantityRequest sets the quantity of an existing line. Values below
// one leave the cart unchanged.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// ReplaceCartRequest restores a client-held cart.
type ReplaceCartRequest struct {
	Items []LineRequest `json:"items" validate:"dive"`
}
