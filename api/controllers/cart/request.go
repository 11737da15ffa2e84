package cart

import (
	cartdto "github.com/angelmondragon/farmfresh-backend/api/controllers/cart/dto"
	"github.com/angelmondragon/farmfresh-backend/api/validators"
	"github.com/angelmondragon/farmfresh-backend/internal/cart"
)

func toLine(payload cartdto.LineRequest) cart.Line {
	return cart.Line{
		ProductID:  validators.SanitizeString(payload.ProductID, 128),
		Name:       validators.SanitizeString(payload.Name, 200),
		UnitPrice:  payload.Price,
		Quantity:   payload.Quantity,
		Unit:       validators.SanitizeString(payload.Unit, 32),
		SellerName: validators.SanitizeString(payload.SellerName, 200),
		Image:      validators.SanitizeString(payload.Image, 2048),
	}
}

func toSnapshot(payload cartdto.ReplaceCartRequest) cart.Snapshot {
	lines := make([]cart.Line, 0, len(payload.Items))
	for _, item := range payload.Items {
		lines = append(lines, toLine(item))
	}
	return cart.Snapshot{Lines: lines}
}
