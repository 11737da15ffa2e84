package functions

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/farmfresh-backend/api/responses"
	"github.com/angelmondragon/farmfresh-backend/internal/cart"
	"github.com/angelmondragon/farmfresh-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/farmfresh-backend/pkg/errors"
	"github.com/angelmondragon/farmfresh-backend/pkg/logger"
)

const maxBodyBytes = 1 << 20

type sessionStarter interface {
	Start(ctx context.Context, input checkout.StartInput) (*checkout.Session, error)
}

type checkoutItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Image    string          `json:"image"`
}

type createCheckoutRequest struct {
	Items []checkoutItem `json:"items"`
}

type createCheckoutResponse struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// CreateCheckout is the public function boundary: {items} in, {url} or
// {error} out. Validation failures map to 400 and everything else to 500.
func CreateCheckout(svc sessionStarter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteJSON(w, http.StatusInternalServerError, errorResponse{Error: "checkout unavailable"})
			return
		}

		var payload createCheckoutRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&payload); err != nil {
			responses.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}

		lines := make([]cart.Line, 0, len(payload.Items))
		for _, item := range payload.Items {
			lines = append(lines, cart.Line{
				ProductID: item.ID,
				Name:      item.Name,
				UnitPrice: item.Price,
				Quantity:  item.Quantity,
				Image:     item.Image,
			})
		}

		session, err := svc.Start(ctx, checkout.StartInput{Lines: lines, Origin: r.Header.Get("Origin")})
		if err != nil {
			status := http.StatusInternalServerError
			message := "failed to create checkout session"
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeValidation {
				status = http.StatusBadRequest
				message = typed.Message()
			}
			if logg != nil {
				if status >= http.StatusInternalServerError {
					logg.Error(ctx, "create_checkout.failed", err)
				} else {
					logg.Warn(logg.WithField(ctx, "reason", message), "create_checkout.rejected")
				}
			}
			responses.WriteJSON(w, status, errorResponse{Error: message})
			return
		}

		if logg != nil {
			logg.Info(logg.WithSessionID(ctx, session.ID), "create_checkout.session_created")
		}
		responses.WriteJSON(w, http.StatusOK, createCheckoutResponse{URL: session.URL})
	}
}
