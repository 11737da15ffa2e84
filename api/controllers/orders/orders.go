package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/farmfresh-backend/api/middleware"
	"github.com/angelmondragon/farmfresh-backend/api/responses"
	"github.com/angelmondragon/farmfresh-backend/api/validators"
	internalorders "github.com/angelmondragon/farmfresh-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/farmfresh-backend/pkg/errors"
	"github.com/angelmondragon/farmfresh-backend/pkg/logger"
	"github.com/angelmondragon/farmfresh-backend/pkg/pagination"
)

// serve adapts a read that returns a value or an error into a handler
// writing the success or error envelope.
func serve[T any](svc internalorders.Service, logg *logger.Logger, read func(r *http.Request) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		out, err := read(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, out)
	}
}

// List returns the caller's orders, newest first.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(svc, logg, func(r *http.Request) (*pagination.Page[internalorders.OrderDTO], error) {
		userID, err := middleware.UserUUID(r.Context())
		if err != nil {
			return nil, err
		}
		params, err := pageParams(r)
		if err != nil {
			return nil, err
		}
		return svc.ListUserOrders(r.Context(), userID, params)
	})
}

// Detail returns one of the caller's orders with its items.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(svc, logg, func(r *http.Request) (*internalorders.OrderDTO, error) {
		userID, err := middleware.UserUUID(r.Context())
		if err != nil {
			return nil, err
		}
		orderID, err := orderIDParam(r)
		if err != nil {
			return nil, err
		}
		return svc.GetOrder(r.Context(), userID, orderID)
	})
}

// SellerItems lists order lines sold under the seller name.
func SellerItems(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(svc, logg, func(r *http.Request) (*pagination.Page[internalorders.SellerOrderItem], error) {
		params, err := pageParams(r)
		if err != nil {
			return nil, err
		}
		return svc.ListSellerOrderItems(r.Context(), sellerName(r), params)
	})
}

func SellerStats(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(svc, logg, func(r *http.Request) (*internalorders.SellerStats, error) {
		return svc.SellerStats(r.Context(), sellerName(r))
	})
}

func orderIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return id, nil
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Limit: limit, Cursor: strings.TrimSpace(r.URL.Query().Get("cursor"))}, nil
}

// sellerName prefers ?seller= and falls back to the token email.
func sellerName(r *http.Request) string {
	if name := validators.SanitizeString(r.URL.Query().Get("seller"), 200); name != "" {
		return name
	}
	return middleware.EmailFromContext(r.Context())
}
