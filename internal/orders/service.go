package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/farmfresh-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/farmfresh-backend/pkg/errors"
	"github.com/angelmondragon/farmfresh-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service is the read side for buyers and sellers.
type Service interface {
	ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[OrderDTO], error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	ListSellerOrderItems(ctx context.Context, sellerName string, params pagination.Params) (*pagination.Page[SellerOrderItem], error)
	SellerStats(ctx context.Context, sellerName string) (*SellerStats, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, errors.New("orders repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[OrderDTO], error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user is required")
	}
	if err := validateCursor(params); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListUserOrders(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	page := pagination.BuildPage(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	out := pagination.Page[OrderDTO]{Items: make([]OrderDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for _, order := range page.Items {
		out.Items = append(out.Items, mapOrder(order))
	}
	return &out, nil
}

// GetOrder only returns orders owned by userID; anything else is not found.
func (s *service) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user is required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	dto := mapOrder(*order)
	return &dto, nil
}

func (s *service) ListSellerOrderItems(ctx context.Context, sellerName string, params pagination.Params) (*pagination.Page[SellerOrderItem], error) {
	sellerName = strings.TrimSpace(sellerName)
	if sellerName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller name is required")
	}
	if err := validateCursor(params); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListSellerOrderItems(ctx, sellerName, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list seller order items")
	}
	page := pagination.BuildPage(rows, params.Limit, func(i SellerOrderItem) pagination.Cursor {
		return pagination.Cursor{CreatedAt: i.CreatedAt, ID: i.ID}
	})
	return &page, nil
}

func (s *service) SellerStats(ctx context.Context, sellerName string) (*SellerStats, error) {
	sellerName = strings.TrimSpace(sellerName)
	if sellerName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller name is required")
	}
	stats, err := s.repo.SellerStats(ctx, sellerName)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "seller stats")
	}
	return stats, nil
}

func validateCursor(params pagination.Params) error {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return nil
}
