package cart

import (
	"context"
	"errors"
	"strings"

	pkgerrors "github.com/angelmondragon/farmfresh-backend/pkg/errors"
	"github.com/angelmondragon/farmfresh-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// View is a cart rendered for clients, with the delivery surcharge applied.
type View struct {
	Lines       []Line          `json:"items"`
	ItemCount   int             `json:"itemCount"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	Total       decimal.Decimal `json:"total"`
}

// Service loads a user's cart, applies one mutation and saves it back.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*View, error)
	Snapshot(ctx context.Context, userID uuid.UUID) (Snapshot, error)
	AddItem(ctx context.Context, userID uuid.UUID, line Line) (*View, error)
	UpdateQuantity(ctx context.Context, userID uuid.UUID, productID string, quantity int) (*View, error)
	RemoveItem(ctx context.Context, userID uuid.UUID, productID string) (*View, error)
	Replace(ctx context.Context, userID uuid.UUID, snapshot Snapshot) (*View, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

type ServiceParams struct {
	Store       Store
	DeliveryFee decimal.Decimal
	Logger      *logger.Logger
}

type service struct {
	store       Store
	deliveryFee decimal.Decimal
	logg        *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, errors.New("cart store is required")
	}
	if params.DeliveryFee.IsNegative() {
		return nil, errors.New("delivery fee must not be negative")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{store: params.Store, deliveryFee: params.DeliveryFee, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*View, error) {
	m, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.render(m), nil
}

func (s *service) Snapshot(ctx context.Context, userID uuid.UUID) (Snapshot, error) {
	m, err := s.load(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	return m.Snapshot(), nil
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, line Line) (*View, error) {
	return s.mutate(ctx, userID, func(m *Manager) error {
		return m.AddItem(line)
	})
}

func (s *service) UpdateQuantity(ctx context.Context, userID uuid.UUID, productID string, quantity int) (*View, error) {
	return s.mutate(ctx, userID, func(m *Manager) error {
		m.UpdateQuantity(productID, quantity)
		return nil
	})
}

func (s *service) RemoveItem(ctx context.Context, userID uuid.UUID, productID string) (*View, error) {
	return s.mutate(ctx, userID, func(m *Manager) error {
		m.RemoveItem(productID)
		return nil
	})
}

func (s *service) Replace(ctx context.Context, userID uuid.UUID, snapshot Snapshot) (*View, error) {
	for _, line := range snapshot.Lines {
		if strings.TrimSpace(line.ProductID) == "" || !line.UnitPrice.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "each cart line needs a product id and a positive price")
		}
	}
	return s.mutate(ctx, userID, func(m *Manager) error {
		m.Restore(snapshot)
		return nil
	})
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user is required")
	}
	if err := s.store.Delete(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "cart cleared")
	return nil
}

func (s *service) mutate(ctx context.Context, userID uuid.UUID, fn func(*Manager) error) (*View, error) {
	m, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := fn(m); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, userID, m.Snapshot()); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return s.render(m), nil
}

func (s *service) load(ctx context.Context, userID uuid.UUID) (*Manager, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user is required")
	}
	snapshot, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	m := NewManager()
	m.Restore(snapshot)
	return m, nil
}

func (s *service) render(m *Manager) *View {
	subtotal := m.TotalPrice()
	lines := m.Lines()
	count := 0
	for _, line := range lines {
		count += line.Quantity
	}
	fee := s.deliveryFee
	if len(lines) == 0 {
		fee = decimal.Zero
	}
	return &View{
		Lines:       lines,
		ItemCount:   count,
		Subtotal:    subtotal,
		DeliveryFee: fee,
		Total:       subtotal.Add(fee),
	}
}
