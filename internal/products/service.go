package product

import (
	"context"
	"errors"
	"iter"
	"strings"

	"github.com/angelmondragon/farmfresh-backend/pkg/db/models"
	"github.com/angelmondragon/farmfresh-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/farmfresh-backend/pkg/errors"
	"github.com/angelmondragon/farmfresh-backend/pkg/logger"
	"github.com/angelmondragon/farmfresh-backend/pkg/outbox"
	"github.com/angelmondragon/farmfresh-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/farmfresh-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service exposes catalog browsing and farmer listing operations.
type Service interface {
	CreateProduct(ctx context.Context, seller Seller, input CreateProductInput) (*ProductDTO, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, input ListInput) (*pagination.Page[ProductDTO], error)
	Pages(ctx context.Context, input ListInput) iter.Seq2[*pagination.Page[ProductDTO], error]
}

// Seller is the authenticated farmer creating a listing.
type Seller struct {
	UserID uuid.UUID
	Name   string
}

// CreateProductInput holds the validated payload to create a listing.
type CreateProductInput struct {
	Name          string
	Category      enums.ProductCategory
	Price         decimal.Decimal
	Unit          enums.ProductUnit
	StockQuantity int
	Location      *string
	Description   *string
	ImageURL      *string
	IsAvailable   *bool
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ServiceParams struct {
	Repository *Repository
	DB         txRunner
	Outbox     outbox.Emitter
	Logger     *logger.Logger
}

type service struct {
	repo   *Repository
	db     txRunner
	outbox outbox.Emitter
	logg   *logger.Logger
}

// NewService constructs a product service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, errors.New("product repository required")
	}
	if params.DB == nil {
		return nil, errors.New("db client required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox emitter required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: params.Repository, db: params.DB, outbox: params.Outbox, logg: logg}, nil
}

// CreateProduct stores the listing and queues product_listed in the same transaction.
func (s *service) CreateProduct(ctx context.Context, seller Seller, input CreateProductInput) (*ProductDTO, error) {
	if seller.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller is required")
	}
	if err := validateCreate(seller, input); err != nil {
		return nil, err
	}

	product := &models.Product{
		FarmerID:      seller.UserID,
		FarmerName:    strings.TrimSpace(seller.Name),
		Name:          strings.TrimSpace(input.Name),
		Category:      input.Category,
		Price:         input.Price,
		Unit:          input.Unit,
		StockQuantity: input.StockQuantity,
		Location:      input.Location,
		Description:   input.Description,
		ImageURL:      input.ImageURL,
		IsAvailable:   true,
	}
	if input.IsAvailable != nil {
		product.IsAvailable = *input.IsAvailable
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateProduct(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProductListed,
			AggregateType: enums.AggregateProduct,
			AggregateID:   product.ID,
			Actor:         &outbox.ActorRef{UserID: seller.UserID, Email: seller.Name},
			Data: payloads.ProductListedEvent{
				ProductID:  product.ID,
				FarmerID:   product.FarmerID,
				FarmerName: product.FarmerName,
				Name:       product.Name,
				Category:   product.Category.String(),
				Price:      product.Price,
				Unit:       product.Unit.String(),
			},
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}

	s.logg.Info(s.logg.WithField(ctx, "product_id", product.ID.String()), "product listed")
	dto := mapProduct(*product)
	return &dto, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	dto := mapProduct(*product)
	return &dto, nil
}

func (s *service) ListProducts(ctx context.Context, input ListInput) (*pagination.Page[ProductDTO], error) {
	if _, err := pagination.ParseCursor(input.Pagination.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	page := pagination.BuildPage(rows, input.Pagination.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	out := pagination.Page[ProductDTO]{Items: make([]ProductDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for _, p := range page.Items {
		out.Items = append(out.Items, mapProduct(p))
	}
	return &out, nil
}

// Pages walks every page of the listing lazily. Each range starts again
// from input's cursor, so the sequence can be reused.
func (s *service) Pages(ctx context.Context, input ListInput) iter.Seq2[*pagination.Page[ProductDTO], error] {
	return func(yield func(*pagination.Page[ProductDTO], error) bool) {
		params := input
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			page, err := s.ListProducts(ctx, params)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(page, nil) || page.NextCursor == "" {
				return
			}
			params.Pagination.Cursor = page.NextCursor
		}
	}
}

func validateCreate(seller Seller, input CreateProductInput) error {
	switch {
	case strings.TrimSpace(seller.Name) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "farmer name is required")
	case strings.TrimSpace(input.Name) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	case !input.Category.IsValid():
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid category %q", input.Category)
	case !input.Unit.IsValid():
		return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid unit %q", input.Unit)
	case !input.Price.IsPositive():
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	case input.StockQuantity < 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "stock quantity cannot be negative")
	}
	return nil
}
