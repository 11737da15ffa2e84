package orders

import (
	"context"
	"time"

	"github.com/angelmondragon/farmfresh-backend/pkg/db/models"
	"github.com/angelmondragon/farmfresh-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines persistence operations for orders and order items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, error)
	ListSellerOrderItems(ctx context.Context, sellerName string, params pagination.Params) ([]SellerOrderItem, error)
	SellerStats(ctx context.Context, sellerName string) (*SellerStats, error)
	FindOrdersWithoutItems(ctx context.Context, createdBefore time.Time, limit int) ([]models.Order, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateOrder inserts only the header; items are written separately.
func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderItemsAsc).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderItemsAsc).
		Where("external_session_id = ?", sessionID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListUserOrders(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderItemsAsc).
		Where("user_id = ?", userID).
		Scopes(pagination.Scope(params, "")).
		Find(&orders).Error
	return orders, err
}

func (r *repository) ListSellerOrderItems(ctx context.Context, sellerName string, params pagination.Params) ([]SellerOrderItem, error) {
	var rows []SellerOrderItem
	err := r.db.WithContext(ctx).
		Table("order_items AS oi").
		Select(`oi.id, oi.order_id, oi.product_id, oi.product_name, oi.quantity, oi.price, oi.unit,
			oi.farmer_name, o.status AS order_status, o.created_at AS order_created_at, oi.created_at`).
		Joins("JOIN orders o ON o.id = oi.order_id").
		Where("oi.farmer_name = ?", sellerName).
		Scopes(pagination.Scope(params, "oi.")).
		Scan(&rows).Error
	return rows, err
}

func (r *repository) SellerStats(ctx context.Context, sellerName string) (*SellerStats, error) {
	var stats SellerStats
	err := r.db.WithContext(ctx).
		Table("order_items").
		Select(`COUNT(DISTINCT order_id) AS order_count,
			COUNT(*) AS item_count,
			COALESCE(SUM(price * quantity), 0) AS revenue`).
		Where("farmer_name = ?", sellerName).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// FindOrdersWithoutItems lists order headers older than createdBefore that
// have no items, oldest first.
func (r *repository) FindOrdersWithoutItems(ctx context.Context, createdBefore time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	qb := r.db.WithContext(ctx).
		Where("created_at < ?", createdBefore).
		Where("NOT EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = orders.id)").
		Order("created_at ASC")
	if limit > 0 {
		qb = qb.Limit(limit)
	}
	err := qb.Find(&orders).Error
	return orders, err
}

func orderItemsAsc(db *gorm.DB) *gorm.DB {
	return db.Order("order_items.created_at ASC").Order("order_items.id ASC")
}
