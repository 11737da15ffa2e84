package product

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/farmfresh-backend/pkg/db"
	"github.com/angelmondragon/farmfresh-backend/pkg/db/models"
	"github.com/angelmondragon/farmfresh-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/farmfresh-backend/pkg/errors"
	"github.com/angelmondragon/farmfresh-backend/pkg/outbox"
	"github.com/angelmondragon/farmfresh-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const productsDDL = `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  farmer_id TEXT NOT NULL,
  farmer_name TEXT NOT NULL,
  name TEXT NOT NULL,
  category TEXT NOT NULL,
  price NUMERIC NOT NULL,
  unit TEXT NOT NULL,
  stock_quantity INTEGER NOT NULL DEFAULT 0,
  location TEXT,
  description TEXT,
  image_url TEXT,
  is_available BOOLEAN NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`

func setupProductsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.Exec(productsDDL).Error)
	return conn
}

func newTestProductService(t *testing.T) (Service, *Repository, *gorm.DB) {
	t.Helper()
	conn := setupProductsTestDB(t)
	repo := NewRepository(conn)
	svc, err := NewService(ServiceParams{
		Repository: repo,
		DB:         db.NewFromGorm(conn),
		Outbox:     outbox.NewService(outbox.NewRepository(conn), nil),
	})
	require.NoError(t, err)
	return svc, repo, conn
}

func seedProduct(t *testing.T, repo *Repository, name string, category enums.ProductCategory, available bool, createdAt time.Time) *models.Product {
	t.Helper()
	p := &models.Product{
		FarmerID:      uuid.New(),
		FarmerName:    "Ravi Farms",
		Name:          name,
		Category:      category,
		Price:         decimal.NewFromInt(320),
		Unit:          enums.ProductUnitKilogram,
		StockQuantity: 10,
		IsAvailable:   available,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	require.NoError(t, repo.CreateProduct(context.Background(), p))
	return p
}

func seedCatalog(t *testing.T, repo *Repository) time.Time {
	t.Helper()
	base := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	seedProduct(t, repo, "Fresh Tomatoes", enums.ProductCategoryVegetables, true, base)
	seedProduct(t, repo, "Cherry Tomatoes", enums.ProductCategoryVegetables, false, base.Add(time.Minute))
	seedProduct(t, repo, "Alphonso Mango", enums.ProductCategoryFruits, true, base.Add(2*time.Minute))
	seedProduct(t, repo, "Buffalo Milk", enums.ProductCategoryDairy, true, base.Add(3*time.Minute))
	return base
}

func TestListProductsFilters(t *testing.T) {
	svc, repo, _ := newTestProductService(t)
	seedCatalog(t, repo)
	ctx := context.Background()
	available := true
	vegetables := enums.ProductCategoryVegetables

	cases := []struct {
		name    string
		filters ListFilters
		want    []string
	}{
		{name: "all", filters: ListFilters{}, want: []string{"Buffalo Milk", "Alphonso Mango", "Cherry Tomatoes", "Fresh Tomatoes"}},
		{name: "available", filters: ListFilters{Available: &available}, want: []string{"Buffalo Milk", "Alphonso Mango", "Fresh Tomatoes"}},
		{name: "category", filters: ListFilters{Category: &vegetables}, want: []string{"Cherry Tomatoes", "Fresh Tomatoes"}},
		{name: "search ignores case", filters: ListFilters{Query: "TOMATO"}, want: []string{"Cherry Tomatoes", "Fresh Tomatoes"}},
		{name: "combined", filters: ListFilters{Available: &available, Category: &vegetables, Query: "tom"}, want: []string{"Fresh Tomatoes"}},
		{name: "no match", filters: ListFilters{Query: "paneer"}, want: []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page, err := svc.ListProducts(ctx, ListInput{Filters: tc.filters})
			require.NoError(t, err)
			names := make([]string, 0, len(page.Items))
			for _, p := range page.Items {
				names = append(names, p.Name)
			}
			assert.Equal(t, tc.want, names)
		})
	}
}

func TestListProductsRejectsBadCursor(t *testing.T) {
	svc, _, _ := newTestProductService(t)
	_, err := svc.ListProducts(context.Background(), ListInput{Pagination: pagination.Params{Cursor: "%%%"}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestPagesWalksEveryPageAndRestarts(t *testing.T) {
	svc, repo, _ := newTestProductService(t)
	seedCatalog(t, repo)
	seq := svc.Pages(context.Background(), ListInput{Pagination: pagination.Params{Limit: 3}})

	collect := func() ([]string, int) {
		var names []string
		pages := 0
		for page, err := range seq {
			require.NoError(t, err)
			pages++
			for _, p := range page.Items {
				names = append(names, p.Name)
			}
		}
		return names, pages
	}

	first, pages := collect()
	assert.Equal(t, 2, pages)
	assert.Equal(t, []string{"Buffalo Milk", "Alphonso Mango", "Cherry Tomatoes", "Fresh Tomatoes"}, first)

	second, _ := collect()
	assert.Equal(t, first, second, "ranging again must start from the first page")
}

func TestPagesStopsWhenConsumerBreaks(t *testing.T) {
	svc, repo, _ := newTestProductService(t)
	seedCatalog(t, repo)
	pages := 0
	for range svc.Pages(context.Background(), ListInput{Pagination: pagination.Params{Limit: 1}}) {
		pages++
		if pages == 2 {
			break
		}
	}
	assert.Equal(t, 2, pages)
}

func TestPagesReportsCancelledContext(t *testing.T) {
	svc, _, _ := newTestProductService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for page, err := range svc.Pages(ctx, ListInput{}) {
		assert.Nil(t, page)
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestCreateProductQueuesListedEvent(t *testing.T) {
	svc, _, conn := newTestProductService(t)
	seller := Seller{UserID: uuid.New(), Name: "ravi@farms.in"}

	created, err := svc.CreateProduct(context.Background(), seller, CreateProductInput{
		Name:          " Organic Spinach ",
		Category:      enums.ProductCategoryVegetables,
		Price:         decimal.RequireFromString("45.50"),
		Unit:          enums.ProductUnitKilogram,
		StockQuantity: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, "Organic Spinach", created.Name)
	assert.Equal(t, "ravi@farms.in", created.FarmerName)
	assert.True(t, created.IsAvailable)

	var events []models.OutboxEvent
	require.NoError(t, conn.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventProductListed, events[0].EventType)
	assert.Equal(t, created.ID, events[0].AggregateID)

	got, err := svc.GetProduct(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("45.5")))
}

func TestCreateProductValidation(t *testing.T) {
	svc, _, conn := newTestProductService(t)
	seller := Seller{UserID: uuid.New(), Name: "ravi@farms.in"}
	valid := CreateProductInput{
		Name:     "Spinach",
		Category: enums.ProductCategoryVegetables,
		Price:    decimal.NewFromInt(40),
		Unit:     enums.ProductUnitKilogram,
	}

	cases := map[string]func(in *CreateProductInput){
		"name":     func(in *CreateProductInput) { in.Name = "  " },
		"category": func(in *CreateProductInput) { in.Category = "meat" },
		"unit":     func(in *CreateProductInput) { in.Unit = "bag" },
		"price":    func(in *CreateProductInput) { in.Price = decimal.Zero },
		"stock":    func(in *CreateProductInput) { in.StockQuantity = -1 },
	}
	for name, mutate := range cases {
		in := valid
		mutate(&in)
		_, err := svc.CreateProduct(context.Background(), seller, in)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "%s: got %v", name, err)
	}

	_, err := svc.CreateProduct(context.Background(), Seller{}, valid)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "got %v", err)

	var count int64
	require.NoError(t, conn.Model(&models.Product{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGetProductNotFound(t *testing.T) {
	svc, _, _ := newTestProductService(t)
	_, err := svc.GetProduct(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}
