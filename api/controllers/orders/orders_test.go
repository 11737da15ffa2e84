package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/farmfresh-backend/api/middleware"
	internalorders "github.com/angelmondragon/farmfresh-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/farmfresh-backend/pkg/errors"
	"github.com/angelmondragon/farmfresh-backend/pkg/pagination"
)

type stubOrdersService struct {
	listParams pagination.Params
	listUser   uuid.UUID
	getErr     error
	seller     string
}

func (s *stubOrdersService) ListUserOrders(_ context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[internalorders.OrderDTO], error) {
	s.listUser = userID
	s.listParams = params
	return &pagination.Page[internalorders.OrderDTO]{Items: []internalorders.OrderDTO{{ID: uuid.New()}}}, nil
}

func (s *stubOrdersService) GetOrder(_ context.Context, userID, orderID uuid.UUID) (*internalorders.OrderDTO, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &internalorders.OrderDTO{ID: orderID, UserID: userID}, nil
}

func (s *stubOrdersService) ListSellerOrderItems(_ context.Context, sellerName string, _ pagination.Params) (*pagination.Page[internalorders.SellerOrderItem], error) {
	s.seller = sellerName
	return &pagination.Page[internalorders.SellerOrderItem]{}, nil
}

func (s *stubOrdersService) SellerStats(_ context.Context, sellerName string) (*internalorders.SellerStats, error) {
	s.seller = sellerName
	return &internalorders.SellerStats{OrderCount: 2, ItemCount: 3, Revenue: decimal.NewFromInt(640)}, nil
}

func authed(req *http.Request, userID uuid.UUID) *http.Request {
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithEmail(ctx, "ravi@farms.test")
	return req.WithContext(ctx)
}

func TestListPassesPagination(t *testing.T) {
	svc := &stubOrdersService{}
	userID := uuid.New()
	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=5&cursor=abc", nil), userID)
	resp := httptest.NewRecorder()
	List(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.listUser != userID || svc.listParams.Limit != 5 || svc.listParams.Cursor != "abc" {
		t.Fatalf("unexpected call user=%s params=%+v", svc.listUser, svc.listParams)
	}
}

func TestListRequiresUser(t *testing.T) {
	resp := httptest.NewRecorder()
	List(&stubOrdersService{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestListRejectsOversizedLimit(t *testing.T) {
	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=1000", nil), uuid.New())
	resp := httptest.NewRecorder()
	List(&stubOrdersService{}, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestDetail(t *testing.T) {
	orderID := uuid.New()
	r := chi.NewRouter()
	svc := &stubOrdersService{}
	r.Get("/api/v1/orders/{orderId}", Detail(svc, nil))

	req := authed(httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), nil), uuid.New())
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var body struct {
		Data internalorders.OrderDTO `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.ID != orderID {
		t.Fatalf("expected order %s got %s", orderID, body.Data.ID)
	}

	svc.getErr = pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, authed(httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), nil), uuid.New()))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, authed(httptest.NewRequest(http.MethodGet, "/api/v1/orders/not-a-uuid", nil), uuid.New()))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestSellerNameFallsBackToEmail(t *testing.T) {
	svc := &stubOrdersService{}
	resp := httptest.NewRecorder()
	SellerStats(svc, nil).ServeHTTP(resp, authed(httptest.NewRequest(http.MethodGet, "/api/v1/seller/stats", nil), uuid.New()))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.seller != "ravi@farms.test" {
		t.Fatalf("expected email fallback, got %q", svc.seller)
	}

	resp = httptest.NewRecorder()
	SellerItems(svc, nil).ServeHTTP(resp, authed(httptest.NewRequest(http.MethodGet, "/api/v1/seller/order-items?seller=Ravi+Farms", nil), uuid.New()))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.seller != "Ravi Farms" {
		t.Fatalf("expected query seller, got %q", svc.seller)
	}
}
