package functions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/farmfresh-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/farmfresh-backend/pkg/errors"
)

type stubStarter struct {
	input checkout.StartInput
	err   error
	calls int
}

func (s *stubStarter) Start(_ context.Context, input checkout.StartInput) (*checkout.Session, error) {
	s.calls++
	s.input = input
	if s.err != nil {
		return nil, s.err
	}
	return &checkout.Session{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, nil
}

func post(t *testing.T, svc sessionStarter, body string) (*httptest.ResponseRecorder, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/functions/v1/create-checkout", strings.NewReader(body))
	req.Header.Set("Origin", "https://shop.farmfresh.test")
	resp := httptest.NewRecorder()
	CreateCheckout(svc, nil).ServeHTTP(resp, req)
	var out map[string]string
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	return resp, out
}

func TestCreateCheckoutReturnsURL(t *testing.T) {
	svc := &stubStarter{}
	resp, out := post(t, svc, `{"items":[{"id":"p1","name":"Tomatoes","price":40,"quantity":2,"image":"https://img.test/t.png"},{"id":"p2","name":"Milk","price":"32.5","quantity":1}]}`)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "https://checkout.stripe.test/cs_test_1", out["url"])
	require.Len(t, svc.input.Lines, 2)
	require.Equal(t, "Tomatoes", svc.input.Lines[0].Name)
	require.Equal(t, "32.5", svc.input.Lines[1].UnitPrice.String())
	require.Equal(t, "https://shop.farmfresh.test", svc.input.Origin)
}

func TestCreateCheckoutValidationIs400(t *testing.T) {
	svc := &stubStarter{err: pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")}
	resp, out := post(t, svc, `{"items":[]}`)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, "cart is empty", out["error"])
}

func TestCreateCheckoutProviderFailureIs500(t *testing.T) {
	svc := &stubStarter{err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("card_declined"), "payment provider unavailable")}
	resp, out := post(t, svc, `{"items":[{"id":"p1","name":"Tomatoes","price":40,"quantity":1}]}`)
	require.Equal(t, http.StatusInternalServerError, resp.Code)
	require.NotEmpty(t, out["error"])
	require.NotContains(t, out["error"], "card_declined")
}

func TestCreateCheckoutMalformedBody(t *testing.T) {
	svc := &stubStarter{}
	resp, _ := post(t, svc, `{"items":`)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Zero(t, svc.calls)
}
