package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stripe/stripe-go/v84"
)

type fakeStripeAPI struct {
	products []*stripe.ProductParams
	prices   []*stripe.PriceParams
	session  *stripe.CheckoutSessionParams
	priceErr error
	got      *stripe.CheckoutSession
}

func (f *fakeStripeAPI) NewProduct(params *stripe.ProductParams) (*stripe.Product, error) {
	f.products = append(f.products, params)
	return &stripe.Product{ID: fmt.Sprintf("prod_%d", len(f.products))}, nil
}

func (f *fakeStripeAPI) NewPrice(params *stripe.PriceParams) (*stripe.Price, error) {
	if f.priceErr != nil {
		return nil, f.priceErr
	}
	f.prices = append(f.prices, params)
	return &stripe.Price{ID: fmt.Sprintf("price_%d", len(f.prices))}, nil
}

func (f *fakeStripeAPI) NewSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.session = params
	return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/cs_test_1"}, nil
}

func (f *fakeStripeAPI) GetSession(id string, _ *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return f.got, nil
}

func TestStripeProviderCreateSession(t *testing.T) {
	api := &fakeStripeAPI{}
	p := &StripeProvider{api: api}

	sess, err := p.CreateSession(context.Background(), SessionRequest{
		Currency:           "inr",
		PaymentMethodTypes: []string{"card"},
		Lines: []ProviderLine{
			{Name: "Tomatoes", Image: "https://img/t.jpg", UnitAmount: 32000, Quantity: 2},
			{Name: "Milk", UnitAmount: 4500, Quantity: 1},
		},
		SuccessURL:        "https://x/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:         "https://x/cart",
		ClientReferenceID: "user-1",
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if sess.ID != "cs_test_1" {
		t.Fatalf("unexpected session id %q", sess.ID)
	}
	if len(api.products) != 2 || len(api.prices) != 2 {
		t.Fatalf("expected one product and price per line")
	}
	if len(api.products[0].Images) != 1 || len(api.products[1].Images) != 0 {
		t.Fatalf("images should only be sent when present")
	}
	if *api.prices[0].UnitAmount != 32000 || *api.prices[0].Currency != "inr" || *api.prices[0].Product != "prod_1" {
		t.Fatalf("unexpected price params %+v", api.prices[0])
	}
	if *api.session.Mode != string(stripe.CheckoutSessionModePayment) {
		t.Fatalf("unexpected mode %q", *api.session.Mode)
	}
	if len(api.session.LineItems) != 2 || *api.session.LineItems[1].Price != "price_2" || *api.session.LineItems[0].Quantity != 2 {
		t.Fatalf("unexpected line items")
	}
	if *api.session.ClientReferenceID != "user-1" {
		t.Fatalf("client reference not forwarded")
	}
}

func TestStripeProviderStopsOnPriceFailure(t *testing.T) {
	api := &fakeStripeAPI{priceErr: errors.New("rate limited")}
	p := &StripeProvider{api: api}
	_, err := p.CreateSession(context.Background(), SessionRequest{Lines: []ProviderLine{{Name: "x", UnitAmount: 1, Quantity: 1}}})
	if err == nil {
		t.Fatal("expected error")
	}
	if api.session != nil {
		t.Fatalf("session must not be created after a price failure")
	}
}

func TestStripeProviderGetSessionPaid(t *testing.T) {
	api := &fakeStripeAPI{got: &stripe.CheckoutSession{
		ID:                "cs_test_1",
		PaymentStatus:     stripe.CheckoutSessionPaymentStatusPaid,
		ClientReferenceID: "user-1",
		AmountTotal:       64000,
		Currency:          stripe.CurrencyINR,
	}}
	p := &StripeProvider{api: api}
	status, err := p.GetSession(context.Background(), "cs_test_1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if !status.Paid || status.ClientReferenceID != "user-1" || status.Currency != "inr" {
		t.Fatalf("unexpected status %+v", status)
	}
}
