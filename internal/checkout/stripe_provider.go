package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
	"github.com/stripe/stripe-go/v84/price"
	"github.com/stripe/stripe-go/v84/product"
)

type stripeAPI interface {
	NewProduct(params *stripe.ProductParams) (*stripe.Product, error)
	NewPrice(params *stripe.PriceParams) (*stripe.Price, error)
	NewSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetSession(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type stripeResources struct{}

func (stripeResources) NewProduct(params *stripe.ProductParams) (*stripe.Product, error) {
	return product.New(params)
}

func (stripeResources) NewPrice(params *stripe.PriceParams) (*stripe.Price, error) {
	return price.New(params)
}

func (stripeResources) NewSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return session.New(params)
}

func (stripeResources) GetSession(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return session.Get(id, params)
}

// StripeProvider creates one Stripe product and price per line, then a
// payment-mode Checkout Session referencing them in order.
type StripeProvider struct {
	api stripeAPI
}

// NewStripeProvider uses the package level stripe key set by pkg/stripe.
func NewStripeProvider() *StripeProvider {
	return &StripeProvider{api: stripeResources{}}
}

func (p *StripeProvider) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Lines))
	for i, line := range req.Lines {
		productParams := &stripe.ProductParams{Name: stripe.String(line.Name)}
		if image := strings.TrimSpace(line.Image); image != "" {
			productParams.Images = stripe.StringSlice([]string{image})
		}
		productParams.Context = ctx
		prod, err := p.api.NewProduct(productParams)
		if err != nil {
			return nil, fmt.Errorf("create product for line %d: %w", i, err)
		}

		priceParams := &stripe.PriceParams{
			Product:    stripe.String(prod.ID),
			UnitAmount: stripe.Int64(line.UnitAmount),
			Currency:   stripe.String(req.Currency),
		}
		priceParams.Context = ctx
		pr, err := p.api.NewPrice(priceParams)
		if err != nil {
			return nil, fmt.Errorf("create price for line %d: %w", i, err)
		}

		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Price:    stripe.String(pr.ID),
			Quantity: stripe.Int64(line.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice(req.PaymentMethodTypes),
		LineItems:          lineItems,
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
	}
	if req.ClientReferenceID != "" {
		params.ClientReferenceID = stripe.String(req.ClientReferenceID)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	sess, err := p.api.NewSession(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &Session{ID: sess.ID, URL: sess.URL}, nil
}

func (p *StripeProvider) GetSession(ctx context.Context, sessionID string) (*SessionStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := p.api.GetSession(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("get checkout session: %w", err)
	}
	return &SessionStatus{
		ID:                sess.ID,
		Paid:              sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		ClientReferenceID: sess.ClientReferenceID,
		AmountTotal:       sess.AmountTotal,
		Currency:          string(sess.Currency),
	}, nil
}
