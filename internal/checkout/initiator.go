package checkout

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/farmfresh-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/farmfresh-backend/pkg/errors"
	"github.com/angelmondragon/farmfresh-backend/pkg/logger"
	"github.com/angelmondragon/farmfresh-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	successPath = "/checkout/success?session_id={CHECKOUT_SESSION_ID}"
	cancelPath  = "/cart"
)

var hundred = decimal.NewFromInt(100)

// CartReader exposes the stored cart of a user.
type CartReader interface {
	Snapshot(ctx context.Context, userID uuid.UUID) (cart.Snapshot, error)
}

// StartInput is the cart to pay for plus where the buyer should return to.
type StartInput struct {
	Lines  []cart.Line
	Origin string
	UserID uuid.UUID
}

type InitiatorParams struct {
	Provider           PaymentProvider
	Carts              CartReader
	Currency           string
	PaymentMethodTypes []string
	DefaultOrigin      string
	Metrics            *metrics.CheckoutMetrics
	Logger             *logger.Logger
}

// Initiator turns a cart into a hosted payment session.
type Initiator struct {
	provider      PaymentProvider
	carts         CartReader
	currency      string
	methodTypes   []string
	defaultOrigin string
	metrics       *metrics.CheckoutMetrics
	logg          *logger.Logger
}

func NewInitiator(params InitiatorParams) (*Initiator, error) {
	if params.Provider == nil {
		return nil, errors.New("payment provider is required")
	}
	currency := strings.ToLower(strings.TrimSpace(params.Currency))
	if currency == "" {
		return nil, errors.New("currency is required")
	}
	methods := params.PaymentMethodTypes
	if len(methods) == 0 {
		methods = []string{"card"}
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Initiator{
		provider:      params.Provider,
		carts:         params.Carts,
		currency:      currency,
		methodTypes:   methods,
		defaultOrigin: strings.TrimSpace(params.DefaultOrigin),
		metrics:       params.Metrics,
		logg:          logg,
	}, nil
}

// Start validates the lines and opens a session. Validation failures never
// reach the provider.
func (i *Initiator) Start(ctx context.Context, input StartInput) (*Session, error) {
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	lines := make([]ProviderLine, 0, len(input.Lines))
	for idx, line := range input.Lines {
		if strings.TrimSpace(line.Name) == "" {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "item %d is missing a name", idx)
		}
		if !line.UnitPrice.IsPositive() {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "item %q must have a positive price", line.Name)
		}
		if line.Quantity < 1 {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "item %q must have a quantity of at least 1", line.Name)
		}
		lines = append(lines, ProviderLine{
			Name:       line.Name,
			Image:      line.Image,
			UnitAmount: MinorUnits(line.UnitPrice),
			Quantity:   int64(line.Quantity),
		})
	}

	origin := i.resolveOrigin(input.Origin)
	if origin == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "origin is required")
	}

	req := SessionRequest{
		Currency:           i.currency,
		PaymentMethodTypes: i.methodTypes,
		Lines:              lines,
		SuccessURL:         origin + successPath,
		CancelURL:          origin + cancelPath,
	}
	if input.UserID != uuid.Nil {
		req.ClientReferenceID = input.UserID.String()
		req.Metadata = map[string]string{"user_id": input.UserID.String()}
	}

	sess, err := i.provider.CreateSession(ctx, req)
	if err != nil {
		i.metrics.SessionCreated(false)
		i.logg.Error(ctx, "checkout session creation failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment provider unavailable")
	}
	if sess == nil || sess.URL == "" {
		i.metrics.SessionCreated(false)
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment provider returned no session")
	}

	i.metrics.SessionCreated(true)
	i.logg.Info(i.logg.WithSessionID(ctx, sess.ID), "checkout session created")
	return sess, nil
}

// StartForUser opens a session for the user's stored cart.
func (i *Initiator) StartForUser(ctx context.Context, userID uuid.UUID, origin string) (*Session, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user is required")
	}
	if i.carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart reader not configured")
	}
	snapshot, err := i.carts.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	return i.Start(ctx, StartInput{Lines: snapshot.Lines, Origin: origin, UserID: userID})
}

// VerifyPaid asks the provider whether sessionID has been paid.
func (i *Initiator) VerifyPaid(ctx context.Context, sessionID string) (*SessionStatus, error) {
	status, err := i.provider.GetSession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment provider unavailable")
	}
	return status, nil
}

func (i *Initiator) resolveOrigin(origin string) string {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		origin = i.defaultOrigin
	}
	return strings.TrimRight(origin, "/")
}

// MinorUnits converts a major-unit amount to the provider's integer minor
// unit, rounding half away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}
