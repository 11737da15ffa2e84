package checkout

import "context"

// ProviderLine is one priced line sent to the payment provider. UnitAmount is
// in the currency's minor unit.
type ProviderLine struct {
	Name       string
	Image      string
	UnitAmount int64
	Quantity   int64
}

// SessionRequest describes a hosted payment session.
type SessionRequest struct {
	Currency           string
	PaymentMethodTypes []string
	Lines              []ProviderLine
	SuccessURL         string
	CancelURL          string
	ClientReferenceID  string
	Metadata           map[string]string
}

// Session is the provider handle returned to the buyer.
type Session struct {
	ID  string `json:"sessionId"`
	URL string `json:"url"`
}

// SessionStatus is the provider view of an existing session.
type SessionStatus struct {
	ID                string
	Paid              bool
	ClientReferenceID string
	AmountTotal       int64
	Currency          string
}

// PaymentProvider creates and inspects hosted checkout sessions.
type PaymentProvider interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	GetSession(ctx context.Context, sessionID string) (*SessionStatus, error)
}
