package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/angelmondragon/farmfresh-backend/pkg/config"
	"github.com/angelmondragon/farmfresh-backend/pkg/logger"
)

const appName = "farmfresh-backend"

var (
	// ErrNotConfigured is returned when no secret key is present. Callers
	// boot without payments and report the provider as unavailable.
	ErrNotConfigured = errors.New("stripe api key is required")
	// ErrWebhooksDisabled is returned by VerifyEvent without a signing secret.
	ErrWebhooksDisabled = errors.New("stripe webhook signing secret not configured")
)

// keyPrefixes lists the secret and restricted key prefixes each environment
// accepts.
var keyPrefixes = map[string][]string{
	"test": {"sk_test_", "rk_test_"},
	"live": {"sk_live_", "rk_live_"},
}

// Client holds the webhook signing configuration. Construction sets the
// package level stripe.Key read by the resource packages.
type Client struct {
	environment   string
	signingSecret string
	tolerance     time.Duration
}

func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env := cfg.Environment()
	prefixes, ok := keyPrefixes[env]
	if !ok {
		return nil, fmt.Errorf("stripe environment must be test or live, got %q", env)
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if !hasAnyPrefix(apiKey, prefixes) {
		return nil, fmt.Errorf("stripe environment %q requires a key starting with %s", env, strings.Join(prefixes, " or "))
	}

	stripe.Key = apiKey
	stripe.SetAppInfo(&stripe.AppInfo{Name: appName})
	if logg != nil {
		stripe.DefaultLeveledLogger = leveledLogger{logg: logg}
	}

	tolerance := cfg.WebhookTolerance
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	c := &Client{
		environment:   env,
		signingSecret: strings.TrimSpace(cfg.Secret),
		tolerance:     tolerance,
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"stripe_env":      c.environment,
			"webhook_enabled": c.WebhooksEnabled(),
		}), "stripe client initialized")
	}
	return c, nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// WebhooksEnabled reports whether signed webhook delivery can be verified.
func (c *Client) WebhooksEnabled() bool {
	return c != nil && c.signingSecret != ""
}

// VerifyEvent checks the Stripe-Signature header against the payload and
// decodes the event. Events from a newer API version than the library are
// accepted; only checkout session fields are read from them.
func (c *Client) VerifyEvent(payload []byte, signatureHeader string) (stripe.Event, error) {
	if !c.WebhooksEnabled() {
		return stripe.Event{}, ErrWebhooksDisabled
	}
	return webhook.ConstructEventWithOptions(payload, signatureHeader, c.signingSecret, webhook.ConstructEventOptions{
		Tolerance:                c.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
}
