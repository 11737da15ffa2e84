package redis

import "strings"

// Every key lives under ff:<kind>:...
const (
	keyNamespace = "ff"

	kindCart        = "cart"
	kindReconcile   = "reconcile"
	kindIdempotency = "idempotency"
	kindRateLimit   = "rate_limit"
	kindLock        = "lock"
)

func key(kind string, parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	b.WriteByte(':')
	b.WriteString(kind)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}

// CartKey holds a user's cart snapshot.
func (c *Client) CartKey(userID string) string { return key(kindCart, userID) }

// ReconcileKey is the ledger entry for a checkout success token.
func (c *Client) ReconcileKey(token string) string { return key(kindReconcile, token) }

func (c *Client) IdempotencyKey(scope, id string) string { return key(kindIdempotency, scope, id) }

func (c *Client) RateLimitKey(scope string) string { return key(kindRateLimit, scope) }

func (c *Client) LockKey(name string) string { return key(kindLock, name) }
