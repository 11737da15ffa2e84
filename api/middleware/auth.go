package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/farmfresh-backend/api/responses"
	pkgAuth "github.com/angelmondragon/farmfresh-backend/pkg/auth"
	"github.com/angelmondragon/farmfresh-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/farmfresh-backend/pkg/errors"
	"github.com/angelmondragon/farmfresh-backend/pkg/logger"
)

const bearerScheme = "bearer "

// Auth requires a valid bearer token and stores the user id, email and role
// on the request context. A JWT config that cannot build a verifier rejects
// every request with INTERNAL_ERROR rather than letting it through.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	tokens, cfgErr := pkgAuth.NewTokens(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfgErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, cfgErr, "auth misconfigured"))
				return
			}
			ctx, err := authenticate(r.Context(), tokens, r.Header.Get("Authorization"))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    UserIDFromContext(ctx),
					"actor_role": RoleFromContext(ctx),
				})
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(ctx context.Context, tokens *pkgAuth.Tokens, header string) (context.Context, error) {
	raw := bearerToken(header)
	if raw == "" {
		return ctx, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := tokens.Parse(raw)
	if err != nil {
		return ctx, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	userID, err := claims.UserID()
	if err != nil {
		return ctx, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token subject")
	}

	ctx = WithUserID(ctx, userID.String())
	ctx = WithEmail(ctx, claims.Email)
	return context.WithValue(ctx, ctxRole, string(claims.Role)), nil
}

// bearerToken strips a case-insensitive "Bearer " prefix. A bare token is
// accepted as is.
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) >= len(bearerScheme) && strings.EqualFold(header[:len(bearerScheme)], bearerScheme) {
		header = header[len(bearerScheme):]
	}
	return strings.TrimSpace(header)
}
