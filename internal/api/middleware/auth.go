package middleware

import (
	"context"
	"net/http"
	"studyhub/internal/common"
	"studyhub/internal/common/security"
	"studyhub/internal/domain/model"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"go.uber.org/zap"
)

type contextKey string

const (
	PrincipalCtxKey contextKey = "principal"
	TokenCtxKey     contextKey = "token"
)

// RevocationChecker reports whether a token id was logged out.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// TokenInfo identifies the token that authenticated the request.
type TokenInfo struct {
	ID        string
	ExpiresAt time.Time
}

// Authenticator requires a verified, unrevoked token and hands the caller to
// handlers as a model.Principal. jwtauth.Verifier must run first.
func Authenticator(revocations RevocationChecker, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				common.RespondWithAppError(w, common.Errorf("authorization token required: %w", common.ErrUnauthorized))
				return
			}

			principal, err := security.PrincipalFromClaims(claims)
			if err != nil {
				common.RespondWithAppError(w, common.Errorf("invalid token claims: %w", common.ErrUnauthorized))
				return
			}
			tokenID, expiresAt, err := security.TokenIDFromClaims(claims)
			if err != nil {
				common.RespondWithAppError(w, common.Errorf("invalid token claims: %w", common.ErrUnauthorized))
				return
			}

			revoked, err := revocations.IsRevoked(r.Context(), tokenID)
			if err != nil {
				log.Error("token revocation check failed", zap.Error(err))
				common.RespondWithAppError(w, common.Errorf("cannot verify session: %w", common.ErrServiceUnavailable))
				return
			}
			if revoked {
				common.RespondWithAppError(w, common.Errorf("session has been logged out: %w", common.ErrUnauthorized))
				return
			}

			ctx := context.WithValue(r.Context(), PrincipalCtxKey, principal)
			ctx = context.WithValue(ctx, TokenCtxKey, TokenInfo{ID: tokenID, ExpiresAt: expiresAt})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(PrincipalCtxKey).(model.Principal)
	return p, ok
}

func TokenFromContext(ctx context.Context) (TokenInfo, bool) {
	t, ok := ctx.Value(TokenCtxKey).(TokenInfo)
	return t, ok
}
