package middleware

import (
	"net/http"
	"strings"

	"github.com/kaclira/kaclira-backend/api/responses"
	"github.com/kaclira/kaclira-backend/pkg/auth"
	"github.com/kaclira/kaclira-backend/pkg/config"
	pkgerrors "github.com/kaclira/kaclira-backend/pkg/errors"
	"github.com/kaclira/kaclira-backend/pkg/logger"
)

const bearerPrefix = "Bearer "

// Auth validates the bearer token and seeds identity data into the request context.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, bearerPrefix) {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := auth.ParseAccessToken(cfg, strings.TrimPrefix(header, bearerPrefix))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx = WithUserID(ctx, claims.UserID.String())
			ctx = WithRole(ctx, claims.Role.String())

			fields := map[string]any{
				"user_id": claims.UserID.String(),
				"role":    claims.Role.String(),
			}
			if claims.SellerID != nil {
				ctx = WithSellerID(ctx, claims.SellerID.String())
				fields["seller_id"] = claims.SellerID.String()
			}
			if logg != nil {
				ctx = logg.WithFields(ctx, fields)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSeller rejects requests whose token carries no seller binding.
func RequireSeller(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if SellerIDFromContext(r.Context()) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "seller account required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
