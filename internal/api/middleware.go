package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"gearshare/pkg/config"
)

// UserAuth resolves the acting user from a bearer token issued by the
// identity service (HS256, subject = user id). Token issuance is not our
// concern; we only verify.
//
// Dev fallback: outside prod, an `X-User-ID` header is accepted so local
// flows don't need a token mint.
func UserAuth(cfg config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := strings.TrimSpace(r.Header.Get("Authorization"))
			if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				token := strings.TrimSpace(authz[7:])
				userID, err := verifyUserToken(token, cfg.JWTSecret, time.Now())
				if err != nil {
					WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
					return
				}
				next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
				return
			}

			if cfg.AppEnv != "prod" {
				if devUser := strings.TrimSpace(r.Header.Get("X-User-ID")); devUser != "" {
					next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), devUser)))
					return
				}
			}

			WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing token")
		})
	}
}

func verifyUserToken(tokenString, secret string, now time.Time) (string, error) {
	if tokenString == "" {
		return "", fmt.Errorf("missing token")
	}
	if secret == "" {
		return "", fmt.Errorf("missing jwt secret")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	claims := &jwt.RegisteredClaims{}
	tok, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if !tok.Valid {
		return "", fmt.Errorf("invalid token")
	}

	sub := strings.TrimSpace(claims.Subject)
	if _, err := uuid.Parse(sub); err != nil {
		return "", fmt.Errorf("invalid subject: %w", err)
	}
	return sub, nil
}

// AdminAuth guards operator-only endpoints with a shared secret header.
func AdminAuth(cfg config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := strings.TrimSpace(r.Header.Get("X-Admin-Secret"))
			if cfg.AdminSecret == "" || secret != cfg.AdminSecret {
				WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid admin secret")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
