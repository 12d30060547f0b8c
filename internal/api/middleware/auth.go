package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"bhph-engine/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware guards the sale and payment routes with a bearer token
// signed by the secret from config. When auth is disabled the middleware is
// a passthrough.
func AuthMiddleware(cfg config.AuthConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	logger = logger.With("component", "AuthMiddleware")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authorized(r, cfg.JWTSecret, logger) {
				http.Error(w, `{"error":{"message":"Unauthorized"}}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authorized(r *http.Request, secret string, logger *slog.Logger) bool {
	tokenString, ok := bearerToken(r)
	if !ok {
		logger.Warn("Missing or malformed Authorization header", "path", r.URL.Path)
		return false
	}

	token, err := jwt.Parse(tokenString, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil || !token.Valid {
		logger.Warn("Rejected bearer token", "path", r.URL.Path, "error", err)
		return false
	}

	logger.Debug("Authenticated request", "path", r.URL.Path, "username", usernameClaim(token))
	return true
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// usernameClaim pulls the username out of a validated token for logging.
// Tokens minted elsewhere may not carry one.
func usernameClaim(token *jwt.Token) string {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	username, _ := claims["username"].(string)
	return username
}
