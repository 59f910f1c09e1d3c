package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/upb/governed-notebook/utils"
	"go.uber.org/zap"
)

// TokenValidator defines the interface for validating JWT tokens
type TokenValidator interface {
	// ValidateToken validates a JWT token and returns claims
	ValidateToken(ctx context.Context, token string) (*Claims, error)
}

// AuthMiddleware authenticates hub requests against the session owner
type AuthMiddleware struct {
	validator TokenValidator
	username  string
	logger    *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware. Only tokens whose subject
// is username are accepted.
func NewAuthMiddleware(validator TokenValidator, username string, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		validator: validator,
		username:  username,
		logger:    logger,
	}
}

// RequireAuth is a middleware that requires a valid JWT token
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		token := extractBearerToken(r)
		if token == "" {
			m.logger.Warn("missing token",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
			return
		}

		claims, err := m.validator.ValidateToken(ctx, token)
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, "Invalid or expired token")
			return
		}

		if claims.Subject != m.username {
			m.logger.Warn("token subject does not own this session",
				zap.String("request_id", requestID),
				zap.String("sub", claims.Subject))
			_ = utils.WriteForbidden(w, "Token does not belong to the session user", nil)
			return
		}

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("sub", claims.Subject))

		next.ServeHTTP(w, r.WithContext(WithClaims(ctx, claims)))
	})
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
