package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"staycation/internal/pkg/jwt"
	"staycation/internal/pkg/response"
)

// RevocationChecker reports whether a token id was revoked by logout.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// JWTAuth validates the bearer token and stores user_id, role, jti and
// token_exp in the gin context. revoked may be nil.
func JWTAuth(jwtService *jwt.Service, revoked RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Authorization header required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be: Bearer <token>")
			c.Abort()
			return
		}

		if !authenticate(c, jwtService, revoked, parts[1]) {
			c.Abort()
			return
		}
		c.Next()
	}
}

// authenticate writes the error response itself and returns false on failure.
func authenticate(c *gin.Context, jwtService *jwt.Service, revoked RevocationChecker, token string) bool {
	claims, err := jwtService.ValidateToken(token)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
		return false
	}

	if revoked != nil && claims.ID != "" {
		isRevoked, err := revoked.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			zerolog.Ctx(c.Request.Context()).Warn().Err(err).Msg("token revocation lookup failed")
		}
		if isRevoked {
			response.Error(c, http.StatusUnauthorized, "TOKEN_REVOKED", "Token has been revoked")
			return false
		}
	}

	c.Set("user_id", claims.UserID)
	c.Set("role", claims.Role)
	c.Set("jti", claims.ID)
	if claims.ExpiresAt != nil {
		c.Set("token_exp", claims.ExpiresAt.Time)
	}
	return true
}

// QueryTokenAuth authenticates websocket upgrades, where browsers cannot set
// headers, from the token query parameter.
func QueryTokenAuth(jwtService *jwt.Service, revoked RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			response.Error(c, http.StatusUnauthorized, "TOKEN_MISSING", "token query parameter required")
			c.Abort()
			return
		}
		if !authenticate(c, jwtService, revoked, token) {
			c.Abort()
			return
		}
		c.Next()
	}
}
