package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/greenloop/backend/internal/common"
	"github.com/greenloop/backend/internal/server/tokens"
)

const claimsContextKey = "accessClaims"

// extractBearer returns the token from the Authorization header, accepting
// both "Bearer <token>" and a bare token value.
func extractBearer(c *gin.Context) string {
	header := c.GetHeader(common.AuthorizationHeaderName)
	parts := strings.Split(header, " ")
	if len(parts) == 2 {
		return parts[1]
	}
	return parts[0]
}

// RequireAuth validates the bearer access token on every request. The
// distinct failure kinds (malformed, invalid, expired, revoked) are logged
// but collapse into one uniform 401 body so the response leaks nothing
// useful to a token-guessing client. Cache outages surface as 503, not as
// a silent pass.
func (s *Server) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "authentication failed"})
			return
		}

		claims, err := s.sessions.ValidateAccessToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, common.ErrUpstreamUnavailable) {
				s.logger.Error(c.Request.Context(), "token validation unavailable", "error", err)
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"message": "service unavailable"})
				return
			}
			s.logger.Info(c.Request.Context(), "rejected access token", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "authentication failed"})
			return
		}

		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

// claimsFromContext returns the validated claims stored by RequireAuth.
func claimsFromContext(c *gin.Context) (*tokens.AccessClaims, bool) {
	v, ok := c.Get(claimsContextKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*tokens.AccessClaims)
	return claims, ok
}
