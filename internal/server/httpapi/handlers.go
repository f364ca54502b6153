package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/greenloop/backend/internal/common"
	"github.com/greenloop/backend/internal/server/authz"
	"github.com/greenloop/backend/internal/server/credstore"
	"github.com/greenloop/backend/internal/server/users"
)

type loginForm struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshForm struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid form"})
		return
	}

	ctx := c.Request.Context()

	rec, err := s.creds.FindFirst(ctx, credstore.Filter{Field: credstore.FieldEmail, Value: form.Email})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid credentials"})
			return
		}
		s.logger.Error(ctx, "credential lookup failed during login", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "service unavailable"})
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(form.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid credentials"})
		return
	}

	user := users.FromRecord(rec)

	access, err := s.sessions.IssueAccessToken(user)
	if err != nil {
		s.logger.Error(ctx, "failed to issue access token", "error", err, "user_id", user.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return
	}

	refresh, err := s.sessions.IssueRefreshToken(ctx, user)
	if err != nil {
		s.logger.Error(ctx, "failed to issue refresh token", "error", err, "user_id", user.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return
	}

	s.setRefreshCookie(c, refresh)
	c.JSON(http.StatusOK, gin.H{
		"access_token":  access,
		"refresh_token": refresh,
		"user":          user,
	})
}

func (s *Server) handleRefresh(c *gin.Context) {
	token := s.refreshTokenFromRequest(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "authentication failed"})
		return
	}

	ctx := c.Request.Context()

	pair, user, err := s.sessions.Refresh(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrUpstreamUnavailable) {
			s.logger.Error(ctx, "refresh unavailable", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"message": "service unavailable"})
			return
		}
		s.logger.Info(ctx, "rejected refresh token", "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"message": "authentication failed"})
		return
	}

	s.setRefreshCookie(c, pair.RefreshToken)
	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"user":          user,
	})
}

func (s *Server) handleLogout(c *gin.Context) {
	ctx := c.Request.Context()

	token := extractBearer(c)

	// The refresh slot is only dropped for a subject proven by a valid
	// signature. Trusting an unverified subject claim here would let anyone
	// revoke an arbitrary user's session.
	userID := ""
	if token != "" {
		if claims, err := s.sessions.ValidateAccessToken(ctx, token); err == nil {
			userID = claims.Subject
		}
	}

	if err := s.sessions.Logout(ctx, token, userID); err != nil {
		s.logger.Error(ctx, "logout failed", "error", err, "user_id", userID)
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "service unavailable"})
		return
	}

	s.clearRefreshCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (s *Server) handleMe(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "authentication failed"})
		return
	}

	ctx := c.Request.Context()

	user, err := s.resolver.Resolve(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "user not found"})
			return
		}
		s.logger.Error(ctx, "user resolution failed", "error", err, "user_id", claims.Subject)
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "service unavailable"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// handleGetUser returns another user's profile. Only the owner or an admin
// may read it; everyone else gets 404 rather than 403 so the response does
// not confirm the user exists.
func (s *Server) handleGetUser(c *gin.Context) {
	claims, ok := claimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "authentication failed"})
		return
	}

	id := c.Param("id")
	if !authz.OwnsResource(claims, id) {
		c.JSON(http.StatusNotFound, gin.H{"message": "user not found"})
		return
	}

	ctx := c.Request.Context()

	user, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "user not found"})
			return
		}
		s.logger.Error(ctx, "user resolution failed", "error", err, "user_id", id)
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "service unavailable"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// refreshTokenFromRequest prefers the httpOnly cookie and falls back to a
// JSON body for clients that cannot send cookies.
func (s *Server) refreshTokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(common.RefreshTokenCookieName); err == nil && cookie != "" {
		return cookie
	}

	var form refreshForm
	if err := c.ShouldBindJSON(&form); err == nil {
		return form.RefreshToken
	}
	return ""
}

func (s *Server) setRefreshCookie(c *gin.Context, token string) {
	c.SetCookie(common.RefreshTokenCookieName, token, s.refreshCookieMaxAge, "/auth", "", false, true)
}

func (s *Server) clearRefreshCookie(c *gin.Context) {
	c.SetCookie(common.RefreshTokenCookieName, "", -1, "/auth", "", false, true)
}
