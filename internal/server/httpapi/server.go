// Package httpapi is the thin HTTP adapter over the session core: bearer
// extraction, the auth middleware, and the login/refresh/logout/me
// handlers. Business routing for the rest of the backend lives elsewhere.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/greenloop/backend/internal/logging"
	"github.com/greenloop/backend/internal/server/config"
	"github.com/greenloop/backend/internal/server/credstore"
	"github.com/greenloop/backend/internal/server/sessions"
)

type Server struct {
	address  string
	engine   *gin.Engine
	sessions *sessions.Manager
	resolver sessions.UserResolver
	creds    credstore.Store
	logger   logging.Logger

	refreshCookieMaxAge int
}

func NewServer(cfg *config.Config, sm *sessions.Manager, resolver sessions.UserResolver, creds credstore.Store, logger logging.Logger) *Server {
	s := &Server{
		address:             cfg.EndpointAddrHTTP,
		sessions:            sm,
		resolver:            resolver,
		creds:               creds,
		logger:              logger.With("module", "http_server"),
		refreshCookieMaxAge: int(cfg.RefreshTokenValidityDuration.Seconds()),
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	auth := engine.Group("/auth")
	{
		auth.POST("/login", s.handleLogin)
		auth.POST("/refresh", s.handleRefresh)
		auth.POST("/logout", s.handleLogout)
	}

	users := engine.Group("/users")
	users.Use(s.RequireAuth())
	{
		users.GET("/me", s.handleMe)
		users.GET("/:id", s.handleGetUser)
	}

	s.engine = engine
	return s
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.engine,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler exposes the routing tree for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}
