// Package server initializes and runs the backend application: it wires
// the cache, credential store, session manager, and HTTP surface together
// and handles graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/greenloop/backend/internal/kvstore"
	"github.com/greenloop/backend/internal/logging"
	"github.com/greenloop/backend/internal/server/config"
	"github.com/greenloop/backend/internal/server/credstore"
	"github.com/greenloop/backend/internal/server/httpapi"
	"github.com/greenloop/backend/internal/server/sessions"
	"github.com/greenloop/backend/internal/server/users"
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	httpServer *httpapi.Server
}

func NewApp(cfg *config.Config) (*App, error) {
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	kv, err := kvstore.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("cache init error: %w", err)
	}

	creds := credstore.NewAirtable(cfg.AirtableBaseURL, cfg.AirtableAPIKey, cfg.AirtableBaseID, cfg.AirtableUsersTable)

	resolver := users.NewResolver(creds, kv, cfg.UserCacheTTL, cfg.CacheOpTimeout, logger)
	sm := sessions.NewManager(kv, resolver, cfg, logger)

	httpServer := httpapi.NewServer(cfg, sm, resolver, creds, logger)

	return &App{config: cfg, logger: logger, httpServer: httpServer}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.httpServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()
}
