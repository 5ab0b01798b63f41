// Package server wires configuration, storage, token handling and the HTTP
// transport into a runnable application.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophnotes/internal/logging"
	"github.com/dmitrijs2005/gophnotes/internal/server/auth"
	"github.com/dmitrijs2005/gophnotes/internal/server/config"
	"github.com/dmitrijs2005/gophnotes/internal/server/repositories/memory"
	"github.com/dmitrijs2005/gophnotes/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophnotes/internal/server/rest"
	"github.com/dmitrijs2005/gophnotes/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *rest.Server
}

// openStorage is swapped in tests.
var openStorage = func(ctx context.Context, dsn string) (*sql.DB, repomanager.RepositoryManager, error) {
	if dsn == memory.DSN {
		return nil, memory.NewManager(), nil
	}

	db, err := repomanager.OpenDB(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, rm, nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogLevel, c.LogFormat)

	generated, err := c.EnsureSecrets()
	if err != nil {
		return nil, fmt.Errorf("generate secrets: %w", err)
	}
	if generated {
		logger.Warn(ctx, "token secrets not configured, using random ones; sessions will not survive a restart")
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	tokens := auth.Config{
		AccessSecret:  []byte(c.AccessTokenSecret),
		RefreshSecret: []byte(c.RefreshTokenSecret),
		AccessTTL:     c.AccessTokenTTL,
		RefreshTTL:    c.RefreshTokenTTL,
		Method:        c.SigningMethod,
	}
	issuer, err := auth.NewIssuer(tokens)
	if err != nil {
		return nil, err
	}
	verifier, err := auth.NewVerifier(tokens)
	if err != nil {
		return nil, err
	}

	db, rm, err := openStorage(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if db == nil {
		logger.Warn(ctx, "using in-memory storage, data is lost on exit")
	}

	us := services.NewUserService(db, rm, issuer, verifier, c.PasswordHashCost, logger)
	ns := services.NewNoteService(db, rm, logger)

	srv, err := rest.NewServer(rest.Options{
		Address:            c.Address,
		Production:         c.Production(),
		AllowedOrigins:     c.AllowedOrigins,
		TrustedProxies:     c.TrustedProxies,
		LoginRatePerMinute: c.LoginRatePerMinute,
		LoginBurst:         c.LoginBurst,
		ShutdownTimeout:    c.ShutdownTimeout,
	}, logger, us, ns, verifier)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, fmt.Errorf("http server init error: %w", err)
	}

	return &App{config: c, logger: logger, db: db, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run blocks until the HTTP server stops, either on a signal, on ctx
// cancellation or on a listen error.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "environment", app.config.Environment)
	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Run(ctx); err != nil {
			app.logger.Error(ctx, "http server stopped", "error", err)
			cancelFunc()
		}
	}()

	wg.Wait()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "close db", "error", err)
		}
	}
	app.logger.Info(ctx, "App stopped")
}
