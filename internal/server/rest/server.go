// Package rest exposes the session protocol and the notes API over HTTP
// using gin.
package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/logging"
	"github.com/dmitrijs2005/gophnotes/internal/server/auth"
	"github.com/dmitrijs2005/gophnotes/internal/server/services"
	"github.com/gin-gonic/gin"
)

// Options carries the transport settings taken from the server config.
type Options struct {
	Address string
	// Production marks the refresh cookie Secure with SameSite=None.
	Production         bool
	AllowedOrigins     []string
	// TrustedProxies may set the client IP through X-Forwarded-For. Nil
	// trusts none.
	TrustedProxies     []string
	LoginRatePerMinute int
	LoginBurst         int
	ShutdownTimeout    time.Duration
}

type Server struct {
	opts     Options
	users    *services.UserService
	notes    *services.NoteService
	verifier *auth.Verifier
	limiter  *ipLimiter
	logger   logging.Logger
	engine   *gin.Engine
}

func NewServer(opts Options, l logging.Logger, us *services.UserService, ns *services.NoteService, v *auth.Verifier) (*Server, error) {
	s := &Server{
		opts:     opts,
		users:    us,
		notes:    ns,
		verifier: v,
		logger:   l.With("module", "rest_server"),
	}
	if opts.LoginRatePerMinute > 0 {
		s.limiter = newIPLimiter(opts.LoginRatePerMinute, max(opts.LoginBurst, 1))
	}
	engine, err := s.routes()
	if err != nil {
		return nil, err
	}
	s.engine = engine
	return s, nil
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests for at
// most ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.opts.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	timeout := s.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
