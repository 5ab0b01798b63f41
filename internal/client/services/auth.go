// Package services contains application services for the gophnotes CLI.
// This file defines the authentication service: register, login, logout,
// resuming a saved session and keeping it alive.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/client/client"
	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophnotes/internal/client/session"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/dbx"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
)

// Keys of the persisted session in the metadata table.
const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyUser         = "user"
)

// AuthService defines authentication operations for the CLI.
type AuthService interface {
	Register(ctx context.Context, req client.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, email string, password []byte) (*models.User, error)
	Logout(ctx context.Context) error
	// Resume restores a session saved by an earlier run and schedules its
	// renewal. It reports false when nothing was saved.
	Resume(ctx context.Context) (bool, error)
	CurrentUser() (models.User, bool)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type authService struct {
	client    client.Client
	db        *sql.DB
	session   *session.Session
	scheduler *session.Scheduler
	logger    logging.Logger

	mu        sync.Mutex
	onExpired func(err error)
}

// NewAuthService wires the refresh scheduler between c and s. onExpired,
// if not nil, is called when a background renewal fails and the session
// is gone.
func NewAuthService(c client.Client, db *sql.DB, s *session.Session, margin time.Duration, l logging.Logger, onExpired func(err error)) AuthService {
	a := &authService{
		client:    c,
		db:        db,
		session:   s,
		logger:    l.With("module", "auth_service"),
		onExpired: onExpired,
	}
	a.scheduler = session.NewScheduler(s, c, margin, l)
	a.scheduler.OnExpired = a.expired
	c.OnTokenRefreshed(a.tokenRefreshed)
	return a
}

func (a *authService) Register(ctx context.Context, req client.RegisterRequest) (*models.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	return a.client.Register(ctx, req)
}

// Login authenticates against the server, persists the session and starts
// the renewal timer. The password is wiped once sent.
func (a *authService) Login(ctx context.Context, email string, password []byte) (*models.User, error) {
	defer common.WipeByteArray(password)

	u, err := a.client.Login(ctx, strings.TrimSpace(email), string(password))
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}

	if err := a.saveSession(ctx); err != nil {
		a.logger.Warn(ctx, "session not saved, it will not survive a restart", "error", err)
	}
	if err := a.scheduler.Arm(a.session.AccessToken()); err != nil {
		return nil, fmt.Errorf("schedule refresh: %w", err)
	}
	return u, nil
}

// Logout stops renewals, ends the server session and forgets the saved
// one. Local state is cleared even when the server cannot be reached.
func (a *authService) Logout(ctx context.Context) error {
	a.scheduler.Stop()

	err := a.client.Logout(ctx)
	if cerr := a.clearSaved(ctx); cerr != nil {
		a.logger.Warn(ctx, "saved session not cleared", "error", cerr)
	}
	return err
}

func (a *authService) Resume(ctx context.Context) (bool, error) {
	var access, refresh, rawUser string
	err := dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		var err error
		if access, err = repo.Get(ctx, keyAccessToken); err != nil {
			return err
		}
		if refresh, err = repo.Get(ctx, keyRefreshToken); err != nil {
			return err
		}
		rawUser, err = repo.Get(ctx, keyUser)
		return err
	})
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := a.session.SetAccessToken(access); err != nil {
		_ = a.clearSaved(ctx)
		return false, nil
	}
	var u models.User
	if json.Unmarshal([]byte(rawUser), &u) == nil && u.ID != "" {
		a.session.SetUser(u)
	}
	a.client.RestoreRefreshCookie(refresh)

	// an expired token is renewed right away
	if err := a.scheduler.Arm(access); err != nil {
		return false, err
	}
	return true, nil
}

func (a *authService) CurrentUser() (models.User, bool) {
	return a.session.User()
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// Close stops the renewal timer. The saved session is kept for the next run.
func (a *authService) Close(ctx context.Context) error {
	a.scheduler.Stop()
	return nil
}

// tokenRefreshed runs after every successful refresh, proactive or not.
func (a *authService) tokenRefreshed(token string) {
	ctx := context.Background()
	err := a.scheduler.Start(token)
	if errors.Is(err, session.ErrStopped) {
		// logged out while the refresh was in flight
		a.session.Clear()
		return
	}
	if err != nil {
		a.logger.Warn(ctx, "refresh not rescheduled", "error", err)
	}
	repo := metadata.NewSQLiteRepository(a.db)
	if err := repo.Set(ctx, keyAccessToken, token); err != nil {
		a.logger.Warn(ctx, "access token not saved", "error", err)
	}
}

func (a *authService) expired(err error) {
	ctx := context.Background()
	if cerr := a.clearSaved(ctx); cerr != nil {
		a.logger.Warn(ctx, "saved session not cleared", "error", cerr)
	}

	a.mu.Lock()
	hook := a.onExpired
	a.mu.Unlock()
	if hook != nil {
		hook(err)
	}
}

// saveSession stores the access token, refresh cookie and user in one
// transaction.
func (a *authService) saveSession(ctx context.Context) error {
	u, _ := a.session.User()
	rawUser, err := json.Marshal(u)
	if err != nil {
		return err
	}

	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, keyAccessToken, a.session.AccessToken()); err != nil {
			return err
		}
		if err := repo.Set(ctx, keyRefreshToken, a.client.RefreshCookie()); err != nil {
			return err
		}
		return repo.Set(ctx, keyUser, string(rawUser))
	})
}

func (a *authService) clearSaved(ctx context.Context) error {
	return metadata.NewSQLiteRepository(a.db).Delete(ctx, keyAccessToken, keyRefreshToken, keyUser)
}
