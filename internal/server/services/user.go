// Package services contains server-side business logic: the session
// controller (register, login, refresh, logout), user administration and
// notes.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/dbx"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
	"github.com/dmitrijs2005/gophnotes/internal/server/auth"
	"github.com/dmitrijs2005/gophnotes/internal/server/models"
	"github.com/dmitrijs2005/gophnotes/internal/server/repositories/repomanager"
)

// loginAttempts bounds the re-read/write loop when concurrent logins for
// the same user keep moving token_version.
const loginAttempts = 3

// LoginResult is what a successful login hands to the transport layer.
// RefreshToken goes into the cookie, never into the body.
type LoginResult struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
	User             models.SafeUser
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Gender   string `json:"gender"`
	Password string `json:"password"`
}

// UpdateUserInput carries a partial update; empty fields keep their value.
type UpdateUserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Gender   string `json:"gender"`
	Password string `json:"password"`
}

// UserService is the session controller. The refresh token stored on the
// user row is the only server-side session state.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	issuer      *auth.Issuer
	verifier    *auth.Verifier
	hashCost    int
	logger      logging.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, issuer *auth.Issuer, verifier *auth.Verifier, hashCost int, logger logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		issuer:      issuer,
		verifier:    verifier,
		hashCost:    hashCost,
		logger:      logger.With("module", "user_service"),
	}
}

// RefreshTTL is the lifetime the refresh cookie must carry.
func (s *UserService) RefreshTTL() time.Duration {
	return s.issuer.RefreshTTL()
}

// Register validates the input, hashes the password and creates the user.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.SafeUser, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Gender = strings.TrimSpace(in.Gender)

	if in.Name == "" || in.Email == "" || in.Gender == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: all fields (name, email, gender, password) are required", common.ErrValidation)
	}
	if err := validateEmail(in.Email); err != nil {
		return nil, err
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, s.failure(ctx, "hash password", err)
	}

	u, err := s.repomanager.Users(s.db).Create(ctx, &models.User{
		Name:         in.Name,
		Email:        in.Email,
		Gender:       in.Gender,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, s.failure(ctx, "create user", err)
	}

	s.logger.Info(ctx, "user registered", "user_id", u.ID)
	safe := u.Safe()
	return &safe, nil
}

// Login checks credentials and starts a session. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrValidation)
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.FindByEmail(ctx, email)
	if errors.Is(err, common.ErrorNotFound) {
		// keep the response time of unknown emails in line with real ones
		_ = auth.ComparePassword(s.fakeHash(), password)
		return nil, common.ErrInvalidCredentials
	}
	if err != nil {
		return nil, s.failure(ctx, "find user", err)
	}

	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, common.ErrInvalidCredentials
		}
		return nil, s.failure(ctx, "compare password", err)
	}

	for attempt := 1; ; attempt++ {
		res, err := s.startSession(ctx, user)
		if err == nil {
			s.logger.Info(ctx, "user logged in", "user_id", user.ID)
			return res, nil
		}
		if !errors.Is(err, common.ErrVersionConflict) || attempt == loginAttempts {
			return nil, s.failure(ctx, "store refresh token", err)
		}

		s.logger.Debug(ctx, "concurrent login detected, retrying", "user_id", user.ID, "attempt", attempt)
		if user, err = repo.FindByID(ctx, user.ID); err != nil {
			return nil, s.failure(ctx, "reload user", err)
		}
	}
}

// startSession issues a token pair for user and stores the refresh token
// guarded by the version read together with user.
func (s *UserService) startSession(ctx context.Context, user *models.User) (*LoginResult, error) {
	safe := user.Safe()

	access, _, err := s.issuer.IssueAccessToken(safe)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.issuer.IssueRefreshToken(safe)
	if err != nil {
		return nil, err
	}

	if _, err := s.repomanager.Users(s.db).SetRefreshToken(ctx, user.ID, refresh, user.TokenVersion); err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
		User:             safe,
	}, nil
}

// Logout revokes the stored refresh token. Only the holder of the current
// token can end the session.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return common.ErrMissingToken
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.FindByRefreshToken(ctx, refreshToken)
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrInvalidToken
	}
	if err != nil {
		return s.failure(ctx, "find session", err)
	}

	err = repo.ClearRefreshToken(ctx, user.ID, refreshToken)
	if errors.Is(err, common.ErrorNotFound) {
		// replaced by a concurrent login between the read and the clear
		return common.ErrInvalidToken
	}
	if err != nil {
		return s.failure(ctx, "clear refresh token", err)
	}

	s.logger.Info(ctx, "user logged out", "user_id", user.ID)
	return nil
}

// Refresh mints a new access token for the holder of the stored refresh
// token. The refresh token itself is not rotated.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", common.ErrMissingToken
	}

	user, err := s.repomanager.Users(s.db).FindByRefreshToken(ctx, refreshToken)
	if errors.Is(err, common.ErrorNotFound) {
		return "", common.ErrInvalidToken
	}
	if err != nil {
		return "", s.failure(ctx, "find session", err)
	}

	claims, err := s.verifier.VerifyRefresh(refreshToken)
	if err != nil {
		s.logger.Debug(ctx, "refresh token rejected", "user_id", user.ID, "reason", err)
		return "", common.ErrInvalidToken
	}
	if claims.Subject != user.ID {
		return "", common.ErrInvalidToken
	}

	access, _, err := s.issuer.IssueAccessToken(user.Safe())
	if err != nil {
		return "", s.failure(ctx, "issue access token", err)
	}
	return access, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.SafeUser, error) {
	users, err := s.repomanager.Users(s.db).List(ctx)
	if err != nil {
		return nil, s.failure(ctx, "list users", err)
	}

	result := make([]models.SafeUser, 0, len(users))
	for i := range users {
		result = append(result, users[i].Safe())
	}
	return result, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*models.SafeUser, error) {
	u, err := s.repomanager.Users(s.db).FindByID(ctx, id)
	if err != nil {
		return nil, s.failure(ctx, "find user", err)
	}
	safe := u.Safe()
	return &safe, nil
}

// UpdateUser applies a partial update. Users may only edit themselves.
func (s *UserService) UpdateUser(ctx context.Context, actorID, id string, in UpdateUserInput) (*models.SafeUser, error) {
	if actorID != id {
		return nil, common.ErrForbidden
	}
	in.Email = strings.TrimSpace(in.Email)
	if in.Email != "" {
		if err := validateEmail(in.Email); err != nil {
			return nil, err
		}
	}

	var updated *models.User
	err := s.repomanager.InTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		u, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}

		setIfPresent(&u.Name, in.Name)
		setIfPresent(&u.Email, in.Email)
		setIfPresent(&u.Gender, in.Gender)
		if in.Password != "" {
			if u.PasswordHash, err = s.hashPassword(in.Password); err != nil {
				return err
			}
		}

		updated, err = repo.Update(ctx, u)
		return err
	})
	if err != nil {
		return nil, s.failure(ctx, "update user", err)
	}

	safe := updated.Safe()
	return &safe, nil
}

// DeleteUser removes the caller's account together with its notes.
func (s *UserService) DeleteUser(ctx context.Context, actorID, id string) error {
	if actorID != id {
		return common.ErrForbidden
	}
	if err := s.repomanager.Users(s.db).Delete(ctx, id); err != nil {
		return s.failure(ctx, "delete user", err)
	}
	s.logger.Info(ctx, "user deleted", "user_id", id)
	return nil
}

// --- helpers below ---

func (s *UserService) hashPassword(password string) (string, error) {
	h, err := auth.HashPassword(password, s.hashCost)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	return h, err
}

func (s *UserService) fakeHash() string {
	s.dummyOnce.Do(func() {
		h, err := auth.HashPassword("gophnotes-dummy-password", s.hashCost)
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

// failure passes domain sentinels through and hides everything else behind
// common.ErrorInternal after logging it.
func (s *UserService) failure(ctx context.Context, op string, err error) error {
	return passOrInternal(ctx, s.logger, op, err)
}

func passOrInternal(ctx context.Context, logger logging.Logger, op string, err error) error {
	for _, known := range []error{
		common.ErrValidation,
		common.ErrDuplicateEmail,
		common.ErrorNotFound,
		common.ErrForbidden,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	logger.Error(ctx, op+" failed", "error", err)
	return common.ErrorInternal
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: email %q is not valid", common.ErrValidation, email)
	}
	return nil
}

func setIfPresent(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
