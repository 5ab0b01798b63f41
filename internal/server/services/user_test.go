package services

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/dbx"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
	"github.com/dmitrijs2005/gophnotes/internal/server/auth"
	"github.com/dmitrijs2005/gophnotes/internal/server/models"
	"github.com/dmitrijs2005/gophnotes/internal/server/repositories/memory"
	"github.com/dmitrijs2005/gophnotes/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophnotes/internal/server/repositories/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- helpers ---

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func tokenConfig() auth.Config {
	return auth.Config{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     30 * time.Second,
		RefreshTTL:    24 * time.Hour,
	}
}

func newTokens(t *testing.T, clk *fakeClock) (*auth.Issuer, *auth.Verifier) {
	t.Helper()
	iss, err := auth.NewIssuer(tokenConfig(), auth.WithClock(clk.Now))
	require.NoError(t, err)
	ver, err := auth.NewVerifier(tokenConfig(), auth.WithClock(clk.Now))
	require.NoError(t, err)
	return iss, ver
}

func newUserService(t *testing.T, rm repomanager.RepositoryManager) (*UserService, *auth.Verifier, *fakeClock) {
	t.Helper()
	clk := &fakeClock{t: t0}
	iss, ver := newTokens(t, clk)
	return NewUserService(nil, rm, iss, ver, bcrypt.MinCost, logging.Nop()), ver, clk
}

func register(t *testing.T, s *UserService, email string) string {
	t.Helper()
	u, err := s.Register(context.Background(), RegisterInput{Name: "A", Email: email, Gender: "other", Password: "secret1"})
	require.NoError(t, err)
	return u.ID
}

// conflictingUsers reports a version conflict for the first n writes.
type conflictingUsers struct {
	users.Repository
	mu        sync.Mutex
	conflicts int
	calls     int
}

func (r *conflictingUsers) SetRefreshToken(ctx context.Context, userID, token string, expectedVersion int64) (int64, error) {
	r.mu.Lock()
	r.calls++
	if r.conflicts > 0 {
		r.conflicts--
		r.mu.Unlock()
		return 0, common.ErrVersionConflict
	}
	r.mu.Unlock()
	return r.Repository.SetRefreshToken(ctx, userID, token, expectedVersion)
}

// brokenUsers fails every lookup with a driver-level error.
type brokenUsers struct {
	users.Repository
}

func (brokenUsers) FindByEmail(context.Context, string) (*models.User, error) {
	return nil, errors.New("connection reset")
}

type fakeManager struct {
	*memory.Manager
	users users.Repository
}

func (m *fakeManager) Users(dbx.DBTX) users.Repository { return m.users }

// --- tests ---

func TestRegister(t *testing.T) {
	svc, _, _ := newUserService(t, memory.NewManager())
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{Name: " A ", Email: "a@x.com", Gender: "other", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "A", u.Name)

	tests := []struct {
		name string
		in   RegisterInput
		want error
	}{
		{"missing name", RegisterInput{Email: "b@x.com", Gender: "f", Password: "p"}, common.ErrValidation},
		{"missing password", RegisterInput{Name: "B", Email: "b@x.com", Gender: "f"}, common.ErrValidation},
		{"bad email", RegisterInput{Name: "B", Email: "not-an-email", Gender: "f", Password: "p"}, common.ErrValidation},
		{"display name email", RegisterInput{Name: "B", Email: "B <b@x.com>", Gender: "f", Password: "p"}, common.ErrValidation},
		{"too long password", RegisterInput{Name: "B", Email: "b@x.com", Gender: "f", Password: string(make([]byte, 73))}, common.ErrValidation},
		{"duplicate", RegisterInput{Name: "C", Email: "a@x.com", Gender: "f", Password: "p"}, common.ErrDuplicateEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLogin_IssuesVerifiablePair(t *testing.T) {
	svc, ver, _ := newUserService(t, memory.NewManager())
	id := register(t, svc, "a@x.com")

	res, err := svc.Login(context.Background(), "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, id, res.User.ID)
	assert.Equal(t, t0.Add(24*time.Hour), res.RefreshExpiresAt)

	claims, err := ver.VerifyAccess(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, id, claims.Subject)
	assert.Equal(t, "a@x.com", claims.User.Email)

	_, err = ver.VerifyAccess(res.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidSignature, "refresh token is signed with its own secret")
}

func TestLogin_Failures(t *testing.T) {
	svc, _, _ := newUserService(t, memory.NewManager())
	register(t, svc, "a@x.com")
	ctx := context.Background()

	_, err := svc.Login(ctx, "", "secret1")
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = svc.Login(ctx, "a@x.com", "wrong")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@x.com", "secret1")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
}

func TestLogin_InternalErrorIsHidden(t *testing.T) {
	m := memory.NewManager()
	svc, _, _ := newUserService(t, &fakeManager{Manager: m, users: brokenUsers{m.Users(nil)}})

	_, err := svc.Login(context.Background(), "a@x.com", "secret1")
	require.ErrorIs(t, err, common.ErrorInternal)
	assert.NotContains(t, err.Error(), "connection reset")
}

func TestLogin_RetriesOnVersionConflict(t *testing.T) {
	m := memory.NewManager()

	t.Run("recovers", func(t *testing.T) {
		repo := &conflictingUsers{Repository: m.Users(nil), conflicts: 2}
		svc, _, _ := newUserService(t, &fakeManager{Manager: m, users: repo})
		register(t, svc, "retry@x.com")

		res, err := svc.Login(context.Background(), "retry@x.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, 3, repo.calls)

		_, err = svc.Refresh(context.Background(), res.RefreshToken)
		assert.NoError(t, err)
	})

	t.Run("gives up", func(t *testing.T) {
		repo := &conflictingUsers{Repository: m.Users(nil), conflicts: 10}
		svc, _, _ := newUserService(t, &fakeManager{Manager: m, users: repo})
		register(t, svc, "busy@x.com")

		_, err := svc.Login(context.Background(), "busy@x.com", "secret1")
		assert.ErrorIs(t, err, common.ErrorInternal)
		assert.Equal(t, loginAttempts, repo.calls)
	})
}

func TestRefresh(t *testing.T) {
	svc, ver, clk := newUserService(t, memory.NewManager())
	id := register(t, svc, "a@x.com")
	ctx := context.Background()

	res, err := svc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	clk.Advance(31 * time.Second)
	_, err = ver.VerifyAccess(res.AccessToken)
	require.ErrorIs(t, err, auth.ErrExpired)

	access, err := svc.Refresh(ctx, res.RefreshToken)
	require.NoError(t, err)
	claims, err := ver.VerifyAccess(access)
	require.NoError(t, err)
	assert.Equal(t, id, claims.Subject)

	_, err = svc.Refresh(ctx, res.RefreshToken)
	assert.NoError(t, err, "refresh token is reusable until it expires")

	_, err = svc.Refresh(ctx, "")
	assert.ErrorIs(t, err, common.ErrMissingToken)

	_, err = svc.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	clk.Advance(24 * time.Hour)
	_, err = svc.Refresh(ctx, res.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidToken, "expired refresh token")
}

func TestRefresh_LaterLoginReplacesSession(t *testing.T) {
	svc, _, _ := newUserService(t, memory.NewManager())
	register(t, svc, "a@x.com")
	ctx := context.Background()

	first, err := svc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	second, err := svc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
	_, err = svc.Refresh(ctx, second.RefreshToken)
	assert.NoError(t, err)
}

func TestLogout(t *testing.T) {
	svc, _, _ := newUserService(t, memory.NewManager())
	register(t, svc, "a@x.com")
	ctx := context.Background()

	res, err := svc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Logout(ctx, ""), common.ErrMissingToken)
	assert.ErrorIs(t, svc.Logout(ctx, "unknown"), common.ErrInvalidToken)

	require.NoError(t, svc.Logout(ctx, res.RefreshToken))
	assert.ErrorIs(t, svc.Logout(ctx, res.RefreshToken), common.ErrInvalidToken, "second logout")

	_, err = svc.Refresh(ctx, res.RefreshToken)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestUpdateAndDeleteUser(t *testing.T) {
	svc, _, _ := newUserService(t, memory.NewManager())
	a := register(t, svc, "a@x.com")
	b := register(t, svc, "b@x.com")
	ctx := context.Background()

	_, err := svc.UpdateUser(ctx, b, a, UpdateUserInput{Name: "X"})
	assert.ErrorIs(t, err, common.ErrForbidden)
	assert.ErrorIs(t, svc.DeleteUser(ctx, b, a), common.ErrForbidden)

	_, err = svc.UpdateUser(ctx, a, a, UpdateUserInput{Email: "b@x.com"})
	assert.ErrorIs(t, err, common.ErrDuplicateEmail)

	u, err := svc.UpdateUser(ctx, a, a, UpdateUserInput{Name: "Alice", Password: "new-secret"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)
	assert.Equal(t, "a@x.com", u.Email)

	_, err = svc.Login(ctx, "a@x.com", "new-secret")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteUser(ctx, a, a))
	_, err = svc.GetUser(ctx, a)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	list, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b, list[0].ID)
}

func TestUpdateUser_PostgresTransaction(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	clk := &fakeClock{t: t0}
	iss, ver := newTokens(t, clk)
	svc := NewUserService(db, repomanager.NewPostgresRepositoryManager(), iss, ver, bcrypt.MinCost, logging.Nop())

	cols := []string{"id", "name", "email", "gender", "password_hash", "refresh_token_hash", "token_version", "created_at", "updated_at"}

	t.Run("commit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
			WithArgs("u-1").
			WillReturnRows(sqlmock.NewRows(cols).AddRow("u-1", "A", "a@x.com", "other", "h", nil, int64(0), t0, t0))
		mock.ExpectQuery(`(?s)^UPDATE\s+users\s+SET\s+name`).
			WithArgs("B", "a@x.com", "other", "h", "u-1").
			WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(t0.Add(time.Minute)))
		mock.ExpectCommit()

		u, err := svc.UpdateUser(context.Background(), "u-1", "u-1", UpdateUserInput{Name: "B"})
		require.NoError(t, err)
		assert.Equal(t, "B", u.Name)
		assert.Equal(t, t0.Add(time.Minute), u.UpdatedAt)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback on missing user", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = $1`)).
			WithArgs("u-2").
			WillReturnRows(sqlmock.NewRows(cols))
		mock.ExpectRollback()

		_, err := svc.UpdateUser(context.Background(), "u-2", "u-2", UpdateUserInput{Name: "B"})
		assert.ErrorIs(t, err, common.ErrorNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
