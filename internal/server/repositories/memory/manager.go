// Package memory keeps users and notes in process memory. It backs the
// server when started with the "memory" DSN and doubles as a realistic
// store in tests.
package memory

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/dbx"
	"github.com/dmitrijs2005/gophnotes/internal/server/models"
	"github.com/dmitrijs2005/gophnotes/internal/server/repositories/notes"
	"github.com/dmitrijs2005/gophnotes/internal/server/repositories/users"
)

// DSN selects this store in the server config.
const DSN = "memory"

type state struct {
	mu    sync.RWMutex
	txMu  sync.Mutex
	now   func() time.Time
	users map[string]*models.User
	notes map[string]*models.Note
}

// Manager implements repomanager.RepositoryManager. The db arguments are
// ignored.
type Manager struct {
	st    *state
	users *Users
	notes *Notes
}

func NewManager() *Manager {
	return NewManagerWithClock(time.Now)
}

func NewManagerWithClock(now func() time.Time) *Manager {
	st := &state{
		now:   now,
		users: make(map[string]*models.User),
		notes: make(map[string]*models.Note),
	}
	return &Manager{st: st, users: &Users{st: st}, notes: &Notes{st: st}}
}

func (m *Manager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *Manager) Users(dbx.DBTX) users.Repository { return m.users }

func (m *Manager) Notes(dbx.DBTX) notes.Repository { return m.notes }

// InTx serialises fn against other InTx calls. Writes are not rolled back
// on error.
func (m *Manager) InTx(ctx context.Context, _ *sql.DB, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	m.st.txMu.Lock()
	defer m.st.txMu.Unlock()
	return fn(ctx, nil)
}
