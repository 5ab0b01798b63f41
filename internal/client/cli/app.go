package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/client/client"
	"github.com/dmitrijs2005/gophnotes/internal/client/config"
	"github.com/dmitrijs2005/gophnotes/internal/client/services"
	"github.com/dmitrijs2005/gophnotes/internal/client/session"
	"github.com/dmitrijs2005/gophnotes/internal/filex"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config      *config.Config
	db          *sql.DB
	authService services.AuthService
	noteService services.NoteService
	reader      *bufio.Reader
	out         io.Writer

	mu   sync.Mutex
	mode Mode
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()

	if err := filex.EnsureParentDir(c.SessionFile); err != nil {
		return nil, err
	}
	db, err := client.InitDatabase(ctx, c.SessionFile)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	sess := session.New()
	apiClient, err := client.NewHTTPClient(c.ServerURL, sess, c.RequestTimeout)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	logger := logging.New(os.Stderr, "warn", "text")

	a := &App{
		config:      c,
		db:          db,
		noteService: services.NewNoteService(apiClient),
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
	}
	a.authService = services.NewAuthService(apiClient, db, sess, c.RefreshMargin, logger, a.sessionExpired)
	return a, nil
}

// Run resumes a saved session if there is one and blocks in the REPL.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.close(ctx)

	fmt.Fprintln(a.out, "Welcome to gophnotes (type 'help' for commands)")

	if ok, err := a.authService.Resume(ctx); err != nil {
		fmt.Fprintln(a.out, "Saved session could not be restored:", err)
	} else if ok {
		if u, loggedIn := a.authService.CurrentUser(); loggedIn {
			fmt.Fprintln(a.out, "Welcome back,", u.Display())
		}
	}

	go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)

	scanner := bufio.NewScanner(a.reader)
	runREPL(ctx, a, a.getStatus, scanner)
}

func (a *App) close(ctx context.Context) {
	_ = a.authService.Close(ctx)
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *App) isLoggedIn() bool {
	_, ok := a.authService.CurrentUser()
	return ok
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		fmt.Fprintf(a.out, "\nSwitched to %s mode\n", mode)
	}
}

// getStatus renders the prompt suffix, e.g. " (alice@example.com online)".
func (a *App) getStatus() string {
	s := ""
	if u, ok := a.authService.CurrentUser(); ok {
		s = u.Email + " "
	}
	s += string(a.Mode())
	if s == "" {
		return ""
	}
	return fmt.Sprintf(" (%s)", s)
}

// StartOnlineStatusWatcher pings the server every interval until ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	a.checkOnline(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := a.authService.Ping(pingCtx)
	cancel()

	if ctx.Err() != nil {
		return
	}
	if err != nil {
		a.setMode(ModeOffline)
	} else {
		a.setMode(ModeOnline)
	}
}

// sessionExpired runs on the refresh timer goroutine.
func (a *App) sessionExpired(err error) {
	fmt.Fprintln(a.out, "\nSession expired, please login again")
}
