package cli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/client/client"
	"github.com/dmitrijs2005/gophnotes/internal/client/config"
	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type fakeAuth struct {
	mu sync.Mutex

	user     *models.User
	resumed  bool
	pingErr  error
	loginErr error

	LastRegister client.RegisterRequest
	LastEmail    string
	LastPassword string
	LogoutCalls  int
	Closed       bool
}

func (f *fakeAuth) Register(_ context.Context, req client.RegisterRequest) (*models.User, error) {
	f.LastRegister = req
	return &models.User{ID: "u-2", Email: req.Email}, nil
}

func (f *fakeAuth) Login(_ context.Context, email string, password []byte) (*models.User, error) {
	f.LastEmail, f.LastPassword = email, string(password)
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user = &models.User{ID: "u-1", Name: "Alice", Email: email}
	return f.user, nil
}

func (f *fakeAuth) Logout(context.Context) error {
	f.LogoutCalls++
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user = nil
	return nil
}

func (f *fakeAuth) Resume(context.Context) (bool, error) {
	if f.resumed {
		f.user = &models.User{ID: "u-1", Name: "Alice", Email: "alice@example.com"}
	}
	return f.resumed, nil
}

func (f *fakeAuth) CurrentUser() (models.User, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.user == nil {
		return models.User{}, false
	}
	return *f.user, true
}

func (f *fakeAuth) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *fakeAuth) Close(context.Context) error {
	f.Closed = true
	return nil
}

type fakeNotes struct {
	notes []models.Note
	err   error

	LastQuery   string
	LastID      string
	LastTitle   string
	LastContent string
}

func (f *fakeNotes) List(_ context.Context, q string) ([]models.Note, error) {
	f.LastQuery = q
	return f.notes, f.err
}

func (f *fakeNotes) Add(_ context.Context, title, content string) (*models.Note, error) {
	f.LastTitle, f.LastContent = title, content
	if f.err != nil {
		return nil, f.err
	}
	return &models.Note{ID: "n-1", Title: title, Content: content}, nil
}

func (f *fakeNotes) Edit(_ context.Context, id, title, content string) (*models.Note, error) {
	f.LastID, f.LastTitle, f.LastContent = id, title, content
	if f.err != nil {
		return nil, f.err
	}
	return &models.Note{ID: id, Title: title, Content: content}, nil
}

func (f *fakeNotes) Delete(_ context.Context, id string) error {
	f.LastID = id
	return f.err
}

// syncBuffer guards output written from the watcher goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestApp(auth *fakeAuth, notes *fakeNotes, input string) (*App, *syncBuffer) {
	out := &syncBuffer{}
	return &App{
		config:      &config.Config{OnlineCheckInterval: time.Hour},
		authService: auth,
		noteService: notes,
		reader:      bufio.NewReader(strings.NewReader(input)),
		out:         out,
	}, out
}

// stubPrompts answers text prompts in order and returns pw for passwords.
func stubPrompts(t *testing.T, pw string, answers ...string) {
	t.Helper()
	origST, origGP, origML := getSimpleText, getPassword, getMultiline
	next := func() (string, error) {
		if len(answers) == 0 {
			return "", io.EOF
		}
		a := answers[0]
		answers = answers[1:]
		return a, nil
	}
	getSimpleText = func(*bufio.Reader, string, io.Writer) (string, error) { return next() }
	getMultiline = func(*bufio.Reader, string, io.Writer) (string, error) { return next() }
	getPassword = func(io.Writer) ([]byte, error) { return []byte(pw), nil }
	t.Cleanup(func() {
		getSimpleText, getPassword, getMultiline = origST, origGP, origML
	})
}

// ---- tests ----

func TestApp_RegisterAndLogin(t *testing.T) {
	auth := &fakeAuth{}
	a, out := newTestApp(auth, &fakeNotes{}, "")

	stubPrompts(t, "secret1", "Alice", "alice@example.com", "female")
	require.NoError(t, a.Register(context.Background()))
	assert.Equal(t, client.RegisterRequest{Name: "Alice", Email: "alice@example.com", Gender: "female", Password: "secret1"}, auth.LastRegister)
	assert.False(t, a.isLoggedIn(), "register does not log in")

	stubPrompts(t, "secret1", "alice@example.com")
	require.NoError(t, a.Login(context.Background()))
	assert.True(t, a.isLoggedIn())
	assert.Equal(t, ModeOnline, a.Mode())
	assert.Contains(t, out.String(), "Logged in as Alice <alice@example.com>")
	assert.Equal(t, " (alice@example.com online)", a.getStatus())

	require.NoError(t, a.WhoAmI(context.Background()))
	assert.Contains(t, out.String(), "id: u-1")

	require.NoError(t, a.Logout(context.Background()))
	assert.Equal(t, 1, auth.LogoutCalls)
	assert.False(t, a.isLoggedIn())
}

func TestApp_LoginErrorsAreReported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"api message", &client.APIError{StatusCode: 401, Message: "Invalid email or password"}, "Login unsuccessful: Invalid email or password"},
		{"unavailable", fmt.Errorf("login error: %w", client.ErrUnavailable), "Login unsuccessful: server unavailable"},
		{"other", common.ErrValidation, "Login unsuccessful: validation error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, out := newTestApp(&fakeAuth{loginErr: tt.err}, &fakeNotes{}, "")
			stubPrompts(t, "pw", "alice@example.com")

			require.ErrorIs(t, a.Login(context.Background()), tt.err)
			assert.Contains(t, out.String(), tt.want)
			assert.False(t, a.isLoggedIn())
		})
	}
}

func TestApp_NoteCommands(t *testing.T) {
	notes := &fakeNotes{notes: []models.Note{{ID: "n-1", Title: "Groceries", Content: "milk\neggs"}}}
	a, out := newTestApp(&fakeAuth{}, notes, "")
	ctx := context.Background()

	require.NoError(t, a.List(ctx, "groc"))
	assert.Equal(t, "groc", notes.LastQuery)
	assert.Contains(t, out.String(), "Groceries")
	assert.Contains(t, out.String(), "milk eggs")

	stubPrompts(t, "", "Todo", "write tests")
	require.NoError(t, a.AddNote(ctx))
	assert.Equal(t, "Todo", notes.LastTitle)
	assert.Equal(t, "write tests", notes.LastContent)

	stubPrompts(t, "", "Todo 2", "")
	require.NoError(t, a.EditNote(ctx, "n-1"))
	assert.Equal(t, "n-1", notes.LastID)
	assert.Equal(t, "Todo 2", notes.LastTitle)

	require.NoError(t, a.DeleteNote(ctx, "n-7"))
	assert.Equal(t, "n-7", notes.LastID)
	assert.Contains(t, out.String(), "Deleted note n-7")

	notes.notes = nil
	require.NoError(t, a.List(ctx, ""))
	assert.Contains(t, out.String(), "No notes")

	notes.err = client.ErrSessionExpired
	require.Error(t, a.DeleteNote(ctx, "n-1"))
	assert.Contains(t, out.String(), "Note not deleted: session expired, please login again")
}

func TestApp_OnlineStatusWatcher(t *testing.T) {
	auth := &fakeAuth{pingErr: client.ErrUnavailable}
	a, out := newTestApp(auth, &fakeNotes{}, "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.StartOnlineStatusWatcher(ctx, 10*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return a.Mode() == ModeOffline }, time.Second, 5*time.Millisecond)

	auth.mu.Lock()
	auth.pingErr = nil
	auth.mu.Unlock()
	require.Eventually(t, func() bool { return a.Mode() == ModeOnline }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.Equal(t, 1, strings.Count(out.String(), "Switched to online mode"))
}

func TestApp_SessionExpiredMessage(t *testing.T) {
	a, out := newTestApp(&fakeAuth{}, &fakeNotes{}, "")
	a.sessionExpired(client.ErrSessionExpired)
	assert.Contains(t, out.String(), "Session expired, please login again")
}

func TestApp_RunResumesSession(t *testing.T) {
	captureOutput(t)
	auth := &fakeAuth{resumed: true}
	a, out := newTestApp(auth, &fakeNotes{}, "whoami\nexit\n")

	a.Run(context.Background())

	assert.Contains(t, out.String(), "Welcome back, Alice <alice@example.com>")
	assert.Contains(t, out.String(), "id: u-1")
	assert.True(t, auth.Closed)
}
