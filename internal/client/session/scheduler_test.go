package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	delay   time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// timers replaces the package timer seams for the duration of a test.
type timers struct {
	mu  sync.Mutex
	all []*fakeTimer
}

func useFakeTimers(t *testing.T, at time.Time) *timers {
	t.Helper()
	ft := &timers{}
	origAfter, origNow := afterFunc, now
	t.Cleanup(func() { afterFunc, now = origAfter, origNow })

	afterFunc = func(d time.Duration, f func()) stopper {
		ft.mu.Lock()
		defer ft.mu.Unlock()
		tm := &fakeTimer{delay: d, f: f}
		ft.all = append(ft.all, tm)
		return tm
	}
	now = func() time.Time { return at }
	return ft
}

func (ft *timers) last(t *testing.T) *fakeTimer {
	t.Helper()
	ft.mu.Lock()
	defer ft.mu.Unlock()
	require.NotEmpty(t, ft.all)
	return ft.all[len(ft.all)-1]
}

func (ft *timers) count() int {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return len(ft.all)
}

type fakeRefresher struct {
	token string
	err   error
	calls int
}

func (f *fakeRefresher) Refresh(context.Context) (string, error) {
	f.calls++
	return f.token, f.err
}

func TestScheduler_SchedulesMarginBeforeExpiry(t *testing.T) {
	ft := useFakeTimers(t, t0)
	u := models.User{ID: "u-1"}

	next := signToken(t, t0.Add(90*time.Second), u)
	r := &fakeRefresher{token: next}
	sess := New()
	s := NewScheduler(sess, r, 30*time.Second, logging.Nop())

	require.NoError(t, s.Start(signToken(t, t0.Add(60*time.Second), u)))
	first := ft.last(t)
	assert.Equal(t, 30*time.Second, first.delay)

	first.f()
	assert.Equal(t, 1, r.calls)

	second := ft.last(t)
	assert.NotSame(t, first, second)
	assert.Equal(t, 60*time.Second, second.delay, "rescheduled from the new token")
}

func TestScheduler_InsideMarginFiresImmediately(t *testing.T) {
	ft := useFakeTimers(t, t0)
	s := NewScheduler(New(), &fakeRefresher{}, 30*time.Second, logging.Nop())

	require.NoError(t, s.Start(signToken(t, t0.Add(10*time.Second), models.User{ID: "u-1"})))
	assert.Equal(t, time.Duration(0), ft.last(t).delay)
}

func TestScheduler_FailureClearsSession(t *testing.T) {
	ft := useFakeTimers(t, t0)
	u := models.User{ID: "u-1"}
	tok := signToken(t, t0.Add(60*time.Second), u)

	sess := New()
	require.NoError(t, sess.SetAccessToken(tok))

	refreshErr := errors.New("refresh rejected")
	s := NewScheduler(sess, &fakeRefresher{err: refreshErr}, 0, logging.Nop())
	var got error
	s.OnExpired = func(err error) { got = err }

	require.NoError(t, s.Start(tok))
	ft.last(t).f()

	assert.ErrorIs(t, got, refreshErr)
	assert.False(t, sess.LoggedIn())
	assert.Equal(t, 1, ft.count(), "no reschedule after failure")
}

func TestScheduler_StopCancelsPendingRefresh(t *testing.T) {
	ft := useFakeTimers(t, t0)
	r := &fakeRefresher{err: errors.New("should not be called")}
	s := NewScheduler(New(), r, 30*time.Second, logging.Nop())
	expired := false
	s.OnExpired = func(error) { expired = true }

	require.NoError(t, s.Start(signToken(t, t0.Add(time.Hour), models.User{ID: "u-1"})))
	tm := ft.last(t)
	s.Stop()
	assert.True(t, tm.stopped)

	// a timer that already fired before Stop took the lock is ignored
	tm.f()
	assert.Zero(t, r.calls)
	assert.False(t, expired)
}

// hookRefresher calls during before returning, like a logout
// racing an in-flight renewal.
type hookRefresher struct {
	token  string
	err    error
	during func()
}

func (h *hookRefresher) Refresh(context.Context) (string, error) {
	h.during()
	return h.token, h.err
}

func TestScheduler_StopDuringRefreshDoesNotRearm(t *testing.T) {
	for _, tc := range []struct {
		name string
		err  error
	}{
		{"refresh succeeds", nil},
		{"refresh fails", errors.New("no cookie")},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ft := useFakeTimers(t, t0)
			u := models.User{ID: "u-1"}
			sess := New()

			r := &hookRefresher{token: signToken(t, t0.Add(90*time.Second), u), err: tc.err}
			s := NewScheduler(sess, r, 30*time.Second, logging.Nop())
			r.during = s.Stop
			expired := false
			s.OnExpired = func(error) { expired = true }

			require.NoError(t, s.Arm(signToken(t, t0.Add(time.Minute), u)))
			ft.last(t).f()

			assert.Equal(t, 1, ft.count(), "no timer armed after Stop")
			assert.False(t, expired, "a deliberate stop is not an expiry")
		})
	}
}

func TestScheduler_StartAfterStopNeedsArm(t *testing.T) {
	ft := useFakeTimers(t, t0)
	s := NewScheduler(New(), &fakeRefresher{}, 30*time.Second, logging.Nop())
	tok := signToken(t, t0.Add(time.Hour), models.User{ID: "u-1"})

	s.Stop()
	require.ErrorIs(t, s.Start(tok), ErrStopped)
	assert.Zero(t, ft.count())

	require.NoError(t, s.Arm(tok))
	assert.Equal(t, 1, ft.count())
	require.NoError(t, s.Start(tok))
	assert.Equal(t, 2, ft.count())
}

func TestScheduler_RestartReplacesTimer(t *testing.T) {
	ft := useFakeTimers(t, t0)
	s := NewScheduler(New(), &fakeRefresher{}, 30*time.Second, logging.Nop())
	u := models.User{ID: "u-1"}

	require.NoError(t, s.Start(signToken(t, t0.Add(time.Minute), u)))
	first := ft.last(t)
	require.NoError(t, s.Start(signToken(t, t0.Add(2*time.Minute), u)))

	assert.True(t, first.stopped)
	assert.Equal(t, 90*time.Second, ft.last(t).delay)

	assert.Error(t, s.Start("garbage"))
}
