package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/logging"
)

// ErrStopped is returned by Start after Stop, until the next Arm.
var ErrStopped = errors.New("refresh scheduler stopped")

// DefaultMargin is how long before expiry a refresh is attempted.
const DefaultMargin = 30 * time.Second

// Refresher obtains a new access token. The HTTP client's implementation
// also stores it in the session.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
}

type stopper interface {
	Stop() bool
}

// test seams
var (
	afterFunc = func(d time.Duration, f func()) stopper { return time.AfterFunc(d, f) }
	now       = time.Now
)

// Scheduler renews the access token margin before it expires. When a
// renewal fails the session is cleared and OnExpired is called.
type Scheduler struct {
	session   *Session
	refresher Refresher
	margin    time.Duration
	timeout   time.Duration
	logger    logging.Logger

	// OnExpired is called from the timer goroutine after a failed renewal.
	OnExpired func(err error)

	mu      sync.Mutex
	timer   stopper
	gen     uint64
	stopped bool
}

func NewScheduler(s *Session, r Refresher, margin time.Duration, l logging.Logger) *Scheduler {
	if margin <= 0 {
		margin = DefaultMargin
	}
	return &Scheduler{
		session:   s,
		refresher: r,
		margin:    margin,
		timeout:   10 * time.Second,
		logger:    l.With("module", "refresh_scheduler"),
	}
}

// Arm enables the scheduler after Stop and schedules a renewal for token.
// It is called when a session begins.
func (s *Scheduler) Arm(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = false
	return s.scheduleLocked(token)
}

// Start schedules a renewal for token, replacing any pending one. A token
// already inside the margin is renewed right away. After Stop it returns
// ErrStopped and schedules nothing until Arm is called.
func (s *Scheduler) Start(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	return s.scheduleLocked(token)
}

func (s *Scheduler) scheduleLocked(token string) error {
	exp, _, err := Decode(token)
	if err != nil {
		return err
	}

	delay := exp.Add(-s.margin).Sub(now())
	if delay < 0 {
		delay = 0
	}

	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = afterFunc(delay, func() { s.fire(gen) })
	s.logger.Debug(context.Background(), "refresh scheduled", "in", delay)
	return nil
}

// Stop cancels the pending renewal and keeps the scheduler disarmed until
// the next Arm.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	s.stopped = true
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	stale := gen != s.gen || s.stopped
	s.mu.Unlock()
	if stale {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	token, err := s.refresher.Refresh(ctx)

	s.mu.Lock()
	if gen != s.gen || s.stopped {
		// Stop, or a Start from the refresh hook, ran while the request
		// was in flight
		s.mu.Unlock()
		return
	}
	if err == nil {
		err = s.scheduleLocked(token)
	}
	if err == nil {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	s.logger.Warn(ctx, "access token renewal failed", "error", err)
	s.session.Clear()
	if s.OnExpired != nil {
		s.OnExpired(err)
	}
}
