package kernel

import (
	"context"
	"sync"
	"time"

	"xconnect/telemetry"
	"xconnect/xerrors"
)

// ReconnectConfig tunes a ReconnectingSession's backoff and attempt
// budget.
type ReconnectConfig struct {
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	MaxAttempts     int // consecutive failed attempts before giving up; 0 = unbounded
	AutoResubscribe bool
}

// DefaultReconnectConfig returns the module-wide default: exponential
// growth starting near 1s, capped at 60s, 10 consecutive attempts,
// resubscribe on.
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		InitialDelay:    time.Second,
		MaxDelay:        60 * time.Second,
		MaxAttempts:     10,
		AutoResubscribe: true,
	}
}

// ReconnectingSession wraps a WSSession factory, reconnecting with
// exponential backoff (bounded to cfg.MaxDelay) on disconnect and
// replaying the stream set that was active at disconnect time.
type ReconnectingSession struct {
	venue   string
	newSess func() *WSSession
	cfg     ReconnectConfig

	mu          sync.Mutex
	session     *WSSession
	attempts    int
	delay       time.Duration
	terminalErr error
}

// NewReconnectingSession wraps newSession, a factory that builds a fresh
// WSSession bound to the venue's WS URL and codec.
func NewReconnectingSession(venue string, newSession func() *WSSession, cfg ReconnectConfig) *ReconnectingSession {
	return &ReconnectingSession{
		venue:   venue,
		newSess: newSession,
		cfg:     cfg,
		delay:   cfg.InitialDelay,
	}
}

// Connect opens the initial underlying session.
func (r *ReconnectingSession) Connect(ctx context.Context) error {
	r.mu.Lock()
	r.session = r.newSess()
	session := r.session
	r.mu.Unlock()

	return session.Connect(ctx)
}

// Subscribe delegates to the current underlying session.
func (r *ReconnectingSession) Subscribe(streams []string) error {
	r.mu.Lock()
	session := r.session
	r.mu.Unlock()
	return session.Subscribe(streams)
}

// Unsubscribe delegates to the current underlying session.
func (r *ReconnectingSession) Unsubscribe(streams []string) error {
	r.mu.Lock()
	session := r.session
	r.mu.Unlock()
	return session.Unsubscribe(streams)
}

// NextMessage returns the next decoded message, transparently
// reconnecting (and replaying active subscriptions) on disconnect. It
// returns a terminal error once cfg.MaxAttempts consecutive reconnects
// have failed.
func (r *ReconnectingSession) NextMessage(ctx context.Context) (any, error) {
	for {
		r.mu.Lock()
		if r.terminalErr != nil {
			err := r.terminalErr
			r.mu.Unlock()
			return nil, err
		}
		session := r.session
		r.mu.Unlock()

		done := make(chan struct{})
		var msg any
		var err error
		go func() {
			msg, err = session.NextMessage()
			close(done)
		}()
		select {
		case <-ctx.Done():
			session.Close()
			return nil, xerrors.Wrap(ctx.Err(), r.venue+": read cancelled")
		case <-done:
		}
		if err == nil {
			r.mu.Lock()
			r.attempts = 0
			r.delay = r.cfg.InitialDelay
			r.mu.Unlock()
			return msg, nil
		}

		exchErr, ok := err.(*xerrors.ExchangeError)
		if !ok || !exchErr.IsRetryable() {
			return nil, err
		}

		telemetry.WSReconnectsTotal.WithLabelValues(r.venue).Inc()

		if reconnectErr := r.reconnect(ctx); reconnectErr != nil {
			r.mu.Lock()
			r.terminalErr = reconnectErr
			r.mu.Unlock()
			return nil, reconnectErr
		}
	}
}

func (r *ReconnectingSession) reconnect(ctx context.Context) error {
	r.mu.Lock()
	r.attempts++
	if r.cfg.MaxAttempts > 0 && r.attempts > r.cfg.MaxAttempts {
		r.mu.Unlock()
		return xerrors.New(xerrors.KindWebSocketClosed, r.venue, "max reconnect attempts exceeded")
	}
	delay := r.delay
	r.delay *= 2
	if r.delay > r.cfg.MaxDelay {
		r.delay = r.cfg.MaxDelay
	}
	replay := r.activeStreamsLocked()
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		return xerrors.Wrap(ctx.Err(), r.venue+": reconnect cancelled")
	case <-time.After(delay):
	}

	newSession := r.newSess()
	if err := newSession.Connect(ctx); err != nil {
		return nil // caller loops back into reconnect via the next NextMessage failure path
	}

	if r.cfg.AutoResubscribe && len(replay) > 0 {
		if err := newSession.Subscribe(replay); err != nil {
			return xerrors.Wrap(err, r.venue+": failed to replay subscriptions after reconnect")
		}
	}

	r.mu.Lock()
	r.session = newSession
	r.mu.Unlock()
	return nil
}

func (r *ReconnectingSession) activeStreamsLocked() []string {
	if r.session == nil {
		return nil
	}
	return r.session.ActiveStreams()
}

// Close closes the underlying session.
func (r *ReconnectingSession) Close() error {
	r.mu.Lock()
	session := r.session
	r.mu.Unlock()
	if session == nil {
		return nil
	}
	return session.Close()
}
