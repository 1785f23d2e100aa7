package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"ualogger/opc"
)

// State describes where the managed connection currently is in its
// lifecycle.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Closing
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Closing:
		return "closing"
	default:
		return "disconnected"
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithTransitionHook registers a callback invoked on every state
// transition, after it happened. Used by tests and telemetry; the hook
// must not call back into the Manager.
func WithTransitionHook(hook func(from, to State)) Option {
	return func(m *Manager) { m.onTransition = hook }
}

// WithBackoff overrides the reconnect backoff parameters. Tests use
// this to avoid real waits.
func WithBackoff(base, cap time.Duration) Option {
	return func(m *Manager) {
		m.backoffBase = base
		m.backoffCap = cap
	}
}

// Manager owns the lifecycle of the connection to one endpoint. It is
// the only component that connects, reconnects or closes; the poller
// and the browser borrow the client through Session for one operation
// at a time and never hold it across operations.
type Manager struct {
	client opc.Client
	log    *zap.Logger

	backoffBase  time.Duration
	backoffCap   time.Duration
	onTransition func(from, to State)

	mu    sync.Mutex
	state State
}

// New creates a manager around the given protocol client. The client
// is dialed lazily on the first Session call (or eagerly via Connect).
func New(client opc.Client, log *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		client:      client,
		log:         log,
		backoffBase: time.Second,
		backoffCap:  30 * time.Second,
		state:       Disconnected,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) transition(to State) {
	m.mu.Lock()
	from := m.state
	m.state = to
	m.mu.Unlock()
	if from == to {
		return
	}
	m.log.Info("session state changed",
		zap.Stringer("from", from), zap.Stringer("to", to))
	if m.onTransition != nil {
		m.onTransition(from, to)
	}
}

// Connect performs a single connection attempt, with no retry. Fatal
// and transient failures both surface; callers that want the retry
// policy use Session instead.
func (m *Manager) Connect(ctx context.Context) error {
	m.transition(Connecting)
	if err := m.client.Connect(ctx); err != nil {
		m.transition(Disconnected)
		return fmt.Errorf("session connect: %w", err)
	}
	m.transition(Connected)
	return nil
}

// Session returns a live client for exactly one protocol operation.
// If the connection is healthy the existing client is returned; if it
// is down, Session reconnects with exponential backoff (full jitter,
// unbounded attempt count) until it succeeds, the failure is classified
// fatal, or ctx is cancelled. Idempotent: calling it on a healthy
// session is cheap and has no side effects.
func (m *Manager) Session(ctx context.Context) (opc.Client, error) {
	if m.State() == Connected {
		return m.client, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = m.backoffBase
	bo.MaxInterval = m.backoffCap
	bo.MaxElapsedTime = 0 // retry until cancelled or fatal

	attempt := 0
	op := func() error {
		attempt++
		err := m.Connect(ctx)
		if err == nil {
			return nil
		}
		if opc.IsFatal(err) {
			m.log.Error("connect failed fatally", zap.Int("attempt", attempt), zap.Error(err))
			return backoff.Permanent(err)
		}
		m.log.Warn("connect failed, will retry", zap.Int("attempt", attempt), zap.Error(err))
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return m.client, nil
}

// MarkFailed tells the manager that an operation on the borrowed
// session failed, so the next Session call re-establishes the
// connection instead of handing out a dead client.
func (m *Manager) MarkFailed(err error) {
	if m.State() != Connected {
		return
	}
	m.log.Warn("session marked unhealthy", zap.Error(err))
	// Drop the dead connection now so reconnect starts clean.
	_ = m.client.Close()
	m.transition(Disconnected)
}

// Disconnect closes the connection. Safe to call from any state and
// more than once.
func (m *Manager) Disconnect() error {
	if m.State() == Disconnected {
		return nil
	}
	m.transition(Closing)
	err := m.client.Close()
	m.transition(Disconnected)
	if err != nil {
		return fmt.Errorf("session disconnect: %w", err)
	}
	return nil
}
