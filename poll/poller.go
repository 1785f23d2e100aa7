package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ualogger/opc"
	"ualogger/record"
)

// SessionSource is what the poller needs from the session manager: a
// live client for one read, and a way to report that the borrowed
// client went bad.
type SessionSource interface {
	Session(ctx context.Context) (opc.Client, error)
	MarkFailed(err error)
}

// Poller drives the fixed-interval read loop for one data point. A
// Poller runs once; restarting acquisition means constructing a fresh
// one.
type Poller struct {
	sessions SessionSource
	nodeID   string
	interval time.Duration
	log      *zap.Logger

	now func() time.Time // injected for tests
}

// New creates a poller for nodeID reading every interval.
func New(sessions SessionSource, nodeID string, interval time.Duration, log *zap.Logger) *Poller {
	return &Poller{
		sessions: sessions,
		nodeID:   nodeID,
		interval: interval,
		log:      log,
		now:      time.Now,
	}
}

// Run polls until ctx is cancelled, sending each reading to out in the
// order it was produced. The first read happens immediately; later
// reads fire on a fixed wall-clock tick (time.Ticker drops ticks that
// pile up behind a slow read rather than queueing them, so the loop
// never plays catch-up).
//
// A failed read produces a Reading with the failure reason and the
// loop continues; transient hiccups show up in the record store rather
// than halting acquisition. Only two things stop the loop: ctx
// cancellation (returns nil) and a fatal connect error surfaced from
// the session manager (returned to the caller with nothing emitted —
// a tick that never had a session has no reading to record).
//
// Run closes out when it returns, so consumers can range over it.
func (p *Poller) Run(ctx context.Context, out chan<- record.Reading) error {
	defer close(out)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		r, fatal := p.readOnce(ctx)
		if r != nil {
			select {
			case out <- *r:
			case <-ctx.Done():
				return nil
			}
		}
		if fatal != nil {
			return fatal
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// readOnce performs one tick: borrow a session, read the node, build
// the reading. A non-nil fatal return means acquisition cannot
// continue.
func (p *Poller) readOnce(ctx context.Context) (*record.Reading, error) {
	client, err := p.sessions.Session(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		// Transient connect errors are retried inside the session
		// manager; whatever surfaces here is fatal. No session means
		// no reading: the store stays untouched and the reason goes
		// to the diagnostic log instead.
		p.log.Error("connect failed", zap.String("node", p.nodeID), zap.Error(err))
		return nil, fmt.Errorf("poll %s: %w", p.nodeID, err)
	}

	value, unit, err := client.ReadValue(ctx, p.nodeID)
	if err != nil {
		p.sessions.MarkFailed(err)
		p.log.Warn("read failed", zap.String("node", p.nodeID), zap.Error(err))
		r := p.failed(err)
		return &r, nil
	}

	p.log.Debug("read ok",
		zap.String("node", p.nodeID), zap.Float64("value", value), zap.String("unit", unit))
	return &record.Reading{
		Timestamp: p.now(),
		Value:     value,
		Unit:      unit,
	}, nil
}

func (p *Poller) failed(err error) record.Reading {
	return record.Reading{Timestamp: p.now(), Err: reason(err)}
}

// reason reduces an error chain to the short classified form that goes
// into the record store, e.g. "timeout" or "connection reset".
func reason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var oe *opc.Error
	if errors.As(err, &oe) {
		return fmt.Sprintf("%s %s: %v", oe.Class, oe.Op, oe.Err)
	}
	return err.Error()
}
