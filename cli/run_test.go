package cli

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ualogger/record"
)

// scriptedPoller emits a fixed set of readings, then blocks until
// cancelled, like a real poller waiting for its next tick.
type scriptedPoller struct {
	readings []record.Reading
	fatalErr error // returned after the last reading, if set
}

func (s *scriptedPoller) Run(ctx context.Context, out chan<- record.Reading) error {
	defer close(out)
	for _, r := range s.readings {
		select {
		case out <- r:
		case <-ctx.Done():
			return nil
		}
	}
	if s.fatalErr != nil {
		return s.fatalErr
	}
	<-ctx.Done()
	return nil
}

// memStore collects appends; failAfter>=0 makes the append with that
// index fail.
type memStore struct {
	got       []record.Reading
	failAfter int
	closed    bool
}

func newMemStore() *memStore { return &memStore{failAfter: -1} }

func (m *memStore) Append(ctx context.Context, r record.Reading) error {
	if m.failAfter >= 0 && len(m.got) >= m.failAfter {
		return &record.WriteError{Path: "mem", Err: errors.New("disk full")}
	}
	m.got = append(m.got, r)
	return nil
}

func (m *memStore) Close() error {
	m.closed = true
	return nil
}

func reading(sec int, v float64) record.Reading {
	return record.Reading{
		Timestamp: time.Date(2025, 2, 12, 11, 28, sec, 0, time.UTC),
		Value:     v,
		Unit:      "mbar",
	}
}

func TestPipelineAppendsEveryReadingInOrder(t *testing.T) {
	want := []record.Reading{reading(0, 1.99e-09), reading(1, 2.00e-09), reading(2, 1.99e-09)}
	p := &scriptedPoller{readings: want}
	store := newMemStore()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		// Operator interrupt once everything is in flight.
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := runPipeline(ctx, p, store, nil, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, want, store.got)
}

func TestPipelineStopsOnWriteError(t *testing.T) {
	p := &scriptedPoller{readings: []record.Reading{
		reading(0, 1), reading(1, 2), reading(2, 3), reading(3, 4),
	}}
	store := newMemStore()
	store.failAfter = 2

	err := runPipeline(context.Background(), p, store, nil, zap.NewNop())
	require.Error(t, err)
	var we *record.WriteError
	assert.ErrorAs(t, err, &we)
	assert.Len(t, store.got, 2, "records before the failure survive")
}

func TestPipelinePropagatesPollerFatal(t *testing.T) {
	// A fatal connect at startup: the poller stops without emitting
	// anything, so termination leaves zero records behind.
	fatal := errors.New("access denied")
	p := &scriptedPoller{fatalErr: fatal}
	store := newMemStore()

	err := runPipeline(context.Background(), p, store, nil, zap.NewNop())
	require.ErrorIs(t, err, fatal)
	assert.Empty(t, store.got)
}

func TestPipelineKeepsRecordsBeforeMidRunFatal(t *testing.T) {
	// Readings appended before a mid-run fatal failure stay durable.
	fatal := errors.New("access denied")
	p := &scriptedPoller{readings: []record.Reading{reading(0, 1), reading(1, 2)}, fatalErr: fatal}
	store := newMemStore()

	err := runPipeline(context.Background(), p, store, nil, zap.NewNop())
	require.ErrorIs(t, err, fatal)
	assert.Len(t, store.got, 2)
}

func TestPipelineMirrorFailureIsNotFatal(t *testing.T) {
	p := &scriptedPoller{readings: []record.Reading{reading(0, 1), reading(1, 2)}}
	store := newMemStore()
	mirror := newMemStore()
	mirror.failAfter = 0 // every mirror append fails

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := runPipeline(ctx, p, store, mirror, zap.NewNop())
	require.NoError(t, err, "the text log is the durable record; the mirror is best-effort")
	assert.Len(t, store.got, 2)
}
