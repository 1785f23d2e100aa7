package record

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSQLiteAppendAndQuery(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "readings.db"), zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	want := []Reading{
		{Timestamp: tsAt(0), Value: 1.99e-09, Unit: "mbar"},
		{Timestamp: tsAt(1), Err: "timeout"},
		{Timestamp: tsAt(2), Value: 2.00e-09, Unit: "mbar"},
	}
	for _, r := range want {
		require.NoError(t, s.Append(ctx, r))
	}

	got, err := s.Query(ctx, tsAt(0), tsAt(2))
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range want {
		assert.True(t, want[i].Timestamp.Equal(got[i].Timestamp), "row %d timestamp", i)
		assert.Equal(t, want[i].Value, got[i].Value, "row %d value", i)
		assert.Equal(t, want[i].Unit, got[i].Unit, "row %d unit", i)
		assert.Equal(t, want[i].Err, got[i].Err, "row %d err", i)
	}
}

func TestSQLiteQueryWindow(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "readings.db"), zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	for sec := 0; sec < 5; sec++ {
		require.NoError(t, s.Append(ctx, Reading{Timestamp: tsAt(sec), Value: float64(sec), Unit: "mbar"}))
	}

	got, err := s.Query(ctx, tsAt(1), tsAt(3))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 1.0, got[0].Value)
	assert.Equal(t, 3.0, got[2].Value)
}

func TestSQLiteQueryEmpty(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "readings.db"), zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Query(context.Background(), tsAt(0), tsAt(59))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteCloseIdempotent(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "readings.db"), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	// Second close surfaces the driver's error, if any, but must not panic.
	_ = s.Close()
}
