package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatLineOK(t *testing.T) {
	r := Reading{
		Timestamp: time.Date(2025, 2, 12, 11, 28, 13, 0, time.UTC),
		Value:     1.9899999870176543e-09,
		Unit:      "mbar",
	}
	assert.Equal(t, "2025-02-12 11:28:13, 1.9899999870176543e-09 mbar", FormatLine(r))
}

func TestFormatLineFailed(t *testing.T) {
	r := Reading{
		Timestamp: time.Date(2025, 2, 12, 11, 29, 0, 0, time.UTC),
		Err:       "timeout",
	}
	assert.Equal(t, "2025-02-12 11:29:00, FAILED: timeout", FormatLine(r))
}

func TestFormatLineNoUnit(t *testing.T) {
	r := Reading{
		Timestamp: time.Date(2025, 2, 12, 11, 28, 13, 0, time.UTC),
		Value:     42,
	}
	assert.Equal(t, "2025-02-12 11:28:13, 42", FormatLine(r))
}

func TestParseLineRoundTrip(t *testing.T) {
	readings := []Reading{
		{Timestamp: time.Date(2025, 2, 12, 11, 28, 13, 0, time.UTC), Value: 1.9899999870176543e-09, Unit: "mbar"},
		{Timestamp: time.Date(2025, 2, 12, 11, 28, 14, 0, time.UTC), Value: 2.00e-09, Unit: "mbar"},
		{Timestamp: time.Date(2025, 2, 12, 11, 28, 15, 0, time.UTC), Value: -273.15, Unit: "degC"},
		{Timestamp: time.Date(2025, 2, 12, 11, 28, 16, 0, time.UTC), Value: 101325, Unit: ""},
		{Timestamp: time.Date(2025, 2, 12, 11, 28, 17, 0, time.UTC), Err: "timeout"},
		{Timestamp: time.Date(2025, 2, 12, 11, 28, 18, 0, time.UTC), Err: "transient read: connection reset"},
	}
	for _, want := range readings {
		got, err := ParseLine(FormatLine(want))
		require.NoError(t, err, "line %q", FormatLine(want))
		assert.Equal(t, want, got)
	}
}

func TestParseLineRejectsGarbage(t *testing.T) {
	for _, line := range []string{
		"",
		"no separator here",
		"2025-02-12 11:28:13, ",
		"2025-02-12 11:28:13, not-a-number mbar",
		"not-a-time, 1.5 mbar",
		"2025-02-12 11:28:13, FAILED: ",
	} {
		_, err := ParseLine(line)
		assert.Error(t, err, "line %q should not parse", line)
	}
}
