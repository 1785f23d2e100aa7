package record

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the timestamp format used in the record store. It
// matches what the existing analysis notebooks already parse.
const TimeLayout = "2006-01-02 15:04:05"

// failedPrefix marks a reading whose acquisition failed. Failed ticks
// are recorded rather than omitted so a gap in the data can be told
// apart from a server that reported nothing.
const failedPrefix = "FAILED: "

// Reading is one acquisition result. Err is empty on success and holds
// the classified failure reason otherwise. A Reading is immutable once
// created and is consumed exactly once by the store.
type Reading struct {
	Timestamp time.Time
	Value     float64
	Unit      string
	Err       string
}

// OK reports whether the reading carries a value rather than a failure.
func (r Reading) OK() bool { return r.Err == "" }

// FormatLine renders one reading as a single record store line, without
// the trailing newline. Examples:
//
//	2025-02-12 11:28:13, 1.9899999870176543e-09 mbar
//	2025-02-12 11:29:00, FAILED: timeout
func FormatLine(r Reading) string {
	ts := r.Timestamp.Format(TimeLayout)
	if !r.OK() {
		return fmt.Sprintf("%s, %s%s", ts, failedPrefix, r.Err)
	}
	val := strconv.FormatFloat(r.Value, 'g', -1, 64)
	if r.Unit == "" {
		return fmt.Sprintf("%s, %s", ts, val)
	}
	return fmt.Sprintf("%s, %s %s", ts, val, r.Unit)
}

// ParseLine is the inverse of FormatLine. Every line the store writes
// parses back into an equal Reading; anything else is a corrupt record.
func ParseLine(line string) (Reading, error) {
	ts, rest, found := strings.Cut(line, ", ")
	if !found {
		return Reading{}, fmt.Errorf("parse record %q: missing field separator", line)
	}
	t, err := time.Parse(TimeLayout, ts)
	if err != nil {
		return Reading{}, fmt.Errorf("parse record %q: %w", line, err)
	}

	if reason, ok := strings.CutPrefix(rest, failedPrefix); ok {
		if reason == "" {
			return Reading{}, fmt.Errorf("parse record %q: empty failure reason", line)
		}
		return Reading{Timestamp: t, Err: reason}, nil
	}

	valStr, unit, _ := strings.Cut(rest, " ")
	v, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		return Reading{}, fmt.Errorf("parse record %q: %w", line, err)
	}
	return Reading{Timestamp: t, Value: v, Unit: unit}, nil
}
