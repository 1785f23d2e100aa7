package opc

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/gopcua/opcua/ua"
)

// FailureClass splits protocol errors into the two categories the rest
// of the program cares about: transient failures are retried (or logged
// as FAILED readings), fatal failures require operator intervention.
type FailureClass int

const (
	// Transient covers timeouts, resets and other errors expected to
	// self-resolve. Eligible for reconnect/retry.
	Transient FailureClass = iota

	// Fatal covers rejected credentials, malformed endpoints or node
	// ids, and anything else that will not improve by retrying.
	Fatal
)

func (c FailureClass) String() string {
	if c == Fatal {
		return "fatal"
	}
	return "transient"
}

// Error carries a failure class alongside the underlying cause so
// callers can decide between retry and abort with errors.As.
type Error struct {
	Op    string // "connect", "read", "browse"
	Class FailureClass
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("opc %s (%s): %v", e.Op, e.Class, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// classified wraps err unless it already carries a class.
func classified(op string, class FailureClass, err error) error {
	var oe *Error
	if errors.As(err, &oe) {
		return err
	}
	return &Error{Op: op, Class: class, Err: err}
}

// fatalStatus lists the status codes that no amount of reconnecting
// will fix. Everything else the server can throw at us is treated as
// transient so acquisition survives restarts and network blips.
var fatalStatus = map[ua.StatusCode]bool{
	ua.StatusBadUserAccessDenied:      true,
	ua.StatusBadIdentityTokenInvalid:  true,
	ua.StatusBadIdentityTokenRejected: true,
	ua.StatusBadCertificateInvalid:    true,
	ua.StatusBadSecurityChecksFailed:  true,
	ua.StatusBadNodeIDInvalid:         true,
	ua.StatusBadNodeIDUnknown:         true,
	ua.StatusBadAttributeIDInvalid:    true,
	ua.StatusBadServiceUnsupported:    true,
}

// Classify maps an arbitrary error from the protocol layer to a
// FailureClass. Unknown errors default to Transient: the reconnect
// loop is the safe place for anything we cannot identify.
func Classify(err error) FailureClass {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Class
	}
	var code ua.StatusCode
	if errors.As(err, &code) {
		if fatalStatus[code] {
			return Fatal
		}
		return Transient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Transient
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return Transient
	}
	return Transient
}

// IsFatal reports whether err is classified as fatal.
func IsFatal(err error) bool {
	return err != nil && Classify(err) == Fatal
}
