package cli

import "errors"

// Exit codes distinguish why the process stopped, so supervisors and
// shell scripts can tell an operator interrupt from a broken server or
// a full disk.
const (
	ExitOK           = 0
	ExitFailure      = 1 // config or browse failure
	ExitConnectFatal = 2 // unrecoverable connection failure
	ExitWriteFatal   = 3 // record store failure
)

// ExitError attaches a process exit code to an error. main unwraps it
// with ExitCode.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps an error returned from command execution to the
// process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitFailure
}
