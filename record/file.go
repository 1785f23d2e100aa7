package record

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// WriteError wraps a storage failure. Losing the ability to log is a
// stop condition for the whole process, so callers check for this type
// with errors.As and shut down rather than retry.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("record store %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// FileStore appends readings to a line-oriented UTF-8 text file, one
// reading per line. Each Append writes the record as a single buffered
// unit followed by Sync, so a crash between appends leaves the file
// consistent up to the last completed record.
type FileStore struct {
	path string
	f    *os.File
	log  *zap.Logger
}

// NewFileStore opens (or creates) the record store at path for append.
// The caller must call Close when the program shuts down.
func NewFileStore(path string, log *zap.Logger) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, &WriteError{Path: path, Err: err}
	}
	return &FileStore{path: path, f: f, log: log}, nil
}

// Path returns the file path of the store.
func (s *FileStore) Path() string { return s.path }

// Append writes one reading as a complete newline-terminated line and
// flushes it to stable storage before returning.
func (s *FileStore) Append(ctx context.Context, r Reading) error {
	line := FormatLine(r) + "\n"

	// One Write call per record: the line is the atomic unit, the
	// trailing newline is the record boundary marker.
	if _, err := s.f.WriteString(line); err != nil {
		return &WriteError{Path: s.path, Err: err}
	}
	if err := s.f.Sync(); err != nil {
		return &WriteError{Path: s.path, Err: err}
	}
	s.log.Debug("reading recorded", zap.String("record", FormatLine(r)))
	return nil
}

// Close flushes and closes the underlying file. Idempotent.
func (s *FileStore) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	if err != nil {
		return &WriteError{Path: s.path, Err: err}
	}
	return nil
}
