// Package errors wraps github.com/pkg/errors and defines the failure kinds
// a phredavg run can end with. Import it instead of the standard library
// package so every error carries a stack.
package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/pkg/errors"
)

var (
	New       = errors.New
	Errorf    = errors.Errorf
	Wrap      = errors.Wrap
	Wrapf     = errors.Wrapf
	WithStack = errors.WithStack
	Cause     = errors.Cause
	Is        = stderrors.Is
	As        = stderrors.As
	Join      = stderrors.Join
)

// EnsureStack adds a stack trace to err if it does not have one already.
func EnsureStack(err error) error {
	if err == nil {
		return nil
	}
	type stackTracer interface{ StackTrace() errors.StackTrace }
	var st stackTracer
	if As(err, &st) {
		return err
	}
	return errors.WithStack(err)
}

// FileAccessError reports an input file that is missing or unreadable.
// It is fatal: the run stops before partitioning.
type FileAccessError struct {
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("cannot access %s: %v", e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error { return e.Err }

// NewFileAccessError wraps err for path.
func NewFileAccessError(path string, err error) error {
	return errors.WithStack(&FileAccessError{Path: path, Err: err})
}

// NetworkError reports a refused connection, failed authentication or a
// transfer cut short between a worker and its coordinator.
type NetworkError struct {
	Op   string
	Addr string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// NewNetworkError wraps err for operation op against addr.
func NewNetworkError(op, addr string, err error) error {
	return errors.WithStack(&NetworkError{Op: op, Addr: addr, Err: err})
}

// WorkerLossError reports a job whose worker vanished before publishing a
// result, and which could not be redelivered before the run ended.
type WorkerLossError struct {
	JobIDs []string
}

func (e *WorkerLossError) Error() string {
	return fmt.Sprintf("%d job(s) lost with their workers: %v", len(e.JobIDs), e.JobIDs)
}

// ParticipantFailure reports a collective participant that failed, which
// aborts the whole collective.
type ParticipantFailure struct {
	Rank int
	Err  error
}

func (e *ParticipantFailure) Error() string {
	return fmt.Sprintf("participant %d failed: %v", e.Rank, e.Err)
}

func (e *ParticipantFailure) Unwrap() error { return e.Err }
