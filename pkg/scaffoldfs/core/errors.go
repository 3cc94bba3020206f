package core

import (
	"errors"
	"fmt"
)

// ErrAlreadyActive is returned by Begin when a transaction is already active
// on the same manager. The existing transaction is left untouched.
var ErrAlreadyActive = errors.New("a transaction is already active")

// PreflightError reports a problem detected before any mutation was
// attempted. No transaction was opened and no rollback is required.
type PreflightError struct {
	Path   string
	Reason string
	Err    error
}

func (e *PreflightError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("preflight check failed for %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("preflight check failed for %s: %s", e.Path, e.Reason)
}

func (e *PreflightError) Unwrap() error {
	return e.Err
}

// CreationError reports a mutation that failed mid-generation. By the time
// the caller sees it, rollback of everything logged so far has already been
// attempted.
type CreationError struct {
	Op   OperationKind
	Path string
	Err  error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("%s failed for %s: %v", e.Op, e.Path, e.Err)
}

func (e *CreationError) Unwrap() error {
	return e.Err
}

// StateError reports a transaction API call made against the wrong
// transaction state, e.g. Commit while Idle. Always a caller bug.
type StateError struct {
	Op    string
	State string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s: transaction is %s", e.Op, e.State)
}

// RollbackWarning records a single undo step that failed during a rollback
// sweep. Warnings never abort the sweep; they are collected and surfaced so
// the caller can point the user at paths that may need manual cleanup.
type RollbackWarning struct {
	Kind UndoKind
	Path string
	Err  error
}

func (w RollbackWarning) String() string {
	return fmt.Sprintf("%s %s: %v", w.Kind, w.Path, w.Err)
}
