// Package txn implements the transaction primitive that makes scaffold
// generation all-or-nothing. A Manager owns at most one active Transaction;
// every filesystem mutation performed during generation is logged through it
// and paired with an undo action, so a failure at any point can be rolled
// back in strict reverse order.
package txn

import (
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/core"
	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/filesystem"
)

// State is the lifecycle state of a Manager.
type State string

const (
	// StateIdle means no transaction is in progress.
	StateIdle State = "idle"
	// StateActive means a transaction is open and accepting log entries.
	StateActive State = "active"
)

// Operation is one attempted forward mutation, appended to the operation
// log. Logging an operation does not perform it; callers perform the
// mutation themselves and log it alongside the attempt.
type Operation struct {
	Kind      core.OperationKind
	Path      string
	Mode      fs.FileMode
	UID       int
	GID       int
	Timestamp time.Time
}

// UndoAction is the inverse of a successfully applied Operation. It is
// recorded only after the forward mutation succeeded, so the rollback log
// always describes real, applied changes.
type UndoAction struct {
	Kind      core.UndoKind
	Path      string
	PriorMode fs.FileMode
	PriorUID  int
	PriorGID  int
}

// Transaction is one bounded unit of scaffold work. It is created by
// Manager.Begin and destroyed by Commit, Rollback or Abort; its logs are
// never retained past finalization.
type Transaction struct {
	ID    string
	Label string
	Began time.Time

	operations []Operation
	undo       []UndoAction
}

// OperationCount returns the number of operations logged so far.
func (tx *Transaction) OperationCount() int {
	return len(tx.operations)
}

// Operations returns a copy of the operation log, oldest first.
func (tx *Transaction) Operations() []Operation {
	out := make([]Operation, len(tx.operations))
	copy(out, tx.operations)
	return out
}

// UndoActions returns a copy of the rollback log, oldest first.
func (tx *Transaction) UndoActions() []UndoAction {
	out := make([]UndoAction, len(tx.undo))
	copy(out, tx.undo)
	return out
}

// RollbackReport is the aggregate outcome of a rollback sweep. Rollback is
// best-effort: individual undo failures become warnings and never stop the
// remaining steps, so the report carries a completeness flag instead of a
// single error.
type RollbackReport struct {
	TransactionID string
	Attempted     int
	Failed        int
	Warnings      []core.RollbackWarning
}

// Complete reports whether every undo step succeeded.
func (r RollbackReport) Complete() bool {
	return r.Failed == 0
}

// Manager owns the transaction lifecycle for one scaffold engine instance.
// It is the sole mutator of the filesystem while a transaction is active.
// Execution is synchronous; the mutex only turns concurrent misuse into the
// AlreadyActive error instead of a race.
type Manager struct {
	mu     sync.Mutex
	fsys   filesystem.FullFileSystem
	logger zerolog.Logger
	state  State
	tx     *Transaction
}

// NewManager creates an idle Manager bound to the given filesystem.
func NewManager(fsys filesystem.FullFileSystem, logger zerolog.Logger) *Manager {
	return &Manager{
		fsys:   fsys,
		logger: logger.With().Str("component", "txn").Logger(),
		state:  StateIdle,
	}
}

// State returns the manager's current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Active reports whether a transaction is currently open.
func (m *Manager) Active() bool {
	return m.State() == StateActive
}

// Begin opens a new transaction. It fails with core.ErrAlreadyActive if one
// is already open, leaving the existing transaction untouched.
func (m *Manager) Begin(label string) (*Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateActive {
		return nil, core.ErrAlreadyActive
	}

	m.tx = &Transaction{
		ID:    uuid.NewString(),
		Label: label,
		Began: time.Now(),
	}
	m.state = StateActive

	m.logger.Debug().
		Str("tx_id", m.tx.ID).
		Str("label", label).
		Msg("transaction started")
	return m.tx, nil
}

// LogOperation appends a forward mutation to the operation log. It does not
// touch the filesystem.
func (m *Manager) LogOperation(op Operation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateActive {
		return &core.StateError{Op: "log operation", State: string(m.state)}
	}
	if op.Timestamp.IsZero() {
		op.Timestamp = time.Now()
	}
	m.tx.operations = append(m.tx.operations, op)

	m.logger.Debug().
		Str("tx_id", m.tx.ID).
		Str("kind", string(op.Kind)).
		Str("path", op.Path).
		Int("operation_count", len(m.tx.operations)).
		Msg("operation logged")
	return nil
}

// RecordUndo appends an inverse action to the rollback log. Callers must
// record one for every mutation that succeeded, and only after it succeeded;
// an unrecorded mutation cannot be rolled back and breaks atomicity.
func (m *Manager) RecordUndo(action UndoAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateActive {
		return &core.StateError{Op: "record undo", State: string(m.state)}
	}
	m.tx.undo = append(m.tx.undo, action)

	m.logger.Debug().
		Str("tx_id", m.tx.ID).
		Str("kind", string(action.Kind)).
		Str("path", action.Path).
		Msg("undo action recorded")
	return nil
}

// Commit finalizes the transaction and discards both logs. Once committed,
// the changes are permanent: there is nothing left to roll back.
func (m *Manager) Commit() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateActive {
		return &core.StateError{Op: "commit", State: string(m.state)}
	}

	m.logger.Info().
		Str("tx_id", m.tx.ID).
		Str("label", m.tx.Label).
		Int("operations", len(m.tx.operations)).
		Dur("duration", time.Since(m.tx.Began)).
		Msg("transaction committed")

	m.tx = nil
	m.state = StateIdle
	return nil
}

// Rollback replays the rollback log in strict reverse (LIFO) order: the
// most recent change is undone first, so a child file is removed before its
// now-empty parent directory. Individual undo failures are collected as
// warnings and never abort the sweep. The manager always returns to Idle
// with cleared logs, even when the sweep was incomplete.
func (m *Manager) Rollback() (RollbackReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateActive {
		return RollbackReport{}, &core.StateError{Op: "rollback", State: string(m.state)}
	}

	report := RollbackReport{TransactionID: m.tx.ID}
	m.logger.Info().
		Str("tx_id", m.tx.ID).
		Int("undo_steps", len(m.tx.undo)).
		Msg("rolling back transaction")

	for i := len(m.tx.undo) - 1; i >= 0; i-- {
		action := m.tx.undo[i]
		report.Attempted++
		if err := m.applyUndo(action); err != nil {
			report.Failed++
			report.Warnings = append(report.Warnings, core.RollbackWarning{
				Kind: action.Kind,
				Path: action.Path,
				Err:  err,
			})
			m.logger.Warn().
				Str("tx_id", m.tx.ID).
				Str("kind", string(action.Kind)).
				Str("path", action.Path).
				Err(err).
				Msg("undo step failed, continuing rollback")
			continue
		}
		m.logger.Debug().
			Str("tx_id", m.tx.ID).
			Str("kind", string(action.Kind)).
			Str("path", action.Path).
			Msg("undo step applied")
	}

	if report.Complete() {
		m.logger.Info().
			Str("tx_id", m.tx.ID).
			Int("undone", report.Attempted).
			Msg("rollback complete")
	} else {
		m.logger.Warn().
			Str("tx_id", m.tx.ID).
			Int("attempted", report.Attempted).
			Int("failed", report.Failed).
			Msg("rollback incomplete, some paths may need manual cleanup")
	}

	m.tx = nil
	m.state = StateIdle
	return report, nil
}

// Abort discards the transaction without executing any undo actions. It is
// meant for failures before any mutation happened, where a rollback sweep
// would be meaningless work.
func (m *Manager) Abort() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateActive {
		return &core.StateError{Op: "abort", State: string(m.state)}
	}

	m.logger.Info().
		Str("tx_id", m.tx.ID).
		Int("operations", len(m.tx.operations)).
		Msg("transaction aborted without undo")

	m.tx = nil
	m.state = StateIdle
	return nil
}

func (m *Manager) applyUndo(action UndoAction) error {
	switch action.Kind {
	case core.UndoRemoveTree:
		return m.fsys.RemoveAll(action.Path)
	case core.UndoRemoveFile:
		return m.fsys.Remove(action.Path)
	case core.UndoRestoreMode:
		return m.fsys.Chmod(action.Path, action.PriorMode)
	case core.UndoRestoreOwner:
		return m.fsys.Chown(action.Path, action.PriorUID, action.PriorGID)
	default:
		return fmt.Errorf("unknown undo kind %q", action.Kind)
	}
}
