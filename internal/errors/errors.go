// Package errors provides sentinel errors and custom error types for graft.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common conditions
var (
	// ErrInvalidPlan indicates a bad source/destination combination. No state is created.
	ErrInvalidPlan = errors.New("invalid rebase plan")

	// ErrMergeConflict indicates that a step paused on unresolved merge conflicts
	ErrMergeConflict = errors.New("merge conflict")

	// ErrOperationInProgress indicates that another rewrite is already in progress
	ErrOperationInProgress = errors.New("operation in progress")

	// ErrNoOperationInProgress indicates continue/abort was requested with nothing pending
	ErrNoOperationInProgress = errors.New("no operation in progress")

	// ErrDisconnected indicates that two commits share no common ancestor
	ErrDisconnected = errors.New("commits share no common ancestor")

	// ErrIntegrity indicates persisted state or objects are unreadable or corrupt
	ErrIntegrity = errors.New("integrity error")

	// ErrUnresolvedConflicts indicates continue was requested while conflicts remain
	ErrUnresolvedConflicts = errors.New("unresolved merge conflicts")

	// ErrCommitNotFound indicates that a commit id does not resolve
	ErrCommitNotFound = errors.New("commit not found")
)

// InvalidPlanError describes why a rebase request was rejected
type InvalidPlanError struct {
	Reason string
}

func (e *InvalidPlanError) Error() string {
	return fmt.Sprintf("invalid rebase plan: %s", e.Reason)
}

// Is returns true if the target error is ErrInvalidPlan
func (e *InvalidPlanError) Is(target error) bool {
	return target == ErrInvalidPlan
}

// NewInvalidPlanError creates a new InvalidPlanError
func NewInvalidPlanError(format string, args ...interface{}) *InvalidPlanError {
	return &InvalidPlanError{Reason: fmt.Sprintf(format, args...)}
}

// CommitNotFoundError represents an error when a commit id does not resolve
type CommitNotFoundError struct {
	ID string
}

func (e *CommitNotFoundError) Error() string {
	return fmt.Sprintf("commit %s does not exist", e.ID)
}

// Is returns true if the target error is ErrCommitNotFound
func (e *CommitNotFoundError) Is(target error) bool {
	return target == ErrCommitNotFound
}

// NewCommitNotFoundError creates a new CommitNotFoundError
func NewCommitNotFoundError(id string) *CommitNotFoundError {
	return &CommitNotFoundError{ID: id}
}

// DisconnectedError reports the pair of commits without a common ancestor
type DisconnectedError struct {
	A string
	B string
}

func (e *DisconnectedError) Error() string {
	return fmt.Sprintf("commits %s and %s share no common ancestor", e.A, e.B)
}

// Is returns true if the target error is ErrDisconnected
func (e *DisconnectedError) Is(target error) bool {
	return target == ErrDisconnected
}

// NewDisconnectedError creates a new DisconnectedError
func NewDisconnectedError(a, b string) *DisconnectedError {
	return &DisconnectedError{A: a, B: b}
}

// IntegrityError represents unreadable or corrupt persisted data.
// It is surfaced to the caller and never repaired automatically.
type IntegrityError struct {
	What string
	Err  error
}

func (e *IntegrityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("integrity error: %s: %v", e.What, e.Err)
	}
	return fmt.Sprintf("integrity error: %s", e.What)
}

// Is returns true if the target error is ErrIntegrity
func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrity
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}

// NewIntegrityError creates a new IntegrityError
func NewIntegrityError(what string, err error) *IntegrityError {
	return &IntegrityError{What: what, Err: err}
}

// ConflictError lists the files that stopped a rewrite step
type ConflictError struct {
	Commit string
	Paths  []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("merge conflict rebasing %s: %s", e.Commit, strings.Join(e.Paths, ", "))
}

// Is returns true if the target error is ErrMergeConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrMergeConflict
}

// NewConflictError creates a new ConflictError
func NewConflictError(commit string, paths []string) *ConflictError {
	return &ConflictError{Commit: commit, Paths: paths}
}

// InProgressError carries a hint about how to finish the pending operation
type InProgressError struct {
	Hint string
}

func (e *InProgressError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("operation in progress (%s)", e.Hint)
	}
	return "operation in progress"
}

// Is returns true if the target error is ErrOperationInProgress
func (e *InProgressError) Is(target error) bool {
	return target == ErrOperationInProgress
}

// NewInProgressError creates a new InProgressError
func NewInProgressError(hint string) *InProgressError {
	return &InProgressError{Hint: hint}
}
