package planner

import (
	"errors"
	"fmt"
)

// --- Error Definitions ---
var (
	ErrProposalAlreadyApplied = errors.New("proposal has already been applied")
	ErrProposalNotApprovable  = errors.New("proposal is not in PROPOSED status")
)

// ValidationError reports malformed input rejected before any computation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

func validationErr(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ConflictScope distinguishes which lock level caused an apply conflict.
type ConflictScope string

const (
	ConflictScopeSession ConflictScope = "session"
	ConflictScopeWeek    ConflictScope = "week"
)

// ConflictError signals that a lock targeted by an approved diff changed
// between proposal creation and apply. The apply is rejected whole; the
// plan snapshot is left untouched.
type ConflictError struct {
	Scope     ConflictScope
	SessionID string // Set when Scope is session
	WeekIndex int
}

func (e *ConflictError) Error() string {
	if e.Scope == ConflictScopeSession {
		return fmt.Sprintf("lock conflict: session %s (week %d) is locked", e.SessionID, e.WeekIndex)
	}
	return fmt.Sprintf("lock conflict: week %d is locked", e.WeekIndex)
}
