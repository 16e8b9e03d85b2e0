package protocol

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel targets for errors.Is discrimination. The typed structs
// below carry the context callers need to self-correct; the sentinels
// let call sites branch without unpacking fields.
var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("reservation conflict")
	ErrNotFound           = errors.New("not found")
	ErrAmbiguousReference = errors.New("ambiguous reference")
	ErrNotHolder          = errors.New("not reservation holder")
	ErrStorage            = errors.New("storage failure")
	ErrMigration          = errors.New("migration failure")
)

// ValidationError reports malformed input, rejected before any write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) work.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConflictError reports that a file path is reserved by another agent.
// It names the current holder and expiry so the caller can retry later
// or pick a different file without inspecting internals.
type ConflictError struct {
	FilePath  string
	Holder    string
	ExpiresAt time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s is reserved by %s until %s",
		e.FilePath, e.Holder, e.ExpiresAt.Format(time.RFC3339))
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// NotHolderError reports a release attempt by an agent that does not
// hold the reservation.
type NotHolderError struct {
	FilePath string
	Holder   string
	Agent    string
}

func (e *NotHolderError) Error() string {
	return fmt.Sprintf("%s cannot release %s: held by %s", e.Agent, e.FilePath, e.Holder)
}

func (e *NotHolderError) Is(target error) bool { return target == ErrNotHolder }

// NotFoundError reports a missing agent, cell, message, or memory.
// Candidates, when set, are close matches for self-correction.
type NotFoundError struct {
	Kind       string // "agent", "cell", "message", "memory"
	Ref        string
	Candidates []string
}

func (e *NotFoundError) Error() string {
	if len(e.Candidates) > 0 {
		return fmt.Sprintf("%s %q not found (close matches: %s)",
			e.Kind, e.Ref, strings.Join(e.Candidates, ", "))
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.Ref)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// AmbiguousReferenceError reports a partial id that matches more than
// one entity where exactly one is required. Matches lists every hit so
// the caller can supply a longer prefix.
type AmbiguousReferenceError struct {
	Kind    string
	Ref     string
	Matches []string
}

func (e *AmbiguousReferenceError) Error() string {
	return fmt.Sprintf("%s prefix %q matches %d entries: %s",
		e.Kind, e.Ref, len(e.Matches), strings.Join(e.Matches, ", "))
}

func (e *AmbiguousReferenceError) Is(target error) bool { return target == ErrAmbiguousReference }

// StorageError wraps a failure of the underlying durable store. Fatal
// for the current operation; never retried internally.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// MigrationError reports a failed schema migration. Fatal at startup;
// the process must not proceed on an inconsistent schema.
type MigrationError struct {
	Version int
	Err     error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration %d: %v", e.Version, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

func (e *MigrationError) Is(target error) bool { return target == ErrMigration }
