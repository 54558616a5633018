package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency. Callers match with
// errors.Is; layers wrap with fmt.Errorf("...: %w", err).

var (
	// ErrNotFound — referenced task/product/account does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden — caller lacks the role/capability for the transition.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState — transition is illegal from the entity's current state.
	ErrInvalidState = errors.New("invalid state for requested transition")

	// ErrPrecondition — structural precondition unmet (e.g. no assignee).
	ErrPrecondition = errors.New("precondition failed")

	// ErrInsufficientFunds — debit would push the balance below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrConflict — optimistic concurrency collision; a racer already applied
	// a conflicting mutation. Callers re-read and re-derive intent; the engine
	// never retries this on its own.
	ErrConflict = errors.New("conflict: entity changed concurrently")

	// ErrStorageUnavailable — the store transaction could not be committed for
	// infrastructure reasons. No side effect occurred; the whole operation may
	// be retried from scratch.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
