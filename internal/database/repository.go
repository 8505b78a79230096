package database

import (
	"context"
	"errors"
	"time"
)

// Storage-level rejection signals. Both the PostgreSQL and in-memory
// implementations map their native conflict detection to these errors so
// the workflows can branch on them with errors.Is.
var (
	// ErrDuplicateRollNumber is returned by IdentityRepository.Insert when
	// the roll number is already enrolled.
	ErrDuplicateRollNumber = errors.New("roll number already registered")

	// ErrAlreadyMarked is returned by MarkPresent in flag mode when the
	// identity's row was already flipped to present.
	ErrAlreadyMarked = errors.New("attendance already marked present")

	// ErrCooldownActive is returned by MarkPresent in cooldown mode when a
	// previous mark falls within the trailing cooldown window.
	ErrCooldownActive = errors.New("attendance cooldown active")
)

// IdentityRepository provides storage for enrolled identities.
type IdentityRepository interface {
	// Insert creates a new identity and returns it with its assigned ID.
	// Returns ErrDuplicateRollNumber if the roll number is taken.
	Insert(ctx context.Context, identity Identity) (Identity, error)

	// ListAll returns every enrolled identity in insertion order. The
	// duplicate resolver depends on this ordering for its linear scan.
	ListAll(ctx context.Context) ([]Identity, error)

	// Exists reports whether a roll number is already enrolled. Used as a
	// cheap gate before any oracle call.
	Exists(ctx context.Context, rollNumber string) (bool, error)
}

// AttendanceRepository provides storage for the attendance ledger. The
// active LedgerMode decides which marking semantics apply; implementations
// must evaluate the not-already-marked predicate atomically in the storage
// engine, not with a separate read.
type AttendanceRepository interface {
	// SeedAbsent creates the initial absent row for a new identity.
	// Only called in flag mode.
	SeedAbsent(ctx context.Context, identityID int64) error

	// MarkPresent records attendance for an identity at the given time.
	// Returns ErrAlreadyMarked (flag mode) or ErrCooldownActive (cooldown
	// mode) when the mark is rejected.
	MarkPresent(ctx context.Context, identityID int64, at time.Time) error

	// ListEntries returns the attendance projection joined with identities.
	ListEntries(ctx context.Context) ([]AttendanceEntry, error)
}
