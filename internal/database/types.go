package database

import (
	"fmt"
	"time"
)

// Identity represents an enrolled person stored in the database.
type Identity struct {
	ID         int64
	Name       string
	RollNumber string    // externally supplied natural key, globally unique
	Embedding  []float32 // face embedding captured at enrollment, immutable
	ImagePath  string    // reference image used for all future verifications
	CreatedAt  time.Time
}

// AttendanceRecord represents a single row in the attendance ledger.
type AttendanceRecord struct {
	ID         int64
	IdentityID int64
	Present    bool
	MarkedAt   *time.Time // nil only for pre-seeded absent rows (flag mode)
}

// AttendanceEntry is the read-only projection joining identities with the ledger.
type AttendanceEntry struct {
	RollNumber string     `json:"roll_number"`
	Name       string     `json:"name"`
	MarkedAt   *time.Time `json:"time"`
	Status     string     `json:"attendance_status"`
}

// Ledger statuses used by the attendance projection.
const (
	StatusPresent = "Present"
	StatusAbsent  = "Absent"
)

// LedgerMode selects the idempotency policy of the attendance ledger.
type LedgerMode string

const (
	// LedgerFlag keeps one row per identity, seeded absent at enrollment and
	// flipped to present exactly once.
	LedgerFlag LedgerMode = "flag"
	// LedgerAppend appends a new row on every successful mark, never rejects.
	LedgerAppend LedgerMode = "append"
	// LedgerCooldown appends a new row unless a previous mark for the same
	// identity falls within the trailing cooldown window.
	LedgerCooldown LedgerMode = "cooldown"
)

// ParseLedgerMode validates a ledger mode string from configuration.
// An empty string selects the flag mode.
func ParseLedgerMode(s string) (LedgerMode, error) {
	switch LedgerMode(s) {
	case LedgerFlag, LedgerAppend, LedgerCooldown:
		return LedgerMode(s), nil
	case "":
		return LedgerFlag, nil
	}
	return "", fmt.Errorf("unknown ledger mode %q (expected flag, append or cooldown)", s)
}
