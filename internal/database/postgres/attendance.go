package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// AttendanceRepository provides PostgreSQL-backed attendance storage. The
// ledger mode is fixed at construction; every write uses a single conditional
// statement so concurrent marks for the same identity cannot both succeed
// inside a guarded window.
type AttendanceRepository struct {
	pool     *Pool
	mode     database.LedgerMode
	cooldown time.Duration
}

// NewAttendanceRepository creates a new attendance repository for the given
// ledger mode. The cooldown window only applies in cooldown mode.
func NewAttendanceRepository(pool *Pool, mode database.LedgerMode, cooldown time.Duration) *AttendanceRepository {
	return &AttendanceRepository{
		pool:     pool,
		mode:     mode,
		cooldown: cooldown,
	}
}

// SeedAbsent inserts the initial absent row for a freshly enrolled identity.
// Only the flag ledger uses seeded rows.
func (r *AttendanceRepository) SeedAbsent(ctx context.Context, identityID int64) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO attendance (identity_id, present, marked_at) VALUES ($1, FALSE, NULL)",
		identityID,
	)
	if err != nil {
		return fmt.Errorf("seed attendance row: %w", err)
	}
	return nil
}

// MarkPresent records a presence event for the identity according to the
// configured ledger mode.
func (r *AttendanceRepository) MarkPresent(ctx context.Context, identityID int64, at time.Time) error {
	switch r.mode {
	case database.LedgerAppend:
		return r.markAppend(ctx, identityID, at)
	case database.LedgerCooldown:
		return r.markCooldown(ctx, identityID, at)
	default:
		return r.markFlag(ctx, identityID, at)
	}
}

// markFlag flips the identity's seeded row from absent to present. The
// condition on present = FALSE makes the check and the write one statement,
// so of two concurrent marks exactly one updates a row and the other sees
// zero rows affected.
func (r *AttendanceRepository) markFlag(ctx context.Context, identityID int64, at time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE attendance
		SET present = TRUE, marked_at = $2
		WHERE identity_id = $1 AND present = FALSE
	`, identityID, at)
	if err != nil {
		return fmt.Errorf("mark present: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark present: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// No absent row flipped. Either the identity was already marked or it
	// was never seeded (enrolled under a different ledger mode).
	var seeded bool
	err = r.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM attendance WHERE identity_id = $1)", identityID,
	).Scan(&seeded)
	if err != nil {
		return fmt.Errorf("mark present: %w", err)
	}
	if seeded {
		return database.ErrAlreadyMarked
	}

	_, err = r.pool.Exec(ctx,
		"INSERT INTO attendance (identity_id, present, marked_at) VALUES ($1, TRUE, $2)",
		identityID, at,
	)
	if err != nil {
		return fmt.Errorf("mark present: %w", err)
	}
	return nil
}

func (r *AttendanceRepository) markAppend(ctx context.Context, identityID int64, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO attendance (identity_id, present, marked_at) VALUES ($1, TRUE, $2)",
		identityID, at,
	)
	if err != nil {
		return fmt.Errorf("mark present: %w", err)
	}
	return nil
}

// markCooldown appends a presence row only if no mark exists inside the
// cooldown window. A transaction-scoped advisory lock keyed by identity
// serializes concurrent marks; WHERE NOT EXISTS alone would let two marks
// racing at read committed both pass the guard.
func (r *AttendanceRepository) markCooldown(ctx context.Context, identityID int64, at time.Time) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("mark present: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", identityID); err != nil {
		return fmt.Errorf("mark present: %w", err)
	}

	cutoff := at.Add(-r.cooldown)
	result, err := tx.ExecContext(ctx, `
		INSERT INTO attendance (identity_id, present, marked_at)
		SELECT $1, TRUE, $2
		WHERE NOT EXISTS (
			SELECT 1 FROM attendance
			WHERE identity_id = $1 AND marked_at IS NOT NULL AND marked_at > $3
		)
	`, identityID, at, cutoff)
	if err != nil {
		return fmt.Errorf("mark present: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark present: %w", err)
	}
	if affected == 0 {
		return database.ErrCooldownActive
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("mark present: %w", err)
	}
	return nil
}

// ListEntries returns the attendance overview. In flag mode every seeded row
// appears in ledger order, absent rows included. In append and cooldown modes
// every identity appears once with its most recent mark, or as absent when it
// has never been marked.
func (r *AttendanceRepository) ListEntries(ctx context.Context) ([]database.AttendanceEntry, error) {
	if r.mode == database.LedgerFlag {
		return r.listFlagEntries(ctx)
	}
	return r.listLatestEntries(ctx)
}

func (r *AttendanceRepository) listFlagEntries(ctx context.Context) ([]database.AttendanceEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT i.roll_number, i.name, a.marked_at, a.present
		FROM attendance a
		JOIN identities i ON i.id = a.identity_id
		ORDER BY a.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (r *AttendanceRepository) listLatestEntries(ctx context.Context) ([]database.AttendanceEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT i.roll_number, i.name, m.marked_at, m.marked_at IS NOT NULL
		FROM identities i
		LEFT JOIN (
			SELECT identity_id, MAX(marked_at) AS marked_at
			FROM attendance
			WHERE marked_at IS NOT NULL
			GROUP BY identity_id
		) m ON m.identity_id = i.id
		ORDER BY i.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]database.AttendanceEntry, error) {
	var entries []database.AttendanceEntry
	for rows.Next() {
		var entry database.AttendanceEntry
		var markedAt *time.Time
		var present bool
		if err := rows.Scan(&entry.RollNumber, &entry.Name, &markedAt, &present); err != nil {
			return nil, fmt.Errorf("scan attendance entry: %w", err)
		}
		entry.MarkedAt = markedAt
		if present {
			entry.Status = database.StatusPresent
		} else {
			entry.Status = database.StatusAbsent
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance entries: %w", err)
	}
	return entries, nil
}
