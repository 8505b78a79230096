package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations.
const uniqueViolation = "23505"

// IdentityRepository provides PostgreSQL-backed identity storage.
type IdentityRepository struct {
	pool *Pool
}

// NewIdentityRepository creates a new PostgreSQL identity repository.
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// Insert creates a new identity. The unique constraint on roll_number is the
// authority on duplicates; a conflict maps to database.ErrDuplicateRollNumber
// so concurrent enrollments racing past the Exists pre-check still fail safely.
func (r *IdentityRepository) Insert(ctx context.Context, identity database.Identity) (database.Identity, error) {
	query := `
		INSERT INTO identities (name, roll_number, embedding, image_path)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	vec := pgvector.NewVector(identity.Embedding)
	err := r.pool.QueryRow(ctx, query, identity.Name, identity.RollNumber, vec, identity.ImagePath).
		Scan(&identity.ID, &identity.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return database.Identity{}, database.ErrDuplicateRollNumber
		}
		return database.Identity{}, fmt.Errorf("insert identity: %w", err)
	}

	return identity, nil
}

// ListAll returns every enrolled identity in insertion order.
func (r *IdentityRepository) ListAll(ctx context.Context) ([]database.Identity, error) {
	query := `
		SELECT id, name, roll_number, embedding, image_path, created_at
		FROM identities
		ORDER BY id ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}
	defer rows.Close()

	var identities []database.Identity
	for rows.Next() {
		var identity database.Identity
		var vec pgvector.Vector
		if err := rows.Scan(
			&identity.ID,
			&identity.Name,
			&identity.RollNumber,
			&vec,
			&identity.ImagePath,
			&identity.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		identity.Embedding = vec.Slice()
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}

	return identities, nil
}

// Exists reports whether a roll number is already enrolled.
func (r *IdentityRepository) Exists(ctx context.Context, rollNumber string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM identities WHERE roll_number = $1)", rollNumber,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check roll number: %w", err)
	}
	return exists, nil
}
