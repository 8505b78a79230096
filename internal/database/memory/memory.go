// Package memory provides in-memory implementations of the repository
// interfaces. They back unit tests and the database-less development mode
// of the server; nothing survives a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// IdentityStore is an in-memory database.IdentityRepository.
type IdentityStore struct {
	mu         sync.RWMutex
	nextID     int64
	identities []database.Identity

	// Error injection for tests.
	InsertError error
	ListError   error
	ExistsError error
}

// NewIdentityStore creates an empty in-memory identity store.
func NewIdentityStore() *IdentityStore {
	return &IdentityStore{nextID: 1}
}

// Insert assigns the next ID and appends the identity.
func (s *IdentityStore) Insert(ctx context.Context, identity database.Identity) (database.Identity, error) {
	if s.InsertError != nil {
		return database.Identity{}, s.InsertError
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.identities {
		if s.identities[i].RollNumber == identity.RollNumber {
			return database.Identity{}, database.ErrDuplicateRollNumber
		}
	}

	identity.ID = s.nextID
	identity.CreatedAt = time.Now()
	s.nextID++
	s.identities = append(s.identities, identity)
	return identity, nil
}

// ListAll returns identities in insertion order.
func (s *IdentityStore) ListAll(ctx context.Context) ([]database.Identity, error) {
	if s.ListError != nil {
		return nil, s.ListError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]database.Identity, len(s.identities))
	copy(out, s.identities)
	return out, nil
}

// Exists reports whether a roll number is enrolled.
func (s *IdentityStore) Exists(ctx context.Context, rollNumber string) (bool, error) {
	if s.ExistsError != nil {
		return false, s.ExistsError
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.identities {
		if s.identities[i].RollNumber == rollNumber {
			return true, nil
		}
	}
	return false, nil
}

// AttendanceStore is an in-memory database.AttendanceRepository. The
// mutex serializes the check-then-write pair the same way the conditional
// SQL statements do in the PostgreSQL implementation.
type AttendanceStore struct {
	mu       sync.Mutex
	mode     database.LedgerMode
	cooldown time.Duration
	nextID   int64
	records  []database.AttendanceRecord

	identities *IdentityStore // for the list projection join

	// Error injection for tests.
	MarkError error
	SeedError error
	ListError error
}

// NewAttendanceStore creates an empty ledger with the given mode. The
// cooldown window only matters in cooldown mode.
func NewAttendanceStore(identities *IdentityStore, mode database.LedgerMode, cooldown time.Duration) *AttendanceStore {
	return &AttendanceStore{
		mode:       mode,
		cooldown:   cooldown,
		nextID:     1,
		identities: identities,
	}
}

// SeedAbsent creates the initial absent row for an identity (flag mode).
func (s *AttendanceStore) SeedAbsent(ctx context.Context, identityID int64) error {
	if s.SeedError != nil {
		return s.SeedError
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, database.AttendanceRecord{
		ID:         s.nextID,
		IdentityID: identityID,
	})
	s.nextID++
	return nil
}

// MarkPresent applies the active ledger mode's marking semantics.
func (s *AttendanceStore) MarkPresent(ctx context.Context, identityID int64, at time.Time) error {
	if s.MarkError != nil {
		return s.MarkError
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.mode {
	case database.LedgerFlag:
		for i := range s.records {
			if s.records[i].IdentityID != identityID {
				continue
			}
			if s.records[i].Present {
				return database.ErrAlreadyMarked
			}
			s.records[i].Present = true
			marked := at
			s.records[i].MarkedAt = &marked
			return nil
		}
		// No seeded row: create one directly as present.
		marked := at
		s.records = append(s.records, database.AttendanceRecord{
			ID:         s.nextID,
			IdentityID: identityID,
			Present:    true,
			MarkedAt:   &marked,
		})
		s.nextID++
		return nil

	case database.LedgerCooldown:
		cutoff := at.Add(-s.cooldown)
		for i := range s.records {
			r := &s.records[i]
			if r.IdentityID == identityID && r.MarkedAt != nil && r.MarkedAt.After(cutoff) {
				return database.ErrCooldownActive
			}
		}
		fallthrough

	default: // LedgerAppend
		marked := at
		s.records = append(s.records, database.AttendanceRecord{
			ID:         s.nextID,
			IdentityID: identityID,
			Present:    true,
			MarkedAt:   &marked,
		})
		s.nextID++
		return nil
	}
}

// ListEntries joins the ledger with identities. Flag mode orders by ledger
// row (one per identity); append and cooldown modes list every identity
// with its latest mark.
func (s *AttendanceStore) ListEntries(ctx context.Context) ([]database.AttendanceEntry, error) {
	if s.ListError != nil {
		return nil, s.ListError
	}

	identities, err := s.identities.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]database.Identity, len(identities))
	for _, id := range identities {
		byID[id.ID] = id
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == database.LedgerFlag {
		entries := make([]database.AttendanceEntry, 0, len(s.records))
		for i := range s.records {
			r := &s.records[i]
			identity, ok := byID[r.IdentityID]
			if !ok {
				continue
			}
			status := database.StatusAbsent
			if r.Present {
				status = database.StatusPresent
			}
			entries = append(entries, database.AttendanceEntry{
				RollNumber: identity.RollNumber,
				Name:       identity.Name,
				MarkedAt:   r.MarkedAt,
				Status:     status,
			})
		}
		return entries, nil
	}

	latest := make(map[int64]*time.Time)
	for i := range s.records {
		r := &s.records[i]
		if r.MarkedAt == nil {
			continue
		}
		if prev, ok := latest[r.IdentityID]; !ok || r.MarkedAt.After(*prev) {
			latest[r.IdentityID] = r.MarkedAt
		}
	}

	entries := make([]database.AttendanceEntry, 0, len(identities))
	for _, identity := range identities {
		entry := database.AttendanceEntry{
			RollNumber: identity.RollNumber,
			Name:       identity.Name,
			Status:     database.StatusAbsent,
		}
		if at, ok := latest[identity.ID]; ok {
			entry.MarkedAt = at
			entry.Status = database.StatusPresent
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
