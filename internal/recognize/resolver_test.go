package recognize

import (
	"context"
	"errors"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/database"
)

// fakeOracle scripts Represent and Verify outcomes per image path.
type fakeOracle struct {
	embeddings   map[string][]float32
	verified     map[string]bool  // keyed by "probe|reference"
	verifyErrors map[string]error // keyed by "probe|reference"
	verifyCalls  []string
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{
		embeddings:   make(map[string][]float32),
		verified:     make(map[string]bool),
		verifyErrors: make(map[string]error),
	}
}

func (f *fakeOracle) Represent(ctx context.Context, imagePath string) ([]float32, error) {
	emb, ok := f.embeddings[imagePath]
	if !ok {
		return nil, errors.New("face could not be detected")
	}
	return emb, nil
}

func (f *fakeOracle) Verify(ctx context.Context, probePath, referencePath string) (bool, error) {
	key := probePath + "|" + referencePath
	f.verifyCalls = append(f.verifyCalls, key)
	if err := f.verifyErrors[key]; err != nil {
		return false, err
	}
	return f.verified[key], nil
}

// fakeStore returns a fixed identity list in insertion order.
type fakeStore struct {
	identities []database.Identity
	err        error
}

func (f *fakeStore) ListAll(ctx context.Context) ([]database.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.identities, nil
}

func testIdentities() []database.Identity {
	return []database.Identity{
		{ID: 1, Name: "Alice", RollNumber: "R001", ImagePath: "uploads/alice.jpg"},
		{ID: 2, Name: "Bob", RollNumber: "R002", ImagePath: "uploads/bob.jpg"},
		{ID: 3, Name: "Carol", RollNumber: "R003", ImagePath: "uploads/carol.jpg"},
	}
}

func TestResolve_FirstMatchWins(t *testing.T) {
	oracle := newFakeOracle()
	oracle.embeddings["probe.jpg"] = []float32{0.1, 0.2}
	oracle.verified["probe.jpg|uploads/alice.jpg"] = true
	oracle.verified["probe.jpg|uploads/bob.jpg"] = true // never reached

	r := NewResolver(&fakeStore{identities: testIdentities()}, oracle)

	identity, embedding, err := r.Resolve(context.Background(), "probe.jpg")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if identity.RollNumber != "R001" {
		t.Errorf("expected first match R001, got %s", identity.RollNumber)
	}
	if len(embedding) != 2 {
		t.Errorf("expected probe embedding returned, got %v", embedding)
	}
	// Early exit: only one verification call.
	if len(oracle.verifyCalls) != 1 {
		t.Errorf("expected scan to stop after first match, got %d calls", len(oracle.verifyCalls))
	}
}

func TestResolve_TieGoesToInsertionOrder(t *testing.T) {
	// Two candidates both verify as the probe; the earlier enrollment wins.
	oracle := newFakeOracle()
	oracle.embeddings["probe.jpg"] = []float32{0.5}
	oracle.verified["probe.jpg|uploads/bob.jpg"] = true
	oracle.verified["probe.jpg|uploads/carol.jpg"] = true

	r := NewResolver(&fakeStore{identities: testIdentities()}, oracle)

	identity, _, err := r.Resolve(context.Background(), "probe.jpg")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if identity.RollNumber != "R002" {
		t.Errorf("expected R002 (earlier enrollment), got %s", identity.RollNumber)
	}
}

func TestResolve_NoMatch(t *testing.T) {
	oracle := newFakeOracle()
	oracle.embeddings["probe.jpg"] = []float32{0.5}

	r := NewResolver(&fakeStore{identities: testIdentities()}, oracle)

	_, _, err := r.Resolve(context.Background(), "probe.jpg")
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
	if len(oracle.verifyCalls) != 3 {
		t.Errorf("expected all 3 candidates scanned, got %d calls", len(oracle.verifyCalls))
	}
}

func TestResolve_ProbeUnusableSkipsScan(t *testing.T) {
	oracle := newFakeOracle() // no embedding registered for the probe

	r := NewResolver(&fakeStore{identities: testIdentities()}, oracle)

	_, _, err := r.Resolve(context.Background(), "probe.jpg")
	if !errors.Is(err, ErrFaceNotDetected) {
		t.Fatalf("expected ErrFaceNotDetected, got %v", err)
	}
	if len(oracle.verifyCalls) != 0 {
		t.Errorf("expected no scan for unusable probe, got %d calls", len(oracle.verifyCalls))
	}
}

func TestScan_CandidateErrorFoldsToContinue(t *testing.T) {
	// The second candidate's stored image is corrupt; the scan must skip it
	// and still find the third.
	oracle := newFakeOracle()
	oracle.embeddings["probe.jpg"] = []float32{0.5}
	oracle.verifyErrors["probe.jpg|uploads/alice.jpg"] = errors.New("no face in reference")
	oracle.verifyErrors["probe.jpg|uploads/bob.jpg"] = context.DeadlineExceeded
	oracle.verified["probe.jpg|uploads/carol.jpg"] = true

	r := NewResolver(&fakeStore{identities: testIdentities()}, oracle)

	identity, err := r.Scan(context.Background(), "probe.jpg")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if identity.RollNumber != "R003" {
		t.Errorf("expected R003, got %s", identity.RollNumber)
	}
	if len(oracle.verifyCalls) != 3 {
		t.Errorf("expected 3 verification attempts, got %d", len(oracle.verifyCalls))
	}
}

func TestScan_AllCandidatesFailing(t *testing.T) {
	// Every verification errors out; the scan reports no match rather than
	// surfacing any one of the failures.
	oracle := newFakeOracle()
	for _, id := range testIdentities() {
		oracle.verifyErrors["probe.jpg|"+id.ImagePath] = errors.New("boom")
	}

	r := NewResolver(&fakeStore{identities: testIdentities()}, oracle)

	_, err := r.Scan(context.Background(), "probe.jpg")
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
}

func TestScan_EmptyStore(t *testing.T) {
	oracle := newFakeOracle()
	r := NewResolver(&fakeStore{}, oracle)

	_, err := r.Scan(context.Background(), "probe.jpg")
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch for empty store, got %v", err)
	}
}

func TestScan_StoreErrorPropagates(t *testing.T) {
	storeErr := errors.New("connection lost")
	r := NewResolver(&fakeStore{err: storeErr}, newFakeOracle())

	_, err := r.Scan(context.Background(), "probe.jpg")
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestScan_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewResolver(&fakeStore{identities: testIdentities()}, newFakeOracle())

	_, err := r.Scan(ctx, "probe.jpg")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
