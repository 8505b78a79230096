package recognize

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/kozaktomas/face-attendance/internal/database"
)

var (
	// ErrFaceNotDetected means the face service could not extract a usable
	// embedding from the provided image. The scan never starts in that case.
	ErrFaceNotDetected = errors.New("no usable face detected in image")

	// ErrNoMatch means the scan exhausted every enrolled identity without a
	// verified match.
	ErrNoMatch = errors.New("no matching face found")
)

// Oracle is the face verification capability the resolver depends on.
type Oracle interface {
	// Represent extracts a face embedding from an image.
	Represent(ctx context.Context, imagePath string) ([]float32, error)
	// Verify reports whether two images show the same person.
	Verify(ctx context.Context, probePath, referencePath string) (bool, error)
}

// IdentityLister is the subset of the identity store the resolver needs.
type IdentityLister interface {
	ListAll(ctx context.Context) ([]database.Identity, error)
}

// Resolver answers "does this probe image belong to an already-enrolled
// identity?" with at most one match. Candidates are scanned in enrollment
// order and the first verified match wins; no global best-match search is
// attempted.
type Resolver struct {
	store  IdentityLister
	oracle Oracle
}

// NewResolver creates a resolver over the given identity store and oracle.
func NewResolver(store IdentityLister, oracle Oracle) *Resolver {
	return &Resolver{store: store, oracle: oracle}
}

// Resolve first checks that the probe image yields a usable embedding
// (ErrFaceNotDetected otherwise), then scans every enrolled identity.
// Returns the matched identity, its probe embedding, or ErrNoMatch.
func (r *Resolver) Resolve(ctx context.Context, probePath string) (*database.Identity, []float32, error) {
	embedding, err := r.oracle.Represent(ctx, probePath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrFaceNotDetected, err)
	}

	identity, err := r.Scan(ctx, probePath)
	if err != nil {
		return nil, nil, err
	}

	log.Printf("probe resolved to %s (embedding cosine distance %.4f)",
		identity.RollNumber, CosineDistance(embedding, identity.Embedding))
	return identity, embedding, nil
}

// Scan runs the linear scan without re-checking the probe. Callers must
// have already extracted a usable embedding from the probe image.
//
// A failed verification of a single candidate (corrupt stored image, face
// service timeout) only skips that candidate; one bad reference image must
// never block recognition of everyone enrolled after it.
func (r *Resolver) Scan(ctx context.Context, probePath string) (*database.Identity, error) {
	identities, err := r.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	for i := range identities {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		candidate := &identities[i]
		verified, err := r.oracle.Verify(ctx, probePath, candidate.ImagePath)
		if err != nil {
			log.Printf("skipping candidate %s: verification failed: %v", candidate.RollNumber, err)
			continue
		}
		if verified {
			return candidate, nil
		}
	}

	return nil, ErrNoMatch
}
