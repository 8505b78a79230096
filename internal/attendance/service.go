// Package attendance implements the enrollment and attendance-marking
// workflows on top of the identity store, the attendance ledger and the
// face service.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/recognize"
	"github.com/kozaktomas/face-attendance/internal/storage"
)

// Service orchestrates enrollment and attendance marking. All writes to the
// identity store and the ledger go through here; handlers and CLI commands
// never touch the repositories directly.
type Service struct {
	identities database.IdentityRepository
	ledger     database.AttendanceRepository
	oracle     recognize.Oracle
	resolver   *recognize.Resolver
	images     *storage.ImageStore
	mode       database.LedgerMode

	now func() time.Time // overridable in tests
}

// NewService wires the workflows together. The resolver scans the same
// identity repository the enrollment workflow writes to.
func NewService(
	identities database.IdentityRepository,
	ledger database.AttendanceRepository,
	oracle recognize.Oracle,
	images *storage.ImageStore,
	mode database.LedgerMode,
) *Service {
	return &Service{
		identities: identities,
		ledger:     ledger,
		oracle:     oracle,
		resolver:   recognize.NewResolver(identities, oracle),
		images:     images,
		mode:       mode,
		now:        time.Now,
	}
}

// Mode returns the active ledger mode.
func (s *Service) Mode() database.LedgerMode {
	return s.mode
}

// EnrollRequest carries the validated-at-the-edge fields of an enrollment.
type EnrollRequest struct {
	Name       string
	RollNumber string
	Filename   string // original upload filename, used for format checks
	Image      io.Reader
}

// Enroll registers a new identity. Every step is a hard gate: a failure at
// any point leaves no partial state behind, including the saved image.
func (s *Service) Enroll(ctx context.Context, req EnrollRequest) (*database.Identity, error) {
	if req.Name == "" {
		return nil, validationErr("name", "required")
	}
	if req.RollNumber == "" {
		return nil, validationErr("roll_number", "required")
	}
	if req.Image == nil || req.Filename == "" {
		return nil, validationErr("face_image", "required")
	}
	if !storage.AllowedExtension(req.Filename) {
		return nil, validationErr("face_image", "unsupported format, use png or jpeg")
	}

	// Cheap gate before any oracle call: a taken roll number rejects the
	// request without paying for embedding extraction.
	exists, err := s.identities.Exists(ctx, req.RollNumber)
	if err != nil {
		return nil, fmt.Errorf("check roll number: %w", err)
	}
	if exists {
		return nil, database.ErrDuplicateRollNumber
	}

	imagePath, err := s.images.SaveEnrollment(req.RollNumber, req.Filename, req.Image)
	if err != nil {
		return nil, fmt.Errorf("save enrollment image: %w", err)
	}

	embedding, err := s.oracle.Represent(ctx, imagePath)
	if err != nil {
		s.images.Remove(imagePath)
		return nil, fmt.Errorf("%w: %w", recognize.ErrFaceNotDetected, err)
	}

	match, err := s.resolver.Scan(ctx, imagePath)
	if err == nil {
		s.images.Remove(imagePath)
		return nil, fmt.Errorf("%w (matches %s)", ErrDuplicateFace, match.RollNumber)
	}
	if !errors.Is(err, recognize.ErrNoMatch) {
		s.images.Remove(imagePath)
		return nil, fmt.Errorf("duplicate face scan: %w", err)
	}

	identity, err := s.identities.Insert(ctx, database.Identity{
		Name:       req.Name,
		RollNumber: req.RollNumber,
		Embedding:  embedding,
		ImagePath:  imagePath,
	})
	if err != nil {
		s.images.Remove(imagePath)
		return nil, err
	}

	// Flag mode pre-seeds an absent row; append and cooldown modes write
	// nothing until the first successful mark.
	if s.mode == database.LedgerFlag {
		if err := s.ledger.SeedAbsent(ctx, identity.ID); err != nil {
			return nil, fmt.Errorf("seed attendance row: %w", err)
		}
	}

	return &identity, nil
}

// MarkRequest carries a probe image for attendance marking.
type MarkRequest struct {
	Filename string
	Image    io.Reader
}

// Mark resolves a probe image to an enrolled identity and records
// attendance under the active ledger mode. The temporary probe file never
// survives the request, whatever the outcome.
func (s *Service) Mark(ctx context.Context, req MarkRequest) (*database.Identity, time.Time, error) {
	if req.Image == nil || req.Filename == "" {
		return nil, time.Time{}, validationErr("face_image", "required")
	}
	if !storage.AllowedExtension(req.Filename) {
		return nil, time.Time{}, validationErr("face_image", "unsupported format, use png or jpeg")
	}

	probePath, err := s.images.SaveProbeFrom(req.Filename, req.Image)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("save probe image: %w", err)
	}
	defer s.images.Remove(probePath)

	identity, _, err := s.resolver.Resolve(ctx, probePath)
	if err != nil {
		return nil, time.Time{}, err
	}

	markedAt := s.now()
	if err := s.ledger.MarkPresent(ctx, identity.ID, markedAt); err != nil {
		return nil, time.Time{}, err
	}

	return identity, markedAt, nil
}

// List returns the attendance projection for all enrolled identities.
func (s *Service) List(ctx context.Context) ([]database.AttendanceEntry, error) {
	return s.ledger.ListEntries(ctx)
}
