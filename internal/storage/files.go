// Package storage owns the image files backing enrollment and attendance
// requests: durable enrollment references and short-lived probe uploads.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// allowedExtensions lists the upload formats accepted for face images.
var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// AllowedExtension reports whether a filename has an accepted image format.
func AllowedExtension(filename string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// ImageStore saves face images under a single uploads directory.
// Enrollment images are durable; probe images are temporary and must be
// removed by the workflow that created them.
type ImageStore struct {
	dir string
}

// NewImageStore creates the uploads directory if needed.
func NewImageStore(dir string) (*ImageStore, error) {
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload directory %s: %w", dir, err)
	}
	return &ImageStore{dir: dir}, nil
}

// Dir returns the uploads directory path.
func (s *ImageStore) Dir() string {
	return s.dir
}

// SaveEnrollment persists an enrollment image under a name derived from the
// roll number and the original filename. The stored path becomes the
// identity's reference image.
func (s *ImageStore) SaveEnrollment(rollNumber, filename string, r io.Reader) (string, error) {
	name := sanitizeFilename(rollNumber + "_" + filepath.Base(filename))
	return s.save(name, r)
}

// SaveProbe persists a probe image under a unique temporary name. Unique
// names keep concurrent attendance requests from clobbering each other.
func (s *ImageStore) SaveProbe(filename string) (string, io.WriteCloser, error) {
	name := "probe_" + uuid.New().String() + strings.ToLower(filepath.Ext(filename))
	path := filepath.Join(s.dir, name)
	out, err := os.Create(path) //nolint:gosec // name is generated, extension sanitized
	if err != nil {
		return "", nil, fmt.Errorf("create probe file: %w", err)
	}
	return path, out, nil
}

// SaveProbeFrom saves a probe image from a reader and returns its path.
func (s *ImageStore) SaveProbeFrom(filename string, r io.Reader) (string, error) {
	path, out, err := s.SaveProbe(filename)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("save probe file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close probe file: %w", err)
	}
	return path, nil
}

// Remove deletes a stored image. Missing files are not an error; cleanup
// runs on every exit path and may race with itself.
func (s *ImageStore) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove image %s: %w", path, err)
	}
	return nil
}

func (s *ImageStore) save(name string, r io.Reader) (string, error) {
	path := filepath.Join(s.dir, name)
	out, err := os.Create(path) //nolint:gosec // name sanitized via sanitizeFilename
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("save image file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close image file: %w", err)
	}
	return path, nil
}

// removeDiacritics strips diacritical marks from a string (e.g. "Jiří" -> "Jiri").
func removeDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// sanitizeFilename reduces a user-supplied filename to a safe form: no path
// separators, no diacritics, only word characters, dots and dashes.
func sanitizeFilename(name string) string {
	name = removeDiacritics(filepath.Base(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		out = "image"
	}
	return out
}
