package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/memory"
	"github.com/kozaktomas/face-attendance/internal/storage"
)

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Oracle: config.OracleConfig{
			Model: "vgg-face",
		},
		Ledger: config.LedgerConfig{
			Mode:            "flag",
			CooldownMinutes: 30,
		},
	}
}

// contentOracle is a fake face service keyed on image file content. A file
// containing "person:<name>" represents that person's face and "noface"
// means extraction fails.
type contentOracle struct{}

func (o *contentOracle) person(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	content := strings.TrimSpace(string(data))
	if strings.Contains(content, "noface") {
		return "", errors.New("face could not be detected")
	}
	return strings.TrimPrefix(content, "person:"), nil
}

func (o *contentOracle) Represent(ctx context.Context, imagePath string) ([]float32, error) {
	person, err := o.person(imagePath)
	if err != nil {
		return nil, err
	}
	emb := make([]float32, 4)
	for i, r := range person {
		emb[i%4] += float32(r)
	}
	return emb, nil
}

func (o *contentOracle) Verify(ctx context.Context, probePath, referencePath string) (bool, error) {
	probe, err := o.person(probePath)
	if err != nil {
		return false, err
	}
	ref, err := o.person(referencePath)
	if err != nil {
		return false, err
	}
	return probe == ref, nil
}

// newTestService builds an attendance service over in-memory stores and the
// content-keyed fake oracle.
func newTestService(t *testing.T, mode database.LedgerMode) *attendance.Service {
	t.Helper()
	images, err := storage.NewImageStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create image store: %v", err)
	}
	identities := memory.NewIdentityStore()
	ledger := memory.NewAttendanceStore(identities, mode, 0)
	return attendance.NewService(identities, ledger, &contentOracle{}, images, mode)
}

// multipartRequest builds a multipart POST with form fields and an optional
// face_image file.
func multipartRequest(t *testing.T, path string, fields map[string]string, filename, content string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed to write form field: %v", err)
		}
	}
	if filename != "" {
		part, err := writer.CreateFormFile("face_image", filename)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// enrollPerson registers an identity through the handler, failing the test on error.
func enrollPerson(t *testing.T, handler *RegisterHandler, name, roll, face string) {
	t.Helper()
	req := multipartRequest(t, "/api/v1/register",
		map[string]string{"name": name, "roll_number": roll},
		roll+".jpg", "person:"+face)
	recorder := httptest.NewRecorder()
	handler.Register(recorder, req)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("failed to enroll %s: status %d, body %s", roll, recorder.Code, recorder.Body.String())
	}
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
