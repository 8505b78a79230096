package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/memory"
	"github.com/kozaktomas/face-attendance/internal/storage"
)

type nopOracle struct{}

func (nopOracle) Represent(ctx context.Context, imagePath string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (nopOracle) Verify(ctx context.Context, probePath, referencePath string) (bool, error) {
	return false, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		Oracle: config.OracleConfig{Model: "vgg-face"},
		Ledger: config.LedgerConfig{Mode: "flag"},
		Web:    config.WebConfig{Host: "127.0.0.1", Port: 0},
	}

	images, err := storage.NewImageStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create image store: %v", err)
	}
	identities := memory.NewIdentityStore()
	ledger := memory.NewAttendanceStore(identities, database.LedgerFlag, 0)
	service := attendance.NewService(identities, ledger, nopOracle{}, images, database.LedgerFlag)

	return NewServer(cfg, service)
}

func TestRoutes(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		method   string
		path     string
		expected int
	}{
		{http.MethodGet, "/api/v1/health", http.StatusOK},
		{http.MethodGet, "/api/v1/config", http.StatusOK},
		{http.MethodGet, "/api/v1/attendance", http.StatusOK},
		{http.MethodPost, "/api/v1/register", http.StatusBadRequest}, // no multipart body
		{http.MethodPost, "/api/v1/attendance", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
		{http.MethodDelete, "/api/v1/attendance", http.StatusMethodNotAllowed},
	}

	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			recorder := httptest.NewRecorder()
			server.Router().ServeHTTP(recorder, req)

			if recorder.Code != tc.expected {
				t.Errorf("expected status %d, got %d\nBody: %s", tc.expected, recorder.Code, recorder.Body.String())
			}
		})
	}
}

func TestPreflightRequest(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/register", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	recorder := httptest.NewRecorder()
	server.Router().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}
	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("expected localhost origin allowed, got '%s'", got)
	}
}

func TestSecurityHeaders(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	recorder := httptest.NewRecorder()
	server.Router().ServeHTTP(recorder, req)

	if got := recorder.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("expected nosniff header, got '%s'", got)
	}
}
