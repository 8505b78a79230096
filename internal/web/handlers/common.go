package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/recognize"
)

// maxUploadSize caps multipart uploads. A single face photo fits comfortably.
const maxUploadSize = 10 << 20 // 10 MB

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps workflow errors to HTTP status codes. Every typed
// error keeps its message; anything unexpected becomes an opaque 500.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case attendance.IsValidation(err):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, recognize.ErrFaceNotDetected):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrDuplicateRollNumber):
		respondError(w, http.StatusConflict, "roll number already registered")
	case errors.Is(err, attendance.ErrDuplicateFace):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrAlreadyMarked):
		respondError(w, http.StatusConflict, "attendance already marked")
	case errors.Is(err, database.ErrCooldownActive):
		respondError(w, http.StatusConflict, "attendance marked recently, cooldown active")
	case errors.Is(err, recognize.ErrNoMatch):
		respondError(w, http.StatusNotFound, "no matching enrolled face")
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
