package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// AttendanceHandler handles attendance marking and listing.
type AttendanceHandler struct {
	service *attendance.Service
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(service *attendance.Service) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// markedUser is the identity summary returned after a successful mark.
type markedUser struct {
	Name       string    `json:"name"`
	RollNumber string    `json:"roll_number"`
	Time       time.Time `json:"time"`
}

// Mark handles multipart attendance requests: a single probe image that gets
// resolved against the enrolled identities.
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	var req attendance.MarkRequest
	file, header, err := r.FormFile("face_image")
	if err == nil {
		defer file.Close()
		req.Filename = header.Filename
		req.Image = file
	}

	identity, markedAt, err := h.service.Mark(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("Attendance marked for %s (%s)", sanitizeForLog(identity.Name), sanitizeForLog(identity.RollNumber))

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "attendance marked",
		"user": markedUser{
			Name:       identity.Name,
			RollNumber: identity.RollNumber,
			Time:       markedAt,
		},
	})
}

// List returns the attendance overview for all enrolled identities.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load attendance")
		return
	}
	if entries == nil {
		entries = []database.AttendanceEntry{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"attendance": entries,
	})
}
