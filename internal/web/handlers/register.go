package handlers

import (
	"log"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/attendance"
)

// RegisterHandler handles identity enrollment.
type RegisterHandler struct {
	service *attendance.Service
}

// NewRegisterHandler creates a new register handler.
func NewRegisterHandler(service *attendance.Service) *RegisterHandler {
	return &RegisterHandler{service: service}
}

// registeredUser is the identity summary returned after enrollment.
type registeredUser struct {
	Name       string `json:"name"`
	RollNumber string `json:"roll_number"`
}

// Register handles multipart enrollment requests: a face image plus the
// identity fields. A rejected request leaves nothing behind, neither a row
// nor a file.
func (h *RegisterHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	req := attendance.EnrollRequest{
		Name:       r.FormValue("name"),
		RollNumber: r.FormValue("roll_number"),
	}

	file, header, err := r.FormFile("face_image")
	if err == nil {
		defer file.Close()
		req.Filename = header.Filename
		req.Image = file
	}

	identity, err := h.service.Enroll(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	log.Printf("Enrolled %s (%s)", sanitizeForLog(identity.Name), sanitizeForLog(identity.RollNumber))

	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "registered successfully",
		"user": registeredUser{
			Name:       identity.Name,
			RollNumber: identity.RollNumber,
		},
	})
}
