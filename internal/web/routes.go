package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	// Create handlers
	registerHandler := handlers.NewRegisterHandler(s.service)
	attendanceHandler := handlers.NewAttendanceHandler(s.service)
	configHandler := handlers.NewConfigHandler(s.config)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/register", registerHandler.Register)
		r.Post("/attendance", attendanceHandler.Mark)
		r.Get("/attendance", attendanceHandler.List)
		r.Get("/config", configHandler.Get)
	})
}
