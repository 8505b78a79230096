package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/config"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	LedgerMode      string `json:"ledger_mode"`
	CooldownMinutes int    `json:"cooldown_minutes,omitempty"`
	OracleModel     string `json:"oracle_model"`
}

// Get returns the runtime configuration a client needs to interpret the
// attendance list: which ledger mode is active and what model the oracle runs.
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	response := ConfigResponse{
		LedgerMode:  h.config.Ledger.Mode,
		OracleModel: h.config.Oracle.Model,
	}
	if h.config.Ledger.Mode == "cooldown" {
		response.CooldownMinutes = h.config.Ledger.CooldownMinutes
	}

	respondJSON(w, http.StatusOK, response)
}
