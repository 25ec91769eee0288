package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/seedkeeper/internal/common"
	"github.com/ternarybob/seedkeeper/internal/interfaces"
	"github.com/ternarybob/seedkeeper/internal/models"
	"github.com/ternarybob/seedkeeper/internal/services/orchestrator"
)

// RunHandler exposes manual control over the daily action run: trigger it
// out of schedule and reset the per-action done markers.
type RunHandler struct {
	orchestrator *orchestrator.Service
	logger       arbor.ILogger
}

func NewRunHandler(orch *orchestrator.Service) *RunHandler {
	return &RunHandler{
		orchestrator: orch,
		logger:       common.GetLogger(),
	}
}

// TriggerHandler starts a manual run in the background. The run result is
// published on the event bus and shows up on the status endpoint.
func (h *RunHandler) TriggerHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	h.logger.Info().Msg("Manual run triggered via API")

	go h.orchestrator.Run(context.Background(), models.TriggerManual)

	WriteStarted(w, "Run triggered")
}

// ValidateHandler checks the configured credentials against the tracker
// with a single stats fetch
func (h *RunHandler) ValidateHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	kind := h.orchestrator.ValidateCredentials(r.Context())
	if kind != interfaces.KindNone {
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"valid": false,
			"error": string(kind),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"valid": true,
	})
}

// resetRequest selects which action markers to clear
type resetRequest struct {
	Donate bool `json:"donate"`
	VIP    bool `json:"vip"`
	Credit bool `json:"credit"`
}

// ResetHandler clears the last-success dates for the requested actions so
// the next run executes them again
func (h *RunHandler) ResetHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var kinds []models.ActionKind
	if req.Donate {
		kinds = append(kinds, models.ActionDonate)
	}
	if req.VIP {
		kinds = append(kinds, models.ActionBuyVIP)
	}
	if req.Credit {
		kinds = append(kinds, models.ActionBuyCredit)
	}

	if len(kinds) == 0 {
		WriteError(w, http.StatusBadRequest, "No actions selected")
		return
	}

	if err := h.orchestrator.Reset(r.Context(), kinds); err != nil {
		h.logger.Error().Err(err).Msg("Failed to reset run record")
		WriteError(w, http.StatusInternalServerError, "Failed to reset run record")
		return
	}

	WriteSuccess(w, "Run record reset")
}
