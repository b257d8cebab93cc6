package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pipewatch/internal/awsclient"
	"pipewatch/internal/models"
	"pipewatch/internal/service/engine"
)

// StateAccess is the slice of the store the API reads and writes.
type StateAccess interface {
	GetSnapshot() (*models.SyncSnapshot, error)
	GetSettings() (models.Settings, error)
	SaveSettings(settings models.Settings) error
}

// Approver submits an approval decision.
type Approver interface {
	Approve(ctx context.Context, approval models.PendingApproval) error
}

// RefreshTrigger requests an immediate poll cycle.
type RefreshTrigger interface {
	TriggerNow()
}

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ApproveResponse confirms an approval submission.
type ApproveResponse struct {
	Success bool `json:"success"`
}

// Router builds the /api/v1 subrouter.
func Router(state StateAccess, approver Approver, trigger RefreshTrigger) chi.Router {
	r := chi.NewRouter()

	r.Get("/status", statusHandler(state))
	r.Post("/refresh", refreshHandler(trigger))
	r.Post("/approve", approveHandler(approver, trigger))
	r.Get("/settings", getSettingsHandler(state))
	r.Put("/settings", putSettingsHandler(state))

	return r
}

func statusHandler(state StateAccess) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		snapshot, err := state.GetSnapshot()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
			return
		}
		if snapshot == nil {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "no snapshot yet"})
			return
		}
		writeJSON(w, http.StatusOK, snapshot)
	}
}

func refreshHandler(trigger RefreshTrigger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		trigger.TriggerNow()
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh scheduled"})
	}
}

func approveHandler(approver Approver, trigger RefreshTrigger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var approval models.PendingApproval
		if err := json.NewDecoder(r.Body).Decode(&approval); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "malformed approval payload"})
			return
		}
		if approval.PipelineName == "" || approval.StageName == "" || approval.ActionName == "" || approval.Token == "" {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "pipelineName, stageName, actionName, and token are required"})
			return
		}

		err := approver.Approve(r.Context(), approval)
		var approvalErr *engine.ApprovalError
		switch {
		case errors.Is(err, awsclient.ErrNotConfigured):
			writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
			return
		case errors.As(err, &approvalErr):
			writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: err.Error()})
			return
		case err != nil:
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
			return
		}

		// The follow-up cycle is a separate operation; its outcome never
		// changes this response.
		trigger.TriggerNow()
		writeJSON(w, http.StatusOK, ApproveResponse{Success: true})
	}
}

func getSettingsHandler(state StateAccess) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		settings, err := state.GetSettings()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, settings.Redacted())
	}
}

func putSettingsHandler(state StateAccess) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var settings models.Settings
		if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "malformed settings payload"})
			return
		}
		if settings.RefreshIntervalMs < 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "refreshIntervalMs must not be negative"})
			return
		}

		if err := state.SaveSettings(settings); err != nil {
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, settings.Redacted())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
