package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/kardemumma/internal/app"
	"github.com/shrimpsizemoose/kardemumma/internal/models"
)

type ProgressHandler struct {
	service *app.Service
}

func NewProgressHandler(service *app.Service) *ProgressHandler {
	return &ProgressHandler{service: service}
}

func (h *ProgressHandler) HandleGetProgress(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")

	if username == "" {
		items, err := h.service.Store.ListProgress()
		if err != nil {
			logger.Error.Printf("Failed to list progress: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch progress: "+err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
		return
	}

	item, err := h.service.Store.FetchProgress(username)
	if err != nil {
		logger.Error.Printf("Failed to fetch progress for %s: %v", username, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch progress: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"item": item})
}

// HandleUpsertProgress writes the provided fields of one summary row.
// Fields absent from the payload keep their stored values.
func (h *ProgressHandler) HandleUpsertProgress(w http.ResponseWriter, r *http.Request) {
	var summary models.ProgressSummary
	if err := json.NewDecoder(r.Body).Decode(&summary); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := summary.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Missing username")
		return
	}

	if err := h.service.Store.UpsertProgress(&summary); err != nil {
		logger.Error.Printf("Failed to upsert progress for %s: %v", summary.Username, err)
		writeError(w, http.StatusInternalServerError, "Failed to save progress: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}
