package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/kardemumma/internal/app"
	"github.com/shrimpsizemoose/kardemumma/internal/metrics"
)

type AttendanceHandler struct {
	service *app.Service
}

func NewAttendanceHandler(service *app.Service) *AttendanceHandler {
	return &AttendanceHandler{service: service}
}

// HandleSetAttendance upserts a per-date presence map. Idempotent: the same
// payload twice leaves the same stored state. The batch is not atomic.
func (h *AttendanceHandler) HandleSetAttendance(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		metrics.APIRequestDuration.WithLabelValues("/attendance", r.Method).Observe(time.Since(start).Seconds())
	}()

	var req struct {
		Date string          `json:"date"`
		Map  map[string]bool `json:"map"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Date == "" {
		writeError(w, http.StatusBadRequest, "Missing date")
		return
	}
	if req.Map == nil {
		writeError(w, http.StatusBadRequest, "Missing attendance map")
		return
	}

	if err := h.service.Store.UpsertAttendance(req.Date, req.Map); err != nil {
		logger.Error.Printf("Failed to save attendance for %s: %v", req.Date, err)
		writeError(w, http.StatusInternalServerError, "Failed to save attendance: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

// HandleGetAttendance returns a single date's presence map, or the full
// per-date overview when no date is given.
func (h *AttendanceHandler) HandleGetAttendance(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")

	if date == "" {
		overview, err := h.service.Store.FetchAttendanceOverview()
		if err != nil {
			logger.Error.Printf("Failed to fetch attendance overview: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch attendance: "+err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"overview": overview})
		return
	}

	present, err := h.service.Store.FetchAttendance(date)
	if err != nil {
		logger.Error.Printf("Failed to fetch attendance for %s: %v", date, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch attendance: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"date": date,
		"map":  present,
	})
}
