package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/kardemumma/internal/app"
	"github.com/shrimpsizemoose/kardemumma/internal/metrics"
	"github.com/shrimpsizemoose/kardemumma/internal/models"
	"github.com/shrimpsizemoose/kardemumma/internal/observability"
)

type GradeHandler struct {
	service *app.Service
}

func NewGradeHandler(service *app.Service) *GradeHandler {
	return &GradeHandler{service: service}
}

// HandleGradeTest grades a photographed submission through the vision
// model and records the result. No retry: a slow or failing model call
// fails this request.
func (h *GradeHandler) HandleGradeTest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		metrics.APIRequestDuration.WithLabelValues("/grade-test", r.Method).Observe(time.Since(start).Seconds())
	}()

	var req struct {
		Username   string   `json:"username"`
		TestNumber int      `json:"testNumber"`
		Images     []string `json:"images"`
		MaxPoints  *float64 `json:"maxPoints"`
		Criteria   string   `json:"criteria"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "Missing username")
		return
	}
	if req.TestNumber < models.MinTestNumber || req.TestNumber > models.MaxTestNumber {
		writeError(w, http.StatusBadRequest, "Invalid test number")
		return
	}
	if len(req.Images) == 0 {
		writeError(w, http.StatusBadRequest, "At least one image is required")
		return
	}

	maxPoints := models.DefaultMaxPoints
	if req.MaxPoints != nil && *req.MaxPoints >= 0 {
		maxPoints = int(*req.MaxPoints)
	}

	record, err := h.service.GradeSubmission(r.Context(), req.Username, req.TestNumber, req.Images, maxPoints, req.Criteria)
	if err != nil {
		logger.Error.Printf("Grading failed for %s test %d: %v", req.Username, req.TestNumber, err)
		observability.CaptureErr(err)
		writeError(w, http.StatusInternalServerError, "Grading failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":        true,
		"points":    record.Points,
		"reasoning": record.Reasoning,
	})
}

// HandleGetGrades returns the latest grade for one test, or the latest
// grade per test when testNumber is omitted.
func (h *GradeHandler) HandleGetGrades(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		writeError(w, http.StatusBadRequest, "Missing username")
		return
	}

	rawTest := r.URL.Query().Get("testNumber")
	if rawTest == "" {
		items, err := h.service.Store.FetchLatestGrades(username)
		if err != nil {
			logger.Error.Printf("Failed to fetch grades for %s: %v", username, err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch grades: "+err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
		return
	}

	testNumber, err := strconv.Atoi(rawTest)
	if err != nil || testNumber < models.MinTestNumber || testNumber > models.MaxTestNumber {
		writeError(w, http.StatusBadRequest, "Invalid test number")
		return
	}

	item, err := h.service.Store.FetchLatestGrade(username, testNumber)
	if err != nil {
		logger.Error.Printf("Failed to fetch grade for %s test %d: %v", username, testNumber, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch grade: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"item": item})
}
