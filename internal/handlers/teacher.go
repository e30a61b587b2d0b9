package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/kardemumma/internal/app"
	"github.com/shrimpsizemoose/kardemumma/internal/export"
	"github.com/shrimpsizemoose/kardemumma/internal/metrics"
	"github.com/shrimpsizemoose/kardemumma/internal/models"
	"github.com/shrimpsizemoose/kardemumma/internal/observability"
)

// TeacherHandler serves the privileged back-office operations. Every
// endpoint here verifies the teacher session cookie before touching the
// store; an invalid session means zero writes.
type TeacherHandler struct {
	service *app.Service
}

func NewTeacherHandler(service *app.Service) *TeacherHandler {
	return &TeacherHandler{service: service}
}

func (h *TeacherHandler) requireTeacher(w http.ResponseWriter, r *http.Request) bool {
	if _, err := h.service.TeacherSessions.Verify(r); err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return false
	}
	return true
}

// HandleNormalizeGrades runs the batch re-scoring pass for one test.
func (h *TeacherHandler) HandleNormalizeGrades(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		metrics.APIRequestDuration.WithLabelValues("/teacher/normalize-grades", r.Method).Observe(time.Since(start).Seconds())
	}()

	if !h.requireTeacher(w, r) {
		return
	}

	var req struct {
		TestNumber int  `json:"testNumber"`
		MaxPoints  *int `json:"maxPoints"`
		DryRun     bool `json:"dryRun"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.TestNumber < models.MinTestNumber || req.TestNumber > models.MaxTestNumber {
		writeError(w, http.StatusBadRequest, "Invalid test number")
		return
	}

	maxPoints := models.DefaultNormalizeMaxPoints
	if req.MaxPoints != nil && *req.MaxPoints >= 0 {
		maxPoints = *req.MaxPoints
	}

	report, err := h.service.NormalizeGrades(r.Context(), req.TestNumber, maxPoints, req.DryRun)
	if err != nil {
		logger.Error.Printf("Normalization failed for test %d: %v", req.TestNumber, err)
		observability.CaptureErr(err)
		writeError(w, http.StatusInternalServerError, "Normalization failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"total":   report.Total,
		"updated": report.Updated,
		"preview": report.Preview,
	})
}

// HandleUpdateReasoning edits the reasoning text on the latest grade row
// for a (student, test) pair.
func (h *TeacherHandler) HandleUpdateReasoning(w http.ResponseWriter, r *http.Request) {
	if !h.requireTeacher(w, r) {
		return
	}

	var req struct {
		Username   string `json:"username"`
		TestNumber int    `json:"testNumber"`
		Reasoning  string `json:"reasoning"`
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

	latest, err := h.service.Store.FetchLatestGrade(req.Username, req.TestNumber)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch grade: "+err.Error())
		return
	}
	if latest == nil {
		writeError(w, http.StatusNotFound, "No grade recorded")
		return
	}

	if err := h.service.Store.UpdateLatestReasoning(req.Username, req.TestNumber, req.Reasoning); err != nil {
		logger.Error.Printf("Failed to update reasoning for %s test %d: %v", req.Username, req.TestNumber, err)
		writeError(w, http.StatusInternalServerError, "Failed to update reasoning: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

// HandleExport streams the attendance grid and grade summary as an xlsx
// workbook.
func (h *TeacherHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if !h.requireTeacher(w, r) {
		return
	}

	attendance, err := h.service.Store.FetchAttendanceOverview()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch attendance: "+err.Error())
		return
	}
	progress, err := h.service.Store.ListProgress()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch progress: "+err.Error())
		return
	}

	workbook, err := export.CourseWorkbook(attendance, progress)
	if err != nil {
		logger.Error.Printf("Failed to build export workbook: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to build export: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="course.xlsx"`)
	if err := workbook.Write(w); err != nil {
		logger.Error.Printf("Failed to stream export workbook: %v", err)
	}
}
