package handlers

import (
	"net/http"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/kardemumma/internal/app"
)

// StudentHandler serves the cookie-gated student-scoped views. The
// principal always comes from the session cookie, never from the query,
// so a student can only read their own rows.
type StudentHandler struct {
	service *app.Service
}

func NewStudentHandler(service *app.Service) *StudentHandler {
	return &StudentHandler{service: service}
}

func (h *StudentHandler) HandleStudentAttendance(w http.ResponseWriter, r *http.Request) {
	username, err := h.service.StudentSessions.Verify(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	present, err := h.service.Store.FetchStudentAttendance(username)
	if err != nil {
		logger.Error.Printf("Failed to fetch attendance for %s: %v", username, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch attendance: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"username": username,
		"map":      present,
	})
}

func (h *StudentHandler) HandleStudentGrades(w http.ResponseWriter, r *http.Request) {
	username, err := h.service.StudentSessions.Verify(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	items, err := h.service.Store.FetchLatestGrades(username)
	if err != nil {
		logger.Error.Printf("Failed to fetch grades for %s: %v", username, err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch grades: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"username": username,
		"items":    items,
	})
}
