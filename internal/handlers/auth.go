package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/kardemumma/internal/app"
)

type AuthHandler struct {
	service *app.Service
}

func NewAuthHandler(service *app.Service) *AuthHandler {
	return &AuthHandler{service: service}
}

// HandleTeacherLogin checks the configured credential pair and issues the
// teacher session cookie. 401 never says which half was wrong.
func (h *AuthHandler) HandleTeacherLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !h.service.Throttle.Allow(r.Context(), "teacher:"+req.Username) {
		writeError(w, http.StatusTooManyRequests, "Too many login attempts")
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.service.Config.Auth.TeacherUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.service.Config.Auth.TeacherPassword)) == 1
	if !userOK || !passOK {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	h.service.Throttle.Reset(r.Context(), "teacher:"+req.Username)
	h.service.TeacherSessions.Issue(w, req.Username)
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func (h *AuthHandler) HandleTeacherMe(w http.ResponseWriter, r *http.Request) {
	username, err := h.service.TeacherSessions.Verify(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"username": username})
}

// HandleStudentLogin compares the submitted access code against the
// auth_code column of the student's progress row.
func (h *AuthHandler) HandleStudentLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Code     string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "Missing username or code")
		return
	}

	if !h.service.Throttle.Allow(r.Context(), "student:"+req.Username) {
		writeError(w, http.StatusTooManyRequests, "Too many login attempts")
		return
	}

	summary, err := h.service.Store.FetchProgress(req.Username)
	if err != nil {
		logger.Error.Printf("Failed to fetch progress during login for %s: %v", req.Username, err)
		writeError(w, http.StatusInternalServerError, "Login failed: "+err.Error())
		return
	}
	if summary == nil || summary.AuthCode == nil ||
		subtle.ConstantTimeCompare([]byte(req.Code), []byte(*summary.AuthCode)) != 1 {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	h.service.Throttle.Reset(r.Context(), "student:"+req.Username)
	h.service.StudentSessions.Issue(w, req.Username)
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func (h *AuthHandler) HandleStudentMe(w http.ResponseWriter, r *http.Request) {
	username, err := h.service.StudentSessions.Verify(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"username": username})
}
