package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/kardemumma/internal/app"
)

// ValidatorHandler proxies submitted markup to the external W3C-style
// conformance checker and relays its JSON verdict verbatim. Single
// attempt, no retry.
type ValidatorHandler struct {
	service *app.Service
	client  *http.Client
}

func NewValidatorHandler(service *app.Service) *ValidatorHandler {
	return &ValidatorHandler{
		service: service,
		client:  &http.Client{},
	}
}

func (h *ValidatorHandler) HandleValidateHTML(w http.ResponseWriter, r *http.Request) {
	var req struct {
		HTML string `json:"html"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.HTML == "" {
		writeError(w, http.StatusBadRequest, "Missing html")
		return
	}

	url := h.service.Config.Validator.URL
	if !strings.Contains(url, "out=json") {
		if strings.Contains(url, "?") {
			url += "&out=json"
		} else {
			url += "?out=json"
		}
	}

	upstream, err := http.NewRequestWithContext(r.Context(), http.MethodPost, url, strings.NewReader(req.HTML))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build validator request: "+err.Error())
		return
	}
	upstream.Header.Set("Content-Type", "text/html; charset=utf-8")
	upstream.Header.Set("User-Agent", "kardemumma/1.0")

	resp, err := h.client.Do(upstream)
	if err != nil {
		logger.Error.Printf("Validator call failed: %v", err)
		writeError(w, http.StatusBadGateway, "Validator call failed: "+err.Error())
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("Validator returned %d", resp.StatusCode))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, resp.Body); err != nil {
		logger.Error.Printf("Failed to relay validator response: %v", err)
	}
}
