package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateHTML(t *testing.T) {
	verdict := `{"messages":[{"type":"error","message":"Stray end tag div."}]}`

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("out"))
		assert.Contains(t, r.Header.Get("Content-Type"), "text/html")

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, "<!doctype html><title>x</title></div>", string(body))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(verdict))
	}))
	defer upstream.Close()

	service, _ := newTestService(t, "")
	service.Config.Validator.URL = upstream.URL
	h := NewValidatorHandler(service)

	t.Run("relays the verdict verbatim", func(t *testing.T) {
		rec := doJSON(t, h.HandleValidateHTML, http.MethodPost, "/validate-html", map[string]string{
			"html": "<!doctype html><title>x</title></div>",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, verdict, rec.Body.String())
	})

	t.Run("missing html", func(t *testing.T) {
		rec := doJSON(t, h.HandleValidateHTML, http.MethodPost, "/validate-html", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/validate-html", nil)
		rec := httptest.NewRecorder()
		h.HandleValidateHTML(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestValidateHTMLUpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "checker exploded", http.StatusInternalServerError)
	}))
	defer upstream.Close()

	service, _ := newTestService(t, "")
	service.Config.Validator.URL = upstream.URL
	h := NewValidatorHandler(service)

	rec := doJSON(t, h.HandleValidateHTML, http.MethodPost, "/validate-html", map[string]string{
		"html": "<p>hi</p>",
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
