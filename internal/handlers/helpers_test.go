package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/kardemumma/internal/app"
	"github.com/shrimpsizemoose/kardemumma/internal/grader"
	"github.com/shrimpsizemoose/kardemumma/internal/store/sqlite"
)

// newTestService wires a service around an in-memory SQLite store, a
// stubbed model endpoint, and a disabled login throttle.
func newTestService(t *testing.T, modelURL string) (*app.Service, *sqlite.SQLiteStore) {
	t.Helper()

	st, err := sqlite.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations(""))
	t.Cleanup(func() { _ = st.Close() })

	cfg := &app.Config{}
	cfg.Auth.TeacherUsername = "teacher"
	cfg.Auth.TeacherPassword = "hunter2"
	cfg.Auth.TeacherSecret = "teacher-test-secret"
	cfg.Auth.StudentSecret = "student-test-secret"

	throttle, err := app.NewLoginThrottle(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = throttle.Close() })

	return &app.Service{
		Config:          cfg,
		Store:           st,
		Grader:          grader.NewClient("test-key", "", modelURL),
		TeacherSessions: app.NewSessionScheme(app.TeacherCookieName, cfg.Auth.TeacherSecret, time.Hour),
		StudentSessions: app.NewSessionScheme(app.StudentCookieName, cfg.Auth.StudentSecret, time.Hour),
		Throttle:        throttle,
	}, st
}

// stubModel serves the given string as the content of a chat completion
// and counts calls.
func stubModel(t *testing.T, content string) (*httptest.Server, *int) {
	t.Helper()

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": content}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)

	return srv, &calls
}

func doJSON(t *testing.T, handler http.HandlerFunc, method, target string, payload interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}

	req := httptest.NewRequest(method, target, &body)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// teacherCookie logs the session machinery in as a teacher without going
// through the login handler.
func teacherCookie(t *testing.T, service *app.Service) *http.Cookie {
	t.Helper()

	rec := httptest.NewRecorder()
	service.TeacherSessions.Issue(rec, service.Config.Auth.TeacherUsername)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func studentCookie(t *testing.T, service *app.Service, username string) *http.Cookie {
	t.Helper()

	rec := httptest.NewRecorder()
	service.StudentSessions.Issue(rec, username)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func countGradeRows(t *testing.T, st *sqlite.SQLiteStore) int {
	t.Helper()

	var count int
	require.NoError(t, st.DB.Get(&count, "SELECT COUNT(*) FROM test_grades"))
	return count
}
