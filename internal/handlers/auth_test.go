package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/kardemumma/internal/app"
	"github.com/shrimpsizemoose/kardemumma/internal/models"
)

func TestTeacherLogin(t *testing.T) {
	service, _ := newTestService(t, "")
	h := NewAuthHandler(service)

	t.Run("valid credentials issue a session", func(t *testing.T) {
		rec := doJSON(t, h.HandleTeacherLogin, http.MethodPost, "/teacher/login", map[string]string{
			"username": "teacher",
			"password": "hunter2",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, app.TeacherCookieName, cookies[0].Name)

		me := doJSON(t, h.HandleTeacherMe, http.MethodGet, "/teacher/me", nil, cookies[0])
		require.Equal(t, http.StatusOK, me.Code)
		assert.Equal(t, "teacher", decodeBody(t, me)["username"])
	})

	t.Run("wrong password gets no cookie", func(t *testing.T) {
		rec := doJSON(t, h.HandleTeacherLogin, http.MethodPost, "/teacher/login", map[string]string{
			"username": "teacher",
			"password": "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("wrong username gets the same 401", func(t *testing.T) {
		rec := doJSON(t, h.HandleTeacherLogin, http.MethodPost, "/teacher/login", map[string]string{
			"username": "intruder",
			"password": "hunter2",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid credentials", decodeBody(t, rec)["error"])
	})

	t.Run("me without cookie", func(t *testing.T) {
		rec := doJSON(t, h.HandleTeacherMe, http.MethodGet, "/teacher/me", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestStudentLogin(t *testing.T) {
	service, st := newTestService(t, "")
	h := NewAuthHandler(service)

	code := "kn0ck-kn0ck"
	require.NoError(t, st.UpsertProgress(&models.ProgressSummary{
		Username: "alice",
		AuthCode: &code,
	}))

	t.Run("valid code issues a session", func(t *testing.T) {
		rec := doJSON(t, h.HandleStudentLogin, http.MethodPost, "/student/login", map[string]string{
			"username": "alice",
			"code":     code,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, app.StudentCookieName, cookies[0].Name)

		me := doJSON(t, h.HandleStudentMe, http.MethodGet, "/student/me", nil, cookies[0])
		require.Equal(t, http.StatusOK, me.Code)
		assert.Equal(t, "alice", decodeBody(t, me)["username"])
	})

	t.Run("wrong code gets no cookie", func(t *testing.T) {
		rec := doJSON(t, h.HandleStudentLogin, http.MethodPost, "/student/login", map[string]string{
			"username": "alice",
			"code":     "guessing",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("unknown student gets the same 401", func(t *testing.T) {
		rec := doJSON(t, h.HandleStudentLogin, http.MethodPost, "/student/login", map[string]string{
			"username": "mallory",
			"code":     code,
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("student without a code cannot log in", func(t *testing.T) {
		require.NoError(t, st.UpsertProgress(&models.ProgressSummary{Username: "bob"}))

		rec := doJSON(t, h.HandleStudentLogin, http.MethodPost, "/student/login", map[string]string{
			"username": "bob",
			"code":     "",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "empty code is a validation error, not a null match")
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := doJSON(t, h.HandleStudentLogin, http.MethodPost, "/student/login", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
