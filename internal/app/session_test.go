package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requestWithSession issues a cookie for the principal and attaches it to
// a fresh request, the way a browser would echo it back.
func requestWithSession(s *SessionScheme, principal string) *http.Request {
	rec := httptest.NewRecorder()
	s.Issue(rec, principal)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestSessionRoundTrip(t *testing.T) {
	s := NewSessionScheme(TeacherCookieName, "test-secret", time.Hour)

	principal, err := s.Verify(requestWithSession(s, "teacher"))
	require.NoError(t, err)
	assert.Equal(t, "teacher", principal)
}

func TestSessionCookieAttributes(t *testing.T) {
	s := NewSessionScheme(StudentCookieName, "test-secret", time.Hour)

	rec := httptest.NewRecorder()
	s.Issue(rec, "alice")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, StudentCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
}

func TestSessionRejectsTampering(t *testing.T) {
	s := NewSessionScheme(TeacherCookieName, "test-secret", time.Hour)

	rec := httptest.NewRecorder()
	s.Issue(rec, "teacher")
	cookie := rec.Result().Cookies()[0]

	t.Run("flipped signature", func(t *testing.T) {
		broken := *cookie
		last := broken.Value[len(broken.Value)-1]
		flip := byte('0')
		if last == '0' {
			flip = '1'
		}
		broken.Value = broken.Value[:len(broken.Value)-1] + string(flip)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&broken)
		_, err := s.Verify(req)
		assert.Error(t, err)
	})

	t.Run("malformed token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: TeacherCookieName, Value: "not-a-session"})
		_, err := s.Verify(req)
		assert.Error(t, err)
	})

	t.Run("different secret", func(t *testing.T) {
		other := NewSessionScheme(TeacherCookieName, "some-other-secret", time.Hour)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookie)
		_, err := other.Verify(req)
		assert.Error(t, err)
	})
}

func TestSessionExpiry(t *testing.T) {
	s := NewSessionScheme(TeacherCookieName, "test-secret", -time.Hour)

	_, err := s.Verify(requestWithSession(s, "teacher"))
	assert.Error(t, err, "a token past its expiry must not verify")
}

func TestSessionMissingCookie(t *testing.T) {
	s := NewSessionScheme(TeacherCookieName, "test-secret", time.Hour)

	_, err := s.Verify(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Error(t, err)
}

func TestSessionSchemesAreIndependent(t *testing.T) {
	teacher := NewSessionScheme(TeacherCookieName, "teacher-secret", time.Hour)
	student := NewSessionScheme(StudentCookieName, "student-secret", time.Hour)

	// A student cookie must never pass as a teacher session.
	_, err := teacher.Verify(requestWithSession(student, "alice"))
	assert.Error(t, err)
}
