// internal/app/session.go
package app

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"
)

const (
	TeacherCookieName = "teacher_session"
	StudentCookieName = "student_session"

	insecureFallbackSecret = "kardemumma-insecure-dev-secret"
)

// SessionScheme is a stateless signed-cookie session, one instance per
// principal type (teacher, student) with its own secret. Token format:
// base64url(principal).expiryUnix.hexHMAC. No server-side session state,
// rotation of the secret invalidates every outstanding session.
type SessionScheme struct {
	CookieName string
	secret     []byte
	ttl        time.Duration
}

func NewSessionScheme(cookieName, secret string, ttl time.Duration) *SessionScheme {
	if secret == "" {
		logger.Error.Printf("Cookie secret for %s is empty, falling back to an INSECURE default. Fix the deployment.", cookieName)
		secret = insecureFallbackSecret
	}
	return &SessionScheme{
		CookieName: cookieName,
		secret:     []byte(secret),
		ttl:        ttl,
	}
}

func (s *SessionScheme) sign(value string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

// Issue sets the session cookie for a principal.
func (s *SessionScheme) Issue(w http.ResponseWriter, principal string) {
	expires := time.Now().Add(s.ttl)
	value := base64.RawURLEncoding.EncodeToString([]byte(principal)) + "." + strconv.FormatInt(expires.Unix(), 10)

	http.SetCookie(w, &http.Cookie{
		Name:     s.CookieName,
		Value:    value + "." + s.sign(value),
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Verify returns the principal from a valid session cookie. Signature
// comparison is constant-time.
func (s *SessionScheme) Verify(r *http.Request) (string, error) {
	cookie, err := r.Cookie(s.CookieName)
	if err != nil {
		return "", fmt.Errorf("missing session cookie")
	}

	parts := strings.Split(cookie.Value, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("malformed session token")
	}

	value := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(s.sign(value)), []byte(parts[2])) {
		return "", fmt.Errorf("invalid session signature")
	}

	expiry, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", fmt.Errorf("malformed session expiry")
	}
	if time.Now().Unix() > expiry {
		return "", fmt.Errorf("session expired")
	}

	principal, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("malformed session principal")
	}
	return string(principal), nil
}
