package middleware

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/deliotti/tucosto-backend/pkg/config"
	"github.com/deliotti/tucosto-backend/pkg/logger"
)

const (
	sessionHeader = "X-Session-Id"
	// DefaultSessionCookie names the session cookie when none is configured.
	DefaultSessionCookie = "tucosto_session"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,128}$`)

// Session resolves the caller's ledger session from the X-Session-Id header,
// falling back to the session cookie, and issues a fresh id when neither
// carries a usable one.
func Session(cfg config.SessionConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	cookieName := strings.TrimSpace(cfg.CookieName)
	if cookieName == "" {
		cookieName = DefaultSessionCookie
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := sessionFromRequest(r, cookieName)
			if sessionID == "" {
				sessionID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    sessionID,
					Path:     "/",
					MaxAge:   int(cfg.TTL / time.Second),
					HttpOnly: true,
					Secure:   cfg.CookieSecure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			w.Header().Set(sessionHeader, sessionID)

			ctx := WithSessionID(r.Context(), sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionFromRequest(r *http.Request, cookieName string) string {
	if id := strings.TrimSpace(r.Header.Get(sessionHeader)); sessionIDPattern.MatchString(id) {
		return id
	}
	if cookie, err := r.Cookie(cookieName); err == nil {
		if id := strings.TrimSpace(cookie.Value); sessionIDPattern.MatchString(id) {
			return id
		}
	}
	return ""
}
