package controllers

import (
	"net/http"
	"strings"

	"github.com/deliotti/tucosto-backend/api/middleware"
	"github.com/deliotti/tucosto-backend/api/responses"
	"github.com/deliotti/tucosto-backend/internal/budget"
	"github.com/deliotti/tucosto-backend/pkg/config"
	pkgerrors "github.com/deliotti/tucosto-backend/pkg/errors"
	"github.com/deliotti/tucosto-backend/pkg/logger"
)

// SessionEnd discards the caller's ledger and expires the session cookie.
func SessionEnd(svc budget.Service, cfg config.SessionConfig, logg *logger.Logger) http.HandlerFunc {
	cookieName := strings.TrimSpace(cfg.CookieName)
	if cookieName == "" {
		cookieName = middleware.DefaultSessionCookie
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "budget service unavailable"))
			return
		}

		if err := svc.EndSession(r.Context(), middleware.SessionIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   cfg.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
		if logg != nil {
			logg.Info(r.Context(), "session.ended")
		}
		responses.WriteSuccess(w, map[string]any{"ended": true})
	}
}
