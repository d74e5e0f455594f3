package server

import (
	"net/http"

	"github.com/rs/zerolog/log"

	sessionctx "github.com/NiceTop1027/file.dyhs.kr/internal/context"
	"github.com/NiceTop1027/file.dyhs.kr/internal/fileshare"
	"github.com/NiceTop1027/file.dyhs.kr/internal/validation"
)

const sessionCookieName = "session"

// SessionMiddleware assigns each caller an opaque session id, carried
// in a cookie and created on first use. The id keys the rate limiter
// and the soft ownership check on deletes; it is not authentication.
func (s *Server) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sessionID string

		if cookie, err := r.Cookie(sessionCookieName); err == nil {
			if validation.ValidateSessionID(cookie.Value) == nil {
				sessionID = cookie.Value
			}
		}

		if sessionID == "" {
			generated, err := fileshare.GenerateSessionID()
			if err != nil {
				log.Error().Err(err).Msg("failed to generate session id")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			sessionID = generated

			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookieName,
				Value:    sessionID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		next.ServeHTTP(w, r.WithContext(sessionctx.WithSession(r.Context(), sessionID)))
	})
}
