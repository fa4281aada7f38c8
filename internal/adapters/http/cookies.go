package httpadapter

import (
	"net/http"
	"time"

	"certportal/internal/domain"
)

const (
	accessCookie  = "portal_access_token"
	refreshCookie = "portal_refresh_token"

	refreshCookieTTL = 30 * 24 * time.Hour
)

func (s *Server) setSessionCookies(w http.ResponseWriter, sess *domain.Session) {
	access := &http.Cookie{
		Name:     accessCookie,
		Value:    sess.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if !sess.ExpiresAt.IsZero() {
		access.Expires = sess.ExpiresAt
	}
	http.SetCookie(w, access)

	if sess.RefreshToken != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     refreshCookie,
			Value:    sess.RefreshToken,
			Path:     "/",
			HttpOnly: true,
			Secure:   s.cookieSecure,
			SameSite: http.SameSiteLaxMode,
			Expires:  time.Now().Add(refreshCookieTTL),
		})
	}
}

func (s *Server) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{accessCookie, refreshCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			Secure:   s.cookieSecure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})
	}
}
