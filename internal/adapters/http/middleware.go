package httpadapter

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"certportal/internal/domain"
	"certportal/internal/services/sessions"
)

const maxRequestIDLength = 128

var validRequestID = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

type requestIDKey struct{}

// requestID keeps a well-formed client X-Request-ID or assigns a new one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" || len(id) > maxRequestIDLength || !validRequestID.MatchString(id) {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// accessLog logs each request and records its latency per route pattern.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.metrics.EndpointLatency.WithLabelValues(route, r.Method).Observe(elapsed.Seconds())
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", elapsed),
			zap.String("request_id", requestIDFrom(r.Context())),
		)
	})
}

// recoverer turns a panic into a 500 and logs it.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.log.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
					zap.String("request_id", requestIDFrom(r.Context())),
					zap.Stack("stack"))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type guardKey struct{}

func guardFrom(ctx context.Context) *sessions.Guard {
	g, _ := ctx.Value(guardKey{}).(*sessions.Guard)
	return g
}

// requireSession mounts a session guard for the lifetime of the request.
// Without a live session the visitor is redirected to the login page; a
// failed check is treated the same way.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		token := s.accessToken(w, r)

		g := sessions.Mount(ctx, s.sessions, token)
		defer g.Close()

		outcome := g.Wait(ctx)
		if err := g.Err(); err != nil {
			s.log.Warn("session check failed", zap.Error(err), zap.String("request_id", requestIDFrom(ctx)))
			s.metrics.SessionChecks.WithLabelValues("error").Inc()
		} else {
			s.metrics.SessionChecks.WithLabelValues(outcome.String()).Inc()
		}
		if outcome != sessions.OutcomeRender {
			http.Redirect(w, r, sessions.LoginPath, http.StatusSeeOther)
			return
		}

		ctx = domain.ContextWithSession(ctx, g.Session())
		ctx = context.WithValue(ctx, guardKey{}, g)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// accessToken returns the access token cookie, refreshing the session first
// when only the refresh token cookie survived. Cookies are cleared only when
// the backend rejects the refresh token.
func (s *Server) accessToken(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(accessCookie); err == nil && c.Value != "" {
		return c.Value
	}
	c, err := r.Cookie(refreshCookie)
	if err != nil || c.Value == "" {
		return ""
	}
	sess, err := s.sessions.Refresh(r.Context(), c.Value)
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrSessionNotFound):
		s.log.Debug("refresh token rejected", zap.Error(err))
		s.clearSessionCookies(w)
		return ""
	case err != nil:
		// the refresh token may still be good once the backend recovers
		s.log.Warn("session refresh failed", zap.Error(err), zap.String("request_id", requestIDFrom(r.Context())))
		return ""
	}
	s.setSessionCookies(w, sess)
	return sess.AccessToken
}
