package httpadapter

import (
	"context"
	"io"
	"net/http"

	"github.com/andybalholm/brotli"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"certportal/internal/api"
	"certportal/internal/platform/health"
	"certportal/internal/platform/metrics"
	"certportal/internal/ports"
	"certportal/internal/render"
	"certportal/internal/services/verify"
)

// Verifier runs one verification submission.
type Verifier interface {
	Verify(ctx context.Context, input string) *verify.Form
}

// Sessions is the auth surface the transport needs: credential operations
// plus change notifications for guards.
type Sessions interface {
	ports.Authenticator
	ports.SessionNotifier
}

type Options struct {
	Verifier       Verifier
	Certificates   ports.Certificates
	Sessions       Sessions
	Rules          []render.Rule
	Health         *health.Handler
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	Log            *zap.Logger
	CookieSecure   bool
}

// Server serves the public verification pages, the gated admin dashboard
// and the JSON API, whose handlers implement api.StrictServerInterface.
type Server struct {
	verifier       Verifier
	certs          ports.Certificates
	sessions       Sessions
	rules          []render.Rule
	health         *health.Handler
	metrics        *metrics.Metrics
	metricsHandler http.Handler
	log            *zap.Logger
	cookieSecure   bool
}

func New(opts Options) *Server {
	s := &Server{
		verifier:       opts.Verifier,
		certs:          opts.Certificates,
		sessions:       opts.Sessions,
		rules:          opts.Rules,
		health:         opts.Health,
		metrics:        opts.Metrics,
		metricsHandler: opts.MetricsHandler,
		log:            opts.Log,
		cookieSecure:   opts.CookieSecure,
	}
	if s.rules == nil {
		s.rules = render.DefaultRules()
	}
	if s.metrics == nil {
		s.metrics = metrics.NewNop()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.health == nil {
		s.health = health.New("", s.log)
	}
	return s
}

// Routes returns a chi.Router with every portal route mounted.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(escapedRouting, requestID, s.accessLog, s.recoverer)

	compressor := middleware.NewCompressor(5, "text/html", "text/css", "application/json")
	compressor.SetEncoder("br", func(w io.Writer, level int) io.Writer {
		return brotli.NewWriterLevel(w, level)
	})
	r.Use(compressor.Handler)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/verify", http.StatusFound)
	})
	r.Get("/verify", s.handleVerifyPage)
	r.Post("/verify", s.handleVerifySubmit)

	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLoginSubmit)
	r.Post("/logout", s.handleLogout)

	r.Route("/dashboard", func(r chi.Router) {
		r.Use(s.requireSession)
		r.Get("/", s.handleDashboard)
		r.Get("/events", s.handleSessionEvents)
		r.Post("/certificates", s.handleCreateCertificate)
		r.Post("/certificates/{id}", s.handleUpdateCertificate)
		r.Post("/certificates/{id}/delete", s.handleDeleteCertificate)
	})

	api.HandlerWithOptions(api.NewStrictHandlerWithOptions(s, nil, api.StrictHTTPServerOptions{
		RequestErrorHandlerFunc:  s.apiRequestError,
		ResponseErrorHandlerFunc: s.apiResponseError,
	}), api.ChiServerOptions{
		BaseRouter:       r,
		ErrorHandlerFunc: s.apiRequestError,
	})

	if s.metricsHandler != nil {
		r.Handle("/metrics", s.metricsHandler)
	}
	return r
}
