package httpadapter

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"certportal/internal/domain"
	"certportal/internal/render"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = mustParsePages("verify.html", "login.html", "dashboard.html")

func mustParsePages(names ...string) map[string]*template.Template {
	funcs := template.FuncMap{
		"year": func() int { return time.Now().Year() },
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}
	out := make(map[string]*template.Template, len(names))
	for _, name := range names {
		out[name] = template.Must(template.New("layout.html").Funcs(funcs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name))
	}
	return out
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	var buf bytes.Buffer
	if err := pages[page].ExecuteTemplate(&buf, "layout.html", data); err != nil {
		s.log.Error("render page", zap.String("page", page), zap.Error(err),
			zap.String("request_id", requestIDFrom(r.Context())))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type verifyPage struct {
	Title       string
	Serial      string
	Message     string
	Certificate *render.CertificateView
}

// handleVerifyPage shows the empty form, or runs a verification when the
// serial arrives as a query parameter.
func (s *Server) handleVerifyPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("serial") {
		s.renderPage(w, r, http.StatusOK, "verify.html", verifyPage{Title: "Verify a certificate"})
		return
	}
	s.verifyAndRender(w, r, q.Get("serial"))
}

func (s *Server) handleVerifySubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}
	s.verifyAndRender(w, r, r.PostForm.Get("serial"))
}

func (s *Server) verifyAndRender(w http.ResponseWriter, r *http.Request, input string) {
	f := s.verifier.Verify(r.Context(), input)
	data := verifyPage{Title: "Verify a certificate", Serial: input, Message: f.Message()}
	if c := f.Result(); c != nil {
		view := render.NewCertificateView(c, s.rules)
		data.Certificate = &view
	}
	s.renderPage(w, r, http.StatusOK, "verify.html", data)
}

const (
	msgMissingCredentials = "Email and password are required."
	msgBadCredentials     = "Invalid email or password."
	msgSignInUnavailable  = "Sign-in is unavailable right now. Please try again."
)

type loginPage struct {
	Title   string
	Email   string
	Message string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusOK, "login.html", loginPage{Title: "Admin sign in"})
}

func (s *Server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.PostForm.Get("email"))
	password := r.PostForm.Get("password")
	page := loginPage{Title: "Admin sign in", Email: email}

	if email == "" || password == "" {
		page.Message = msgMissingCredentials
		s.renderPage(w, r, http.StatusBadRequest, "login.html", page)
		return
	}

	sess, err := s.sessions.SignIn(r.Context(), email, password)
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		page.Message = msgBadCredentials
		s.renderPage(w, r, http.StatusUnauthorized, "login.html", page)
		return
	case err != nil:
		s.log.Warn("sign-in failed", zap.Error(err), zap.String("request_id", requestIDFrom(r.Context())))
		page.Message = msgSignInUnavailable
		s.renderPage(w, r, http.StatusServiceUnavailable, "login.html", page)
		return
	}

	s.setSessionCookies(w, sess)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// handleLogout ends the current session, if any, and always drops the
// session cookies.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(accessCookie); err == nil && c.Value != "" {
		sess, err := s.sessions.GetSession(r.Context(), c.Value)
		switch {
		case err != nil:
			s.log.Warn("session lookup on logout failed", zap.Error(err))
		case sess != nil:
			_ = s.sessions.SignOut(r.Context(), sess)
		}
	}
	s.clearSessionCookies(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
