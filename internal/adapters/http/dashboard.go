package httpadapter

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"certportal/internal/domain"
	"certportal/internal/services/sessions"
)

const sseKeepAlive = 25 * time.Second

var notices = map[string]string{
	"created": "Certificate created.",
	"updated": "Certificate updated.",
	"deleted": "Certificate deleted.",
}

type dashboardRow struct {
	ID           string
	SerialNumber string
	StudentName  string
	CourseName   string
	Input        domain.CertificateInput
}

type dashboardPage struct {
	Title        string
	Email        string
	Notice       string
	Error        string
	Draft        domain.CertificateInput
	Certificates []dashboardRow
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.renderDashboard(w, r, http.StatusOK, dashboardPage{Notice: notices[r.URL.Query().Get("notice")]})
}

func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, status int, page dashboardPage) {
	page.Title = "Certificates"
	if sess := domain.SessionFromContext(r.Context()); sess != nil {
		page.Email = sess.Email
	}

	certs, err := s.certs.List(r.Context())
	if err != nil {
		s.log.Warn("list certificates failed", zap.Error(err), zap.String("request_id", requestIDFrom(r.Context())))
		page.Error = "The certificate store is unavailable."
		if status == http.StatusOK {
			status = http.StatusBadGateway
		}
	}
	for _, c := range certs {
		page.Certificates = append(page.Certificates, dashboardRow{
			ID:           c.ID,
			SerialNumber: c.SerialNumber,
			StudentName:  c.StudentName,
			CourseName:   c.CourseName,
			Input: domain.CertificateInput{
				SerialNumber:      c.SerialNumber,
				StudentName:       c.StudentName,
				CourseName:        c.CourseName,
				CourseDuration:    c.CourseDuration,
				CompletionStatus:  c.CompletionStatus,
				CourseDescription: c.CourseDescription,
				SkillsGained:      c.SkillsGained,
				BadgeURL:          c.BadgeURL,
			},
		})
	}
	s.renderPage(w, r, status, "dashboard.html", page)
}

func (s *Server) handleCreateCertificate(w http.ResponseWriter, r *http.Request) {
	in, ok := s.certificateInput(w, r)
	if !ok {
		return
	}
	if _, err := s.certs.Create(r.Context(), in); err != nil {
		s.mutationFailed(w, r, in, err)
		return
	}
	http.Redirect(w, r, "/dashboard?notice=created", http.StatusSeeOther)
}

func (s *Server) handleUpdateCertificate(w http.ResponseWriter, r *http.Request) {
	in, ok := s.certificateInput(w, r)
	if !ok {
		return
	}
	if _, err := s.certs.Update(r.Context(), chi.URLParam(r, "id"), in); err != nil {
		s.mutationFailed(w, r, domain.CertificateInput{}, err)
		return
	}
	http.Redirect(w, r, "/dashboard?notice=updated", http.StatusSeeOther)
}

func (s *Server) handleDeleteCertificate(w http.ResponseWriter, r *http.Request) {
	if err := s.certs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.mutationFailed(w, r, domain.CertificateInput{}, err)
		return
	}
	http.Redirect(w, r, "/dashboard?notice=deleted", http.StatusSeeOther)
}

func (s *Server) certificateInput(w http.ResponseWriter, r *http.Request) (domain.CertificateInput, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return domain.CertificateInput{}, false
	}
	optional := func(key string) *string {
		if !r.PostForm.Has(key) {
			return nil
		}
		v := r.PostForm.Get(key)
		return &v
	}
	return domain.CertificateInput{
		SerialNumber:      r.PostForm.Get("serial_number"),
		StudentName:       r.PostForm.Get("student_name"),
		CourseName:        r.PostForm.Get("course_name"),
		CourseDuration:    optional("course_duration"),
		CompletionStatus:  optional("completion_status"),
		CourseDescription: optional("course_description"),
		SkillsGained:      optional("skills_gained"),
		BadgeURL:          optional("badge_url"),
	}, true
}

// mutationFailed re-renders the dashboard with the failure; draft refills the
// create form.
func (s *Server) mutationFailed(w http.ResponseWriter, r *http.Request, draft domain.CertificateInput, err error) {
	page := dashboardPage{Draft: draft}
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
		page.Error = err.Error()
	case errors.Is(err, domain.ErrCertificateNotFound):
		status = http.StatusNotFound
		page.Error = "That certificate no longer exists."
	default:
		s.log.Warn("certificate change failed", zap.Error(err), zap.String("request_id", requestIDFrom(r.Context())))
		page.Error = "The certificate store is unavailable."
	}
	s.renderDashboard(w, r, status, page)
}

// handleSessionEvents streams session changes to an open dashboard. The
// guard mounted by requireSession stays live for the whole connection; a
// redirect event is sent once it ends the session.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	g := guardFrom(r.Context())
	if g == nil {
		http.Error(w, "no session guard", http.StatusInternalServerError)
		return
	}
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	if err := rc.Flush(); err != nil {
		s.log.Warn("event stream cannot flush", zap.Error(err))
		return
	}

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			_ = rc.Flush()
		case <-g.Changed():
			if g.Outcome() != sessions.OutcomeRedirect {
				continue
			}
			fmt.Fprintf(w, "event: redirect\ndata: %s\n\n", sessions.LoginPath)
			_ = rc.Flush()
			return
		}
	}
}
