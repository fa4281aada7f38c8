package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"certportal/internal/api"
	"certportal/internal/render"
	"certportal/internal/services/verify"
)

var _ api.StrictServerInterface = (*Server)(nil)

// GetCertificate verifies the serial in the path. Lookup failures of any
// kind answer 404 with the same message the form shows.
func (s *Server) GetCertificate(ctx context.Context, req api.GetCertificateRequestObject) (api.GetCertificateResponseObject, error) {
	f := s.verifier.Verify(ctx, req.Serial)
	switch f.Phase() {
	case verify.PhaseResult:
		return api.GetCertificate200JSONResponse{
			Certificate: certificateBody(render.NewCertificateView(f.Result(), s.rules)),
		}, nil
	case verify.PhaseError:
		if errors.Is(f.Err(), verify.ErrEmptySerial) {
			return api.GetCertificate400JSONResponse{Error: "invalid_serial", Message: f.Message()}, nil
		}
		return api.GetCertificate404JSONResponse{Error: "not_found", Message: f.Message()}, nil
	default:
		return api.GetCertificate400JSONResponse{Error: "invalid_serial", Message: verify.MsgEmptySerial}, nil
	}
}

func (s *Server) GetHealthz(context.Context, api.GetHealthzRequestObject) (api.GetHealthzResponseObject, error) {
	l := s.health.Liveness()
	return api.GetHealthz200JSONResponse{
		Status:        l.Status,
		Environment:   l.Environment,
		UptimeSeconds: l.UptimeSeconds,
	}, nil
}

func (s *Server) GetReady(context.Context, api.GetReadyRequestObject) (api.GetReadyResponseObject, error) {
	rd := s.health.Readiness()
	body := api.Readiness{Status: rd.Status}
	if len(rd.Checks) > 0 {
		body.Checks = &rd.Checks
	}
	if !rd.Ready() {
		return api.GetReady503JSONResponse(body), nil
	}
	return api.GetReady200JSONResponse(body), nil
}

func certificateBody(v render.CertificateView) api.Certificate {
	c := api.Certificate{
		SerialNumber:      v.SerialNumber,
		StudentName:       v.StudentName,
		CourseName:        v.CourseName,
		CourseDuration:    v.CourseDuration,
		CompletionStatus:  v.CompletionStatus,
		CourseDescription: v.CourseDescription,
		SkillsGained:      v.SkillsGained,
	}
	if v.Badge != nil {
		c.Badge = &api.Link{Url: v.Badge.URL}
		if v.Badge.Provider != "" {
			c.Badge.Provider = &v.Badge.Provider
		}
		if v.Badge.Host != "" {
			c.Badge.Host = &v.Badge.Host
		}
	}
	return c
}

// apiRequestError answers requests the generated router could not bind.
func (s *Server) apiRequestError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Debug("api request rejected", zap.Error(err), zap.String("request_id", requestIDFrom(r.Context())))
	writeJSON(w, http.StatusBadRequest, api.Error{Error: "invalid_serial", Message: verify.MsgEmptySerial})
}

// apiResponseError handles failures of the strict handlers themselves.
func (s *Server) apiResponseError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error("api response failed", zap.Error(err), zap.String("request_id", requestIDFrom(r.Context())))
	writeJSON(w, http.StatusInternalServerError, api.Error{Error: "internal", Message: "Internal Server Error"})
}

// escapedRouting routes on the escaped path so path parameters reach the
// generated binding still escaped and are decoded exactly once there.
func escapedRouting(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePath == "" {
			rctx.RoutePath = r.URL.EscapedPath()
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
