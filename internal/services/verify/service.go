package verify

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"certportal/internal/platform/metrics"
	"certportal/internal/ports"
)

type Service struct {
	lookup  ports.CertificateLookup
	metrics *metrics.Metrics
	log     *zap.Logger
	tracer  trace.Tracer
}

func New(lookup ports.CertificateLookup, m *metrics.Metrics, log *zap.Logger) *Service {
	return &Service{
		lookup:  lookup,
		metrics: m,
		log:     log,
		tracer:  otel.Tracer("certportal/verify"),
	}
}

// Verify submits input on a fresh form and returns it.
func (s *Service) Verify(ctx context.Context, input string) *Form {
	f := &Form{}
	s.Submit(ctx, f, input)
	return f
}

// Submit runs one submission of f, recording a span and an outcome metric.
func (s *Service) Submit(ctx context.Context, f *Form, input string) {
	ctx, span := s.tracer.Start(ctx, "verify.submit")
	defer span.End()

	f.Submit(ctx, s.lookup, input)

	outcome := outcomeLabel(f)
	span.SetAttributes(
		attribute.String("certportal.serial", f.Serial()),
		attribute.String("certportal.outcome", outcome),
	)
	if f.Phase() == PhaseError && f.Err() != ErrEmptySerial {
		span.SetStatus(codes.Error, f.Err().Error())
	}
	if outcome == "unavailable" {
		s.log.Warn("certificate lookup failed", zap.String("serial", f.Serial()), zap.Error(f.Err()))
	}
	s.metrics.Verifications.WithLabelValues(outcome).Inc()
}

func outcomeLabel(f *Form) string {
	switch f.Err() {
	case nil:
		if f.Phase() == PhaseResult {
			return "found"
		}
		return "empty"
	case ErrEmptySerial:
		return "invalid"
	case ErrNotFound:
		return "not_found"
	case ErrAmbiguous:
		return "ambiguous"
	default:
		return "unavailable"
	}
}
