package sessions

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"certportal/internal/domain"
	"certportal/internal/platform/metrics"
	"certportal/internal/ports"
)

// Manager is the portal's auth surface: it forwards credential operations to
// the backend authenticator and announces every session change on the broker.
type Manager struct {
	auth    ports.Authenticator
	broker  *Broker
	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewManager(auth ports.Authenticator, broker *Broker, m *metrics.Metrics, log *zap.Logger) *Manager {
	return &Manager{auth: auth, broker: broker, metrics: m, log: log}
}

func (m *Manager) GetSession(ctx context.Context, accessToken string) (*domain.Session, error) {
	return m.auth.GetSession(ctx, accessToken)
}

func (m *Manager) OnSessionChange(fn func(domain.SessionEvent)) ports.Subscription {
	return m.broker.OnSessionChange(fn)
}

func (m *Manager) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	s, err := m.auth.SignIn(ctx, email, password)
	if err != nil {
		result := "error"
		if errors.Is(err, domain.ErrInvalidCredentials) {
			result = "rejected"
		}
		m.metrics.LoginAttempts.WithLabelValues(result).Inc()
		return nil, err
	}
	m.metrics.LoginAttempts.WithLabelValues("ok").Inc()
	m.log.Info("admin signed in", zap.String("user_id", s.UserID), zap.String("session_id", s.ID))
	m.broker.Publish(ctx, domain.SessionEvent{Kind: domain.SessionSignedIn, SessionID: s.ID, Session: s})
	return s, nil
}

// SignOut ends the session at the backend. Subscribers are told the session
// ended even when the backend call fails, since the portal drops its cookies
// either way.
func (m *Manager) SignOut(ctx context.Context, s *domain.Session) error {
	err := m.auth.SignOut(ctx, s)
	if err != nil {
		m.log.Warn("backend sign-out failed", zap.String("session_id", s.ID), zap.Error(err))
	}
	m.broker.Publish(ctx, domain.SessionEvent{Kind: domain.SessionSignedOut, SessionID: s.ID})
	return err
}

func (m *Manager) Refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	s, err := m.auth.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	m.broker.Publish(ctx, domain.SessionEvent{Kind: domain.SessionTokenRefreshed, SessionID: s.ID, Session: s})
	return s, nil
}

var _ ports.SessionProvider = (*Manager)(nil)
