package ports

import (
	"context"

	"certportal/internal/domain"
)

// SessionChecker resolves an access token to the current session. A nil
// session with a nil error means no session is active.
type SessionChecker interface {
	GetSession(ctx context.Context, accessToken string) (*domain.Session, error)
}

// Subscription is released with Unsubscribe. Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe()
}

// SessionNotifier delivers session-change events until the subscription is released.
type SessionNotifier interface {
	OnSessionChange(fn func(domain.SessionEvent)) Subscription
}

// SessionProvider is the auth surface observed by the session guard.
type SessionProvider interface {
	SessionChecker
	SessionNotifier
}

// Authenticator is the credential side of the auth surface.
type Authenticator interface {
	SessionChecker
	SignIn(ctx context.Context, email, password string) (*domain.Session, error)
	SignOut(ctx context.Context, session *domain.Session) error
	Refresh(ctx context.Context, refreshToken string) (*domain.Session, error)
}

// EventPublisher fans a session event out to other portal instances.
type EventPublisher interface {
	PublishSessionEvent(ctx context.Context, ev domain.SessionEvent) error
}
