package sessions

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"certportal/internal/domain"
	"certportal/internal/platform/metrics"
)

type mockAuth struct {
	mock.Mock
}

func (m *mockAuth) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	args := m.Called(ctx, token)
	if s := args.Get(0); s != nil {
		return s.(*domain.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuth) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	args := m.Called(ctx, email, password)
	if s := args.Get(0); s != nil {
		return s.(*domain.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAuth) SignOut(ctx context.Context, s *domain.Session) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockAuth) Refresh(ctx context.Context, token string) (*domain.Session, error) {
	args := m.Called(ctx, token)
	if s := args.Get(0); s != nil {
		return s.(*domain.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishSessionEvent(ctx context.Context, ev domain.SessionEvent) error {
	return m.Called(ctx, ev).Error(0)
}

type recorder struct {
	mu     sync.Mutex
	events []domain.SessionEvent
}

func (r *recorder) record(ev domain.SessionEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) kinds() []domain.SessionEventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.SessionEventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

func newManager(auth *mockAuth) (*Manager, *Broker) {
	b := NewBroker(metrics.NewNop(), zap.NewNop())
	return NewManager(auth, b, metrics.NewNop(), zap.NewNop()), b
}

func TestManagerPublishesLifecycleEvents(t *testing.T) {
	ctx := context.Background()
	auth := new(mockAuth)
	mgr, _ := newManager(auth)

	s := &domain.Session{ID: "sess-1", UserID: "u1", AccessToken: "a1", RefreshToken: "r1"}
	refreshed := &domain.Session{ID: "sess-1", UserID: "u1", AccessToken: "a2", RefreshToken: "r2"}
	auth.On("SignIn", mock.Anything, "admin@example.com", "pw").Return(s, nil)
	auth.On("Refresh", mock.Anything, "r1").Return(refreshed, nil)
	auth.On("SignOut", mock.Anything, refreshed).Return(nil)

	rec := &recorder{}
	sub := mgr.OnSessionChange(rec.record)
	defer sub.Unsubscribe()

	got, err := mgr.SignIn(ctx, "admin@example.com", "pw")
	require.NoError(t, err)
	assert.Same(t, s, got)

	got, err = mgr.Refresh(ctx, "r1")
	require.NoError(t, err)
	assert.Same(t, refreshed, got)

	require.NoError(t, mgr.SignOut(ctx, refreshed))

	assert.Equal(t, []domain.SessionEventKind{
		domain.SessionSignedIn, domain.SessionTokenRefreshed, domain.SessionSignedOut,
	}, rec.kinds())
	auth.AssertExpectations(t)
}

func TestManagerSignInFailurePublishesNothing(t *testing.T) {
	auth := new(mockAuth)
	mgr, _ := newManager(auth)
	auth.On("SignIn", mock.Anything, "a", "b").Return(nil, domain.ErrInvalidCredentials)

	rec := &recorder{}
	defer mgr.OnSessionChange(rec.record).Unsubscribe()

	_, err := mgr.SignIn(context.Background(), "a", "b")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Empty(t, rec.kinds())
}

func TestManagerSignOutAnnouncesEvenOnBackendError(t *testing.T) {
	auth := new(mockAuth)
	mgr, _ := newManager(auth)
	s := &domain.Session{ID: "sess-9"}
	auth.On("SignOut", mock.Anything, s).Return(errors.New("503"))

	rec := &recorder{}
	defer mgr.OnSessionChange(rec.record).Unsubscribe()

	require.Error(t, mgr.SignOut(context.Background(), s))
	assert.Equal(t, []domain.SessionEventKind{domain.SessionSignedOut}, rec.kinds())
}

func TestBrokerForwardsToPublisher(t *testing.T) {
	b := NewBroker(metrics.NewNop(), zap.NewNop())
	pub := new(mockPublisher)
	b.SetPublisher(pub)

	ev := domain.SessionEvent{Kind: domain.SessionSignedOut, SessionID: "s"}
	pub.On("PublishSessionEvent", mock.Anything, ev).Return(errors.New("redis down")).Once()

	rec := &recorder{}
	defer b.OnSessionChange(rec.record).Unsubscribe()

	b.Publish(context.Background(), ev)
	assert.Len(t, rec.kinds(), 1, "local delivery does not depend on the relay")
	pub.AssertExpectations(t)
}

func TestBrokerUnsubscribe(t *testing.T) {
	b := NewBroker(metrics.NewNop(), zap.NewNop())
	first, second := &recorder{}, &recorder{}
	s1 := b.OnSessionChange(first.record)
	s2 := b.OnSessionChange(second.record)
	require.Equal(t, 2, b.Subscribers())

	b.Deliver(domain.SessionEvent{Kind: domain.SessionSignedIn, SessionID: "a"})
	s1.Unsubscribe()
	s1.Unsubscribe()
	b.Deliver(domain.SessionEvent{Kind: domain.SessionSignedOut, SessionID: "a"})
	s2.Unsubscribe()

	assert.Len(t, first.kinds(), 1)
	assert.Len(t, second.kinds(), 2)
	assert.Equal(t, 0, b.Subscribers())
}
