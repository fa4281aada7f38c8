package sessions

import (
	"context"
	"sync"

	"certportal/internal/domain"
	"certportal/internal/ports"
)

// LoginPath is where an unauthenticated visitor is sent.
const LoginPath = "/login"

type Outcome int

const (
	OutcomeLoading Outcome = iota
	OutcomeRender
	OutcomeRedirect
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRender:
		return "render"
	case OutcomeRedirect:
		return "redirect"
	default:
		return "loading"
	}
}

// Guard observes one access token's session for the lifetime of a protected
// view. It holds a reference to the provider, never credentials of its own.
type Guard struct {
	mu      sync.Mutex
	outcome Outcome
	session *domain.Session
	err     error
	pending []domain.SessionEvent
	closed  bool

	resolved chan struct{}
	once     sync.Once
	changed  chan struct{}
	cancel   context.CancelFunc
	sub      ports.Subscription
}

// Mount subscribes to session changes and starts the session check. The
// caller must Close the guard on every exit path.
func Mount(ctx context.Context, p ports.SessionProvider, accessToken string) *Guard {
	g := &Guard{
		resolved: make(chan struct{}),
		changed:  make(chan struct{}, 1),
	}
	// subscribe before checking so no change between the two is lost
	g.sub = p.OnSessionChange(g.onEvent)

	ctx, g.cancel = context.WithCancel(ctx)
	go func() {
		var (
			s   *domain.Session
			err error
		)
		if accessToken != "" {
			s, err = p.GetSession(ctx, accessToken)
		}
		g.resolve(s, err)
	}()
	return g
}

func (g *Guard) resolve(s *domain.Session, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.err = err
	if err != nil {
		// a failed check counts as no session
		s = nil
	}
	g.session = s
	g.outcome = OutcomeRedirect
	if s != nil {
		g.outcome = OutcomeRender
	}
	for _, ev := range g.pending {
		g.apply(ev)
	}
	g.pending = nil
	g.once.Do(func() { close(g.resolved) })
	g.notify()
}

func (g *Guard) onEvent(ev domain.SessionEvent) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	if g.outcome == OutcomeLoading {
		g.pending = append(g.pending, ev)
		return
	}
	if g.apply(ev) {
		g.notify()
	}
}

// apply reports whether ev changed the guarded session. Events for other
// sessions are ignored.
func (g *Guard) apply(ev domain.SessionEvent) bool {
	if g.session == nil || ev.SessionID != g.session.ID {
		return false
	}
	switch ev.Kind {
	case domain.SessionSignedOut, domain.SessionExpired:
		g.session = nil
		g.outcome = OutcomeRedirect
		return true
	case domain.SessionSignedIn, domain.SessionTokenRefreshed:
		if ev.Session == nil {
			g.session = nil
			g.outcome = OutcomeRedirect
			return true
		}
		g.session = ev.Session
		g.outcome = OutcomeRender
		return true
	}
	return false
}

func (g *Guard) notify() {
	select {
	case g.changed <- struct{}{}:
	default:
	}
}

// Wait blocks until the session check resolves, the guard is closed or ctx
// is done, and returns the outcome at that point.
func (g *Guard) Wait(ctx context.Context) Outcome {
	select {
	case <-g.resolved:
	case <-ctx.Done():
	}
	return g.Outcome()
}

func (g *Guard) Outcome() Outcome {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.outcome
}

// Session returns the guarded session, nil unless the outcome is OutcomeRender.
func (g *Guard) Session() *domain.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session
}

// Err returns the error of a failed session check.
func (g *Guard) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// Changed signals after the outcome may have changed. It is never closed.
func (g *Guard) Changed() <-chan struct{} { return g.changed }

// Close cancels an in-flight check and releases the subscription. No state
// changes after Close returns.
func (g *Guard) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	g.pending = nil
	g.mu.Unlock()

	g.cancel()
	g.sub.Unsubscribe()
	g.once.Do(func() { close(g.resolved) })
}
