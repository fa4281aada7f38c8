package sessionsweep

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"certportal/internal/domain"
)

type fakeSweeper struct {
	mu     sync.Mutex
	calls  int
	events []domain.SessionEvent
	err    error
}

func (f *fakeSweeper) SweepExpired(context.Context, time.Time) ([]domain.SessionEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	ev := f.events
	f.events = nil
	return ev, f.err
}

func (f *fakeSweeper) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type sink struct {
	mu  sync.Mutex
	got []domain.SessionEvent
}

func (s *sink) Deliver(ev domain.SessionEvent) {
	s.mu.Lock()
	s.got = append(s.got, ev)
	s.mu.Unlock()
}

func TestSweepOnceDeliversEvents(t *testing.T) {
	sw := &fakeSweeper{events: []domain.SessionEvent{
		{Kind: domain.SessionExpired, SessionID: "a"},
		{Kind: domain.SessionExpired, SessionID: "b"},
	}}
	out := &sink{}

	n := SweepOnce(context.Background(), sw, out, time.Now(), zap.NewNop())
	assert.Equal(t, 2, n)
	assert.Len(t, out.got, 2)
}

func TestSweepOnceError(t *testing.T) {
	sw := &fakeSweeper{err: errors.New("boom")}
	out := &sink{}
	assert.Equal(t, 0, SweepOnce(context.Background(), sw, out, time.Now(), zap.NewNop()))
	assert.Empty(t, out.got)
}

func TestRunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	sw := &fakeSweeper{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Run(ctx, sw, &sink{}, 5*time.Millisecond, zap.NewNop())
		close(done)
	}()

	assert.Eventually(t, func() bool { return sw.Calls() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestRunDisabledWithoutInterval(t *testing.T) {
	Run(context.Background(), &fakeSweeper{}, &sink{}, 0, zap.NewNop())
}
