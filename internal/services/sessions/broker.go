package sessions

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"certportal/internal/domain"
	"certportal/internal/platform/metrics"
	"certportal/internal/ports"
)

// Broker fans session-change events out to local subscribers and, when a
// publisher is attached, to other portal instances.
type Broker struct {
	mu        sync.RWMutex
	nextID    uint64
	subs      map[uint64]func(domain.SessionEvent)
	publisher ports.EventPublisher

	metrics *metrics.Metrics
	log     *zap.Logger
}

func NewBroker(m *metrics.Metrics, log *zap.Logger) *Broker {
	return &Broker{
		subs:    make(map[uint64]func(domain.SessionEvent)),
		metrics: m,
		log:     log,
	}
}

// SetPublisher attaches a cross-instance publisher. Call before serving.
func (b *Broker) SetPublisher(p ports.EventPublisher) {
	b.mu.Lock()
	b.publisher = p
	b.mu.Unlock()
}

// OnSessionChange registers fn until the returned subscription is released.
// fn runs on the publishing goroutine and must not block.
func (b *Broker) OnSessionChange(fn func(domain.SessionEvent)) ports.Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	return &subscription{broker: b, id: id}
}

// Publish delivers ev locally and forwards it to the attached publisher.
func (b *Broker) Publish(ctx context.Context, ev domain.SessionEvent) {
	b.Deliver(ev)

	b.mu.RLock()
	p := b.publisher
	b.mu.RUnlock()
	if p == nil {
		return
	}
	if err := p.PublishSessionEvent(ctx, ev); err != nil {
		b.log.Warn("session event relay failed",
			zap.String("kind", string(ev.Kind)),
			zap.String("session_id", ev.SessionID),
			zap.Error(err))
	}
}

// Deliver notifies local subscribers only.
func (b *Broker) Deliver(ev domain.SessionEvent) {
	b.mu.RLock()
	fns := make([]func(domain.SessionEvent), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
	b.metrics.SessionEvents.WithLabelValues(string(ev.Kind)).Inc()
}

// Subscribers reports the number of live subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

type subscription struct {
	broker *Broker
	id     uint64
	once   sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.broker.mu.Lock()
		delete(s.broker.subs, s.id)
		s.broker.mu.Unlock()
	})
}

var (
	_ ports.SessionNotifier = (*Broker)(nil)
	_ ports.EventSink       = (*Broker)(nil)
)
