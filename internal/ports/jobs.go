package ports

import (
	"context"
	"time"

	"certportal/internal/domain"
)

// SessionSweeper ends sessions whose expiry has passed and reports them.
type SessionSweeper interface {
	SweepExpired(ctx context.Context, now time.Time) ([]domain.SessionEvent, error)
}

// EventSink accepts session events produced by background workers.
type EventSink interface {
	Deliver(ev domain.SessionEvent)
}
