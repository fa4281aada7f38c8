package sessionsweep

import (
	"context"
	"time"

	"go.uber.org/zap"

	"certportal/internal/ports"
)

// Run sweeps expired sessions every interval and delivers an expired event
// for each, until ctx is done.
func Run(ctx context.Context, sweeper ports.SessionSweeper, sink ports.EventSink, interval time.Duration, log *zap.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			SweepOnce(ctx, sweeper, sink, now, log)
		}
	}
}

// SweepOnce runs a single sweep at now.
func SweepOnce(ctx context.Context, sweeper ports.SessionSweeper, sink ports.EventSink, now time.Time, log *zap.Logger) int {
	events, err := sweeper.SweepExpired(ctx, now)
	if err != nil {
		log.Warn("session sweep failed", zap.Error(err))
		return 0
	}
	for _, ev := range events {
		sink.Deliver(ev)
	}
	if len(events) > 0 {
		log.Info("expired sessions swept", zap.Int("count", len(events)))
	}
	return len(events)
}
