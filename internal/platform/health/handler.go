// Package health tracks liveness and the readiness of backing services.
package health

import (
	"maps"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CheckFunc reports nil when the dependency is healthy.
type CheckFunc func() error

type Handler struct {
	startTime   time.Time
	environment string
	log         *zap.Logger

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

func New(environment string, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		startTime:   time.Now(),
		environment: environment,
		log:         log,
		checks:      make(map[string]CheckFunc),
	}
}

// RegisterCheck adds a named check to the readiness report.
func (h *Handler) RegisterCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

type Liveness struct {
	Status        string
	Environment   string
	UptimeSeconds int64
}

func (h *Handler) Liveness() Liveness {
	return Liveness{
		Status:        "ok",
		Environment:   h.environment,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}
}

type Readiness struct {
	Status string
	Checks map[string]string
}

func (r Readiness) Ready() bool { return r.Status == "ready" }

// Readiness runs every registered check. Each check reports "up" or "down";
// failure details go to the log only.
func (h *Handler) Readiness() Readiness {
	h.mu.RLock()
	checks := make(map[string]CheckFunc, len(h.checks))
	maps.Copy(checks, h.checks)
	h.mu.RUnlock()

	out := Readiness{Status: "ready", Checks: make(map[string]string, len(checks))}
	for name, check := range checks {
		if err := check(); err != nil {
			h.log.Warn("readiness check failed", zap.String("check", name), zap.Error(err))
			out.Checks[name] = "down"
			out.Status = "not_ready"
			continue
		}
		out.Checks[name] = "up"
	}
	return out
}
