package matcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/your-org/facematch/internal/observability"
	"github.com/your-org/facematch/internal/recognition"
)

// Reloader refreshes a registry on request and on a fixed interval. A failed
// reload keeps the previous set active.
type Reloader struct {
	registry *recognition.Registry
	interval time.Duration
	trigger  chan struct{}
}

// NewReloader returns a reloader; interval <= 0 disables periodic reloads.
func NewReloader(registry *recognition.Registry, interval time.Duration) *Reloader {
	return &Reloader{
		registry: registry,
		interval: interval,
		trigger:  make(chan struct{}, 1),
	}
}

// Reload runs one reload synchronously and records its outcome.
func (r *Reloader) Reload(ctx context.Context) error {
	set, err := r.registry.Reload(ctx)
	if err != nil {
		observability.ReferenceReloads.WithLabelValues("error").Inc()
		slog.Error("reload reference set", "error", err)
		return err
	}
	observability.ReferenceReloads.WithLabelValues("ok").Inc()
	observability.ReferenceSetSize.Set(float64(set.Len()))
	return nil
}

// Trigger schedules a reload. Requests arriving while one is pending
// collapse into it.
func (r *Reloader) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run serves triggers and ticks until ctx is done.
func (r *Reloader) Run(ctx context.Context) {
	var tick <-chan time.Time
	if r.interval > 0 {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.trigger:
		case <-tick:
		}
		_ = r.Reload(ctx)
	}
}
