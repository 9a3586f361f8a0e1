package worker

import (
	"context"
	"time"

	"pricetracker-service/internal/application"

	"go.uber.org/zap"
)

var _ application.Worker = (*Janitor)(nil)

// Purger drops idle entries and reports how many went.
type Purger interface {
	Purge(ctx context.Context) int
}

// Janitor purges idle cache entries on a fixed period, independent of the
// tracking session.
type Janitor struct {
	Cache Purger

	Every time.Duration
	Log   *zap.Logger
}

func (w *Janitor) Start(ctx context.Context) {
	log := w.Log
	if log == nil {
		log = zap.NewNop()
	}
	every := w.period()

	t := time.NewTicker(every)
	defer t.Stop()

	log.Info("cache_janitor_started", zap.Duration("every", every))
	for {
		select {
		case <-ctx.Done():
			log.Info("cache_janitor_stopped")
			return
		case <-t.C:
			if n := w.Cache.Purge(ctx); n > 0 {
				log.Debug("cache_janitor_purged", zap.Int("entries", n))
			}
		}
	}
}

func (w *Janitor) period() time.Duration {
	if w.Every <= 0 {
		return time.Minute
	}
	return w.Every
}
