package sweeper

import (
	"context"
	"time"

	"github.com/route-composer/internal/domain/repository"
	"github.com/route-composer/internal/worker"
	"go.uber.org/zap"
)

// Target - именованный кэш для периодической очистки
type Target struct {
	Name    string
	Sweeper repository.Sweeper
}

// CacheSweeper периодически удаляет просроченные записи кэшей и простаивающие сессии
type CacheSweeper struct {
	*worker.BaseWorker
	interval time.Duration
	targets  []Target
}

func NewCacheSweeper(interval time.Duration, logger *zap.Logger, targets ...Target) *CacheSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &CacheSweeper{
		BaseWorker: worker.NewBaseWorker("cache-sweeper", "", logger),
		interval:   interval,
		targets:    targets,
	}
}

// Start запускает воркер
func (w *CacheSweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.StopChan():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.SweepOnce()
		}
	}
}

// SweepOnce - один проход по всем целям
func (w *CacheSweeper) SweepOnce() int {
	total := 0
	for _, t := range w.targets {
		n := t.Sweeper.Sweep()
		if n > 0 {
			w.Logger().Debug("Expired entries removed", zap.String("target", t.Name), zap.Int("removed", n))
		}
		total += n
	}
	return total
}
