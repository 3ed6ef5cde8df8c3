package app

import (
	"context"
	"time"

	"qdb-quote-parser/internal/observability"
)

// RunInterval запускает fn сразу и затем каждые interval до отмены ctx.
// Ошибка прогона логируется, следующий прогон всё равно выполняется.
func RunInterval(ctx context.Context, interval, runTimeout time.Duration, logger *observability.Logger, fn func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		runCtx, cancel := context.WithTimeout(ctx, runTimeout)
		if err := fn(runCtx); err != nil && ctx.Err() == nil {
			logger.Error("Run failed", "error", err.Error())
		}
		cancel()

		select {
		case <-ctx.Done():
			logger.Info("Scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}
