package services

import (
	"context"
	"log/slog"
	"sync"

	"eventease/internal/domain"
)

// AsyncReplacer runs replacement draws in the background. Wait blocks until every
// draw started so far has finished.
type AsyncReplacer struct {
	lottery domain.LotteryService
	logger  *slog.Logger
	wg      sync.WaitGroup
}

func NewAsyncReplacer(lottery domain.LotteryService, logger *slog.Logger) *AsyncReplacer {
	return &AsyncReplacer{lottery: lottery, logger: logger}
}

// Trigger starts a replacement draw for cancelled places and returns immediately.
// The draw outlives ctx's cancellation but keeps its values.
func (r *AsyncReplacer) Trigger(ctx context.Context, eventID string, cancelled int) {
	ctx = context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		n, err := r.lottery.Replace(ctx, eventID, cancelled)
		if err != nil {
			r.logger.ErrorContext(ctx, "replacement draw failed", "event_id", eventID, "cancelled", cancelled, "err", err)
			return
		}
		r.logger.DebugContext(ctx, "replacement draw finished", "event_id", eventID, "drawn", n)
	}()
}

// Wait blocks until all triggered draws are done.
func (r *AsyncReplacer) Wait() {
	r.wg.Wait()
}
