package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/sesame/pkg/domain"
)

// LogHooks writes one structured record per engine event.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnItemEnter: func(ctx context.Context, e *domain.ItemEvent) {
			logger.DebugContext(ctx, "item_enter", "run_id", e.RunID, "item", e.Item, "type", e.ItemType, "phase", e.Phase)
		},
		OnItemLeave: func(ctx context.Context, e *domain.ItemEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "item_leave", "run_id", e.RunID, "item", e.Item, "phase", e.Phase, "err", e.Err)
				return
			}
			logger.DebugContext(ctx, "item_leave", "run_id", e.RunID, "item", e.Item, "phase", e.Phase, "duration", e.Duration)
		},
		OnCleanup: func(ctx context.Context, e *domain.CleanupEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "cleanup", "run_id", e.RunID, "label", e.Label, "err", e.Err)
			}
		},
		OnPause: func(ctx context.Context, e *domain.EventBase) {
			logger.InfoContext(ctx, string(e.Type), "run_id", e.RunID)
		},
	}
}
