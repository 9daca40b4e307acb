package tasks

import (
	"context"
	"fmt"
	"time"
)

// InRetentionWindow reports whether t falls inside the daily maintenance
// window. The gate keeps the deletions to a single run per day even though
// the task ticks far more often.
func InRetentionWindow(t time.Time, startHour, widthMinutes int) bool {
	return t.Hour() == startHour && t.Minute() < widthMinutes
}

// newRetentionTask creates the scheduled retention job: per-group history
// trimming and the inline-image purge. Outside the daily window the tick
// is a no-op.
func newRetentionTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "retention")

	return func(ctx context.Context) error {
		cfg := deps.Config.Retention

		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return fmt.Errorf("invalid retention timezone %q: %w", cfg.Timezone, err)
		}

		now := time.Now().In(loc)
		if !InRetentionWindow(now, cfg.WindowStartHour, cfg.WindowWidthMinutes) {
			log.DebugContext(ctx, "Outside retention window, skipping", "hour", now.Hour(), "minute", now.Minute())
			return nil
		}

		trimmed, err := deps.Store.TrimGroupHistory(ctx, cfg.MaxMessagesPerGroup)
		if err != nil {
			return fmt.Errorf("trim group history: %w", err)
		}

		cutoffMs := now.Add(-time.Duration(cfg.ImageMaxAgeHours) * time.Hour).UnixMilli()
		purged, err := deps.Store.PurgeOldImages(ctx, cutoffMs)
		if err != nil {
			return fmt.Errorf("purge old images: %w", err)
		}

		log.InfoContext(ctx, "Retention pass complete", "trimmed", trimmed, "purged_images", purged)
		return nil
	}
}
