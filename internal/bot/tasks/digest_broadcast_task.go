package tasks

import (
	"context"
	"sync"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/okatrych/digestobot/internal/database"
	"github.com/okatrych/digestobot/internal/digest"
	"github.com/okatrych/digestobot/internal/retry"
)

// BatchIndex maps the wall-clock minute onto a batch number. Ticks land
// every tickWidthMinutes, so consecutive ticks walk the partitions in
// order and every group gets a digest once per full cycle.
func BatchIndex(minute, tickWidthMinutes, partitions int) int {
	return (minute / tickWidthMinutes) % partitions
}

// GroupInBatch reports whether the group at the given activity-ranked
// position belongs to the batch.
func GroupInBatch(position, partitions, batch int) bool {
	return position%partitions == batch
}

// groupCache holds the activity-ranked group list between ticks so each
// tick does not re-aggregate the whole table.
type groupCache struct {
	mu        sync.Mutex
	groups    []database.GroupActivity
	fetchedAt time.Time
	ttl       time.Duration
}

func (c *groupCache) get(ctx context.Context, fetch func(ctx context.Context) ([]database.GroupActivity, error)) ([]database.GroupActivity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Since(c.fetchedAt) < c.ttl && c.groups != nil {
		return c.groups, nil
	}

	groups, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.groups = groups
	c.fetchedAt = time.Now()
	return groups, nil
}

// newDigestBroadcastTask creates the scheduled digest broadcast. Each tick
// digests one batch of active groups: groups are ranked by trailing
// activity, partitioned by rank position, and the current batch is derived
// from the wall-clock minute. Per-group failures are logged and the loop
// continues; one broken group never blocks the rest of the batch.
func newDigestBroadcastTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "digest_broadcast")
	cache := &groupCache{ttl: deps.Config.Digest.GroupCacheTTL}

	blocked := make(map[int64]bool, len(deps.Config.Digest.BlockedGroupIDs))
	for _, id := range deps.Config.Digest.BlockedGroupIDs {
		blocked[id] = true
	}

	builder := digest.NewBuilder(deps.Config.Gemini.SummarizeInstruction, deps.Config.Gemini.AnswerInstruction)

	return func(ctx context.Context) error {
		cfg := deps.Config.Digest
		now := time.Now()
		batch := BatchIndex(now.Minute(), cfg.TickWidthMinutes, cfg.Partitions)
		sinceMs := now.Add(-time.Duration(cfg.ScheduledWindowHours) * time.Hour).UnixMilli()

		groups, err := cache.get(ctx, func(ctx context.Context) ([]database.GroupActivity, error) {
			return deps.Store.ActiveGroups(ctx, sinceMs, cfg.ActivityThreshold)
		})
		if err != nil {
			log.ErrorContext(ctx, "Failed to load active groups", "error", err)
			return err
		}

		log.InfoContext(ctx, "Digest broadcast tick", "batch", batch, "active_groups", len(groups))

		digested := 0
		for i, group := range groups {
			if !GroupInBatch(i, cfg.Partitions, batch) {
				continue
			}
			if blocked[group.GroupID] {
				log.DebugContext(ctx, "Skipping blocked group", "group_id", group.GroupID)
				continue
			}

			if err := digestGroup(ctx, deps, builder, group.GroupID, sinceMs); err != nil {
				log.ErrorContext(ctx, "Failed to digest group", "group_id", group.GroupID, "error", err)
				continue
			}
			digested++
		}

		log.InfoContext(ctx, "Digest broadcast finished", "batch", batch, "digested", digested)
		return nil
	}
}

func digestGroup(ctx context.Context, deps TaskDeps, builder *digest.Builder, groupID int64, sinceMs int64) error {
	window, err := deps.Store.MessagesSince(ctx, groupID, sinceMs)
	if err != nil {
		return err
	}
	if len(window) == 0 {
		return nil
	}

	system, contents := builder.BuildRequest(digest.PurposeSummarize, window, "")
	reply, err := deps.GeminiClient.Complete(ctx, system, contents)
	if err != nil {
		return err
	}

	text := deps.Normalizer.Normalize(reply)
	attempts := deps.Config.Digest.SendRetries + 1
	delay := time.Duration(deps.Config.Digest.SendRetryDelaySeconds) * time.Second
	_, err = retry.Do(ctx, attempts, delay, func(ctx context.Context) (*models.Message, error) {
		return deps.TgBot.SendMessage(ctx, &tgbot.SendMessageParams{
			ChatID:    groupID,
			Text:      text,
			ParseMode: models.ParseModeMarkdown,
		})
	})
	return err
}
