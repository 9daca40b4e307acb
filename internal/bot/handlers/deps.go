package handlers

import (
	"log/slog"
	"time"

	"github.com/okatrych/digestobot/internal/config"
	"github.com/okatrych/digestobot/internal/database"
	"github.com/okatrych/digestobot/internal/gemini"
	"github.com/okatrych/digestobot/internal/markdown"
	"github.com/okatrych/digestobot/internal/preview"
)

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger       *slog.Logger
	Config       *config.Config
	Store        database.Store
	GeminiClient gemini.Client
	Normalizer   *markdown.Normalizer
	Preview      *preview.Fetcher
}

func (d HandlerDeps) sendAttempts() int {
	return d.Config.Digest.SendRetries + 1
}

func (d HandlerDeps) sendDelay() time.Duration {
	return time.Duration(d.Config.Digest.SendRetryDelaySeconds) * time.Second
}
