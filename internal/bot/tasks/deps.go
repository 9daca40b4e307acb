// Package tasks implements the scheduled jobs of the digest bot: the
// partitioned digest broadcast and history retention.
package tasks

import (
	"log/slog"

	tgbot "github.com/go-telegram/bot"

	"github.com/okatrych/digestobot/internal/config"
	"github.com/okatrych/digestobot/internal/database"
	"github.com/okatrych/digestobot/internal/gemini"
	"github.com/okatrych/digestobot/internal/markdown"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger       *slog.Logger
	Store        database.Store
	GeminiClient gemini.Client
	Config       *config.Config
	TgBot        *tgbot.Bot
	Normalizer   *markdown.Normalizer
}
