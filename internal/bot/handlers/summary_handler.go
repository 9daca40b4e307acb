package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/okatrych/digestobot/internal/digest"
	apperrors "github.com/okatrych/digestobot/internal/errors"
	"github.com/okatrych/digestobot/internal/retry"
)

// NewSummaryHandler returns a handler for the /summary command. It digests
// the requested window of the current group and replies in the same chat.
func NewSummaryHandler(deps HandlerDeps) bot.HandlerFunc {
	return summaryHandler{deps}.Handle
}

type summaryHandler struct {
	deps HandlerDeps
}

func (h summaryHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "summary")
	msgs := h.deps.Config.Messages

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	arg := commandArgs(update.Message.Text)
	if arg == "" {
		sendPlain(ctx, b, log, chatID, msgs.SummaryUsage)
		return
	}

	spec, err := digest.ParseWindowSpec(arg, h.deps.Config.Digest.MaxWindow)
	if err != nil {
		sendPlain(ctx, b, log, chatID, fmt.Sprintf(msgs.InvalidFormat, err.Error()))
		return
	}

	log.InfoContext(ctx, "Handling /summary", "chat_id", chatID, "window", arg)

	window, err := digest.NewSelector(h.deps.Store).Select(ctx, chatID, spec)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load message window", "chat_id", chatID, "error", err)
		sendPlain(ctx, b, log, chatID, msgs.GeneralError)
		return
	}
	if len(window) == 0 {
		sendPlain(ctx, b, log, chatID, msgs.NoMessages)
		return
	}

	builder := digest.NewBuilder(h.deps.Config.Gemini.SummarizeInstruction, h.deps.Config.Gemini.AnswerInstruction)
	system, contents := builder.BuildRequest(digest.PurposeSummarize, window, "")

	reply, err := h.deps.GeminiClient.Complete(ctx, system, contents)
	if err != nil {
		if reason, ok := apperrors.IsBlocked(err); ok {
			sendPlain(ctx, b, log, chatID, fmt.Sprintf(msgs.BlockedFmt, reason))
			return
		}
		log.ErrorContext(ctx, "Summary generation failed", "chat_id", chatID, "error", err)
		sendPlain(ctx, b, log, chatID, msgs.SummaryError)
		return
	}

	sendMarkdown(ctx, b, log, chatID, h.deps.Normalizer.Normalize(reply), msgs.SendError, h.deps.sendAttempts(), h.deps.sendDelay())
}

// sendPlain sends an unformatted reply. Failures are logged only.
func sendPlain(ctx context.Context, b *bot.Bot, log *slog.Logger, chatID int64, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.ErrorContext(ctx, "Failed to send message", "chat_id", chatID, "error", err)
	}
}

// sendMarkdown sends a MarkdownV2 reply. Transient send failures are
// retried; after the attempts are exhausted a plain-text failure notice is
// sent instead.
func sendMarkdown(ctx context.Context, b *bot.Bot, log *slog.Logger, chatID int64, text, failureNotice string, attempts int, delay time.Duration) {
	_, err := retry.Do(ctx, attempts, delay, func(ctx context.Context) (*models.Message, error) {
		return b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      text,
			ParseMode: models.ParseModeMarkdown,
		})
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send markdown message", "chat_id", chatID, "error", err)
		sendPlain(ctx, b, log, chatID, failureNotice)
	}
}
