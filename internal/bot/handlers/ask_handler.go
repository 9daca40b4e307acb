package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/okatrych/digestobot/internal/digest"
	apperrors "github.com/okatrych/digestobot/internal/errors"
	"github.com/okatrych/digestobot/internal/retry"
)

// NewAskHandler returns a handler for the /ask command. The answer goes to
// the asking user's private chat so the group is not flooded; the group
// only sees a short acknowledgement.
func NewAskHandler(deps HandlerDeps) bot.HandlerFunc {
	return askHandler{deps}.Handle
}

type askHandler struct {
	deps HandlerDeps
}

func (h askHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "ask")
	msgs := h.deps.Config.Messages

	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	question := commandArgs(update.Message.Text)
	if question == "" {
		sendPlain(ctx, b, log, chatID, msgs.ProvideQuestion)
		return
	}

	log.InfoContext(ctx, "Handling /ask", "chat_id", chatID, "user_id", userID)
	sendPlain(ctx, b, log, chatID, msgs.AskReceived)

	window, err := h.deps.Store.RecentMessages(ctx, chatID, h.deps.Config.Digest.AskWindow)
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
	system, contents := builder.BuildRequest(digest.PurposeAnswer, window, question)

	reply, err := h.deps.GeminiClient.Complete(ctx, system, contents)
	if err != nil {
		if reason, ok := apperrors.IsBlocked(err); ok {
			sendPlain(ctx, b, log, chatID, fmt.Sprintf(msgs.BlockedFmt, reason))
			return
		}
		log.ErrorContext(ctx, "Answer generation failed", "chat_id", chatID, "error", err)
		sendPlain(ctx, b, log, chatID, msgs.GeneralError)
		return
	}

	// The private chat with a user shares the user's ID. The send fails if
	// the user never opened a private chat with the bot.
	_, err = retry.Do(ctx, h.deps.sendAttempts(), h.deps.sendDelay(), func(ctx context.Context) (*models.Message, error) {
		return b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    userID,
			Text:      h.deps.Normalizer.NormalizeFolded(reply),
			ParseMode: models.ParseModeMarkdown,
		})
	})
	if err != nil {
		log.WarnContext(ctx, "Failed to deliver answer to private chat", "user_id", userID, "error", err)
		sendPlain(ctx, b, log, chatID, msgs.AskOpenPrivate)
	}
}
