package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/okatrych/digestobot/internal/database"
	"github.com/okatrych/digestobot/internal/digest"
	"github.com/okatrych/digestobot/internal/markdown"
)

// searchLimit bounds how many rows a keyword search scans.
const searchLimit = 2000

// NewQueryHandler returns a handler for the /query command, a case
// sensitive keyword search over the group's stored history.
func NewQueryHandler(deps HandlerDeps) bot.HandlerFunc {
	return queryHandler{deps}.Handle
}

type queryHandler struct {
	deps HandlerDeps
}

func (h queryHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "query")
	msgs := h.deps.Config.Messages

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	keyword := commandArgs(update.Message.Text)
	if keyword == "" {
		sendPlain(ctx, b, log, chatID, msgs.ProvideKeyword)
		return
	}

	log.InfoContext(ctx, "Handling /query", "chat_id", chatID, "keyword", keyword)

	results, err := h.deps.Store.SearchMessages(ctx, chatID, "*"+keyword+"*", searchLimit)
	if err != nil {
		log.ErrorContext(ctx, "Keyword search failed", "chat_id", chatID, "error", err)
		sendPlain(ctx, b, log, chatID, msgs.GeneralError)
		return
	}
	if len(results) == 0 {
		sendPlain(ctx, b, log, chatID, msgs.NoMessages)
		return
	}

	text := markdown.Truncate(
		buildSearchReply(msgs.SearchHeader, results),
		h.deps.Config.Digest.MaxMessageLength,
		h.deps.Config.Digest.TruncationReserve,
		markdown.TruncationNotice,
	)
	sendMarkdown(ctx, b, log, chatID, text, msgs.SendError, h.deps.sendAttempts(), h.deps.sendDelay())
}

// buildSearchReply renders matches as MarkdownV2 lines. Text is escaped per
// line so the trailing permalink survives as live markup; image rows carry
// base64 payloads and are skipped.
func buildSearchReply(header string, results []database.Message) string {
	var sb strings.Builder
	sb.WriteString(markdown.EscapeMarkdownV2(header))
	for _, m := range results {
		if m.IsImage() {
			continue
		}
		sb.WriteString("\n")
		sb.WriteString(markdown.EscapeMarkdownV2(m.UserName + ": " + m.Content))
		if m.MessageID.Valid {
			sb.WriteString(" [link](")
			sb.WriteString(digest.MessageLink(m.GroupID, m.MessageID.Int64))
			sb.WriteString(")")
		}
	}
	return sb.String()
}
