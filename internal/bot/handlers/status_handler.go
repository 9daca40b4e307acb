package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewStatusHandler returns a handler for the /status command reporting
// uptime and the total number of stored messages.
func NewStatusHandler(deps HandlerDeps) bot.HandlerFunc {
	return statusHandler{deps: deps, startedAt: time.Now()}.Handle
}

type statusHandler struct {
	deps      HandlerDeps
	startedAt time.Time
}

func (h statusHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "status")

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	count, err := h.deps.Store.CountMessages(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to count messages", "error", err)
		sendPlain(ctx, b, log, chatID, h.deps.Config.Messages.GeneralError)
		return
	}

	uptime := time.Since(h.startedAt).Round(time.Second)
	sendPlain(ctx, b, log, chatID, fmt.Sprintf(h.deps.Config.Messages.StatusFmt, uptime, count))
}
