package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/okatrych/digestobot/internal/database"
	"github.com/okatrych/digestobot/internal/digest"
	"github.com/okatrych/digestobot/internal/preview"
)

const (
	photoDownloadTimeout = 30 * time.Second
	maxPhotoBytes        = 10 * 1024 * 1024
)

// NewMessageHandler returns the default handler. It ingests every group
// message the bot can see: text, photos, captions, forwards, and edits.
// Ingestion failures are logged and the message is dropped; nothing is ever
// reported back to the chat.
func NewMessageHandler(deps HandlerDeps) bot.HandlerFunc {
	return messageHandler{
		deps:   deps,
		client: &http.Client{Timeout: photoDownloadTimeout},
		now:    time.Now,
	}.Handle
}

type messageHandler struct {
	deps   HandlerDeps
	client *http.Client
	now    func() time.Time
}

// resolveMessage picks the message out of the update's tagged union. The
// second result reports whether the update is an edit.
func resolveMessage(update *models.Update) (*models.Message, bool) {
	switch {
	case update.Message != nil:
		return update.Message, false
	case update.EditedMessage != nil:
		return update.EditedMessage, true
	case update.ChannelPost != nil:
		return update.ChannelPost, false
	default:
		return nil, false
	}
}

func (h messageHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "message")

	msg, edited := resolveMessage(update)
	if msg == nil {
		return
	}

	// Private chats are conversation surface, not digest material.
	if msg.Chat.Type == models.ChatTypePrivate {
		return
	}
	if strings.HasPrefix(msg.Text, "/") {
		return
	}

	if len(msg.Photo) > 0 {
		h.ingestPhoto(ctx, b, log, msg)
		return
	}
	if msg.Text == "" {
		return
	}

	content := msg.Text
	if preview.IsBareURL(content) {
		content = h.deps.Preview.Describe(ctx, content)
	}
	content = applyOriginPrefix(msg, content)

	row := h.newRow(msg, digest.DeriveMessageID(msg.Chat.ID, int64(msg.ID)), content)
	if err := h.deps.Store.SaveMessage(ctx, row); err != nil {
		log.ErrorContext(ctx, "Failed to persist message", "chat_id", msg.Chat.ID, "edited", edited, "error", err)
	}
}

// applyOriginPrefix marks forwarded and reply messages so the digest model
// sees the conversational context.
func applyOriginPrefix(msg *models.Message, content string) string {
	if msg.ForwardOrigin != nil {
		return "Forwarded: " + content
	}
	if msg.ReplyToMessage != nil {
		return fmt.Sprintf("Replying to %s: %s", senderName(msg.ReplyToMessage), content)
	}
	return content
}

func (h messageHandler) ingestPhoto(ctx context.Context, b *bot.Bot, log *slog.Logger, msg *models.Message) {
	// Telegram orders photo sizes ascending; take the largest rendition.
	fileID := msg.Photo[len(msg.Photo)-1].FileID

	data, err := h.downloadFile(ctx, b, fileID)
	if err != nil {
		log.WarnContext(ctx, "Failed to download photo", "chat_id", msg.Chat.ID, "error", err)
		return
	}
	if err := digest.ValidateJPEG(data); err != nil {
		log.WarnContext(ctx, "Discarding photo with invalid payload", "chat_id", msg.Chat.ID, "error", err)
		return
	}

	row := h.newRow(msg, digest.DeriveMessageID(msg.Chat.ID, int64(msg.ID)), digest.EncodeImage(data))
	if err := h.deps.Store.SaveMessage(ctx, row); err != nil {
		log.ErrorContext(ctx, "Failed to persist photo", "chat_id", msg.Chat.ID, "error", err)
		return
	}

	// The caption lives in its own row so it survives the image purge.
	if msg.Caption != "" {
		captionRow := h.newRow(msg, digest.DeriveCaptionID(msg.Chat.ID, int64(msg.ID)), msg.Caption)
		if err := h.deps.Store.SaveMessage(ctx, captionRow); err != nil {
			log.ErrorContext(ctx, "Failed to persist photo caption", "chat_id", msg.Chat.ID, "error", err)
		}
	}
}

func (h messageHandler) downloadFile(ctx context.Context, b *bot.Bot, fileID string) ([]byte, error) {
	file, err := b.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.FileDownloadLink(file), nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d downloading file", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes))
}

func (h messageHandler) newRow(msg *models.Message, id, content string) *database.Message {
	return &database.Message{
		ID:        id,
		GroupID:   msg.Chat.ID,
		GroupName: chatName(&msg.Chat),
		UserName:  senderName(msg),
		Content:   content,
		MessageID: sql.NullInt64{Int64: int64(msg.ID), Valid: true},
		// Ingestion wall clock, not the platform's second-resolution
		// message date: same-second messages must keep insertion order.
		Timestamp: h.now().UnixMilli(),
	}
}

func chatName(chat *models.Chat) string {
	if chat.Title != "" {
		return chat.Title
	}
	return chat.Username
}

// senderName resolves the stored display name: sender-chat title (channel
// posts, anonymous admins), then the sender's first name, then username.
// An empty result falls back to "anonymous" at the store layer.
func senderName(msg *models.Message) string {
	if msg.SenderChat != nil && msg.SenderChat.Title != "" {
		return msg.SenderChat.Title
	}
	if msg.From != nil {
		if msg.From.FirstName != "" {
			return msg.From.FirstName
		}
		return msg.From.Username
	}
	// Channel posts carry no sender; the channel title stands in.
	return msg.Chat.Title
}
