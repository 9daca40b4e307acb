package digest

import (
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"github.com/okatrych/digestobot/internal/database"
)

// Delimiter separates individual messages inside the prompt so the model
// can attribute content to senders and permalinks.
const Delimiter = "===================="

// Purpose selects the system instruction and turn layout for a request.
type Purpose string

const (
	PurposeSummarize Purpose = "summarize"
	PurposeAnswer    Purpose = "answer"
)

// MessageLink builds the public permalink for a supergroup message. Telegram
// supergroup chat IDs carry a -100 prefix that the t.me/c form drops.
func MessageLink(groupID int64, messageID int64) string {
	id := strconv.FormatInt(groupID, 10)
	if strings.HasPrefix(id, "-100") {
		id = id[4:]
	} else {
		id = strings.TrimPrefix(id, "-")
	}
	return fmt.Sprintf("https://t.me/c/%s/%d", id, messageID)
}

// DeriveMessageID produces the stable row ID for a message: its permalink.
// Caption rows append a suffix so a photo and its caption coexist.
func DeriveMessageID(groupID int64, messageID int64) string {
	return MessageLink(groupID, messageID)
}

// DeriveCaptionID returns the row ID for the caption companion of a photo.
func DeriveCaptionID(groupID int64, messageID int64) string {
	return DeriveMessageID(groupID, messageID) + "_caption"
}

// Builder assembles chat-completion requests from message windows.
type Builder struct {
	summarizeInstruction string
	answerInstruction    string
}

// NewBuilder creates a Builder with the given system instructions.
func NewBuilder(summarizeInstruction, answerInstruction string) *Builder {
	return &Builder{
		summarizeInstruction: summarizeInstruction,
		answerInstruction:    answerInstruction,
	}
}

// BuildRequest renders a window into the system instruction and content
// turns for the completion call. Each message contributes a delimiter, the
// sender name, its dispatched content part, and, when a Telegram message ID
// is known, the permalink. Answer requests append the question as a final
// user turn.
func (b *Builder) BuildRequest(purpose Purpose, window []database.Message, question string) (string, []*genai.Content) {
	parts := make([]*genai.Part, 0, len(window)*4)
	for _, msg := range window {
		parts = append(parts,
			genai.NewPartFromText(Delimiter),
			genai.NewPartFromText(fmt.Sprintf("%s:", msg.UserName)),
			DispatchContent(msg.Content),
		)
		if msg.MessageID.Valid {
			parts = append(parts, genai.NewPartFromText(MessageLink(msg.GroupID, msg.MessageID.Int64)))
		}
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	system := b.summarizeInstruction
	if purpose == PurposeAnswer {
		system = b.answerInstruction
		contents = append(contents, genai.NewContentFromText(fmt.Sprintf("Question: %s", question), genai.RoleUser))
	}

	return system, contents
}
