package database

import (
	"database/sql"
	"strings"
)

// InlineImagePrefix marks message content that carries an inline JPEG
// payload instead of text. Classification of content is a pure function of
// the string value; nothing outside the row is consulted.
const InlineImagePrefix = "data:image/jpeg;base64,"

// Message is the atomic stored unit: one row per group-chat message.
// A caption attached to a photo is stored as a second row sharing the same
// MessageID with a "_caption" suffix on the derived ID; the rows are never
// merged. Rows are immutable except for the edited-message upsert, which
// replaces the row with the same derived ID.
type Message struct {
	// ID is globally unique, derived from group and message identifiers.
	ID        string `db:"id"`
	GroupID   int64  `db:"group_id"`
	GroupName string `db:"group_name"`
	UserName  string `db:"user_name"`

	// Content is either plain text, an inline JPEG data URI, or the
	// link-preview text extracted for a bare URL at ingestion time.
	Content string `db:"content"`

	// MessageID is the platform-native identifier; NULL for synthetic rows.
	MessageID sql.NullInt64 `db:"message_id"`

	// Timestamp is epoch milliseconds, monotonic per insertion order
	// within a group.
	Timestamp int64 `db:"timestamp"`
}

// IsImage reports whether the message content carries an inline JPEG payload.
func (m *Message) IsImage() bool {
	return strings.HasPrefix(m.Content, InlineImagePrefix)
}

// GroupActivity is the derived trailing-24h message count per group, used
// only to select groups eligible for scheduled digesting.
type GroupActivity struct {
	GroupID      int64 `db:"group_id"`
	MessageCount int   `db:"message_count"`
}
