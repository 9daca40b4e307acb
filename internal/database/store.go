package database

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jmoiron/sqlx"

	apperrors "github.com/okatrych/digestobot/internal/errors"
)

// Store defines the data access operations used by the digest pipeline.
// All methods accept a context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveMessage inserts a message, replacing any existing row with the
	// same derived ID (edited-message upsert).
	SaveMessage(ctx context.Context, message *Message) error

	// RecentMessages retrieves the most recent 'limit' messages for a
	// group, re-ordered ascending by timestamp.
	RecentMessages(ctx context.Context, groupID int64, limit int) ([]Message, error)

	// MessagesSince retrieves all messages for a group with timestamp at
	// or after sinceMs, ascending by timestamp.
	MessagesSince(ctx context.Context, groupID int64, sinceMs int64) ([]Message, error)

	// SearchMessages retrieves the most recent messages in a group whose
	// content matches the GLOB pattern.
	SearchMessages(ctx context.Context, groupID int64, pattern string, limit int) ([]Message, error)

	// ActiveGroups aggregates trailing message counts per group since
	// sinceMs and returns groups above the threshold, most active first.
	ActiveGroups(ctx context.Context, sinceMs int64, threshold int) ([]GroupActivity, error)

	// CountMessages returns the total number of stored messages.
	CountMessages(ctx context.Context) (int64, error)

	// TrimGroupHistory deletes, per group, everything beyond the 'keep'
	// most recent messages.
	TrimGroupHistory(ctx context.Context, keep int) (int64, error)

	// PurgeOldImages deletes inline-image rows older than cutoffMs.
	PurgeOldImages(ctx context.Context, cutoffMs int64) (int64, error)
}

// sqlxStore implements Store on top of sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) SaveMessage(ctx context.Context, message *Message) error {
	if message == nil {
		return apperrors.NewDatabaseError("cannot save nil message", nil)
	}
	if message.ID == "" {
		return apperrors.NewDatabaseError("message must have a non-empty id", nil)
	}
	if message.GroupID == 0 {
		return apperrors.NewDatabaseError("message must have a non-zero group_id", nil)
	}
	if message.Timestamp == 0 {
		return apperrors.NewDatabaseError("message must have a non-zero timestamp", nil)
	}
	if message.GroupName == "" {
		message.GroupName = "anonymous"
	}
	if message.UserName == "" {
		message.UserName = "anonymous"
	}

	// REPLACE keeps the edited-message upsert a single statement: the
	// edited row shares the derived ID of the original.
	query := `
        INSERT OR REPLACE INTO messages (id, group_id, group_name, user_name, content, message_id, timestamp)
        VALUES (:id, :group_id, :group_name, :user_name, :content, :message_id, :timestamp);
    `

	if _, err := s.db.NamedExecContext(ctx, query, message); err != nil {
		s.logger.ErrorContext(ctx, "Error saving message", "group_id", message.GroupID, "id", message.ID, "error", err)
		return apperrors.NewDatabaseError(fmt.Sprintf("failed to save message %s", message.ID), err)
	}

	s.logger.DebugContext(ctx, "Message saved", "group_id", message.GroupID, "id", message.ID)
	return nil
}

func (s *sqlxStore) RecentMessages(ctx context.Context, groupID int64, limit int) ([]Message, error) {
	if groupID == 0 {
		return nil, apperrors.NewDatabaseError("group_id cannot be zero", nil)
	}
	if limit <= 0 {
		return []Message{}, nil
	}

	var messages []Message
	query := `
        WITH latest AS (
            SELECT id, group_id, group_name, user_name, content, message_id, timestamp
            FROM messages
            WHERE group_id = ?
            ORDER BY timestamp DESC
            LIMIT ?
        )
        SELECT * FROM latest
        ORDER BY timestamp ASC;
    `

	if err := s.db.SelectContext(ctx, &messages, query, groupID, limit); err != nil {
		s.logger.ErrorContext(ctx, "Error getting recent messages", "group_id", groupID, "limit", limit, "error", err)
		return nil, apperrors.NewDatabaseError(fmt.Sprintf("failed to get recent messages for group %d", groupID), err)
	}

	s.logger.DebugContext(ctx, "Fetched recent messages", "group_id", groupID, "count", len(messages))
	return messages, nil
}

func (s *sqlxStore) MessagesSince(ctx context.Context, groupID int64, sinceMs int64) ([]Message, error) {
	if groupID == 0 {
		return nil, apperrors.NewDatabaseError("group_id cannot be zero", nil)
	}

	var messages []Message
	query := `
        SELECT id, group_id, group_name, user_name, content, message_id, timestamp
        FROM messages
        WHERE group_id = ? AND timestamp >= ?
        ORDER BY timestamp ASC;
    `

	if err := s.db.SelectContext(ctx, &messages, query, groupID, sinceMs); err != nil {
		s.logger.ErrorContext(ctx, "Error getting messages since", "group_id", groupID, "since_ms", sinceMs, "error", err)
		return nil, apperrors.NewDatabaseError(fmt.Sprintf("failed to get messages for group %d", groupID), err)
	}

	s.logger.DebugContext(ctx, "Fetched messages since", "group_id", groupID, "count", len(messages))
	return messages, nil
}

func (s *sqlxStore) SearchMessages(ctx context.Context, groupID int64, pattern string, limit int) ([]Message, error) {
	if groupID == 0 {
		return nil, apperrors.NewDatabaseError("group_id cannot be zero", nil)
	}

	var messages []Message
	query := `
        SELECT id, group_id, group_name, user_name, content, message_id, timestamp
        FROM messages
        WHERE group_id = ? AND content GLOB ?
        ORDER BY timestamp DESC
        LIMIT ?;
    `

	if err := s.db.SelectContext(ctx, &messages, query, groupID, pattern, limit); err != nil {
		s.logger.ErrorContext(ctx, "Error searching messages", "group_id", groupID, "error", err)
		return nil, apperrors.NewDatabaseError(fmt.Sprintf("failed to search messages in group %d", groupID), err)
	}

	return messages, nil
}

func (s *sqlxStore) ActiveGroups(ctx context.Context, sinceMs int64, threshold int) ([]GroupActivity, error) {
	var groups []GroupActivity
	query := `
        SELECT group_id, COUNT(*) AS message_count
        FROM messages
        WHERE timestamp >= ?
        GROUP BY group_id
        HAVING COUNT(*) > ?
        ORDER BY message_count DESC, group_id ASC;
    `

	if err := s.db.SelectContext(ctx, &groups, query, sinceMs, threshold); err != nil {
		s.logger.ErrorContext(ctx, "Error aggregating active groups", "since_ms", sinceMs, "error", err)
		return nil, apperrors.NewDatabaseError("failed to aggregate active groups", err)
	}

	s.logger.DebugContext(ctx, "Aggregated active groups", "count", len(groups))
	return groups, nil
}

func (s *sqlxStore) CountMessages(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages;`); err != nil {
		return 0, apperrors.NewDatabaseError("failed to count messages", err)
	}
	return count, nil
}

func (s *sqlxStore) TrimGroupHistory(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, apperrors.NewDatabaseError("retention keep count must be positive", nil)
	}

	query := `
        DELETE FROM messages
        WHERE id IN (
            SELECT id FROM (
                SELECT id,
                       ROW_NUMBER() OVER (
                           PARTITION BY group_id
                           ORDER BY timestamp DESC
                       ) AS row_num
                FROM messages
            ) ranked
            WHERE row_num > ?
        );
    `

	result, err := s.db.ExecContext(ctx, query, keep)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error trimming group history", "keep", keep, "error", err)
		return 0, apperrors.NewDatabaseError("failed to trim group history", err)
	}

	deleted, _ := result.RowsAffected()
	s.logger.InfoContext(ctx, "Trimmed group history", "keep", keep, "deleted", deleted)
	return deleted, nil
}

func (s *sqlxStore) PurgeOldImages(ctx context.Context, cutoffMs int64) (int64, error) {
	query := `
        DELETE FROM messages
        WHERE timestamp < ? AND content LIKE ?;
    `

	result, err := s.db.ExecContext(ctx, query, cutoffMs, InlineImagePrefix+"%")
	if err != nil {
		s.logger.ErrorContext(ctx, "Error purging old images", "cutoff_ms", cutoffMs, "error", err)
		return 0, apperrors.NewDatabaseError("failed to purge old images", err)
	}

	deleted, _ := result.RowsAffected()
	s.logger.InfoContext(ctx, "Purged old image messages", "deleted", deleted)
	return deleted, nil
}
