package database_test

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/okatrych/digestobot/internal/database"
)

func newTestStore(t *testing.T) database.Store {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	return database.NewStore(db, nil)
}

func seedMessage(t *testing.T, store database.Store, id string, groupID int64, content string, ts int64) {
	t.Helper()

	err := store.SaveMessage(context.Background(), &database.Message{
		ID:        id,
		GroupID:   groupID,
		UserName:  "tester",
		Content:   content,
		MessageID: sql.NullInt64{Int64: ts, Valid: true},
		Timestamp: ts,
	})
	if err != nil {
		t.Fatalf("SaveMessage(%s) error = %v", id, err)
	}
}

func TestSaveMessage_UpsertsOnSameID(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	seedMessage(t, store, "m1", -100, "original", 1000)
	seedMessage(t, store, "m1", -100, "edited", 2000)

	messages, err := store.RecentMessages(ctx, -100, 10)
	if err != nil {
		t.Fatalf("RecentMessages() error = %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("RecentMessages() = %d rows, want 1 after upsert", len(messages))
	}
	if messages[0].Content != "edited" {
		t.Errorf("Content = %q, want %q", messages[0].Content, "edited")
	}
}

func TestSaveMessage_RejectsIncompleteRows(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		msg  *database.Message
	}{
		{"nil message", nil},
		{"missing id", &database.Message{GroupID: -100, Timestamp: 1}},
		{"missing group", &database.Message{ID: "x", Timestamp: 1}},
		{"missing timestamp", &database.Message{ID: "x", GroupID: -100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.SaveMessage(ctx, tt.msg); err == nil {
				t.Error("SaveMessage() error = nil, want error")
			}
		})
	}
}

func TestRecentMessages_ReturnsNewestWindowAscending(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		seedMessage(t, store, fmt.Sprintf("m%d", i), -100, fmt.Sprintf("msg %d", i), int64(i*1000))
	}

	messages, err := store.RecentMessages(ctx, -100, 3)
	if err != nil {
		t.Fatalf("RecentMessages() error = %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("RecentMessages() = %d rows, want 3", len(messages))
	}
	// The newest three, oldest first.
	for i, want := range []string{"msg 3", "msg 4", "msg 5"} {
		if messages[i].Content != want {
			t.Errorf("messages[%d].Content = %q, want %q", i, messages[i].Content, want)
		}
	}
}

func TestMessagesSince_FiltersByTimestampAndGroup(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	seedMessage(t, store, "old", -100, "too old", 1000)
	seedMessage(t, store, "new", -100, "recent", 5000)
	seedMessage(t, store, "other", -200, "different group", 5000)

	messages, err := store.MessagesSince(ctx, -100, 2000)
	if err != nil {
		t.Fatalf("MessagesSince() error = %v", err)
	}
	if len(messages) != 1 || messages[0].Content != "recent" {
		t.Errorf("MessagesSince() = %+v, want only the recent row of group -100", messages)
	}
}

func TestSearchMessages_Glob(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	seedMessage(t, store, "a", -100, "deploy went fine", 1000)
	seedMessage(t, store, "b", -100, "rollback needed", 2000)

	messages, err := store.SearchMessages(ctx, -100, "*deploy*", 10)
	if err != nil {
		t.Fatalf("SearchMessages() error = %v", err)
	}
	if len(messages) != 1 || messages[0].ID != "a" {
		t.Errorf("SearchMessages() = %+v, want the deploy row only", messages)
	}
}

func TestActiveGroups_ThresholdAndOrder(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		seedMessage(t, store, fmt.Sprintf("busy%d", i), -100, "x", int64(1000+i))
	}
	for i := 0; i < 3; i++ {
		seedMessage(t, store, fmt.Sprintf("mid%d", i), -200, "x", int64(1000+i))
	}
	seedMessage(t, store, "quiet", -300, "x", 1000)

	groups, err := store.ActiveGroups(ctx, 0, 2)
	if err != nil {
		t.Fatalf("ActiveGroups() error = %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("ActiveGroups() = %d groups, want 2 above threshold", len(groups))
	}
	if groups[0].GroupID != -100 || groups[0].MessageCount != 5 {
		t.Errorf("groups[0] = %+v, want the busiest group first", groups[0])
	}
	if groups[1].GroupID != -200 {
		t.Errorf("groups[1] = %+v, want the mid group second", groups[1])
	}
}

func TestTrimGroupHistory_KeepsNewestPerGroup(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		seedMessage(t, store, fmt.Sprintf("a%d", i), -100, fmt.Sprintf("a %d", i), int64(i*1000))
	}
	for i := 1; i <= 2; i++ {
		seedMessage(t, store, fmt.Sprintf("b%d", i), -200, fmt.Sprintf("b %d", i), int64(i*1000))
	}

	deleted, err := store.TrimGroupHistory(ctx, 3)
	if err != nil {
		t.Fatalf("TrimGroupHistory() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("TrimGroupHistory() deleted %d rows, want 2", deleted)
	}

	remaining, err := store.RecentMessages(ctx, -100, 10)
	if err != nil {
		t.Fatalf("RecentMessages() error = %v", err)
	}
	if len(remaining) != 3 || remaining[0].Content != "a 3" {
		t.Errorf("group -100 after trim = %+v, want the newest 3 rows", remaining)
	}

	untouched, err := store.RecentMessages(ctx, -200, 10)
	if err != nil {
		t.Fatalf("RecentMessages() error = %v", err)
	}
	if len(untouched) != 2 {
		t.Errorf("group -200 after trim = %d rows, want 2 untouched", len(untouched))
	}
}

func TestPurgeOldImages_OnlyTouchesOldImageRows(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	seedMessage(t, store, "old-img", -100, database.InlineImagePrefix+"AAAA", 1000)
	seedMessage(t, store, "new-img", -100, database.InlineImagePrefix+"BBBB", 9000)
	seedMessage(t, store, "old-text", -100, "plain old text", 1000)

	purged, err := store.PurgeOldImages(ctx, 5000)
	if err != nil {
		t.Fatalf("PurgeOldImages() error = %v", err)
	}
	if purged != 1 {
		t.Errorf("PurgeOldImages() = %d rows, want 1", purged)
	}

	remaining, err := store.RecentMessages(ctx, -100, 10)
	if err != nil {
		t.Fatalf("RecentMessages() error = %v", err)
	}
	if len(remaining) != 2 {
		t.Errorf("remaining rows = %d, want text and fresh image kept", len(remaining))
	}
	for _, m := range remaining {
		if m.ID == "old-img" {
			t.Error("old image row survived the purge")
		}
	}
}

func TestCountMessages(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	seedMessage(t, store, "one", -100, "x", 1000)
	seedMessage(t, store, "two", -200, "y", 2000)

	count, err := store.CountMessages(ctx)
	if err != nil {
		t.Fatalf("CountMessages() error = %v", err)
	}
	if count != 2 {
		t.Errorf("CountMessages() = %d, want 2", count)
	}
}
