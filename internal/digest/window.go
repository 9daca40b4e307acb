package digest

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/okatrych/digestobot/internal/database"
	apperrors "github.com/okatrych/digestobot/internal/errors"
)

// WindowSpec selects a window of stored messages either by count or by
// trailing duration. Exactly one of Count and Hours is set.
type WindowSpec struct {
	Count int
	Hours int
}

// IsDuration reports whether the spec selects by trailing time span.
func (w WindowSpec) IsDuration() bool { return w.Hours > 0 }

// ParseWindowSpec parses a digest argument: a positive integer selects the
// N most recent messages (clamped to maxCount), an integer with an "h"
// suffix selects a trailing time span in hours. Anything else is a
// validation error naming the offending parameter; such errors never reach
// the store layer.
func ParseWindowSpec(arg string, maxCount int) (WindowSpec, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return WindowSpec{}, apperrors.NewValidationError("window", "empty window specification")
	}

	if strings.HasSuffix(arg, "h") {
		hours, err := strconv.Atoi(strings.TrimSuffix(arg, "h"))
		if err != nil {
			return WindowSpec{}, apperrors.NewValidationError("hours", "not a number")
		}
		if hours <= 0 {
			return WindowSpec{}, apperrors.NewValidationError("hours", "must be positive")
		}
		return WindowSpec{Hours: hours}, nil
	}

	count, err := strconv.Atoi(arg)
	if err != nil {
		return WindowSpec{}, apperrors.NewValidationError("count", "expected a message count or a time span like 12h")
	}
	if count < 1 {
		return WindowSpec{}, apperrors.NewValidationError("count", "must be at least 1")
	}
	if count > maxCount {
		count = maxCount
	}
	return WindowSpec{Count: count}, nil
}

// Selector resolves window specs into ordered message sequences.
type Selector struct {
	store database.Store
	now   func() time.Time
}

// NewSelector creates a Selector over the given store.
func NewSelector(store database.Store) *Selector {
	return NewSelectorAt(store, time.Now)
}

// NewSelectorAt creates a Selector with an explicit clock.
func NewSelectorAt(store database.Store, now func() time.Time) *Selector {
	return &Selector{store: store, now: now}
}

// Select returns the messages matching the spec for the group, ascending
// by timestamp. An empty window is a valid result, not an error.
func (s *Selector) Select(ctx context.Context, groupID int64, spec WindowSpec) ([]database.Message, error) {
	if spec.IsDuration() {
		sinceMs := s.now().UnixMilli() - int64(spec.Hours)*int64(time.Hour/time.Millisecond)
		return s.store.MessagesSince(ctx, groupID, sinceMs)
	}
	return s.store.RecentMessages(ctx, groupID, spec.Count)
}
