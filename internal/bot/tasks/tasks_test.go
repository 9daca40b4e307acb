package tasks_test

import (
	"testing"
	"time"

	"github.com/okatrych/digestobot/internal/bot/tasks"
)

func TestBatchIndex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		minute    int
		tickWidth int
		parts     int
		expected  int
	}{
		{"start of hour", 0, 6, 10, 0},
		{"first tick", 6, 6, 10, 1},
		{"mid hour", 30, 6, 10, 5},
		{"last tick of hour", 54, 6, 10, 9},
		{"wraps after full cycle", 0, 6, 5, 0},
		{"second cycle", 36, 6, 5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tasks.BatchIndex(tt.minute, tt.tickWidth, tt.parts); got != tt.expected {
				t.Errorf("BatchIndex(%d, %d, %d) = %d, want %d", tt.minute, tt.tickWidth, tt.parts, got, tt.expected)
			}
		})
	}
}

func TestBatchIndex_CoversAllPartitionsInOneCycle(t *testing.T) {
	t.Parallel()

	const tickWidth, parts = 6, 10
	seen := make(map[int]bool)
	for minute := 0; minute < tickWidth*parts; minute += tickWidth {
		seen[tasks.BatchIndex(minute, tickWidth, parts)] = true
	}
	if len(seen) != parts {
		t.Errorf("one cycle hit %d distinct batches, want %d", len(seen), parts)
	}
}

func TestGroupInBatch_PartitionsAreDisjointAndComplete(t *testing.T) {
	t.Parallel()

	const parts, groups = 10, 37
	assigned := make([]int, groups)
	for batch := 0; batch < parts; batch++ {
		for pos := 0; pos < groups; pos++ {
			if tasks.GroupInBatch(pos, parts, batch) {
				assigned[pos]++
			}
		}
	}
	for pos, n := range assigned {
		if n != 1 {
			t.Errorf("group at position %d assigned to %d batches, want exactly 1", pos, n)
		}
	}
}

func TestInRetentionWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		clock    string
		start    int
		width    int
		expected bool
	}{
		{"window open at midnight", "00:00", 0, 5, true},
		{"last minute inside", "00:04", 0, 5, true},
		{"first minute outside", "00:05", 0, 5, false},
		{"wrong hour", "01:00", 0, 5, false},
		{"custom hour", "03:02", 3, 5, true},
		{"just before custom hour", "02:59", 3, 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			clock, err := time.Parse("15:04", tt.clock)
			if err != nil {
				t.Fatalf("bad test clock %q: %v", tt.clock, err)
			}
			if got := tasks.InRetentionWindow(clock, tt.start, tt.width); got != tt.expected {
				t.Errorf("InRetentionWindow(%s, %d, %d) = %v, want %v", tt.clock, tt.start, tt.width, got, tt.expected)
			}
		})
	}
}
