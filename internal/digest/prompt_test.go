package digest_test

import (
	"database/sql"
	"testing"

	"google.golang.org/genai"

	"github.com/okatrych/digestobot/internal/database"
	"github.com/okatrych/digestobot/internal/digest"
)

func TestMessageLink(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		groupID   int64
		messageID int64
		expected  string
	}{
		{"supergroup prefix stripped", -1001234567890, 42, "https://t.me/c/1234567890/42"},
		{"plain negative group", -12345, 7, "https://t.me/c/12345/7"},
		{"positive group", 999, 1, "https://t.me/c/999/1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := digest.MessageLink(tt.groupID, tt.messageID); got != tt.expected {
				t.Errorf("MessageLink(%d, %d) = %q, want %q", tt.groupID, tt.messageID, got, tt.expected)
			}
		})
	}
}

func TestDeriveCaptionID(t *testing.T) {
	t.Parallel()

	base := digest.DeriveMessageID(-1001234567890, 42)
	caption := digest.DeriveCaptionID(-1001234567890, 42)
	if caption != base+"_caption" {
		t.Errorf("DeriveCaptionID() = %q, want %q", caption, base+"_caption")
	}
}

func textParts(contents []*genai.Content) []string {
	var out []string
	for _, c := range contents {
		for _, p := range c.Parts {
			if p.Text != "" {
				out = append(out, p.Text)
			}
		}
	}
	return out
}

func TestBuildRequest_SummarizeWindow(t *testing.T) {
	t.Parallel()

	window := []database.Message{
		{
			ID:        "https://t.me/c/1234567890/10",
			GroupID:   -1001234567890,
			UserName:  "Alice",
			Content:   "lunch plans anyone?",
			MessageID: sql.NullInt64{Int64: 10, Valid: true},
			Timestamp: 1000,
		},
		{
			ID:        "https://t.me/c/1234567890/11",
			GroupID:   -1001234567890,
			UserName:  "Bob",
			Content:   digest.EncodeImage(sampleJPEG),
			MessageID: sql.NullInt64{Int64: 11, Valid: true},
			Timestamp: 2000,
		},
	}

	b := digest.NewBuilder("summarize the chat", "answer the question")
	system, contents := b.BuildRequest(digest.PurposeSummarize, window, "")

	if system != "summarize the chat" {
		t.Errorf("system instruction = %q, want summarize instruction", system)
	}
	if len(contents) != 1 {
		t.Fatalf("BuildRequest() returned %d contents, want 1", len(contents))
	}

	texts := textParts(contents)
	want := []string{
		digest.Delimiter,
		"Alice:",
		"lunch plans anyone?",
		"https://t.me/c/1234567890/10",
		digest.Delimiter,
		"Bob:",
		"https://t.me/c/1234567890/11",
	}
	if len(texts) != len(want) {
		t.Fatalf("text parts = %q, want %q", texts, want)
	}
	for i := range want {
		if texts[i] != want[i] {
			t.Errorf("text part %d = %q, want %q", i, texts[i], want[i])
		}
	}

	var imageParts int
	for _, p := range contents[0].Parts {
		if p.InlineData != nil {
			imageParts++
		}
	}
	if imageParts != 1 {
		t.Errorf("BuildRequest() produced %d image parts, want 1", imageParts)
	}
}

func TestBuildRequest_AnswerAppendsQuestion(t *testing.T) {
	t.Parallel()

	window := []database.Message{
		{UserName: "Carol", Content: "the meeting moved to 3pm", GroupID: -100555, Timestamp: 1},
	}

	b := digest.NewBuilder("summarize the chat", "answer the question")
	system, contents := b.BuildRequest(digest.PurposeAnswer, window, "when is the meeting?")

	if system != "answer the question" {
		t.Errorf("system instruction = %q, want answer instruction", system)
	}
	if len(contents) != 2 {
		t.Fatalf("BuildRequest() returned %d contents, want window turn plus question turn", len(contents))
	}

	last := contents[len(contents)-1]
	if len(last.Parts) != 1 || last.Parts[0].Text != "Question: when is the meeting?" {
		t.Errorf("question turn = %+v, want single text part with the question", last.Parts)
	}
}

func TestBuildRequest_SkipsPermalinkWithoutMessageID(t *testing.T) {
	t.Parallel()

	window := []database.Message{
		{UserName: "Dave", Content: "no id here", GroupID: -100555, Timestamp: 1},
	}

	b := digest.NewBuilder("s", "a")
	_, contents := b.BuildRequest(digest.PurposeSummarize, window, "")

	for _, text := range textParts(contents) {
		if text == "https://t.me/c/555/0" {
			t.Errorf("BuildRequest() emitted a permalink for a message with no Telegram ID")
		}
	}
	if got := len(contents[0].Parts); got != 3 {
		t.Errorf("BuildRequest() produced %d parts, want delimiter, sender, content", got)
	}
}
