package markdown_test

import (
	"strings"
	"testing"

	"github.com/okatrych/digestobot/internal/markdown"
)

func TestToSuperscript(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    int
		expected string
	}{
		{"zero", 0, "⁰"},
		{"single digit", 7, "⁷"},
		{"multi digit in order", 1234, "¹²³⁴"},
		{"repeated digits", 100, "¹⁰⁰"},
		{"all glyphs", 1234567890, "¹²³⁴⁵⁶⁷⁸⁹⁰"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := markdown.ToSuperscript(tt.input); got != tt.expected {
				t.Errorf("ToSuperscript(%d) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRenumberSelfLinks_FirstSeenOrder(t *testing.T) {
	t.Parallel()

	input := "[http://x](http://x) and [http://y](http://y) then [http://x](http://x)"
	got := markdown.RenumberSelfLinks(input, "ref")
	want := "[ref¹](http://x) and [ref²](http://y) then [ref¹](http://x)"
	if got != want {
		t.Errorf("RenumberSelfLinks() = %q, want %q", got, want)
	}
}

func TestRenumberSelfLinks_MappingIsLocalToCall(t *testing.T) {
	t.Parallel()

	first := markdown.RenumberSelfLinks("[http://a](http://a)", "ref")
	second := markdown.RenumberSelfLinks("[http://b](http://b)", "ref")
	if !strings.Contains(first, "ref¹") {
		t.Errorf("first call = %q, want ref¹", first)
	}
	if !strings.Contains(second, "ref¹") {
		t.Errorf("second call = %q, want numbering restarted at ref¹", second)
	}
}

func TestRenumberSelfLinks_LeavesNamedLinksAlone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{"different display text", "[click here](http://x)"},
		{"near miss", "[http://x/](http://x)"},
		{"empty display", "[](http://x)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := markdown.RenumberSelfLinks(tt.input, "ref"); got != tt.input {
				t.Errorf("RenumberSelfLinks(%q) = %q, want unchanged", tt.input, got)
			}
		})
	}
}

func TestRenumberSelfLinks_EscapedDisplayText(t *testing.T) {
	t.Parallel()

	// After dialect conversion the display text carries escapes while the
	// URL part does not.
	input := `[https://t\.me/c/123/4](https://t.me/c/123/4)`
	got := markdown.RenumberSelfLinks(input, "ref")
	want := "[ref¹](https://t.me/c/123/4)"
	if got != want {
		t.Errorf("RenumberSelfLinks() = %q, want %q", got, want)
	}
}

func TestEscapeMarkdownV2(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"plain", "hello world", "hello world"},
		{"full reserved set", "_*[]()~`>#+-=|{}.!", `\_\*\[\]\(\)\~` + "\\`" + `\>\#\+\-\=\|\{\}\.\!`},
		{"mixed", "a.b (c)", `a\.b \(c\)`},
		{"multibyte untouched", "день №1!", `день №1\!`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := markdown.EscapeMarkdownV2(tt.input); got != tt.expected {
				t.Errorf("EscapeMarkdownV2(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTelegramify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain text escaped",
			input:    "Results: 1.5 (approx)",
			expected: `Results: 1\.5 \(approx\)`,
		},
		{
			name:     "bold converted",
			input:    "this is **important** now",
			expected: "this is *important* now",
		},
		{
			name:     "heading becomes bold",
			input:    "## Topic one",
			expected: "*Topic one*",
		},
		{
			name:     "strikethrough converted",
			input:    "~~wrong~~ right",
			expected: "~wrong~ right",
		},
		{
			name:     "link preserved with escaped display",
			input:    "see [docs v1.2](https://example.com/a_1)",
			expected: `see [docs v1\.2](https://example.com/a_1)`,
		},
		{
			name:     "unbalanced marker degrades to literal",
			input:    "2 * 3 = 6",
			expected: `2 \* 3 \= 6`,
		},
		{
			name:     "inline code kept",
			input:    "run `go build` now",
			expected: "run `go build` now",
		},
		{
			name:     "quote marker survives",
			input:    "> quoted line.",
			expected: `>quoted line\.`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := markdown.Telegramify(tt.input); got != tt.expected {
				t.Errorf("Telegramify(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTelegramify_FencedCode(t *testing.T) {
	t.Parallel()

	input := "before\n```go\nx := a.b\n```\nafter."
	want := "before\n```go\nx := a.b\n```\nafter\\."
	if got := markdown.Telegramify(input); got != want {
		t.Errorf("Telegramify() = %q, want %q", got, want)
	}
}

func TestFold(t *testing.T) {
	t.Parallel()

	got := markdown.Fold("first\nsecond\nthird")
	want := "**>first\n>second\n>third||"
	if got != want {
		t.Errorf("Fold() = %q, want %q", got, want)
	}
}

func TestFold_SingleLine(t *testing.T) {
	t.Parallel()

	got := markdown.Fold("only")
	want := "**>only||"
	if got != want {
		t.Errorf("Fold() = %q, want %q", got, want)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	t.Run("under ceiling untouched", func(t *testing.T) {
		t.Parallel()

		if got := markdown.Truncate("short", 100, 10, "[cut]"); got != "short" {
			t.Errorf("Truncate() = %q, want %q", got, "short")
		}
	})

	t.Run("over ceiling cut with notice", func(t *testing.T) {
		t.Parallel()

		input := strings.Repeat("a", 50)
		got := markdown.Truncate(input, 20, 5, "[cut]")
		want := strings.Repeat("a", 15) + "[cut]"
		if got != want {
			t.Errorf("Truncate() = %q, want %q", got, want)
		}
	})

	t.Run("multibyte boundary safe", func(t *testing.T) {
		t.Parallel()

		input := strings.Repeat("ы", 50)
		got := markdown.Truncate(input, 20, 5, "[cut]")
		want := strings.Repeat("ы", 15) + "[cut]"
		if got != want {
			t.Errorf("Truncate() = %q, want %q", got, want)
		}
	})
}

func TestFixKnownBadLinks(t *testing.T) {
	t.Parallel()

	input := "see [ref¹](https://t.me/c/c/123/4)"
	want := "see [ref¹](https://t.me/c/123/4)"
	if got := markdown.FixKnownBadLinks(input); got != want {
		t.Errorf("FixKnownBadLinks() = %q, want %q", got, want)
	}
}

func TestNormalizer_EmptyInputDegradesToFallback(t *testing.T) {
	t.Parallel()

	n := markdown.NewNormalizer("ref", 4096, 0, "nothing to report")
	if got := n.Normalize("   \n  "); got != "nothing to report" {
		t.Errorf("Normalize() = %q, want fallback", got)
	}
}

func TestNormalizer_PipelineOrder(t *testing.T) {
	t.Parallel()

	n := markdown.NewNormalizer("ref", 4096, 0, "")
	input := "Point one [https://t.me/c/11/2](https://t.me/c/11/2), again [https://t.me/c/11/2](https://t.me/c/11/2)"
	got := n.Normalize(input)

	if !strings.Contains(got, "[ref¹](https://t.me/c/11/2)") {
		t.Errorf("Normalize() = %q, want renumbered self-link", got)
	}
	if strings.Contains(got, "ref²") {
		t.Errorf("Normalize() = %q, repeated URL must reuse ref¹", got)
	}
}

func TestNormalizer_EnforcesCeiling(t *testing.T) {
	t.Parallel()

	n := markdown.NewNormalizer("ref", 100, 0, "")
	got := n.Normalize(strings.Repeat("word ", 200))
	if len([]rune(got)) > 100 {
		t.Errorf("Normalize() produced %d runes, ceiling is 100", len([]rune(got)))
	}
	if !strings.Contains(got, "truncated") {
		t.Errorf("Normalize() = %q, want truncation notice", got)
	}
}

func TestNormalizer_FoldedWrapsBlock(t *testing.T) {
	t.Parallel()

	n := markdown.NewNormalizer("ref", 4096, 0, "")
	got := n.NormalizeFolded("line one\nline two")
	if !strings.HasPrefix(got, "**>") {
		t.Errorf("NormalizeFolded() = %q, want expandable quote opener", got)
	}
	if !strings.HasSuffix(got, "||") {
		t.Errorf("NormalizeFolded() = %q, want closing marker", got)
	}
}

func TestNormalizer_FoldedTruncationKeepsBlockClosed(t *testing.T) {
	t.Parallel()

	n := markdown.NewNormalizer("ref", 100, 0, "")
	got := n.NormalizeFolded(strings.Repeat("word ", 200))

	if runes := len([]rune(got)); runes > 100 {
		t.Errorf("NormalizeFolded() produced %d runes, ceiling is 100", runes)
	}
	if !strings.HasSuffix(got, "||") {
		t.Errorf("NormalizeFolded() = %q, truncation must restore the closing marker", got)
	}
	if !strings.Contains(got, "\n>\\[truncated\\]") {
		t.Errorf("NormalizeFolded() = %q, want quoted truncation notice", got)
	}
}
