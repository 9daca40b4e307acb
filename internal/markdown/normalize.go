package markdown

import (
	"regexp"
	"strconv"
	"strings"
)

// superscriptDigits maps decimal digits 0-9 to their Unicode superscript
// glyphs.
var superscriptDigits = [10]rune{'⁰', '¹', '²', '³', '⁴', '⁵', '⁶', '⁷', '⁸', '⁹'}

// ToSuperscript renders n as a sequence of Unicode superscript digits.
// Negative values keep a regular minus sign in front.
func ToSuperscript(n int) string {
	if n == 0 {
		return string(superscriptDigits[0])
	}

	var b strings.Builder
	if n < 0 {
		b.WriteByte('-')
		n = -n
	}
	for _, d := range strconv.Itoa(n) {
		b.WriteRune(superscriptDigits[d-'0'])
	}
	return b.String()
}

var linkPattern = regexp.MustCompile(`\[([^\[\]]*)\]\(([^()]*)\)`)

var escapeStripper = strings.NewReplacer(
	`\_`, `_`, `\*`, `*`, `\[`, `[`, `\]`, `]`, `\(`, `(`, `\)`, `)`,
	`\~`, `~`, "\\`", "`", `\>`, `>`, `\#`, `#`, `\+`, `+`, `\-`, `-`,
	`\=`, `=`, `\|`, `|`, `\{`, `{`, `\}`, `}`, `\.`, `.`, `\!`, `!`, `\\`, `\`,
)

// RenumberSelfLinks rewrites self-referential markdown links, where the
// display text is the URL itself, into compact numbered references:
// [ref¹](url). Numbers are assigned in first-seen order starting at 1 and
// reused for repeated URLs; the mapping is local to a single call. Links
// whose display text differs from the URL are left untouched. Display text
// is compared with dialect escaping stripped, since this stage runs on
// converted markup.
func RenumberSelfLinks(s, prefix string) string {
	seen := make(map[string]int)
	next := 1

	return linkPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := linkPattern.FindStringSubmatch(match)
		display, url := groups[1], groups[2]
		if escapeStripper.Replace(display) != escapeStripper.Replace(url) {
			return match
		}

		n, ok := seen[url]
		if !ok {
			n = next
			seen[url] = n
			next++
		}
		return "[" + prefix + ToSuperscript(n) + "](" + url + ")"
	})
}

// Fold wraps the text in an expandable quote block: every line carries a
// quote marker, the first line opens the block and the last line closes it.
func Fold(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if i == 0 {
			lines[i] = "**>" + line
		} else {
			lines[i] = ">" + line
		}
	}
	lines[len(lines)-1] += "||"
	return strings.Join(lines, "\n")
}

// Truncate enforces a hard length ceiling in runes. Oversized text is cut
// to ceiling-reserve runes and the notice is appended, so the cut never
// splits a multi-byte character.
func Truncate(s string, ceiling, reserve int, notice string) string {
	runes := []rune(s)
	if len(runes) <= ceiling {
		return s
	}
	cut := ceiling - reserve
	if cut < 0 {
		cut = 0
	}
	return string(runes[:cut]) + notice
}

// linkFixups is the declared list of literal substring repairs for a
// recurring model hallucination: a mangled domain fragment emitted in place
// of the real permalink prefix. Plain string replacement, deliberately not
// generalized.
var linkFixups = [...][2]string{
	{"https://t.me/c/c/", "https://t.me/c/"},
	{"https://t.me/c/g/", "https://t.me/c/"},
	{"https://t.me.c/", "https://t.me/c/"},
}

// FixKnownBadLinks applies the fixed substring repairs.
func FixKnownBadLinks(s string) string {
	for _, f := range linkFixups {
		s = strings.ReplaceAll(s, f[0], f[1])
	}
	return s
}

// TruncationNotice is appended whenever Truncate cuts a reply.
const TruncationNotice = "\n\n\\[truncated\\]"

// foldedTruncationNotice replaces TruncationNotice inside an expandable
// quote block: the notice line stays quoted and restores the closing
// marker the cut removed.
const foldedTruncationNotice = "\n>\\[truncated\\]||"

// Normalizer runs the post-processing pipeline over raw model output. The
// zero value is not usable; construct with NewNormalizer.
type Normalizer struct {
	refPrefix string
	maxLength int
	reserve   int
	fallback  string
}

// NewNormalizer creates a Normalizer. fallback is the fixed minimal reply
// used when upstream text is empty; maxLength is the platform send ceiling.
func NewNormalizer(refPrefix string, maxLength, reserve int, fallback string) *Normalizer {
	if refPrefix == "" {
		refPrefix = "ref"
	}
	if maxLength <= 0 {
		maxLength = 4096
	}
	if fallback == "" {
		fallback = "no content"
	}
	return &Normalizer{
		refPrefix: refPrefix,
		maxLength: maxLength,
		reserve:   reserve,
		fallback:  fallback,
	}
}

// Normalize converts raw model markdown into bounded MarkdownV2. It never
// fails: empty or whitespace-only input degrades to the fallback reply.
func (n *Normalizer) Normalize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return EscapeMarkdownV2(n.fallback)
	}

	s := Telegramify(raw)
	s = RenumberSelfLinks(s, n.refPrefix)
	s = Truncate(s, n.maxLength, n.reserve+len([]rune(TruncationNotice)), TruncationNotice)
	return FixKnownBadLinks(s)
}

// NormalizeFolded is Normalize with the result wrapped in an expandable
// quote block, used for long answers delivered to private chats.
func (n *Normalizer) NormalizeFolded(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return EscapeMarkdownV2(n.fallback)
	}

	s := Telegramify(raw)
	s = RenumberSelfLinks(s, n.refPrefix)
	s = Fold(s)
	s = Truncate(s, n.maxLength, n.reserve+len([]rune(foldedTruncationNotice)), foldedTruncationNotice)
	return FixKnownBadLinks(s)
}
