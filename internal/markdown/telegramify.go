// Package markdown converts raw model output into safe, deduplicated,
// length-bounded Telegram MarkdownV2 markup.
package markdown

import (
	"strings"
)

// reservedChars is the MarkdownV2 reserved set. Every one of these must be
// backslash-escaped wherever it is not part of an entity.
const reservedChars = "_*[]()~`>#+-=|{}.!"

// EscapeMarkdownV2 escapes every reserved character in s. Used for
// whole-message contexts that do not go through the dialect converter.
func EscapeMarkdownV2(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 2)
	for _, r := range s {
		if r < 128 && strings.ContainsRune(reservedChars, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func escapeCode(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "`", "\\`")
}

func escapeURL(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, ")", "\\)")
}

// Telegramify converts generic model-generated markdown into the Telegram
// MarkdownV2 dialect: headings become bold lines, ** becomes *, ~~ becomes
// ~, links and code spans are preserved, and reserved characters in plain
// text are escaped. Unbalanced markers degrade to escaped literals.
func Telegramify(md string) string {
	var out []string
	lines := strings.Split(md, "\n")

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			block, next := collectFence(lines, i)
			out = append(out, block...)
			i = next
			continue
		}

		out = append(out, convertLine(line))
	}

	return strings.Join(out, "\n")
}

// collectFence emits a fenced code block starting at lines[start], escaping
// backslashes and backticks inside. Returns the index of the closing fence.
func collectFence(lines []string, start int) ([]string, int) {
	lang := strings.TrimPrefix(strings.TrimSpace(lines[start]), "```")
	out := []string{"```" + lang}

	i := start + 1
	for ; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "```" {
			out = append(out, "```")
			return out, i
		}
		out = append(out, escapeCode(lines[i]))
	}

	// Unterminated fence: close it ourselves so the markup stays valid.
	out = append(out, "```")
	return out, i - 1
}

func convertLine(line string) string {
	trimmed := strings.TrimLeft(line, " \t")
	indent := line[:len(line)-len(trimmed)]

	// Headings render as bold lines.
	if level := headingLevel(trimmed); level > 0 {
		text := strings.TrimSpace(trimmed[level:])
		if text == "" {
			return indent
		}
		return indent + "*" + convertInline(text) + "*"
	}

	// Quote markers survive as-is; the rest of the line is converted.
	if strings.HasPrefix(trimmed, "> ") {
		return indent + ">" + convertInline(trimmed[2:])
	}
	if trimmed == ">" {
		return indent + ">"
	}

	// List bullets become escaped dashes through the inline pass.
	return indent + convertInline(trimmed)
}

func headingLevel(s string) int {
	level := 0
	for level < len(s) && s[level] == '#' {
		level++
	}
	if level == 0 || level > 6 {
		return 0
	}
	if level == len(s) || s[level] == ' ' {
		return level
	}
	return 0
}

// convertInline rewrites inline entities of one line: code spans, links,
// bold, italic, and strikethrough. Everything else is escaped.
func convertInline(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 2)

	runes := []rune(s)
	for i := 0; i < len(runes); {
		switch {
		case runes[i] == '`':
			if end := indexRune(runes, i+1, '`'); end > 0 {
				b.WriteByte('`')
				b.WriteString(escapeCode(string(runes[i+1 : end])))
				b.WriteByte('`')
				i = end + 1
				continue
			}
		case runes[i] == '[':
			if text, url, next, ok := scanLink(runes, i); ok {
				b.WriteByte('[')
				b.WriteString(convertInline(text))
				b.WriteString("](")
				b.WriteString(escapeURL(url))
				b.WriteByte(')')
				i = next
				continue
			}
		case hasPair(runes, i, "**"):
			if end := indexPair(runes, i+2, "**"); end > 0 {
				b.WriteByte('*')
				b.WriteString(convertInline(string(runes[i+2 : end])))
				b.WriteByte('*')
				i = end + 2
				continue
			}
		case hasPair(runes, i, "__"):
			if end := indexPair(runes, i+2, "__"); end > 0 {
				b.WriteByte('*')
				b.WriteString(convertInline(string(runes[i+2 : end])))
				b.WriteByte('*')
				i = end + 2
				continue
			}
		case hasPair(runes, i, "~~"):
			if end := indexPair(runes, i+2, "~~"); end > 0 {
				b.WriteByte('~')
				b.WriteString(convertInline(string(runes[i+2 : end])))
				b.WriteByte('~')
				i = end + 2
				continue
			}
		case runes[i] == '*' || runes[i] == '_':
			marker := runes[i]
			if end := indexRune(runes, i+1, marker); end > 0 && end > i+1 {
				b.WriteByte('_')
				b.WriteString(convertInline(string(runes[i+1 : end])))
				b.WriteByte('_')
				i = end + 1
				continue
			}
		}

		b.WriteString(EscapeMarkdownV2(string(runes[i])))
		i++
	}

	return b.String()
}

func indexRune(runes []rune, from int, r rune) int {
	for i := from; i < len(runes); i++ {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

func hasPair(runes []rune, at int, pair string) bool {
	p := []rune(pair)
	return at+1 < len(runes) && runes[at] == p[0] && runes[at+1] == p[1]
}

func indexPair(runes []rune, from int, pair string) int {
	p := []rune(pair)
	for i := from; i+1 < len(runes); i++ {
		if runes[i] == p[0] && runes[i+1] == p[1] {
			return i
		}
	}
	return -1
}

// scanLink recognizes [text](url) starting at runes[at]. Nested brackets
// inside the display text are not supported; such input falls back to
// escaped literals.
func scanLink(runes []rune, at int) (text, url string, next int, ok bool) {
	if runes[at] != '[' {
		return "", "", 0, false
	}
	closeBracket := indexRune(runes, at+1, ']')
	if closeBracket < 0 || closeBracket+1 >= len(runes) || runes[closeBracket+1] != '(' {
		return "", "", 0, false
	}
	closeParen := indexRune(runes, closeBracket+2, ')')
	if closeParen < 0 {
		return "", "", 0, false
	}
	return string(runes[at+1 : closeBracket]), string(runes[closeBracket+2 : closeParen]), closeParen + 1, true
}
