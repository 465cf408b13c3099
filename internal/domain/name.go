package domain

import "strings"

// markdownEscaper escapes characters that chat clients treat as formatting.
// Names are the only identity we have, so they must survive embedding in
// Markdown without changing meaning.
var markdownEscaper = strings.NewReplacer(
	"*", "\\*",
	"_", "\\_",
	"`", "\\`",
	"~", "\\~",
	"|", "\\|",
	">", "\\>",
	"@", "\\@",
)

// SanitizeName normalizes a raw player name for use as a presence key:
// control characters (including NUL padding from binary replies) are stripped,
// surrounding whitespace trimmed, and Markdown-significant characters escaped.
// Returns "" if nothing printable remains.
func SanitizeName(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	cleaned := strings.TrimSpace(b.String())
	if cleaned == "" {
		return ""
	}
	return markdownEscaper.Replace(cleaned)
}

// DedupNames removes duplicates while preserving first-seen order.
// Empty strings are dropped.
func DedupNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
