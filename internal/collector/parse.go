package collector

import (
	"regexp"
	"strings"

	"github.com/uronshalav2/cs2discordbot-sub000/internal/domain"
)

// The console "status" output comes in two known dialects. CS2 prints a
// bulleted roster:
//
//	• [#3] "Alice"
//
// while older builds (and some community plugins) print the classic tabular
// form:
//
//	#  2 "C*arl" STEAM_1:0:123 12:34 45 0 active
//
// Each line is matched against the bulleted grammar first, then the tabular
// one. Lines matching neither are ignored.
var (
	bulletLineRegex  = regexp.MustCompile(`^\s*•\s*\[#\d+\]\s*"(.*)"`)
	tabularLineRegex = regexp.MustCompile(`^\s*#\s*\d+\s+"(.*)"`)
)

// ParsePlayerList extracts player names from raw console output. Names are
// sanitized and deduplicated preserving first-seen order. Garbled or empty
// input yields an empty list, never an error; this path is best-effort.
func ParsePlayerList(raw string) []string {
	var names []string
	for _, line := range strings.Split(raw, "\n") {
		var quoted string
		if m := bulletLineRegex.FindStringSubmatch(line); m != nil {
			quoted = m[1]
		} else if m := tabularLineRegex.FindStringSubmatch(line); m != nil {
			quoted = m[1]
		} else {
			continue
		}

		if name := domain.SanitizeName(quoted); name != "" {
			names = append(names, name)
		}
	}
	return domain.DedupNames(names)
}
