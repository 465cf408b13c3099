package collector_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uronshalav2/cs2discordbot-sub000/internal/collector"
)

func TestParsePlayerListBulleted(t *testing.T) {
	t.Parallel()

	raw := "• [#3] \"Alice\"\n• [#4] \"Bob\""
	require.Equal(t, []string{"Alice", "Bob"}, collector.ParsePlayerList(raw))
}

func TestParsePlayerListTabular(t *testing.T) {
	t.Parallel()

	raw := `#  2 "C*arl" 12:34 45`
	require.Equal(t, []string{"C\\*arl"}, collector.ParsePlayerList(raw))
}

func TestParsePlayerListMixedDialects(t *testing.T) {
	t.Parallel()

	// Bulleted form wins when a line matches both shapes; unmatched lines
	// (headers, cvars, blank) are skipped.
	raw := `hostname: de_dust2 24/7
map     : de_dust2
• [#1] "Alice"
#  2 "Bob" STEAM_1:0:123 12:34 45 0 active
some unrelated console noise
`
	require.Equal(t, []string{"Alice", "Bob"}, collector.ParsePlayerList(raw))
}

func TestParsePlayerListDedupFirstSeen(t *testing.T) {
	t.Parallel()

	raw := "• [#1] \"Alice\"\n• [#2] \"Bob\"\n• [#3] \"Alice\""
	require.Equal(t, []string{"Alice", "Bob"}, collector.ParsePlayerList(raw))
}

func TestParsePlayerListSanitizes(t *testing.T) {
	t.Parallel()

	raw := "• [#1] \"  sp_ike\x00 \""
	require.Equal(t, []string{"sp\\_ike"}, collector.ParsePlayerList(raw))
}

func TestParsePlayerListGarbage(t *testing.T) {
	t.Parallel()

	require.Empty(t, collector.ParsePlayerList(""))
	require.Empty(t, collector.ParsePlayerList("no players here\njust noise"))
	require.Empty(t, collector.ParsePlayerList("\x00\x01\x02"))
	// A matched line whose name sanitizes to nothing is dropped
	require.Empty(t, collector.ParsePlayerList("• [#1] \"   \""))
}
