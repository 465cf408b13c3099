package collector

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// infoPayload builds an A2S_INFO payload (after the header and type byte)
func infoPayload(name, mapName string, players, maxPlayers, bots byte) []byte {
	buf := []byte{0x11} // protocol version
	for _, s := range []string{name, mapName, "csgo", "Counter-Strike 2"} {
		buf = append(buf, s...)
		buf = append(buf, 0)
	}
	buf = binary.LittleEndian.AppendUint16(buf, 730)
	return append(buf, players, maxPlayers, bots)
}

func TestParseInfoReply(t *testing.T) {
	t.Parallel()

	info, err := parseInfoReply(infoPayload("srv", "de_dust2", 3, 16, 1))
	require.NoError(t, err)
	require.Equal(t, "srv", info.Name)
	require.Equal(t, "de_dust2", info.Map)
	require.Equal(t, 3, info.PlayerCount)
	require.Equal(t, 16, info.MaxPlayers)
	require.Equal(t, 1, info.Bots)
}

func TestParseInfoReplyTruncatedCounts(t *testing.T) {
	t.Parallel()

	// A reply cut short inside the count block must error rather than report
	// a zero-player server.
	full := infoPayload("srv", "de_dust2", 3, 16, 1)
	truncated := full[:len(full)-2]

	_, err := parseInfoReply(truncated)
	require.Error(t, err)
	require.Contains(t, err.Error(), "player counts")
}

func TestParsePlayerReplyTolerantOfTruncation(t *testing.T) {
	t.Parallel()

	// Header claims two entries but only one is complete; the partial list is
	// still usable.
	buf := []byte{2, 0}
	buf = append(buf, "Alice\x00"...)
	buf = binary.LittleEndian.AppendUint32(buf, 10)
	buf = binary.LittleEndian.AppendUint32(buf, 0x42f00000) // 120.0 seconds
	buf = append(buf, 1, 'B', 'o') // second entry cut mid-name

	players, err := parsePlayerReply(buf)
	require.NoError(t, err)
	require.Len(t, players, 1)
	require.Equal(t, "Alice", players[0].Name)
	require.Equal(t, 10, players[0].Score)
}
