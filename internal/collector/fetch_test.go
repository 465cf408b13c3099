package collector_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uronshalav2/cs2discordbot-sub000/internal/collector"
)

// fakeQuery is a scriptable StructuredQuerier
type fakeQuery struct {
	info       *collector.ServerInfo
	infoErr    error
	players    []collector.PlayerEntry
	playersErr error
}

func (f *fakeQuery) Info() (*collector.ServerInfo, error) {
	return f.info, f.infoErr
}

func (f *fakeQuery) Players() ([]collector.PlayerEntry, error) {
	return f.players, f.playersErr
}

// fakeConsole is a scriptable ConsoleRunner
type fakeConsole struct {
	output string
	err    error
	calls  int
}

func (f *fakeConsole) Run(string) (string, error) {
	f.calls++
	return f.output, f.err
}

func onlineInfo(count int) *collector.ServerInfo {
	return &collector.ServerInfo{
		Name:        "Test Server",
		Map:         "de_dust2",
		PlayerCount: count,
		MaxPlayers:  16,
	}
}

func TestFetchStructuredHappyPath(t *testing.T) {
	t.Parallel()

	query := &fakeQuery{
		info: onlineInfo(2),
		players: []collector.PlayerEntry{
			{Name: "Alice", Score: 10, Duration: 120},
			{Name: "Bob", Score: 3, Duration: 60},
		},
	}
	console := &fakeConsole{}

	snapshot, err := collector.NewRosterFetcher(query, console).Fetch()
	require.NoError(t, err)
	require.Equal(t, []string{"Alice", "Bob"}, snapshot.Players)
	require.Equal(t, "Test Server", snapshot.ServerName)
	require.Equal(t, "de_dust2", snapshot.Map)
	require.Equal(t, 2, snapshot.PlayerCount)
	require.False(t, snapshot.Degraded)
	require.Zero(t, console.calls, "console fallback must not run when A2S names are usable")
}

func TestFetchInfoFailureIsHardFail(t *testing.T) {
	t.Parallel()

	query := &fakeQuery{infoErr: errors.New("i/o timeout")}
	console := &fakeConsole{output: "• [#1] \"Alice\""}

	snapshot, err := collector.NewRosterFetcher(query, console).Fetch()
	require.ErrorIs(t, err, collector.ErrServerUnreachable)
	require.Nil(t, snapshot)
	require.Zero(t, console.calls)
}

func TestFetchPlayerTimeoutFallsBackToConsole(t *testing.T) {
	t.Parallel()

	query := &fakeQuery{
		info:       onlineInfo(1),
		playersErr: errors.New("i/o timeout"),
	}
	console := &fakeConsole{output: "• [#1] \"Alice\""}

	snapshot, err := collector.NewRosterFetcher(query, console).Fetch()
	require.NoError(t, err, "a structured player timeout is not ServerUnreachable")
	require.Equal(t, []string{"Alice"}, snapshot.Players)
	require.True(t, snapshot.Degraded)
	require.Equal(t, 1, console.calls)
}

func TestFetchAnonymizedEntriesFallBack(t *testing.T) {
	t.Parallel()

	query := &fakeQuery{
		info: onlineInfo(2),
		players: []collector.PlayerEntry{
			{Name: ""},
			{Name: "unconnected"},
		},
	}
	console := &fakeConsole{output: "• [#1] \"Alice\"\n• [#2] \"Bob\""}

	snapshot, err := collector.NewRosterFetcher(query, console).Fetch()
	require.NoError(t, err)
	require.Equal(t, []string{"Alice", "Bob"}, snapshot.Players)
	require.True(t, snapshot.Degraded)
}

func TestFetchEmptyParseIsEmptyRoster(t *testing.T) {
	t.Parallel()

	// A server can legitimately empty out between the info query and the
	// fallback; an empty parse is a roster, not an error.
	query := &fakeQuery{info: onlineInfo(0), players: nil}
	console := &fakeConsole{output: "hostname: lonely server\n"}

	snapshot, err := collector.NewRosterFetcher(query, console).Fetch()
	require.NoError(t, err)
	require.Empty(t, snapshot.Players)
}

func TestFetchAllSourcesFailedWithPlayersOnline(t *testing.T) {
	t.Parallel()

	query := &fakeQuery{
		info:       onlineInfo(5),
		playersErr: errors.New("i/o timeout"),
	}
	console := &fakeConsole{err: errors.New("connection refused")}

	snapshot, err := collector.NewRosterFetcher(query, console).Fetch()
	require.ErrorIs(t, err, collector.ErrRosterUnknown)
	require.NotNil(t, snapshot, "snapshot stays usable for the count series")
	require.Equal(t, 5, snapshot.PlayerCount)
}

func TestFetchAllSourcesFailedEmptyServer(t *testing.T) {
	t.Parallel()

	query := &fakeQuery{
		info:       onlineInfo(0),
		playersErr: errors.New("i/o timeout"),
	}
	console := &fakeConsole{err: errors.New("connection refused")}

	snapshot, err := collector.NewRosterFetcher(query, console).Fetch()
	require.NoError(t, err, "zero reported players makes an empty roster trustworthy")
	require.Empty(t, snapshot.Players)
}
