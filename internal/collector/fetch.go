package collector

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/uronshalav2/cs2discordbot-sub000/internal/domain"
)

// ErrServerUnreachable means the structured info query failed: the whole poll
// aborts and no snapshot is recorded.
var ErrServerUnreachable = errors.New("server unreachable")

// ErrRosterUnknown means server info was fetched but every name source failed
// while the server reports players online. The snapshot is still usable for
// the count time series, but reconciling against an unknown roster would emit
// false leave events.
var ErrRosterUnknown = errors.New("roster unknown")

// StructuredQuerier is the typed query side of the fetcher (A2S in production)
type StructuredQuerier interface {
	Info() (*ServerInfo, error)
	Players() ([]PlayerEntry, error)
}

// ConsoleRunner is the text fallback side of the fetcher (RCON in production)
type ConsoleRunner interface {
	Run(command string) (string, error)
}

// consoleStatusCommand is the fallback command whose output RosterParser understands
const consoleStatusCommand = "status"

// RosterFetcher obtains one roster observation per poll. The structured
// protocol is authoritative and cheap, but some server configurations return
// anonymized or empty player entries; the console fallback recovers real names
// at the cost of weaker metadata.
type RosterFetcher struct {
	query   StructuredQuerier
	console ConsoleRunner
	now     func() time.Time
}

// NewRosterFetcher creates a fetcher over the given sources
func NewRosterFetcher(query StructuredQuerier, console ConsoleRunner) *RosterFetcher {
	return &RosterFetcher{
		query:   query,
		console: console,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// nameOutcome is one strategy's verdict in the fallback chain
type nameOutcome int

const (
	nameOK nameOutcome = iota
	nameSoftFail
)

// Fetch performs one poll: structured info (hard requirement), then the
// ordered name strategies until one yields usable names. A snapshot with an
// empty roster is a valid result; an empty server is not an error.
func (f *RosterFetcher) Fetch() (*domain.RosterSnapshot, error) {
	info, err := f.query.Info()
	if err != nil {
		return nil, errors.Join(ErrServerUnreachable, err)
	}

	snapshot := &domain.RosterSnapshot{
		TakenAt:     f.now(),
		ServerName:  domain.SanitizeName(info.Name),
		Map:         info.Map,
		PlayerCount: info.PlayerCount,
		MaxPlayers:  info.MaxPlayers,
	}

	type strategy struct {
		name string
		run  func() ([]string, nameOutcome)
	}
	strategies := []strategy{
		{"a2s_player", f.structuredNames},
		{"console_status", f.consoleNames},
	}

	for _, s := range strategies {
		names, outcome := s.run()
		if outcome == nameOK {
			snapshot.Players = names
			snapshot.Degraded = s.name != "a2s_player"
			return snapshot, nil
		}
		log.Printf("Roster source %s degraded, trying next", s.name)
	}

	// Every source failed softly. An empty roster is only trustworthy when
	// the server itself claims zero players.
	snapshot.Degraded = true
	if info.PlayerCount > 0 {
		return snapshot, ErrRosterUnknown
	}
	return snapshot, nil
}

// structuredNames extracts names from the A2S player list. Empty lists and
// lists where every entry lacks a usable name are soft failures; some servers
// anonymize the player table while still reporting accurate counts.
func (f *RosterFetcher) structuredNames() ([]string, nameOutcome) {
	entries, err := f.query.Players()
	if err != nil {
		return nil, nameSoftFail
	}

	var names []string
	for _, entry := range entries {
		name := domain.SanitizeName(entry.Name)
		if name == "" || isPlaceholderName(entry.Name) {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil, nameSoftFail
	}
	return domain.DedupNames(names), nameOK
}

// consoleNames runs the status command and parses its text output. An empty
// parse is a valid result here: by the time we fall back, the structured count
// may be stale and the server can legitimately be empty.
func (f *RosterFetcher) consoleNames() ([]string, nameOutcome) {
	raw, err := f.console.Run(consoleStatusCommand)
	if err != nil {
		return nil, nameSoftFail
	}
	return ParsePlayerList(raw), nameOK
}

// isPlaceholderName reports whether a raw A2S name is a known anonymized
// placeholder rather than a real player name
func isPlaceholderName(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "unconnected", "unknown", "max players":
		return true
	}
	return false
}
