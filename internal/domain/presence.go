package domain

import (
	"fmt"
	"time"
)

// RosterSnapshot is one observation of the server, produced once per poll.
// Immutable after creation; only player count and map are persisted.
type RosterSnapshot struct {
	TakenAt     time.Time `json:"taken_at"`
	ServerName  string    `json:"server_name"`
	Map         string    `json:"map"`
	PlayerCount int       `json:"player_count"`
	MaxPlayers  int       `json:"max_players"`
	Players     []string  `json:"players"` // sanitized, deduped, first-seen order
	Degraded    bool      `json:"degraded,omitempty"` // true when the console fallback supplied the names
}

// ClosedSession is a completed presence interval for one player name.
// Owned by the store once persisted; never updated.
type ClosedSession struct {
	ID              int64     `json:"id"`
	UUID            string    `json:"uuid"`
	Player          string    `json:"player"`
	JoinedAt        time.Time `json:"joined_at"`
	LeftAt          time.Time `json:"left_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Map             string    `json:"map"` // map active when the player left
}

// SnapshotRow is one persisted server observation, independent of session
// tracking. Append-only time series.
type SnapshotRow struct {
	ID          int64     `json:"id"`
	TakenAt     time.Time `json:"taken_at"`
	PlayerCount int       `json:"player_count"`
	Map         string    `json:"map"`
}

// PlayerStatsSummary is derived on demand from closed session history.
type PlayerStatsSummary struct {
	Player        string    `json:"player"`
	TotalMinutes  int       `json:"total_minutes"`
	TotalSessions int       `json:"total_sessions"`
	FavoriteMap   string    `json:"favorite_map"`
	LastSeen      time.Time `json:"last_seen"`
}

// LeaderboardEntry ranks one player by cumulative minutes.
type LeaderboardEntry struct {
	Rank         int    `json:"rank"`
	Player       string `json:"player"`
	TotalMinutes int    `json:"total_minutes"`
}

// PlayerTotal is the per-player aggregate the store derives from closed sessions.
type PlayerTotal struct {
	Player        string    `json:"player"`
	TotalMinutes  int       `json:"total_minutes"`
	TotalSessions int       `json:"total_sessions"`
	LastSeen      time.Time `json:"last_seen"`
}

// MapMinutes is cumulative session minutes on one map for one player.
type MapMinutes struct {
	Map     string `json:"map"`
	Minutes int    `json:"minutes"`
}

// MapPopularity is the running per-map counter bumped as sessions close.
type MapPopularity struct {
	Map          string `json:"map"`
	TimesPlayed  int    `json:"times_played"`
	TotalPlayers int    `json:"total_players"`
}

// Event types for the presence event stream
const (
	EventPlayerJoin   = "player_join"
	EventPlayerLeave  = "player_leave"
	EventServerUpdate = "server_update"
)

// PresenceEvent is emitted per poll for each roster change. Ephemeral; consumed
// by the presentation layer, never persisted.
type PresenceEvent struct {
	Type      string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// PlayerJoinEvent is the payload for a join
type PlayerJoinEvent struct {
	Player string `json:"player"`
	Map    string `json:"map"`
}

// PlayerLeaveEvent is the payload for a leave
type PlayerLeaveEvent struct {
	Player   string `json:"player"`
	Duration string `json:"duration"` // humanized, e.g. "1h 23m"
}

// SessionDuration returns whole minutes between join and leave, floored,
// never negative.
func SessionDuration(joinedAt, leftAt time.Time) int {
	secs := leftAt.Sub(joinedAt) / time.Second
	if secs < 0 {
		return 0
	}
	return int(secs / 60)
}

// FormatMinutes renders a minute count as "Xh Ym" or "Ym".
func FormatMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	if minutes >= 60 {
		return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
	}
	return fmt.Sprintf("%dm", minutes)
}
