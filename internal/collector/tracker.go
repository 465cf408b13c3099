package collector

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/uronshalav2/cs2discordbot-sub000/internal/domain"
)

// SessionSink is where the tracker persists finished sessions and map counts
type SessionSink interface {
	SaveSession(ctx context.Context, session *domain.ClosedSession) error
	BumpMapPopularity(ctx context.Context, mapName string, players int) error
}

// PresenceTracker diffs successive rosters into join/leave events. It is the
// sole owner of the open-session map and is only ever called from the poll
// loop, one reconcile at a time. Open sessions live in memory and are lost on
// restart; the first poll after a restart re-opens them with a fresh join time.
type PresenceTracker struct {
	sink SessionSink
	open map[string]time.Time // player name -> join time
}

// NewPresenceTracker creates a tracker with no open sessions
func NewPresenceTracker(sink SessionSink) *PresenceTracker {
	return &PresenceTracker{
		sink: sink,
		open: make(map[string]time.Time),
	}
}

// OpenCount returns the number of currently open sessions
func (t *PresenceTracker) OpenCount() int {
	return len(t.open)
}

// OpenPlayers returns the names with open sessions, sorted
func (t *PresenceTracker) OpenPlayers() []string {
	names := make([]string, 0, len(t.open))
	for name := range t.open {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reconcile applies one roster observation. Leave events are computed and
// emitted before join events. A name absent in one poll and back in the next
// produces two sessions with a gap; polling cannot distinguish a reconnect
// from a dropout and we deliberately do not guess.
//
// A store failure is logged and the in-memory state still advances; the
// affected session is not durable but the scheduler must keep running.
func (t *PresenceTracker) Reconcile(ctx context.Context, names []string, mapName string, now time.Time) []domain.PresenceEvent {
	current := make(map[string]bool, len(names))
	for _, name := range names {
		current[name] = true
	}

	var events []domain.PresenceEvent

	// Leaves first, in stable name order
	var left []string
	for name := range t.open {
		if !current[name] {
			left = append(left, name)
		}
	}
	sort.Strings(left)

	for _, name := range left {
		joinedAt := t.open[name]
		delete(t.open, name)

		session := &domain.ClosedSession{
			UUID:            uuid.NewString(),
			Player:          name,
			JoinedAt:        joinedAt,
			LeftAt:          now,
			DurationMinutes: domain.SessionDuration(joinedAt, now),
			Map:             mapName,
		}
		if err := t.sink.SaveSession(ctx, session); err != nil {
			log.Printf("Error persisting session for %s: %v", name, err)
		}
		if err := t.sink.BumpMapPopularity(ctx, mapName, 1); err != nil {
			log.Printf("Error updating map popularity for %s: %v", mapName, err)
		}

		events = append(events, domain.PresenceEvent{
			Type:      domain.EventPlayerLeave,
			Timestamp: now,
			Data: domain.PlayerLeaveEvent{
				Player:   name,
				Duration: domain.FormatMinutes(session.DurationMinutes),
			},
		})
	}

	// Then joins, preserving roster order
	for _, name := range names {
		if _, ok := t.open[name]; ok {
			continue
		}
		t.open[name] = now

		events = append(events, domain.PresenceEvent{
			Type:      domain.EventPlayerJoin,
			Timestamp: now,
			Data: domain.PlayerJoinEvent{
				Player: name,
				Map:    mapName,
			},
		})
	}

	return events
}
