package collector

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/uronshalav2/cs2discordbot-sub000/internal/domain"
)

// Fetcher is the roster source driven by the poll loop
type Fetcher interface {
	Fetch() (*domain.RosterSnapshot, error)
}

// Store is the persistence the monitor and tracker write to
type Store interface {
	SessionSink
	AppendSnapshot(ctx context.Context, takenAt time.Time, playerCount int, mapName string) error
}

// Monitor drives the poll cycle: fetch, reconcile, persist, publish. It owns
// the two timers and the last-known snapshot cache. The poll path runs on a
// single worker; status refresh may overlap since it only reads the cache.
type Monitor struct {
	fetcher Fetcher
	tracker *PresenceTracker
	store   Store
	console ConsoleRunner

	pollInterval   time.Duration
	statusInterval time.Duration

	events chan domain.PresenceEvent

	mu     sync.RWMutex
	last   *domain.RosterSnapshot
	online bool

	polling atomic.Bool // in-flight flag: ticks never overlap
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewMonitor creates a monitor over the given collaborators
func NewMonitor(fetcher Fetcher, tracker *PresenceTracker, store Store, console ConsoleRunner, pollInterval, statusInterval time.Duration) *Monitor {
	return &Monitor{
		fetcher:        fetcher,
		tracker:        tracker,
		store:          store,
		console:        console,
		pollInterval:   pollInterval,
		statusInterval: statusInterval,
		events:         make(chan domain.PresenceEvent, 100),
		done:           make(chan struct{}),
	}
}

// Events returns the event channel for broadcasting
func (m *Monitor) Events() <-chan domain.PresenceEvent {
	return m.events
}

// Start launches the poll and status refresh loops
func (m *Monitor) Start(ctx context.Context) {
	m.wg.Add(1)
	go m.pollLoop(ctx)

	m.wg.Add(1)
	go m.statusLoop(ctx)
}

// Stop stops both loops and waits for them to finish
func (m *Monitor) Stop() {
	log.Println("Monitor: stopping...")
	close(m.done)
	m.wg.Wait()
	close(m.events)
	log.Println("Monitor: shutdown complete")
}

// CurrentSnapshot returns the last successful roster observation, or nil with
// online=false if the server has not been reachable yet.
func (m *Monitor) CurrentSnapshot() (*domain.RosterSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last, m.online
}

// OpenPlayers returns names with open sessions, for diagnostics
func (m *Monitor) OpenPlayers() []string {
	return m.tracker.OpenPlayers()
}

// ExecuteConsole runs an arbitrary console command (admin passthrough)
func (m *Monitor) ExecuteConsole(command string) (string, error) {
	if m.console == nil {
		return "", errors.New("console not configured")
	}
	return m.console.Run(command)
}

// pollLoop drives the fetch/reconcile/persist cycle
func (m *Monitor) pollLoop(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	// Initial poll
	m.runPoll(ctx)

	for {
		select {
		case <-m.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.runPoll(ctx)
		}
	}
}

// runPoll performs one complete poll cycle. It is the error boundary of last
// resort: any failure is logged and the loop waits for the next tick.
func (m *Monitor) runPoll(ctx context.Context) {
	if !m.polling.CompareAndSwap(false, true) {
		log.Printf("Poll still in flight, skipping tick")
		return
	}
	defer m.polling.Store(false)

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic during poll: %v", r)
		}
	}()

	snapshot, err := m.fetcher.Fetch()
	switch {
	case errors.Is(err, ErrServerUnreachable):
		log.Printf("Server unreachable: %v", err)
		m.setOffline()
		return

	case errors.Is(err, ErrRosterUnknown):
		// Count is usable, names are not: record the snapshot row but do
		// not reconcile against a roster we could not observe.
		log.Printf("Roster unknown this poll, skipping reconcile: %v", err)
		if perr := m.store.AppendSnapshot(ctx, snapshot.TakenAt, snapshot.PlayerCount, snapshot.Map); perr != nil {
			log.Printf("Error appending snapshot: %v", perr)
		}
		m.setSnapshot(snapshot)
		return

	case err != nil:
		log.Printf("Error fetching roster: %v", err)
		return
	}

	// One snapshot row per successful poll, regardless of the diff outcome
	if err := m.store.AppendSnapshot(ctx, snapshot.TakenAt, snapshot.PlayerCount, snapshot.Map); err != nil {
		log.Printf("Error appending snapshot: %v", err)
	}

	events := m.tracker.Reconcile(ctx, snapshot.Players, snapshot.Map, snapshot.TakenAt)
	if len(events) > 0 {
		log.Printf("Roster changed: %d events, %d sessions open", len(events), m.tracker.OpenCount())
	}
	for _, event := range events {
		m.emit(event)
	}

	m.setSnapshot(snapshot)
}

// statusLoop periodically republishes current state for status displays. It
// only reads the snapshot cache and may overlap with an in-flight poll.
func (m *Monitor) statusLoop(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot, online := m.CurrentSnapshot()
			m.emit(domain.PresenceEvent{
				Type:      domain.EventServerUpdate,
				Timestamp: time.Now().UTC(),
				Data: map[string]interface{}{
					"online":   online,
					"snapshot": snapshot,
				},
			})
		}
	}
}

// setSnapshot publishes a fresh observation to readers
func (m *Monitor) setSnapshot(snapshot *domain.RosterSnapshot) {
	m.mu.Lock()
	m.last = snapshot
	m.online = true
	m.mu.Unlock()
}

// setOffline marks the server unreachable, keeping the stale snapshot for
// "last seen" style displays
func (m *Monitor) setOffline() {
	m.mu.Lock()
	m.online = false
	m.mu.Unlock()
}

// emit sends an event without blocking the poll path
func (m *Monitor) emit(event domain.PresenceEvent) {
	select {
	case m.events <- event:
	default:
		// Channel full, drop event
	}
}
