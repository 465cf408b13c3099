package stats

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/uronshalav2/cs2discordbot-sub000/internal/domain"
)

// ErrNoSessions signals that a player has no recorded history. Callers must
// distinguish this from a player whose totals happen to be zero.
var ErrNoSessions = errors.New("no recorded sessions")

// SessionSource is the aggregate-level read side of the session store
type SessionSource interface {
	PlayerTotal(ctx context.Context, player string) (*domain.PlayerTotal, error)
	PlayerTotals(ctx context.Context) ([]domain.PlayerTotal, error)
	MapMinutesByPlayer(ctx context.Context, player string) ([]domain.MapMinutes, error)
	SnapshotsSince(ctx context.Context, since time.Time) ([]domain.SnapshotRow, error)
}

// Aggregator derives presentation-ready stats from closed session history.
// Everything is computed on demand; nothing is cached.
type Aggregator struct {
	source SessionSource
}

// NewAggregator creates an aggregator over the given source
func NewAggregator(source SessionSource) *Aggregator {
	return &Aggregator{source: source}
}

// PlayerSummary returns lifetime totals for one player. Returns ErrNoSessions
// when the player has never been recorded.
func (a *Aggregator) PlayerSummary(ctx context.Context, player string) (*domain.PlayerStatsSummary, error) {
	total, err := a.source.PlayerTotal(ctx, player)
	if err != nil {
		return nil, fmt.Errorf("loading totals for %s: %w", player, err)
	}
	if total == nil {
		return nil, ErrNoSessions
	}

	favorite, err := a.favoriteMap(ctx, player)
	if err != nil {
		return nil, err
	}

	return &domain.PlayerStatsSummary{
		Player:        total.Player,
		TotalMinutes:  total.TotalMinutes,
		TotalSessions: total.TotalSessions,
		FavoriteMap:   favorite,
		LastSeen:      total.LastSeen,
	}, nil
}

// favoriteMap picks the map with the most cumulative minutes. Ties resolve by
// map name so repeated calls give the same answer.
func (a *Aggregator) favoriteMap(ctx context.Context, player string) (string, error) {
	minutes, err := a.source.MapMinutesByPlayer(ctx, player)
	if err != nil {
		return "", fmt.Errorf("loading map minutes for %s: %w", player, err)
	}

	sort.Slice(minutes, func(i, j int) bool {
		if minutes[i].Minutes != minutes[j].Minutes {
			return minutes[i].Minutes > minutes[j].Minutes
		}
		return minutes[i].Map < minutes[j].Map
	})

	for _, m := range minutes {
		if m.Map != "" {
			return m.Map, nil
		}
	}
	return "", nil
}

// Leaderboard ranks players by total minutes descending, ties broken by name
// ascending. At most limit entries are returned; a non-positive limit yields
// an empty board.
func (a *Aggregator) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		return []domain.LeaderboardEntry{}, nil
	}

	totals, err := a.source.PlayerTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading player totals: %w", err)
	}

	sort.Slice(totals, func(i, j int) bool {
		if totals[i].TotalMinutes != totals[j].TotalMinutes {
			return totals[i].TotalMinutes > totals[j].TotalMinutes
		}
		return totals[i].Player < totals[j].Player
	})

	if len(totals) > limit {
		totals = totals[:limit]
	}

	entries := make([]domain.LeaderboardEntry, len(totals))
	for i, t := range totals {
		entries[i] = domain.LeaderboardEntry{
			Rank:         i + 1,
			Player:       t.Player,
			TotalMinutes: t.TotalMinutes,
		}
	}
	return entries, nil
}

// TimeSeries returns snapshot rows from the given time onward, oldest first
func (a *Aggregator) TimeSeries(ctx context.Context, since time.Time) ([]domain.SnapshotRow, error) {
	rows, err := a.source.SnapshotsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("loading snapshots: %w", err)
	}
	if rows == nil {
		rows = []domain.SnapshotRow{}
	}
	return rows, nil
}
