package stats_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uronshalav2/cs2discordbot-sub000/internal/domain"
	"github.com/uronshalav2/cs2discordbot-sub000/internal/stats"
)

// memorySource serves canned aggregates
type memorySource struct {
	totals     []domain.PlayerTotal
	mapMinutes map[string][]domain.MapMinutes
	snapshots  []domain.SnapshotRow
}

func (s *memorySource) PlayerTotal(_ context.Context, player string) (*domain.PlayerTotal, error) {
	for _, t := range s.totals {
		if t.Player == player {
			return &t, nil
		}
	}
	return nil, nil
}

func (s *memorySource) PlayerTotals(context.Context) ([]domain.PlayerTotal, error) {
	return append([]domain.PlayerTotal(nil), s.totals...), nil
}

func (s *memorySource) MapMinutesByPlayer(_ context.Context, player string) ([]domain.MapMinutes, error) {
	return s.mapMinutes[player], nil
}

func (s *memorySource) SnapshotsSince(_ context.Context, since time.Time) ([]domain.SnapshotRow, error) {
	var rows []domain.SnapshotRow
	for _, r := range s.snapshots {
		if !r.TakenAt.Before(since) {
			rows = append(rows, r)
		}
	}
	return rows, nil
}

func TestPlayerSummary(t *testing.T) {
	t.Parallel()

	lastSeen := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	source := &memorySource{
		totals: []domain.PlayerTotal{
			{Player: "Alice", TotalMinutes: 95, TotalSessions: 3, LastSeen: lastSeen},
		},
		mapMinutes: map[string][]domain.MapMinutes{
			"Alice": {
				{Map: "de_inferno", Minutes: 30},
				{Map: "de_dust2", Minutes: 65},
			},
		},
	}

	summary, err := stats.NewAggregator(source).PlayerSummary(context.Background(), "Alice")
	require.NoError(t, err)
	require.Equal(t, 95, summary.TotalMinutes)
	require.Equal(t, 3, summary.TotalSessions)
	require.Equal(t, "de_dust2", summary.FavoriteMap)
	require.Equal(t, lastSeen, summary.LastSeen)
}

func TestPlayerSummaryNoHistory(t *testing.T) {
	t.Parallel()

	agg := stats.NewAggregator(&memorySource{})
	summary, err := agg.PlayerSummary(context.Background(), "Ghost")
	require.ErrorIs(t, err, stats.ErrNoSessions)
	require.Nil(t, summary)
}

func TestPlayerSummaryFavoriteMapTie(t *testing.T) {
	t.Parallel()

	source := &memorySource{
		totals: []domain.PlayerTotal{{Player: "Alice", TotalMinutes: 60, TotalSessions: 2}},
		mapMinutes: map[string][]domain.MapMinutes{
			"Alice": {
				{Map: "de_nuke", Minutes: 30},
				{Map: "de_ancient", Minutes: 30},
			},
		},
	}

	summary, err := stats.NewAggregator(source).PlayerSummary(context.Background(), "Alice")
	require.NoError(t, err)
	// Equal minutes resolve by map name, deterministically
	require.Equal(t, "de_ancient", summary.FavoriteMap)
}

func TestLeaderboardOrdering(t *testing.T) {
	t.Parallel()

	source := &memorySource{
		totals: []domain.PlayerTotal{
			{Player: "Carol", TotalMinutes: 120},
			{Player: "Bob", TotalMinutes: 300},
			{Player: "Alice", TotalMinutes: 120},
			{Player: "Dave", TotalMinutes: 15},
		},
	}
	agg := stats.NewAggregator(source)

	entries, err := agg.Leaderboard(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, domain.LeaderboardEntry{Rank: 1, Player: "Bob", TotalMinutes: 300}, entries[0])
	// 120-minute tie breaks alphabetically
	require.Equal(t, domain.LeaderboardEntry{Rank: 2, Player: "Alice", TotalMinutes: 120}, entries[1])
	require.Equal(t, domain.LeaderboardEntry{Rank: 3, Player: "Carol", TotalMinutes: 120}, entries[2])
}

func TestLeaderboardLimits(t *testing.T) {
	t.Parallel()

	source := &memorySource{
		totals: []domain.PlayerTotal{{Player: "Alice", TotalMinutes: 10}},
	}
	agg := stats.NewAggregator(source)

	entries, err := agg.Leaderboard(context.Background(), 0)
	require.NoError(t, err)
	require.Empty(t, entries)

	entries, err = agg.Leaderboard(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestTimeSeries(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	source := &memorySource{
		snapshots: []domain.SnapshotRow{
			{ID: 1, TakenAt: base, PlayerCount: 3},
			{ID: 2, TakenAt: base.Add(time.Hour), PlayerCount: 5},
		},
	}
	agg := stats.NewAggregator(source)

	rows, err := agg.TimeSeries(context.Background(), base.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 5, rows[0].PlayerCount)

	// No data yields an empty slice, not nil
	rows, err = agg.TimeSeries(context.Background(), base.Add(2*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, rows)
	require.Empty(t, rows)
}
