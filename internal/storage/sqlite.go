package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/uronshalav2/cs2discordbot-sub000/internal/domain"
	_ "modernc.org/sqlite"
)

// formatTimestamp converts time.Time to SQLite-compatible UTC ISO8601 string
// The Z suffix ensures the Go sqlite driver parses it back as UTC
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// parseTimestamp reverses formatTimestamp. Aggregate expressions like
// MAX(left_at) lose the column's declared type, so the driver hands the value
// back as a string.
func parseTimestamp(s string) (time.Time, error) {
	return time.Parse("2006-01-02T15:04:05Z", s)
}

//go:embed schema.sql
var schema string

// Store provides database access
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// --- Session methods ---

// SaveSession appends a closed session. Sessions are immutable once written.
func (s *Store) SaveSession(ctx context.Context, sess *domain.ClosedSession) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (uuid, player, joined_at, left_at, duration_minutes, map)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sess.UUID, sess.Player, formatTimestamp(sess.JoinedAt), formatTimestamp(sess.LeftAt), sess.DurationMinutes, sess.Map)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	sess.ID, _ = result.LastInsertId()
	return nil
}

// SessionsByPlayer returns closed sessions for a player, newest first, with
// the total count for pagination
func (s *Store) SessionsByPlayer(ctx context.Context, player string, limit, offset int) ([]domain.ClosedSession, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE player = ?`, player).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, uuid, player, joined_at, left_at, duration_minutes, map
		FROM sessions WHERE player = ?
		ORDER BY left_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, player, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sessions []domain.ClosedSession
	for rows.Next() {
		var sess domain.ClosedSession
		if err := rows.Scan(&sess.ID, &sess.UUID, &sess.Player, &sess.JoinedAt, &sess.LeftAt, &sess.DurationMinutes, &sess.Map); err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, total, rows.Err()
}

// PlayerTotals returns per-player aggregates over all closed sessions.
// Ordering is left to the caller.
func (s *Store) PlayerTotals(ctx context.Context) ([]domain.PlayerTotal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT player, COALESCE(SUM(duration_minutes), 0), COUNT(*), MAX(left_at)
		FROM sessions GROUP BY player
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []domain.PlayerTotal
	for rows.Next() {
		var t domain.PlayerTotal
		var lastSeen string
		if err := rows.Scan(&t.Player, &t.TotalMinutes, &t.TotalSessions, &lastSeen); err != nil {
			return nil, err
		}
		if t.LastSeen, err = parseTimestamp(lastSeen); err != nil {
			return nil, fmt.Errorf("parsing last seen for %s: %w", t.Player, err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// PlayerTotal returns the aggregate for a single player, or nil if the player
// has no closed sessions
func (s *Store) PlayerTotal(ctx context.Context, player string) (*domain.PlayerTotal, error) {
	var t domain.PlayerTotal
	var lastSeen string
	err := s.db.QueryRowContext(ctx, `
		SELECT player, COALESCE(SUM(duration_minutes), 0), COUNT(*), MAX(left_at)
		FROM sessions WHERE player = ? GROUP BY player
	`, player).Scan(&t.Player, &t.TotalMinutes, &t.TotalSessions, &lastSeen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if t.LastSeen, err = parseTimestamp(lastSeen); err != nil {
		return nil, fmt.Errorf("parsing last seen for %s: %w", player, err)
	}
	return &t, nil
}

// MapMinutesByPlayer returns cumulative minutes per map for one player
func (s *Store) MapMinutesByPlayer(ctx context.Context, player string) ([]domain.MapMinutes, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT map, COALESCE(SUM(duration_minutes), 0)
		FROM sessions WHERE player = ? GROUP BY map
	`, player)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var minutes []domain.MapMinutes
	for rows.Next() {
		var m domain.MapMinutes
		if err := rows.Scan(&m.Map, &m.Minutes); err != nil {
			return nil, err
		}
		minutes = append(minutes, m)
	}
	return minutes, rows.Err()
}

// --- Snapshot methods ---

// AppendSnapshot records one server observation in the count time series
func (s *Store) AppendSnapshot(ctx context.Context, takenAt time.Time, playerCount int, mapName string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (taken_at, player_count, map)
		VALUES (?, ?, ?)
	`, formatTimestamp(takenAt), playerCount, mapName)
	if err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}
	return nil
}

// SnapshotsSince returns snapshot rows taken at or after the given time,
// oldest first
func (s *Store) SnapshotsSince(ctx context.Context, since time.Time) ([]domain.SnapshotRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, taken_at, player_count, map
		FROM snapshots WHERE taken_at >= ?
		ORDER BY taken_at ASC, id ASC
	`, formatTimestamp(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []domain.SnapshotRow
	for rows.Next() {
		var row domain.SnapshotRow
		if err := rows.Scan(&row.ID, &row.TakenAt, &row.PlayerCount, &row.Map); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, row)
	}
	return snapshots, rows.Err()
}

// --- Map popularity methods ---

// BumpMapPopularity increments the counters for a map as sessions close on it
func (s *Store) BumpMapPopularity(ctx context.Context, mapName string, players int) error {
	if mapName == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO map_popularity (map, times_played, total_players)
		VALUES (?, 1, ?)
		ON CONFLICT(map) DO UPDATE SET
			times_played = times_played + 1,
			total_players = total_players + excluded.total_players
	`, mapName, players)
	return err
}

// MapPopularity returns all map counters, most played first
func (s *Store) MapPopularity(ctx context.Context) ([]domain.MapPopularity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT map, times_played, total_players
		FROM map_popularity ORDER BY times_played DESC, map ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var maps []domain.MapPopularity
	for rows.Next() {
		var m domain.MapPopularity
		if err := rows.Scan(&m.Map, &m.TimesPlayed, &m.TotalPlayers); err != nil {
			return nil, err
		}
		maps = append(maps, m)
	}
	return maps, rows.Err()
}

// --- User methods ---

// User represents an authenticated user
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// CreateUser creates a new user account
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string, isAdmin bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, is_admin)
		VALUES (?, ?, ?)
	`, username, passwordHash, isAdmin)
	return err
}

// GetUserByUsername retrieves a user by username
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	var lastLogin sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, is_admin, created_at, last_login
		FROM users WHERE username = ?
	`, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt, &lastLogin)
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}
	return &u, nil
}

// DeleteUser removes a user by username
func (s *Store) DeleteUser(ctx context.Context, username string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("user not found: %s", username)
	}
	return nil
}

// ListUsers returns all users sorted by username
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password_hash, is_admin, created_at, last_login
		FROM users ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		var lastLogin sql.NullTime
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt, &lastLogin); err != nil {
			return nil, err
		}
		if lastLogin.Valid {
			u.LastLogin = &lastLogin.Time
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUserLastLogin updates the last login timestamp
func (s *Store) UpdateUserLastLogin(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET last_login = CURRENT_TIMESTAMP WHERE id = ?
	`, userID)
	return err
}
