package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/uronshalav2/cs2discordbot-sub000/internal/demos"
	"github.com/uronshalav2/cs2discordbot-sub000/internal/domain"
	"github.com/uronshalav2/cs2discordbot-sub000/internal/pager"
	"github.com/uronshalav2/cs2discordbot-sub000/internal/stats"
)

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// parseLimit parses the limit query parameter with a default and cap
func parseLimit(req *http.Request, def, max int) int {
	limit, err := strconv.Atoi(req.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// parseOffset parses the offset query parameter
func parseOffset(req *http.Request) int {
	offset, err := strconv.Atoi(req.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		return 0
	}
	return offset
}

// handleGetStatus returns the last observed server state
func (r *Router) handleGetStatus(w http.ResponseWriter, req *http.Request) {
	snapshot, online := r.monitor.CurrentSnapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"online":   online,
		"snapshot": snapshot,
	})
}

// handleGetPlayers returns the current roster
func (r *Router) handleGetPlayers(w http.ResponseWriter, req *http.Request) {
	snapshot, online := r.monitor.CurrentSnapshot()
	if !online || snapshot == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"online":  online,
			"players": []string{},
			"total":   0,
		})
		return
	}

	players := snapshot.Players
	if players == nil {
		players = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"online":   true,
		"players":  players,
		"total":    len(players),
		"map":      snapshot.Map,
		"degraded": snapshot.Degraded,
	})
}

// handleGetPlayerSummary returns lifetime stats for one player
func (r *Router) handleGetPlayerSummary(w http.ResponseWriter, req *http.Request) {
	name := req.PathValue("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "player name required")
		return
	}

	summary, err := r.aggregator.PlayerSummary(req.Context(), name)
	if errors.Is(err, stats.ErrNoSessions) {
		writeError(w, http.StatusNotFound, "no recorded sessions for player")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleGetPlayerSessions returns one page of a player's session history
func (r *Router) handleGetPlayerSessions(w http.ResponseWriter, req *http.Request) {
	name := req.PathValue("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "player name required")
		return
	}

	limit := parseLimit(req, 20, 100)
	offset := parseOffset(req)

	sessions, total, err := r.store.SessionsByPlayer(req.Context(), name, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pager.Window(sessions, total, offset, limit))
}

// handleGetLeaderboard returns top players by total minutes
func (r *Router) handleGetLeaderboard(w http.ResponseWriter, req *http.Request) {
	limit := parseLimit(req, 10, 100)

	entries, err := r.aggregator.Leaderboard(req.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"limit":   limit,
	})
}

// handleGetTimeSeries returns the player count series for the last N hours
func (r *Router) handleGetTimeSeries(w http.ResponseWriter, req *http.Request) {
	hours, err := strconv.Atoi(req.URL.Query().Get("hours"))
	if err != nil || hours <= 0 {
		hours = 24
	}
	if hours > 24*30 {
		hours = 24 * 30
	}

	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	rows, err := r.aggregator.TimeSeries(req.Context(), since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"since":     since,
		"snapshots": rows,
	})
}

// handleGetMaps returns map popularity counters
func (r *Router) handleGetMaps(w http.ResponseWriter, req *http.Request) {
	maps, err := r.store.MapPopularity(req.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if maps == nil {
		maps = []domain.MapPopularity{}
	}
	writeJSON(w, http.StatusOK, maps)
}

// handleGetDemos returns one page of the recorded demo list
func (r *Router) handleGetDemos(w http.ResponseWriter, req *http.Request) {
	if r.demos == nil {
		writeError(w, http.StatusNotFound, "demo index not configured")
		return
	}

	limit := parseLimit(req, 10, 50)
	offset := parseOffset(req)

	page, err := r.demos.Page(req.Context(), offset, limit)
	if errors.Is(err, demos.ErrUnavailable) {
		writeError(w, http.StatusBadGateway, "demo list unavailable")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// ConsoleRequest is the request body for the admin console passthrough
type ConsoleRequest struct {
	Command string `json:"command"`
}

// handleConsole executes a console command on the game server
func (r *Router) handleConsole(w http.ResponseWriter, req *http.Request) {
	var body ConsoleRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Command == "" {
		writeError(w, http.StatusBadRequest, "command is required")
		return
	}

	output, err := r.monitor.ExecuteConsole(body.Command)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"output": output})
}

// handleHealth returns service health
func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	_, online := r.monitor.CurrentSnapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"server_online": online,
		"ws_clients":    r.wsHub.ClientCount(),
	})
}
