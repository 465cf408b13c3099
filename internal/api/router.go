package api

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"

	"github.com/uronshalav2/cs2discordbot-sub000/internal/auth"
	"github.com/uronshalav2/cs2discordbot-sub000/internal/collector"
	"github.com/uronshalav2/cs2discordbot-sub000/internal/demos"
	"github.com/uronshalav2/cs2discordbot-sub000/internal/stats"
	"github.com/uronshalav2/cs2discordbot-sub000/internal/storage"
)

// Router holds the HTTP routes and dependencies
type Router struct {
	mux        *http.ServeMux
	store      *storage.Store
	monitor    *collector.Monitor
	aggregator *stats.Aggregator
	demos      *demos.Client
	wsHub      *WebSocketHub
	auth       *auth.Service
}

// NewRouter creates a new HTTP router. The demos client may be nil when no
// demo index is configured.
func NewRouter(store *storage.Store, monitor *collector.Monitor, aggregator *stats.Aggregator, demosClient *demos.Client, authService *auth.Service) *Router {
	r := &Router{
		mux:        http.NewServeMux(),
		store:      store,
		monitor:    monitor,
		aggregator: aggregator,
		demos:      demosClient,
		wsHub:      NewWebSocketHub(),
		auth:       authService,
	}

	// Presence and stats routes
	r.mux.HandleFunc("GET /api/status", r.handleGetStatus)
	r.mux.HandleFunc("GET /api/players", r.handleGetPlayers)
	r.mux.HandleFunc("GET /api/players/{name}/summary", r.handleGetPlayerSummary)
	r.mux.HandleFunc("GET /api/players/{name}/sessions", r.handleGetPlayerSessions)
	r.mux.HandleFunc("GET /api/leaderboard", r.handleGetLeaderboard)
	r.mux.HandleFunc("GET /api/timeseries", r.handleGetTimeSeries)
	r.mux.HandleFunc("GET /api/maps", r.handleGetMaps)
	r.mux.HandleFunc("GET /api/demos", r.handleGetDemos)

	// Auth routes
	r.mux.HandleFunc("POST /api/auth/login", r.handleLogin)
	r.mux.HandleFunc("POST /api/auth/logout", r.handleLogout)
	r.mux.HandleFunc("GET /api/auth/check", r.handleAuthCheck)

	// User management routes (admin only)
	r.mux.HandleFunc("GET /api/users", r.requireAdmin(r.handleListUsers))
	r.mux.HandleFunc("POST /api/users", r.requireAdmin(r.handleCreateUser))
	r.mux.HandleFunc("DELETE /api/users/{username}", r.requireAdmin(r.handleDeleteUser))

	// Console passthrough (admin only)
	r.mux.HandleFunc("POST /api/console", r.requireAdmin(r.handleConsole))

	// WebSocket endpoint
	r.mux.HandleFunc("GET /ws", r.handleWebSocket)

	// Health check
	r.mux.HandleFunc("GET /health", r.handleHealth)

	return r
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	// CORS headers for API
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if req.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.mux.ServeHTTP(w, req)
}

// Handler wraps the router with response compression
func (r *Router) Handler() http.Handler {
	return gzhttp.GzipHandler(r)
}

// StartWebSocketHub starts broadcasting monitor events to WebSocket clients
func (r *Router) StartWebSocketHub() {
	go r.wsHub.Run()

	go func() {
		for event := range r.monitor.Events() {
			r.wsHub.Broadcast(event)
		}
	}()
}
