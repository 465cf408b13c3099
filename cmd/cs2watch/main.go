// cs2watch - CS2 server presence tracking and statistics
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/uronshalav2/cs2discordbot-sub000/internal/api"
	"github.com/uronshalav2/cs2discordbot-sub000/internal/auth"
	"github.com/uronshalav2/cs2discordbot-sub000/internal/collector"
	"github.com/uronshalav2/cs2discordbot-sub000/internal/config"
	"github.com/uronshalav2/cs2discordbot-sub000/internal/demos"
	"github.com/uronshalav2/cs2discordbot-sub000/internal/stats"
	"github.com/uronshalav2/cs2discordbot-sub000/internal/storage"
)

var version = "dev"

const defaultConfigPath = "/etc/cs2watch/config.yml"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "status":
		cmdStatus(os.Args[2:])
	case "players":
		cmdPlayers(os.Args[2:])
	case "player":
		cmdPlayer(os.Args[2:])
	case "leaderboard":
		cmdLeaderboard(os.Args[2:])
	case "query":
		cmdQuery(os.Args[2:])
	case "demos":
		cmdDemos(os.Args[2:])
	case "user":
		cmdUser(os.Args[2:])
	case "version":
		fmt.Printf("cs2watch %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: cs2watch <command> [options] [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                       Start the tracking server")
	fmt.Println("  status                      Show current server status")
	fmt.Println("  players                     Show players currently online")
	fmt.Println("  player <name>               Show lifetime stats for a player")
	fmt.Println("  leaderboard [--top N]       Show top players by playtime (default: 10)")
	fmt.Println("  query                       Query the game server directly (bypasses API)")
	fmt.Println("  demos [--offset N]          List recorded demos")
	fmt.Println("  user add [--admin] <username>")
	fmt.Println("                              Add a user (prompts for password)")
	fmt.Println("  user remove <username>      Remove a user")
	fmt.Println("  user list                   List all users")
	fmt.Println("  version                     Show version")
	fmt.Println("  help                        Show this help")
	fmt.Println()
	fmt.Println("Global Options:")
	fmt.Println("  --config <path>    Path to configuration file (default /etc/cs2watch/config.yml)")
	fmt.Println("  --url <url>        Base URL of the cs2watch server (default: derived from config)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  cs2watch serve --config /etc/cs2watch/config.yml")
	fmt.Println("  cs2watch leaderboard --top 25")
	fmt.Println("  cs2watch player Alice")
	fmt.Println("  cs2watch user add --admin myuser")
}

// cmdServe starts the tracking server
func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	cfgPath := *configPath
	if cfgPath == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			cfgPath = defaultConfigPath
		} else {
			log.Fatalf("No config file found at %s. Use --config to specify a config file.", defaultConfigPath)
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("cs2watch %s starting...", version)
	log.Printf("Tracking %s", cfg.Game.Address)

	store, err := storage.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()
	log.Printf("Database initialized at %s", cfg.Database.Path)

	// Sessions do not survive a restart; anyone online now is re-opened on the
	// first poll with a fresh join time.
	query := collector.NewA2SClient(cfg.Game.Address)
	console := collector.NewConsoleClient(cfg.Game.RconAddress, cfg.Game.RconPassword)
	fetcher := collector.NewRosterFetcher(query, console)
	tracker := collector.NewPresenceTracker(store)
	monitor := collector.NewMonitor(fetcher, tracker, store, console, cfg.Game.PollInterval.Std(), cfg.Game.StatusInterval.Std())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitor.Start(ctx)
	log.Printf("Monitor started, polling every %v", cfg.Game.PollInterval.Std())

	authService := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenDuration.Std())
	if cfg.Auth.JWTSecret == "" {
		log.Printf("Warning: No JWT secret configured. Auth tokens will use an empty secret.")
	}

	var demosClient *demos.Client
	if cfg.Demos.IndexURL != "" {
		demosClient = demos.NewClient(cfg.Demos.IndexURL)
		log.Printf("Demo index at %s", cfg.Demos.IndexURL)
	}

	aggregator := stats.NewAggregator(store)
	router := api.NewRouter(store, monitor, aggregator, demosClient, authService)
	router.StartWebSocketHub()

	addr := fmt.Sprintf("%s:%d", cfg.Server.ListenAddr, cfg.Server.HTTPPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s", addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, shutting down...", sig)
	case err := <-serverErr:
		log.Fatalf("HTTP server error: %v", err)
	}

	log.Println("Shutting down HTTP server...")
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := server.Shutdown(httpCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	monitor.Stop()

	cancel()
	log.Println("Shutdown complete")
}

// CLI helper variables
var (
	baseURL = "http://127.0.0.1:8080"
	dbPath  string
)

// loadCLIConfigFromFlags loads config using pre-parsed flag values
func loadCLIConfigFromFlags(configPath, url string) *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config from %s: %v\n", configPath, err)
		dbPath = "/var/lib/cs2watch/cs2watch.db"
		if url != "" {
			baseURL = url
		}
		return nil
	}

	dbPath = cfg.Database.Path
	if url != "" {
		baseURL = url
	} else {
		baseURL = fmt.Sprintf("http://%s:%d", cfg.Server.ListenAddr, cfg.Server.HTTPPort)
	}
	return cfg
}

func cmdStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	url := fs.String("url", "", "base URL of the cs2watch server")
	fs.Parse(args)

	loadCLIConfigFromFlags(*configPath, *url)

	var status map[string]interface{}
	if err := getJSON("/api/status", &status); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	online, _ := status["online"].(bool)
	if !online {
		fmt.Println("Server: OFFLINE")
		return
	}

	snapshot, ok := status["snapshot"].(map[string]interface{})
	if !ok {
		fmt.Println("Server: ONLINE (no snapshot yet)")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Server:\t%v\n", snapshot["server_name"])
	fmt.Fprintf(w, "Map:\t%v\n", snapshot["map"])
	fmt.Fprintf(w, "Players:\t%v/%v\n", snapshot["player_count"], snapshot["max_players"])
	if degraded, _ := snapshot["degraded"].(bool); degraded {
		fmt.Fprintf(w, "Roster:\tdegraded (console fallback)\n")
	}
	w.Flush()
}

func cmdPlayers(args []string) {
	fs := flag.NewFlagSet("players", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	url := fs.String("url", "", "base URL of the cs2watch server")
	fs.Parse(args)

	loadCLIConfigFromFlags(*configPath, *url)

	var response map[string]interface{}
	if err := getJSON("/api/players", &response); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if online, _ := response["online"].(bool); !online {
		fmt.Println("Server is offline")
		return
	}

	players, _ := response["players"].([]interface{})
	if len(players) == 0 {
		fmt.Println("No players online")
		return
	}

	fmt.Printf("%d online on %v:\n", len(players), response["map"])
	for _, p := range players {
		fmt.Printf("  %v\n", p)
	}
}

func cmdPlayer(args []string) {
	fs := flag.NewFlagSet("player", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	serverURL := fs.String("url", "", "base URL of the cs2watch server")
	fs.Parse(args)

	remaining := fs.Args()
	if len(remaining) < 1 {
		fmt.Fprintf(os.Stderr, "Usage: cs2watch player <name>\n")
		os.Exit(1)
	}
	name := remaining[0]

	loadCLIConfigFromFlags(*configPath, *serverURL)

	var summary map[string]interface{}
	if err := getJSON("/api/players/"+url.PathEscape(name)+"/summary", &summary); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Player:\t%v\n", summary["player"])
	fmt.Fprintf(w, "Total playtime:\t%v minutes\n", summary["total_minutes"])
	fmt.Fprintf(w, "Sessions:\t%v\n", summary["total_sessions"])
	if fav, _ := summary["favorite_map"].(string); fav != "" {
		fmt.Fprintf(w, "Favorite map:\t%s\n", fav)
	}
	if last, ok := summary["last_seen"].(string); ok {
		fmt.Fprintf(w, "Last seen:\t%s\n", formatTime(last))
	}
	w.Flush()
}

func cmdLeaderboard(args []string) {
	fs := flag.NewFlagSet("leaderboard", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	url := fs.String("url", "", "base URL of the cs2watch server")
	limit := fs.Int("top", 10, "number of top players to show")
	fs.Parse(args)

	loadCLIConfigFromFlags(*configPath, *url)

	var response map[string]interface{}
	if err := getJSON(fmt.Sprintf("/api/leaderboard?limit=%d", *limit), &response); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	entries, ok := response["entries"].([]interface{})
	if !ok || len(entries) == 0 {
		fmt.Println("No recorded sessions yet")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tPLAYER\tPLAYTIME")
	fmt.Fprintln(w, "----\t------\t--------")

	for _, entry := range entries {
		e := entry.(map[string]interface{})
		rank := int(e["rank"].(float64))
		player := e["player"].(string)
		minutes := int(e["total_minutes"].(float64))
		fmt.Fprintf(w, "%d\t%s\t%dh %dm\n", rank, player, minutes/60, minutes%60)
	}

	w.Flush()
}

// cmdQuery polls the game server directly, bypassing the API
func cmdQuery(args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	address := fs.String("address", "", "game server address (overrides config)")
	fs.Parse(args)

	addr := *address
	if addr == "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		addr = cfg.Game.Address
	}

	client := collector.NewA2SClient(addr)
	info, err := client.Info()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: server unreachable: %v\n", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Server:\t%s\n", info.Name)
	fmt.Fprintf(w, "Map:\t%s\n", info.Map)
	fmt.Fprintf(w, "Players:\t%d/%d", info.PlayerCount, info.MaxPlayers)
	if info.Bots > 0 {
		fmt.Fprintf(w, " (%d bots)", info.Bots)
	}
	fmt.Fprintln(w)
	w.Flush()

	players, err := client.Players()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: player query failed: %v\n", err)
		return
	}
	for _, p := range players {
		fmt.Printf("  %s (score %d, %s)\n", p.Name, p.Score, time.Duration(p.Duration)*time.Second)
	}
}

func cmdDemos(args []string) {
	fs := flag.NewFlagSet("demos", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	url := fs.String("url", "", "base URL of the cs2watch server")
	offset := fs.Int("offset", 0, "list offset")
	limit := fs.Int("limit", 10, "page size")
	fs.Parse(args)

	loadCLIConfigFromFlags(*configPath, *url)

	var page map[string]interface{}
	if err := getJSON(fmt.Sprintf("/api/demos?offset=%d&limit=%d", *offset, *limit), &page); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	items, _ := page["items"].([]interface{})
	total := int(page["total"].(float64))
	if len(items) == 0 {
		fmt.Printf("No demos to show (%d total)\n", total)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE\tRECORDED")
	fmt.Fprintln(w, "----\t----\t--------")
	for _, item := range items {
		d := item.(map[string]interface{})
		fmt.Fprintf(w, "%v\t%v\t%s\n", d["name"], d["size_formatted"], formatTime(d["modified_at"].(string)))
	}
	w.Flush()

	shown := *offset + len(items)
	fmt.Printf("Showing %d-%d of %d\n", *offset+1, shown, total)
	if hasMore, _ := page["has_more"].(bool); hasMore {
		fmt.Printf("More available: cs2watch demos --offset %d\n", shown)
	}
}

// cmdUser handles user subcommands
func cmdUser(args []string) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Error: user subcommand required: add, remove, list\n")
		os.Exit(1)
	}

	subCmd := args[0]
	fs := flag.NewFlagSet("user", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	isAdmin := fs.Bool("admin", false, "create as admin user")
	fs.Parse(args[1:])
	remaining := fs.Args()

	loadCLIConfigFromFlags(*configPath, "")

	store, err := storage.New(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()

	switch subCmd {
	case "add":
		err = cmdUserAdd(ctx, store, remaining, *isAdmin)
	case "remove":
		err = cmdUserRemove(ctx, store, remaining)
	case "list":
		err = cmdUserList(ctx, store)
	default:
		err = fmt.Errorf("unknown user command: %s (use: add, remove, list)", subCmd)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func cmdUserAdd(ctx context.Context, store *storage.Store, args []string, isAdmin bool) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: cs2watch user add [--admin] <username>")
	}
	username := args[0]

	if _, err := store.GetUserByUsername(ctx, username); err == nil {
		return fmt.Errorf("user '%s' already exists", username)
	}

	fmt.Print("Enter password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	if string(password) != string(confirm) {
		return fmt.Errorf("passwords do not match")
	}

	hash, err := auth.HashPassword(string(password))
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := store.CreateUser(ctx, username, hash, isAdmin); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	roleStr := "user"
	if isAdmin {
		roleStr = "admin"
	}
	fmt.Printf("User '%s' created successfully (role: %s)\n", username, roleStr)
	return nil
}

func cmdUserRemove(ctx context.Context, store *storage.Store, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: cs2watch user remove <username>")
	}
	username := args[0]

	if err := store.DeleteUser(ctx, username); err != nil {
		return fmt.Errorf("failed to remove user: %w", err)
	}

	fmt.Printf("User '%s' removed\n", username)
	return nil
}

func cmdUserList(ctx context.Context, store *storage.Store) error {
	users, err := store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	if len(users) == 0 {
		fmt.Println("No users configured")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USERNAME\tROLE\tLAST_LOGIN")
	fmt.Fprintln(w, "--------\t----\t----------")

	for _, user := range users {
		role := "user"
		if user.IsAdmin {
			role = "admin"
		}
		lastLogin := "never"
		if user.LastLogin != nil {
			lastLogin = user.LastLogin.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", user.Username, role, lastLogin)
	}
	return w.Flush()
}

func getJSON(path string, target interface{}) error {
	url := baseURL + path
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(target)
}

func formatTime(isoTime string) string {
	t, err := time.Parse(time.RFC3339, isoTime)
	if err != nil {
		if idx := strings.Index(isoTime, "T"); idx != -1 {
			return isoTime[:idx] + " " + strings.TrimSuffix(isoTime[idx+1:], "Z")
		}
		return isoTime
	}
	return t.Local().Format("2006-01-02 15:04")
}
