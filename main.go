// Command tacticsgrid runs turn-based grid battles.
//
// It has three commands:
//  1. "serve" (default) runs the HTTP server exposing the REST API, WebSocket
//     updates and an /mcp HTTP endpoint
//  2. "mcp" runs an MCP stdio server, reusing a running API server or
//     starting an internal one
//  3. "validate" checks every scenario file in the config directory
//
// Flags fall back to environment variables, and a .env file is loaded first
// when present. An optional ngrok tunnel gives the server a public URL.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/mcp-training/tacticsgrid/api"
	"github.com/wricardo/mcp-training/tacticsgrid/game/config"
	"github.com/wricardo/mcp-training/tacticsgrid/game/engine"
	"github.com/wricardo/mcp-training/tacticsgrid/game/service"
	"github.com/wricardo/mcp-training/tacticsgrid/game/session"
	"github.com/wricardo/mcp-training/tacticsgrid/transport/mcp"
	"github.com/wricardo/mcp-training/tacticsgrid/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Tactics Grid Server"
)

const (
	cleanupInterval = time.Hour
	syncInterval    = 5 * time.Second
)

func main() {
	// A missing .env file is fine
	envErr := godotenv.Load()

	app := newApp()
	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", app.Name, err)
		os.Exit(1)
	}
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: failed to load .env: %v\n", envErr)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "tacticsgrid",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Value:   "localhost",
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("HOST"),
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "directory containing battle scenarios",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "sessions-dir",
				Value:   "sessions",
				Usage:   "directory where sessions are persisted",
				Sources: cli.EnvVars("SESSIONS_DIR"),
			},
			&cli.DurationFlag{
				Name:    "session-ttl",
				Value:   24 * time.Hour,
				Usage:   "evict sessions from memory after this long without access",
				Sources: cli.EnvVars("SESSION_TTL"),
			},
			&cli.Uint64Flag{
				Name:    "seed",
				Usage:   "seed for turn order and enemy moves (0 picks one per battle)",
				Sources: cli.EnvVars("BATTLE_SEED"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "enable debug logging",
				Sources: cli.EnvVars("DEBUG"),
			},
		},
		Action: runServe,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server with REST API, WebSocket and MCP endpoint",
				Action: runServe,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "ngrok",
						Usage:   "expose the server through an ngrok tunnel",
						Sources: cli.EnvVars("NGROK_ENABLED"),
					},
					&cli.StringFlag{
						Name:    "ngrok-auth",
						Usage:   "ngrok auth token",
						Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
					},
					&cli.StringFlag{
						Name:    "ngrok-domain",
						Usage:   "custom ngrok domain",
						Sources: cli.EnvVars("NGROK_DOMAIN"),
					},
				},
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "run an MCP stdio server",
				Action:  runStdioMCP,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-url",
						Value:   "http://localhost:8080",
						Usage:   "REST API to proxy; an internal server is started when it is unreachable",
						Sources: cli.EnvVars("API_URL"),
					},
				},
			},
			{
				Name:   "validate",
				Usage:  "validate every scenario in the config directory",
				Action: runValidate,
			},
		},
	}
}

// newLogger writes human-readable logs to w
func newLogger(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

// services bundles the wired managers behind the battle service
type services struct {
	configs     *config.Manager
	sessions    *session.Manager
	persistence *session.FilePersistence
	battle      service.BattleService
}

// initializeServices wires the config and session managers and the battle
// service, then loads persisted sessions
func initializeServices(configDir, sessionsDir string, seed uint64, log zerolog.Logger) (*services, error) {
	configManager, err := config.NewManager(configDir, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	opts := []engine.Option{engine.WithLogger(log)}
	if seed != 0 {
		opts = append(opts, engine.WithSeed(seed))
	}

	persistence, err := session.NewFilePersistence(sessionsDir, configManager, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessionManager := session.NewManagerWithPersistence(persistence, log, opts...)
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.Warn().Err(err).Msg("failed to load persisted sessions")
	}

	return &services{
		configs:     configManager,
		sessions:    sessionManager,
		persistence: persistence,
		battle:      service.NewBattleService(sessionManager, configManager, log),
	}, nil
}

func servicesFromCommand(cmd *cli.Command, log zerolog.Logger) (*services, error) {
	return initializeServices(cmd.String("config-dir"), cmd.String("sessions-dir"), cmd.Uint64("seed"), log)
}

// runServe starts the HTTP server and blocks until SIGINT or SIGTERM
func runServe(ctx context.Context, cmd *cli.Command) error {
	log := newLogger(os.Stderr, cmd.Bool("debug"))
	log.Info().Str("version", Version).Msg("starting " + AppName)

	svc, err := servicesFromCommand(cmd, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sessionCleanupRoutine(ctx, svc.sessions, cleanupInterval, cmd.Duration("session-ttl"))
	go filesystemSyncRoutine(ctx, svc.sessions, svc.persistence, syncInterval, log)

	hub := websocket.NewHub(log)
	go hub.Run(ctx)

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))
	handler := newRootHandler(api.NewServer(svc.battle, hub, log), mcp.NewClient("http://"+addr))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	errc := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		log.Info().Msgf("REST API: http://%s/api", addr)
		log.Info().Msgf("WebSocket: ws://%s/ws?session=<session_id>", addr)
		log.Info().Msgf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	if cmd.Bool("ngrok") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"), handler, log)
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case runErr = <-errc:
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	wg.Wait()

	if err := svc.sessions.SaveAllSessions(); err != nil {
		log.Error().Err(err).Msg("failed to save sessions on shutdown")
	}
	log.Info().Msg("server stopped")
	return runErr
}

// newRootHandler mounts the REST API at / and a JSON-RPC MCP endpoint at /mcp
func newRootHandler(apiServer http.Handler, mcpClient *mcp.Client) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", apiServer)
	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	})
	return mux
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, authToken, domain string, handler http.Handler, log zerolog.Logger) {
	if authToken == "" {
		log.Warn().Msg("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	tunnel := ngrokConfig.HTTPEndpoint()
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		log.Info().Str("domain", domain).Msg("using custom ngrok domain")
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.Error().Err(err).Msg("failed to start ngrok tunnel")
		return
	}

	url := tun.URL()
	log.Info().Str("url", url).Msg("ngrok tunnel established")
	log.Info().Msgf("REST API (ngrok): %s/api", url)
	log.Info().Msgf("MCP endpoint (ngrok): %s/mcp", url)

	srv := &http.Server{Handler: handler}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	if err := srv.Serve(tun); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("ngrok server error")
	}
	log.Info().Msg("ngrok tunnel closed")
}

// sessionCleanupRoutine evicts sessions idle for longer than maxAge
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			manager.CleanupExpiredSessions(maxAge)
		}
	}
}

// filesystemSyncRoutine drops sessions from memory whose files were deleted
// behind the server's back
func filesystemSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence, interval time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruneOrphans(manager, persistence, log)
		}
	}
}

func pruneOrphans(manager *session.Manager, persistence session.SessionPersistence, log zerolog.Logger) int {
	pruned := 0
	for _, sess := range manager.List() {
		if persistence.Exists(sess.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(sess.ID); err == nil {
			pruned++
			log.Info().Str("session", sess.ID).Msg("pruned session from memory (file deleted)")
		}
	}
	return pruned
}

// runStdioMCP serves MCP over stdio. It proxies to --api-url when that
// server answers, otherwise it starts an internal API on a loopback port.
// Logs go to stderr because stdout carries the protocol.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	log := newLogger(os.Stderr, cmd.Bool("debug"))

	baseURL := cmd.String("api-url")
	if !apiAvailable(baseURL) {
		log.Info().Str("api_url", baseURL).Msg("no external API server found, starting internal HTTP server")

		svc, err := servicesFromCommand(cmd, log)
		if err != nil {
			return err
		}

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		hub := websocket.NewHub(log)
		go hub.Run(ctx)

		httpServer := &http.Server{Handler: api.NewServer(svc.battle, hub, log)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("internal HTTP server error")
			}
		}()
		defer httpServer.Close()
		defer svc.sessions.SaveAllSessions()

		baseURL = "http://" + listener.Addr().String()
	}

	log.Info().Str("api_url", baseURL).Msg("MCP stdio server ready")
	return server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer())
}

func apiAvailable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// runValidate reports every scenario file and fails when any is invalid
func runValidate(ctx context.Context, cmd *cli.Command) error {
	log := newLogger(os.Stderr, cmd.Bool("debug"))
	configManager, err := config.NewManager(cmd.String("config-dir"), log)
	if err != nil {
		return err
	}

	results, err := configManager.ValidateAll()
	if err != nil {
		return err
	}
	return reportValidation(cmd.Root().Writer, results)
}

func reportValidation(w io.Writer, results []config.ValidationResult) error {
	invalid := 0
	for _, r := range results {
		if r.Err != nil {
			invalid++
			fmt.Fprintf(w, "✗ %s: %v\n", r.Filename, r.Err)
			continue
		}
		fmt.Fprintf(w, "✓ %s (config_id: %s)\n", r.Filename, r.ConfigID)
	}
	fmt.Fprintf(w, "\n%d scenarios, %d invalid\n", len(results), invalid)

	if invalid > 0 {
		return cli.Exit(fmt.Sprintf("%d invalid scenarios", invalid), 1)
	}
	return nil
}
