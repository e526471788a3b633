// Command game-server starts the Ludo game server.
//
// It supports three subcommands:
//  1. "serve" (default) – runs the HTTP server exposing the REST API, the
//     websocket gateway, and an /mcp HTTP endpoint
//  2. "mcp" – runs an MCP stdio server proxying to a running HTTP API
//  3. "token" – mints a development JWT for local testing
//
// Configuration comes from environment variables (optionally via a .env
// file); flags override the environment.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/ludoroyale/game-server/api"
	"github.com/ludoroyale/game-server/auth"
	"github.com/ludoroyale/game-server/game/config"
	"github.com/ludoroyale/game-server/game/service"
	"github.com/ludoroyale/game-server/game/session"
	"github.com/ludoroyale/game-server/ledger"
	"github.com/ludoroyale/game-server/transport/mcp"
	"github.com/ludoroyale/game-server/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Ludo Game Server"
)

// Config is the full server configuration, loaded from the environment.
type Config struct {
	Addr       string `env:"LUDO_ADDR"        envDefault:"localhost:8080"`
	RulesetDir string `env:"LUDO_RULESET_DIR" envDefault:"rulesets"`

	// Auth. When JWTSecret is empty the server falls back to insecure dev
	// auth where the bearer token is used as the player ID directly.
	JWTSecret string `env:"LUDO_JWT_SECRET"`

	// Ledger. Completed game results are posted here; empty disables it.
	LedgerURL    string `env:"LUDO_LEDGER_URL"`
	LedgerAPIKey string `env:"LUDO_LEDGER_API_KEY"`

	// Session sweeping.
	SweepInterval time.Duration `env:"LUDO_SWEEP_INTERVAL" envDefault:"1m"`
	IdleTimeout   time.Duration `env:"LUDO_IDLE_TIMEOUT"   envDefault:"30m"`
	Retention     time.Duration `env:"LUDO_RETENTION"      envDefault:"1h"`

	// Ngrok tunneling for external access during development.
	NgrokEnabled bool   `env:"NGROK_ENABLED"`
	NgrokAuth    string `env:"NGROK_AUTHTOKEN"`
	NgrokDomain  string `env:"NGROK_DOMAIN"`
}

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Println("Loaded environment variables from .env file")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("Failed to parse environment: %v", err)
	}

	cmd := &cli.Command{
		Name:    "game-server",
		Usage:   AppName,
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "HTTP listen address",
				Value:       cfg.Addr,
				Destination: &cfg.Addr,
			},
			&cli.StringFlag{
				Name:        "ruleset-dir",
				Usage:       "Directory containing custom rulesets",
				Value:       cfg.RulesetDir,
				Destination: &cfg.RulesetDir,
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			if c.Bool("debug") {
				log.SetFlags(log.LstdFlags | log.Lshortfile)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the HTTP server (REST API, websocket gateway, MCP endpoint)",
				Action: func(ctx context.Context, c *cli.Command) error {
					return runServer(ctx, &cfg)
				},
			},
			{
				Name:  "mcp",
				Usage: "Run an MCP stdio server proxying to a running HTTP API",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "api-url",
						Usage: "Base URL of the HTTP API",
						Value: "http://localhost:8080",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return runStdioMCP(c.String("api-url"))
				},
			},
			{
				Name:  "token",
				Usage: "Mint a development JWT for local testing",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "player", Usage: "Player ID", Required: true},
					&cli.StringFlag{Name: "name", Usage: "Display name"},
					&cli.DurationFlag{Name: "ttl", Usage: "Token lifetime", Value: 24 * time.Hour},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					if cfg.JWTSecret == "" {
						return fmt.Errorf("LUDO_JWT_SECRET is not set")
					}
					token, err := auth.Sign(cfg.JWTSecret, auth.Identity{
						PlayerID: c.String("player"),
						Name:     c.String("name"),
					}, c.Duration("ttl"))
					if err != nil {
						return err
					}
					fmt.Println(token)
					return nil
				},
			},
		},
		// Bare invocation serves.
		Action: func(ctx context.Context, c *cli.Command) error {
			return runServer(ctx, &cfg)
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// buildServer wires the registry, ruleset manager, ledger, service, hub, and
// API server together.
func buildServer(cfg *Config) (*api.Server, *session.Registry, error) {
	rulesets, err := config.NewManager(cfg.RulesetDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create ruleset manager: %w", err)
	}

	var notifier ledger.Notifier = ledger.Nop{}
	if cfg.LedgerURL != "" {
		notifier = ledger.NewHTTPNotifier(cfg.LedgerURL, cfg.LedgerAPIKey)
		log.Printf("Ledger notifications enabled: %s", cfg.LedgerURL)
	}

	var verifier auth.Verifier
	if cfg.JWTSecret != "" {
		verifier = auth.NewHMACVerifier(cfg.JWTSecret)
	} else {
		log.Println("WARNING: LUDO_JWT_SECRET not set, using insecure dev auth (token = player ID)")
		verifier = auth.Insecure{}
	}

	registry := session.NewRegistry()
	gameService := service.NewGameService(registry, rulesets, notifier)

	hub := websocket.NewHub(gameService, verifier)
	gameService.SetBroadcaster(hub)

	return api.NewServer(gameService, hub, verifier), registry, nil
}

// runServer starts the HTTP server and blocks until a shutdown signal.
func runServer(ctx context.Context, cfg *Config) error {
	log.Printf("Starting %s v%s", AppName, Version)

	apiServer, registry, err := buildServer(cfg)
	if err != nil {
		return err
	}
	defer registry.Close()

	// Background sweeper evicts idle lobbies and retains finished games for
	// one retention window.
	sweepDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if removed := registry.Sweep(cfg.IdleTimeout, cfg.Retention); removed > 0 {
					log.Printf("Swept %d expired sessions", removed)
				}
			case <-sweepDone:
				return
			}
		}
	}()
	defer close(sweepDone)

	// Mount the API plus an /mcp endpoint that proxies MCP-over-HTTP calls
	// through the same process.
	baseURL := fmt.Sprintf("http://%s", cfg.Addr)
	mcpClient := mcp.NewClient(baseURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
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

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("HTTP server listening on %s", cfg.Addr)
		log.Printf("REST API: http://%s/api", cfg.Addr)
		log.Printf("WebSocket: ws://%s/ws?session=<session_id>&token=<jwt>", cfg.Addr)
		log.Printf("MCP endpoint: http://%s/mcp", cfg.Addr)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	if cfg.NgrokEnabled {
		go runNgrokTunnel(serveCtx, cfg, mainRouter)
	}

	// Wait for shutdown signal or context cancellation.
	select {
	case sig := <-stop:
		log.Printf("Received signal: %v. Shutting down...", sig)
	case <-serveCtx.Done():
		log.Println("Context cancelled. Shutting down...")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Server stopped")
	return nil
}

// runNgrokTunnel provisions a public tunnel for the server during development.
func runNgrokTunnel(ctx context.Context, cfg *Config, handler http.Handler) {
	if cfg.NgrokAuth == "" {
		log.Println("WARNING: Ngrok enabled but NGROK_AUTHTOKEN not set")
		return
	}

	log.Println("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if cfg.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.NgrokDomain))
		log.Printf("Using custom ngrok domain: %s", cfg.NgrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.NgrokAuth))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}
	defer func() {
		if err := tun.Close(); err != nil {
			log.Printf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Printf("Ngrok tunnel established: %s", ngrokURL)
	log.Printf("  REST API (ngrok): %s/api", ngrokURL)
	log.Printf("  WebSocket (ngrok): %s/ws?session=<session_id>&token=<jwt>", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && err != http.ErrServerClosed {
		log.Printf("Ngrok server error: %v", err)
	}
	log.Println("Ngrok tunnel closed")
}

// runStdioMCP runs an MCP stdio server against a running HTTP API.
func runStdioMCP(apiURL string) error {
	// Fail fast when nothing is listening; stdio MCP is useless without the
	// API it proxies to.
	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(apiURL + "/healthz")
	if err != nil {
		return fmt.Errorf("no API server reachable at %s: %w", apiURL, err)
	}
	resp.Body.Close()

	log.Printf("MCP stdio server ready (proxying to %s)", apiURL)

	mcpClient := mcp.NewClient(apiURL)
	return mcpserver.ServeStdio(mcpClient.GetMCPServer())
}
