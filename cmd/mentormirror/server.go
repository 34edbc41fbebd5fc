package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/mentormirror/internal/api"
	"github.com/kalambet/mentormirror/internal/config"
	"github.com/kalambet/mentormirror/internal/events"
	"github.com/kalambet/mentormirror/internal/llm"
	"github.com/kalambet/mentormirror/internal/metrics"
	"github.com/kalambet/mentormirror/internal/pipeline"
	"github.com/kalambet/mentormirror/internal/scrape"
	"github.com/kalambet/mentormirror/internal/speech"
	"github.com/kalambet/mentormirror/internal/storage"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the mentormirror server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		stdio, _ := cmd.Flags().GetBool("mcp-stdio")
		return runServer(stdio)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running mentormirror server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show mentormirror status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	startCmd.Flags().Bool("mcp-stdio", false, "serve MCP over stdin/stdout instead of HTTP")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "mentormirror.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func setupLogging(cfg config.Config) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()})))
}

// newRegistry builds the language-model registry from configuration.
func newRegistry(cfg config.Config, m *metrics.Metrics) (*llm.Registry, error) {
	svc, err := llm.ParseService(cfg.LLM.DefaultService)
	if err != nil {
		return nil, fmt.Errorf("llm.default_service: %w", err)
	}
	return llm.NewRegistry(llm.Options{
		OpenAIKey:      cfg.Keys.OpenAI,
		GoogleKey:      cfg.Keys.Google,
		AnthropicKey:   cfg.Keys.Anthropic,
		OpenRouterKey:  cfg.Keys.OpenRouter,
		OllamaURL:      cfg.Ollama.BaseURL,
		DefaultService: svc,
		DefaultModel:   cfg.LLM.DefaultModel,
		Temperature:    cfg.LLM.Temperature,
		Timeout:        cfg.LLM.CapabilityTimeout(),
		Metrics:        m,
	}), nil
}

// newPublisher connects to NATS when events.nats_url is set. Events are
// optional, so a connection failure only disables them.
func newPublisher(cfg config.Config) events.Publisher {
	if cfg.Events.NATSURL == "" {
		return events.Noop{}
	}
	pub, err := events.NewNATSPublisher(cfg.Events.NATSURL, cfg.Keys.NATSToken, slog.Default())
	if err != nil {
		slog.Warn("events disabled", "error", err)
		return events.Noop{}
	}
	slog.Info("publishing events", "nats_url", cfg.Events.NATSURL)
	return pub
}

func newSpeechRenderer(cfg config.Config, m *metrics.Metrics) *speech.Renderer {
	if cfg.Keys.ElevenLabs == "" {
		slog.Info("speech disabled: no ElevenLabs API key")
		return speech.NewRenderer(nil, m, slog.Default())
	}
	return speech.NewRenderer(speech.NewElevenLabsClient(cfg.Keys.ElevenLabs, cfg.Speech.Model), m, slog.Default())
}

func runServer(mcpStdio bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg)
	slog.Info("mentormirror starting", "version", version)

	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("mentormirror is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("mentormirror is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.Storage.Driver, cfg.Storage.DataDir, cfg.Storage.DatabaseURL)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("closing storage", "error", err)
		}
	}()
	slog.Info("storage ready", "driver", cfg.Storage.Driver)

	m := metrics.New()
	registry, err := newRegistry(cfg, m)
	if err != nil {
		return err
	}
	publisher := newPublisher(cfg)
	defer publisher.Close()

	deps := api.Deps{
		Store:         store,
		Analyzer:      pipeline.NewAnalyzer(scrape.New(), registry, store, publisher, m, slog.Default()),
		LLM:           registry,
		Speech:        newSpeechRenderer(cfg, m),
		Metrics:       m,
		AllowedOrigin: cfg.Server.AllowedOrigin,
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: api.NewHandler(deps),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	mcpSrv := api.NewMCPServer(deps)
	var mcpHTTP *http.Server
	if mcpStdio {
		stdioSrv := server.NewStdioServer(mcpSrv)
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
		}()
		slog.Info("MCP server started (stdio transport)")
	} else {
		mcpAddr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.MCPPort)
		mcpHTTP = &http.Server{Addr: mcpAddr, Handler: server.NewStreamableHTTPServer(mcpSrv)}
		go func() {
			slog.Info("MCP server listening", "addr", mcpAddr, "path", "/mcp")
			if err := mcpHTTP.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("MCP server error", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("mentormirror listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if mcpHTTP != nil {
		if err := mcpHTTP.Shutdown(shutdownCtx); err != nil {
			slog.Warn("MCP server shutdown", "error", err)
		}
	}
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("mentormirror is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop mentormirror (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to mentormirror (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			running = true
			printStatus("Server", "running on port %d (MCP on %d)", cfg.Server.Port, cfg.Server.MCPPort)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	if running {
		c := &apiClient{baseURL: serverURL, httpClient: client}
		if resp, err := c.get(ctx, "/api/mentors"); err == nil {
			var mentors []mentorSummary
			if decodeJSON(resp, &mentors) == nil {
				printStatus("Mentors", "%d", len(mentors))
			}
		}
	}

	printStatus("Storage", "%s", cfg.Storage.Driver)
	printStatus("Default LLM", "%s / %s", cfg.LLM.DefaultService, cfg.LLM.DefaultModel)
	printStatus("Speech", "%s", configuredLabel(cfg.Keys.ElevenLabs != ""))
	printStatus("Events", "%s", configuredLabel(cfg.Events.NATSURL != ""))
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func configuredLabel(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}
