// ABOUTME: Entry point for the agentq dispatcher daemon
// ABOUTME: Runs the job queue workers, HITL coordinator, and HTTP API

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/porterhq/agentq/internal/auth"
	"github.com/porterhq/agentq/internal/channel"
	"github.com/porterhq/agentq/internal/config"
	"github.com/porterhq/agentq/internal/dispatcher"
	"github.com/porterhq/agentq/internal/engine"
	"github.com/porterhq/agentq/internal/hitl"
	"github.com/porterhq/agentq/internal/message"
	"github.com/porterhq/agentq/internal/metrics"
	"github.com/porterhq/agentq/internal/plugins"
	"github.com/porterhq/agentq/internal/queue"
	"github.com/porterhq/agentq/internal/server"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                          _
  __ _  __ _  ___ _ __ | |_ __ _
 / _' |/ _' |/ _ \ '_ \| __/ _' |
| (_| | (_| |  __/ | | | || (_| |
 \__,_|\__, |\___|_| |_|\__\__, |
       |___/                  |_|
`

// getConfigPath returns the path to the agentq config file.
// Priority: AGENTQ_CONFIG env var > XDG_CONFIG_HOME/agentq/config.yaml > ~/.config/agentq/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("AGENTQ_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "agentq", "config.yaml")
}

// getDataPath returns the path to the agentq data directory.
// Priority: XDG_DATA_HOME/agentq > ~/.local/share/agentq
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "agentq")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: agentq <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                    Start the dispatcher")
		fmt.Println("  init                     Create a new config file interactively")
		fmt.Println("  enqueue --agent NAME     Submit a job from the command line")
		fmt.Println("  agents                   List configured agents")
		fmt.Println("  health                   Check dispatcher health")
		fmt.Println("  hashpw                   Hash a password for basic auth config")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "enqueue":
		err = runEnqueue(ctx)
	case "agents":
		err = runAgents(ctx)
	case "health":
		err = runHealth(ctx)
	case "hashpw":
		err = runHashPassword()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)

	// Startup info
	green := color.New(color.FgGreen)

	green.Print("    ▶ ")
	fmt.Printf("Config:  %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Queue:   %s\n", queueDescription(cfg.Queue))
	if cfg.Server.HTTPAddr != "" {
		green.Print("    ▶ ")
		fmt.Printf("HTTP:    %s\n", cfg.Server.HTTPAddr)
	}
	if cfg.Metrics.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Metrics: %s\n", cfg.Metrics.Addr)
	}
	fmt.Println()

	// Queue engine
	queues, err := openQueueEngine(ctx, cfg.Queue)
	if err != nil {
		return fmt.Errorf("opening queue engine: %w", err)
	}
	defer queues.Close()

	// Agent plugins
	if cfg.Plugins.Dir != "" {
		defs, err := plugins.Discover(cfg.Plugins.Dir, logger)
		if err != nil {
			return fmt.Errorf("discovering agent plugins: %w", err)
		}
		plugins.Merge(cfg, defs, logger)
	}
	if len(cfg.Agents) == 0 {
		return fmt.Errorf("no agents configured")
	}

	// Reply channel registry
	channels, err := buildRegistry(queues, cfg.Channels)
	if err != nil {
		return fmt.Errorf("building channel registry: %w", err)
	}

	// Metrics
	var m *metrics.Metrics
	var reg *prometheus.Registry
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.MustNew(reg)
	}

	// HITL coordinator
	approvals := hitl.New(queues, hitlDefaults(cfg.DefaultHITL), logger)
	approvals.SetMetrics(m)

	// Execution engine
	eng := engine.NewCommandEngine(cfg.Engine.Command, cfg.Engine.Args)
	if cfg.Engine.Dir != "" {
		eng.SetDir(cfg.Engine.Dir)
	}
	if len(cfg.Engine.Env) > 0 {
		eng.SetEnv(cfg.Engine.Env)
	}

	// Dispatcher
	d := dispatcher.New(queues, eng, channels, approvals, dispatcher.Config{
		Agents:       agentSpecs(cfg.Agents, cfg.DefaultHITL),
		PollInterval: cfg.Queue.PollInterval,
	}, m, logger)

	logger.Info("starting agentq",
		"config", configPath,
		"queue", queueDescription(cfg.Queue),
		"agents", len(cfg.Agents),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return d.Run(ctx)
	})

	if cfg.Server.HTTPAddr != "" {
		srv := server.New(queues, cfg.Agents, authMiddleware(cfg.Server.Auth), logger)
		g.Go(func() error {
			return srv.Run(ctx, cfg.Server.HTTPAddr)
		})
	}

	if cfg.Metrics.Enabled {
		g.Go(func() error {
			return serveMetrics(ctx, cfg.Metrics.Addr, reg, logger)
		})
	}

	return g.Wait()
}

func queueDescription(cfg config.QueueConfig) string {
	if cfg.Driver == "redis" {
		return "redis " + cfg.RedisAddr
	}
	return "sqlite " + cfg.Path
}

func openQueueEngine(ctx context.Context, cfg config.QueueConfig) (queue.Engine, error) {
	if cfg.Driver == "redis" {
		return queue.NewRedisEngine(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("creating queue directory: %w", err)
	}
	return queue.NewSQLiteEngine(cfg.Path)
}

func buildRegistry(queues queue.Engine, cfg config.ChannelsConfig) (*channel.Registry, error) {
	registry := channel.NewRegistry()
	registry.Register(channel.NewQueueFactory(queues))
	registry.Register(channel.NewWebhookFactory(cfg.Webhook.Timeout, cfg.Webhook.Headers))

	if cfg.Discord.Enabled {
		discord, err := channel.NewDiscordFactory(cfg.Discord.Token)
		if err != nil {
			return nil, fmt.Errorf("creating discord channel: %w", err)
		}
		registry.Register(discord)
	}

	return registry, nil
}

func hitlDefaults(cfg *config.HITLConfig) hitl.Defaults {
	if cfg == nil {
		return hitl.Defaults{}
	}
	return hitl.Defaults{
		ApprovalTimeout: cfg.ApprovalTimeout,
		OnTimeout:       hitl.OnTimeout(cfg.OnTimeout),
	}
}

// agentSpecs converts the configured agents into dispatcher specs. An agent
// without its own HITL section inherits the module default policy.
func agentSpecs(agents map[string]config.AgentConfig, defaultHITL *config.HITLConfig) map[string]dispatcher.AgentSpec {
	specs := make(map[string]dispatcher.AgentSpec, len(agents))
	for name, a := range agents {
		hitlCfg := a.HITL
		if hitlCfg == nil {
			hitlCfg = defaultHITL
		}
		specs[name] = dispatcher.AgentSpec{
			Model:        a.Model,
			SystemPrompt: a.SystemPrompt,
			MaxTurns:     a.MaxTurns,
			AllowedTools: a.AllowedTools,
			HITL:         hitlPolicy(hitlCfg),
		}
	}
	return specs
}

func hitlPolicy(cfg *config.HITLConfig) *hitl.Policy {
	if cfg == nil {
		return nil
	}
	return &hitl.Policy{
		AutoApprove:     cfg.AutoApprove,
		RequireApproval: cfg.RequireApproval,
		ApprovalTimeout: cfg.ApprovalTimeout,
		OnTimeout:       hitl.OnTimeout(cfg.OnTimeout),
	}
}

func authMiddleware(cfg config.AuthConfig) func(http.Handler) http.Handler {
	var verifier auth.TokenVerifier
	if cfg.JWTSecret != "" {
		verifier = auth.NewJWTVerifier([]byte(cfg.JWTSecret))
	}
	basic := auth.BasicCredentials{
		Username:     cfg.BasicUser,
		PasswordHash: cfg.BasicPasswordHash,
	}
	if verifier == nil && basic.Username == "" {
		return nil
	}
	return auth.Middleware(verifier, basic)
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	}
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

// runEnqueue submits a job straight onto an agent's request queue, bypassing
// the HTTP API. Useful for local testing and cron-style producers.
func runEnqueue(ctx context.Context) error {
	var agentName, prompt, replyTo, sessionID string
	var fork bool

	args := os.Args[2:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		next := func() (string, error) {
			if i+1 >= len(args) {
				return "", fmt.Errorf("%s requires a value", arg)
			}
			i++
			return args[i], nil
		}

		var err error
		switch arg {
		case "--agent", "-a":
			agentName, err = next()
		case "--prompt", "-p":
			prompt, err = next()
		case "--reply-to", "-r":
			replyTo, err = next()
		case "--session":
			sessionID, err = next()
		case "--fork":
			fork = true
		default:
			return fmt.Errorf("unknown flag: %s", arg)
		}
		if err != nil {
			return err
		}
	}

	if agentName == "" {
		return fmt.Errorf("--agent flag is required")
	}
	if prompt == "" {
		// Read the prompt from stdin when not given as a flag
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading prompt from stdin: %w", err)
		}
		prompt = strings.TrimSpace(string(data))
	}
	if prompt == "" {
		return fmt.Errorf("--prompt flag or stdin input is required")
	}
	if replyTo == "" {
		replyTo = "queue://claude.responses"
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	queues, err := openQueueEngine(ctx, cfg.Queue)
	if err != nil {
		return fmt.Errorf("opening queue engine: %w", err)
	}
	defer queues.Close()

	req := message.AgentJobRequest{
		AgentName:     agentName,
		Prompt:        prompt,
		CorrelationID: uuid.NewString(),
		SessionID:     sessionID,
		ForkSession:   fork,
		ReplyTo:       replyTo,
		CreatedAt:     time.Now().UTC(),
	}
	if err := req.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding job: %w", err)
	}

	queueName := message.RequestQueue(agentName)
	jobID, err := queues.Send(ctx, queueName, payload, nil)
	if err != nil {
		return fmt.Errorf("enqueueing job: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Print("  ✓ ")
	fmt.Printf("Enqueued on %s\n", queueName)
	fmt.Printf("  Job ID:         %s\n", jobID)
	fmt.Printf("  Correlation ID: %s\n", req.CorrelationID)
	fmt.Printf("  Reply to:       %s\n", replyTo)
	return nil
}

func runAgents(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL(cfg.Server.HTTPAddr, "/v1/agents"), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("agents request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	fmt.Println(string(body))
	return nil
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL(cfg.Server.HTTPAddr, "/healthz/ready"), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unhealthy: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	fmt.Println("healthy")
	return nil
}

// apiURL builds a URL against the configured HTTP address, defaulting the
// host to localhost when the address is a bare port.
func apiURL(addr, path string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr + path
	}
	return "http://" + addr + path
}

func runHashPassword() error {
	fmt.Print("Password: ")
	reader := bufio.NewReader(os.Stdin)
	password, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	password = strings.TrimRight(password, "\r\n")
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	fmt.Println(hash)
	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("agentq configuration setup")
	fmt.Println("==========================")
	fmt.Println()

	// Default paths
	defaultConfigPath := getConfigPath()
	defaultDataPath := getDataPath()
	defaultDbPath := filepath.Join(defaultDataPath, "queue.db")

	// Output filename
	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	// Check if file exists
	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	// Queue
	fmt.Println("\n--- Queue Configuration ---")
	driver := prompt(reader, "Queue driver (sqlite/redis)", "sqlite")
	var dbPath, redisAddr string
	if strings.ToLower(driver) == "redis" {
		driver = "redis"
		redisAddr = prompt(reader, "Redis address", "localhost:6379")
	} else {
		driver = "sqlite"
		dbPath = prompt(reader, "SQLite database path", defaultDbPath)
	}

	// Engine
	fmt.Println("\n--- Engine Configuration ---")
	engineCmd := prompt(reader, "Agent engine command", "claude")

	// Server
	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP API address (empty to disable)", ":8080")

	var jwtSecret string
	if httpAddr != "" {
		secretBytes := make([]byte, 32)
		if _, err := rand.Read(secretBytes); err != nil {
			return fmt.Errorf("generating JWT secret: %w", err)
		}
		jwtSecret = base64.StdEncoding.EncodeToString(secretBytes)
	}

	// Logging
	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	// Generate config
	var cfg strings.Builder
	cfg.WriteString("# agentq configuration\n")
	cfg.WriteString("# Generated by agentq init\n\n")

	if httpAddr != "" {
		cfg.WriteString("server:\n")
		cfg.WriteString(fmt.Sprintf("  http_addr: \"%s\"\n", httpAddr))
		cfg.WriteString("  auth:\n")
		cfg.WriteString(fmt.Sprintf("    jwt_secret: \"%s\"\n", jwtSecret))
		cfg.WriteString("\n")
	}

	cfg.WriteString("queue:\n")
	cfg.WriteString(fmt.Sprintf("  driver: \"%s\"\n", driver))
	if driver == "redis" {
		cfg.WriteString(fmt.Sprintf("  redis_addr: \"%s\"\n", redisAddr))
	} else {
		cfg.WriteString(fmt.Sprintf("  path: \"%s\"\n", dbPath))
	}
	cfg.WriteString("  poll_interval: \"1s\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("engine:\n")
	cfg.WriteString(fmt.Sprintf("  command: \"%s\"\n", engineCmd))
	cfg.WriteString("\n")

	cfg.WriteString("agents:\n")
	cfg.WriteString("  assistant:\n")
	cfg.WriteString("    system_prompt: \"You are a helpful assistant.\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("default_hitl:\n")
	cfg.WriteString("  require_approval: [\"Bash*\"]\n")
	cfg.WriteString("  on_timeout: \"deny\"\n")
	cfg.WriteString("  approval_timeout: \"5m\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: \"%s\"\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: \"%s\"\n", logFormat))
	cfg.WriteString("\n")

	cfg.WriteString("metrics:\n")
	cfg.WriteString("  enabled: false\n")
	cfg.WriteString("  addr: \":9090\"\n")

	// Ensure config directory exists
	configDir := filepath.Dir(outputFile)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// Write config file
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	if driver == "sqlite" {
		dataDir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nTo start the dispatcher:")
	fmt.Printf("  agentq serve\n")

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
