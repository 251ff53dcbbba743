// Command agentwerk runs tasks against a locally-hosted language model:
// one-shot from the command line, interactively in a terminal session, or as
// a localhost control-plane server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/codefionn/agentwerk/internal/buildinfo"
	"github.com/codefionn/agentwerk/internal/config"
	"github.com/codefionn/agentwerk/internal/knowledge"
	"github.com/codefionn/agentwerk/internal/llm"
	"github.com/codefionn/agentwerk/internal/logging"
	"github.com/codefionn/agentwerk/internal/memory"
	"github.com/codefionn/agentwerk/internal/orchestrator"
	"github.com/codefionn/agentwerk/internal/plugin"
	"github.com/codefionn/agentwerk/internal/sandbox"
	"github.com/codefionn/agentwerk/internal/secrets"
	"github.com/codefionn/agentwerk/internal/task"
	"github.com/codefionn/agentwerk/internal/tools"
	"github.com/codefionn/agentwerk/internal/tui"
	"github.com/codefionn/agentwerk/internal/web"
)

// Exit codes distinguish the terminal states: the iteration cap is not a
// failure, so callers can tell partial progress from a broken run.
const (
	exitCompleted     = 0
	exitFailed        = 1
	exitMaxIterations = 2
)

const (
	defaultModel        = "llama3.2"
	maxPasswordAttempts = 3
	pluginCallTimeout   = 60 * time.Second
)

type cliOptions struct {
	prompt        string
	interactive   bool
	serve         bool
	model         string
	configPath    string
	maxIterations int
	debug         bool
	noSandbox     bool
	version       bool
}

func main() {
	// The hidden sandbox helper bypasses normal argument parsing: it is
	// only ever invoked by the shell tool's re-exec.
	if len(os.Args) > 1 && os.Args[1] == sandbox.ExecMode {
		os.Exit(runSandboxExec(os.Args[2:]))
	}

	code, err := run(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitFailed)
	}
	os.Exit(code)
}

func parseArgs(args []string) (cliOptions, error) {
	var opts cliOptions

	fs := flag.NewFlagSet(buildinfo.AppName, flag.ContinueOnError)
	fs.StringVar(&opts.prompt, "p", "", "task prompt (positional arguments work too)")
	fs.BoolVar(&opts.interactive, "i", false, "interactive terminal session")
	fs.BoolVar(&opts.serve, "serve", false, "run the localhost control plane")
	fs.StringVar(&opts.model, "model", "", "use this model for every task, skipping selection")
	fs.StringVar(&opts.configPath, "config", "", "config file path")
	fs.IntVar(&opts.maxIterations, "max-iterations", 0, "override the round cap per task")
	fs.BoolVar(&opts.debug, "debug", false, "debug logging")
	fs.BoolVar(&opts.noSandbox, "no-sandbox", false, "disable command sandboxing")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.prompt == "" {
		opts.prompt = strings.TrimSpace(strings.Join(fs.Args(), " "))
	}
	return opts, nil
}

func run(args []string) (int, error) {
	opts, err := parseArgs(args)
	if err != nil {
		return exitFailed, err
	}
	if opts.version {
		fmt.Printf("%s %s\n", buildinfo.AppName, buildinfo.Version)
		return exitCompleted, nil
	}

	configPath := opts.configPath
	if configPath == "" {
		configPath = config.GetConfigPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return exitFailed, fmt.Errorf("load config: %w", err)
	}
	applyFlags(cfg, opts)

	secrets.Protect()
	defer secrets.Purge()

	if err := unlockSecrets(cfg); err != nil {
		return exitFailed, err
	}

	logger, err := buildLogger(cfg, opts.serve)
	if err != nil {
		return exitFailed, fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", buildinfo.Version),
		zap.String("config", configPath))

	client, err := buildClient(cfg)
	if err != nil {
		return exitFailed, err
	}

	store, err := memory.NewStore(cfg.MemoryDBPath)
	if err != nil {
		return exitFailed, fmt.Errorf("open memory store: %w", err)
	}
	defer store.Close()

	kb := openKnowledge(cfg, logger)
	if kb != nil {
		defer kb.Close()
	}

	registry, err := buildRegistry(cfg, store, logger)
	if err != nil {
		return exitFailed, fmt.Errorf("build tool catalog: %w", err)
	}

	deps := orchestrator.Deps{
		Client:    client,
		Registry:  registry,
		Memory:    store,
		Knowledge: knowledgeOrNil(kb),
		Logger:    logger,
	}
	loopCfg := orchestrator.Config{
		MaxIterations:  cfg.MaxIterations,
		PromptBudget:   cfg.PromptBudgetChars,
		OSInfo:         fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		FixedModel:     opts.model,
		ModelOverrides: typedOverrides(cfg.ModelOverrides),
		ModelOptions: llm.Options{
			Temperature: cfg.Temperature,
			NumPredict:  cfg.NumPredict,
		},
	}

	switch {
	case opts.serve:
		return runServe(cfg, deps, loopCfg, store, registry, logger)
	case opts.interactive || opts.prompt == "":
		return runInteractive(deps, loopCfg, logger)
	default:
		return runOneShot(deps, loopCfg, opts.prompt, logger)
	}
}

func applyFlags(cfg *config.Config, opts cliOptions) {
	if opts.debug {
		cfg.LogLevel = "debug"
	}
	if opts.noSandbox {
		cfg.DisableSandbox = true
	}
	if opts.maxIterations > 0 {
		cfg.MaxIterations = opts.maxIterations
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
}

// unlockSecrets prompts for the secrets password when the config carries
// encrypted fields. Without a terminal the encrypted values stay locked and
// the affected features degrade.
func unlockSecrets(cfg *config.Config) error {
	if !cfg.Secrets.PasswordSet {
		return nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "Warning: config has encrypted fields but stdin is not a terminal; they stay locked")
		return nil
	}

	for attempt := 1; attempt <= maxPasswordAttempts; attempt++ {
		fmt.Fprint(os.Stderr, "Secrets password: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		if err := cfg.ApplySecretsPassword(string(raw)); err == nil {
			return nil
		}
		fmt.Fprintln(os.Stderr, "Wrong password.")
	}
	return fmt.Errorf("failed to unlock secrets after %d attempts", maxPasswordAttempts)
}

func buildLogger(cfg *config.Config, serve bool) (*zap.Logger, error) {
	// The TUI owns the terminal, so interactive and one-shot modes log to
	// the state-dir file; serve mode logs to stderr.
	if serve {
		return logging.NewConsole(cfg.LogLevel), nil
	}
	return logging.New(cfg.LogLevel, cfg.LogPath)
}

func buildClient(cfg *config.Config) (llm.Client, error) {
	var (
		client llm.Client
		err    error
	)
	if cfg.OpenAICompat.BaseURL != "" {
		client, err = llm.NewOpenAICompatClient(cfg.OpenAICompat.BaseURL, cfg.OpenAICompat.APIKey, cfg.Model)
	} else {
		client, err = llm.NewOllamaClient(cfg.OllamaURL, cfg.Model,
			time.Duration(cfg.RequestTimeoutSecs)*time.Second,
			time.Duration(cfg.StallTimeoutSecs)*time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("build model client: %w", err)
	}
	if cfg.FallbackModel != "" {
		client = llm.WithFallback(client, cfg.FallbackModel)
	}
	return client, nil
}

func buildRegistry(cfg *config.Config, store *memory.Store, logger *zap.Logger) (*tools.Registry, error) {
	registry := tools.NewRegistry()
	err := tools.RegisterBuiltins(registry, tools.BuiltinConfig{
		WorkingDir:     cfg.WorkingDir,
		CommandTimeout: time.Duration(cfg.CommandTimeoutSecs) * time.Second,
		DisableSandbox: cfg.DisableSandbox,
		Memory:         store,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	// Plugin names colliding with builtins fail the duplicate rule; the
	// plugin is skipped, not the startup.
	for _, p := range plugin.LoadDir(cfg.PluginDir, pluginCallTimeout, logger) {
		if err := registry.Register(p); err != nil {
			logger.Warn("skipping plugin tool",
				zap.String("tool", p.Spec().Name),
				zap.Error(err))
		}
	}
	return registry, nil
}

func openKnowledge(cfg *config.Config, logger *zap.Logger) *knowledge.Index {
	if cfg.KnowledgeDir == "" {
		return nil
	}
	kb, err := knowledge.NewIndex(cfg.MemoryDBPath, cfg.KnowledgeDir, logger)
	if err != nil {
		logger.Warn("knowledge base unavailable", zap.Error(err))
		return nil
	}
	if err := kb.Watch(); err != nil {
		logger.Warn("knowledge watcher unavailable", zap.Error(err))
	}
	return kb
}

// knowledgeOrNil keeps the orchestrator's nil check meaningful: a nil
// *Index in a non-nil interface would not compare equal to nil.
func knowledgeOrNil(kb *knowledge.Index) orchestrator.Knowledge {
	if kb == nil {
		return nil
	}
	return kb
}

func typedOverrides(raw map[string]string) map[task.Type]string {
	if len(raw) == 0 {
		return nil
	}
	overrides := make(map[task.Type]string, len(raw))
	for k, v := range raw {
		overrides[task.Type(k)] = v
	}
	return overrides
}

func runServe(cfg *config.Config, deps orchestrator.Deps, loopCfg orchestrator.Config,
	store *memory.Store, registry *tools.Registry, logger *zap.Logger) (int, error) {

	hub := web.NewHub(logger)
	deps.Events = hub
	loop := orchestrator.New(deps, loopCfg)

	server, err := web.NewServer(web.Options{
		Addr:      cfg.Serve.Addr,
		AuthToken: cfg.Serve.AuthToken,
		Runner:    loop,
		Store:     store,
		Registry:  registry,
		Hub:       hub,
		Logger:    logger,
	})
	if err != nil {
		return exitFailed, fmt.Errorf("build control plane: %w", err)
	}
	if err := server.Start(); err != nil {
		return exitFailed, err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))

	if err := server.Stop(); err != nil {
		return exitFailed, fmt.Errorf("shutdown: %w", err)
	}
	return exitCompleted, nil
}

func runInteractive(deps orchestrator.Deps, loopCfg orchestrator.Config, logger *zap.Logger) (int, error) {
	relay := tui.NewRelay()
	deps.Events = relay
	loop := orchestrator.New(deps, loopCfg)

	if err := tui.Run(tui.Options{Loop: loop, Relay: relay, Logger: logger}); err != nil {
		return exitFailed, fmt.Errorf("terminal session: %w", err)
	}
	return exitCompleted, nil
}

func runOneShot(deps orchestrator.Deps, loopCfg orchestrator.Config, prompt string, logger *zap.Logger) (int, error) {
	deps.Events = progressEvents{out: os.Stderr, enabled: term.IsTerminal(int(os.Stderr.Fd()))}
	loop := orchestrator.New(deps, loopCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run := loop.Run(ctx, prompt)

	switch run.Status {
	case task.StatusCompleted:
		printAnswer(run.FinalAnswer)
		return exitCompleted, nil
	case task.StatusMaxIterationsReached:
		fmt.Fprintf(os.Stderr, "Stopped after %d rounds without a final answer.\n", run.IterationCount)
		printRecordSummary(run)
		return exitMaxIterations, nil
	default:
		fmt.Fprintf(os.Stderr, "Run failed: %s\n", run.FailureReason)
		printRecordSummary(run)
		return exitFailed, nil
	}
}

// printAnswer writes the final answer, markdown-rendered when stdout is a
// terminal and plain for pipes.
func printAnswer(answer string) {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err == nil {
			if out, renderErr := renderer.Render(answer); renderErr == nil {
				fmt.Print(out)
				return
			}
		}
	}
	fmt.Println(answer)
}

// printRecordSummary lists what the run attempted, so a capped or failed
// run is still diagnosable.
func printRecordSummary(run *task.Run) {
	if len(run.Records) == 0 {
		fmt.Fprintln(os.Stderr, "No tools were executed.")
		return
	}
	fmt.Fprintln(os.Stderr, "Attempted tool calls:")
	for _, rec := range run.Records {
		status := "ok"
		detail := firstLine(rec.Result)
		if rec.IsError() {
			status = "error"
			detail = firstLine(rec.Error)
		}
		fmt.Fprintf(os.Stderr, "  %2d. %-16s %-5s %s\n", rec.SequenceIndex+1, rec.ToolName, status, detail)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 100 {
		s = s[:100] + "..."
	}
	return s
}

// progressEvents echoes tool activity to stderr during a one-shot run so a
// long task is not silent. Disabled for pipes.
type progressEvents struct {
	out     *os.File
	enabled bool
}

var _ orchestrator.Events = progressEvents{}

func (p progressEvents) RunStarted(run *task.Run) {
	if p.enabled {
		fmt.Fprintf(p.out, "[%s] model %s\n", run.TaskType, run.SelectedModel)
	}
}

func (p progressEvents) RoundStarted(_ string, round, maxRounds int) {
	if p.enabled {
		fmt.Fprintf(p.out, "-- round %d/%d\n", round, maxRounds)
	}
}

func (p progressEvents) Fragment(string, string) {}

func (p progressEvents) RecordAdded(_ string, rec task.ExecutionRecord) {
	if !p.enabled {
		return
	}
	if rec.IsError() {
		fmt.Fprintf(p.out, "   %s: %s\n", rec.ToolName, firstLine(rec.Error))
		return
	}
	fmt.Fprintf(p.out, "   %s: %s\n", rec.ToolName, firstLine(rec.Result))
}

func (p progressEvents) RunFinished(*task.Run) {}
