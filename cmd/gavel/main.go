// cmd/gavel/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/julianshen/gavel/internal/config"
	"github.com/julianshen/gavel/internal/evidence"
	"github.com/julianshen/gavel/internal/guard"
	"github.com/julianshen/gavel/internal/integrations"
	"github.com/julianshen/gavel/internal/logging"
	"github.com/julianshen/gavel/internal/output"
	"github.com/julianshen/gavel/internal/provider"
	"github.com/julianshen/gavel/internal/repo"
	"github.com/julianshen/gavel/internal/runner"
	"github.com/julianshen/gavel/internal/store"
	"github.com/julianshen/gavel/internal/verifier"

	// Register providers via init() side effects.
	_ "github.com/julianshen/gavel/internal/provider/anthropic"
	_ "github.com/julianshen/gavel/internal/provider/ollama"
	_ "github.com/julianshen/gavel/internal/provider/openai"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	configPath   string
	modelFlag    string
	providerFlag string
	verboseFlag  bool

	reportFlag   string
	codebaseFlag string
	batchFlag    string
	outputPoC    bool
	formatFlag   string
	noBanner     bool
	timeoutFlag  time.Duration
	failOnFlag   string
)

const reportFetchTimeout = 30 * time.Second

func versionString() string {
	return fmt.Sprintf("gavel %s (commit: %s, built: %s)", version, commit, date)
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "gavel",
		Short: "Verify vulnerability reports against a codebase",
		Long: `gavel triages vulnerability reports: it gathers the code a report points at,
asks a language model whether the claim holds, and prints a VALID or INVALID verdict.`,
		Example: `  gavel -r report.txt -c /path/to/project
  gavel -r report.txt -c https://github.com/user/repo
  gavel --batch reports/ -c /path/to/project --format json
  cat report.md | gavel -c . --output-poc`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVerify(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&modelFlag, "model", "", "model name or alias (opus-4.5, sonnet-4.5)")
	rootCmd.PersistentFlags().StringVar(&providerFlag, "provider", "", "provider name (auto, anthropic, openrouter, ollama, ...)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose logging")

	rootCmd.Flags().StringVarP(&reportFlag, "report", "r", "", "report file, URL, or - for stdin")
	rootCmd.Flags().StringVarP(&codebaseFlag, "codebase", "c", "", "codebase path or GitHub URL")
	rootCmd.Flags().StringVar(&batchFlag, "batch", "", "verify every report file in a directory")
	rootCmd.Flags().BoolVar(&outputPoC, "output-poc", false, "ask for a proof of concept for valid reports")
	rootCmd.Flags().StringVar(&formatFlag, "format", "text", "output format: text, json, markdown")
	rootCmd.Flags().BoolVar(&noBanner, "no-banner", false, "do not print the banner")
	rootCmd.Flags().DurationVar(&timeoutFlag, "timeout", 10*time.Minute, "overall time limit (0 for none)")
	rootCmd.Flags().StringVar(&failOnFlag, "fail-on", "", "exit 1 if any verdict matches: valid, invalid, error")
	_ = rootCmd.MarkFlagRequired("codebase")
	rootCmd.MarkFlagsMutuallyExclusive("report", "batch")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(versionString())
		},
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(historyCmd())

	if err := rootCmd.Execute(); err != nil {
		var exitErr *runner.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Code == runner.ExitInterrupted {
				fmt.Fprintln(os.Stderr, "\nInterrupted by user")
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "gavel"), nil
}

func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	cfgPath := configPath
	if cfgPath == "" {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		cfgPath = filepath.Join(dir, "config.toml")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if modelFlag != "" {
		cfg.Provider.Model = modelFlag
	}
	if providerFlag != "" {
		cfg.Provider.Default = providerFlag
	}

	return cfg, nil
}

// historyPath returns the configured history database, defaulting to
// history.db next to the config file.
func historyPath(cfg *config.Config) (string, error) {
	if cfg.History.Path != "" {
		return cfg.History.Path, nil
	}
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

func openHistory(cfg *config.Config) (*store.Store, error) {
	path, err := historyPath(cfg)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	s, err := store.NewStore(path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	return s, nil
}

// stdinIfPiped returns os.Stdin unless it is a terminal.
func stdinIfPiped() io.Reader {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}
	return os.Stdin
}

func runVerify(parent context.Context) error {
	if err := runner.ValidateFailOn(failOnFlag); err != nil {
		return err
	}
	formatter, err := output.New(formatFlag, os.Stdout)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := logging.New(verboseFlag)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeoutFlag > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeoutFlag)
		defer cancel()
	}

	if tf, ok := formatter.(*output.TextFormatter); ok && !noBanner && term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stdout, tf.Banner())
	}

	var source, text string
	if batchFlag == "" {
		source, text, err = runner.ResolveReport(ctx, reportFlag, stdinIfPiped(), integrations.NewHTTPFetcher(reportFetchTimeout))
		if err != nil {
			return err
		}
	}

	v, closeFn, err := newVerifier(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeFn()

	hr := runner.NewHeadlessRunner(v, formatter, os.Stdout, failOnFlag, log)
	if batchFlag != "" {
		return hr.RunBatch(ctx, batchFlag, codebaseFlag)
	}
	return hr.Run(ctx, source, text, codebaseFlag)
}

// newVerifier wires the provider, guard, evidence locator, repository
// cache and optional history into a Verifier. The returned func releases
// what was opened.
func newVerifier(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*verifier.Verifier, func(), error) {
	closeFn := func() {}
	log = logging.OrNop(log)

	p, err := provider.NewProvider(cfg)
	if err != nil {
		return nil, closeFn, fmt.Errorf("creating provider: %w", err)
	}
	providerName := provider.Resolve(cfg)
	model := provider.ResolveModel(providerName, cfg.Provider.Model)
	log.Infow("using provider", "provider", providerName, "model", model)

	g := guard.New(nil)
	if cfg.Guard.CatalogFile != "" {
		catalog, err := guard.LoadCatalogOverlay(cfg.Guard.CatalogFile)
		if err != nil {
			return nil, closeFn, fmt.Errorf("loading guard catalog: %w", err)
		}
		g = guard.New(catalog)
	}

	reader := evidence.NewReader(cfg.Pipeline.MaxLines, cfg.Pipeline.MaxFileBytes)
	locator := evidence.NewLocator(ctx,
		evidence.WithReader(reader),
		evidence.WithMaxFiles(cfg.Pipeline.MaxFiles),
		evidence.WithLogger(log),
	)

	opts := []verifier.Option{
		verifier.WithGuard(g),
		verifier.WithLocator(locator),
		verifier.WithRepoFetcher(repo.NewFetcher(cfg.Repo.CacheDir, cfg.Repo.CloneTimeout.Duration, log)),
		verifier.WithLogger(log),
	}
	if batchFlag != "" {
		if l := verifier.NewBatchLimiter(cfg.Batch.RequestsPerMinute); l != nil {
			opts = append(opts, verifier.WithLimiter(l))
		}
	}
	if cfg.History.Enabled {
		s, err := openHistory(cfg)
		if err != nil {
			return nil, closeFn, err
		}
		closeFn = func() { s.Close() }
		opts = append(opts, verifier.WithHistory(s))
	}

	v := verifier.New(integrations.NewLLMCompleter(p, model, log), verifier.Config{
		Model:          model,
		WithPoC:        outputPoC,
		MaxInputLength: cfg.Pipeline.MaxInputLength,
		MaxPromptChars: cfg.Pipeline.MaxPromptChars,
		Aggressive:     cfg.Pipeline.Aggressive,
	}, opts...)
	return v, closeFn, nil
}
