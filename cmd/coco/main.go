package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hession/coco/internal/cli"
	"github.com/hession/coco/internal/config"
	"github.com/hession/coco/internal/fetch"
	"github.com/hession/coco/internal/logger"
	"github.com/hession/coco/internal/retrieval"
	"github.com/hession/coco/internal/server"
	"github.com/hession/coco/internal/telemetry"
	"github.com/hession/coco/internal/websearch"
	"github.com/spf13/cobra"
)

var nowFunc = time.Now

// errHistoryDisabled is returned by history when telemetry.db_path is empty.
var errHistoryDisabled = errors.New("event history is disabled: telemetry.db_path is empty")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configDir string

	rootCmd := &cobra.Command{
		Use:   "coco",
		Short: "Coco - find a place to eat",
		Long: `Coco finds restaurants that match what you want to eat and where.

It:
  • Builds a search query from your answers
  • Collects results from a web search API
  • Drops aggregator and social sites
  • Visits every candidate and ranks the five most relevant`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if configDir != "" {
				config.SetConfigDir(configDir)
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ./config)")

	rootCmd.AddCommand(
		newSearchCmd(),
		newAskCmd(),
		newServeCmd(),
		newHistoryCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func newSearchCmd() *cobra.Command {
	var what, where, extra, user string

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run one search and print the ranked results",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			outcome, err := a.engine.Retrieve(ctx, retrieval.NewRequest(user, what, where, extra))
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), a.prompts.NoResults)
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatOutcome(outcome, a.prompts))
			return nil
		},
	}
	cmd.Flags().StringVar(&what, "what", "", "what you would like to eat")
	cmd.Flags().StringVar(&where, "where", "", "where the restaurant should be")
	cmd.Flags().StringVar(&extra, "extra", "", "extra details the restaurant should have")
	cmd.Flags().StringVar(&user, "user", "", "name recorded with the request")
	_ = cmd.MarkFlagRequired("what")
	_ = cmd.MarkFlagRequired("where")
	return cmd
}

func newAskCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Answer three questions and get recommendations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if user == "" {
				user = os.Getenv("USER")
			}
			session := cli.NewSession(a.engine, cli.PromptAsker{}, a.prompts, cmd.OutOrStdout(), user)
			return session.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "name recorded with the request (default $USER)")
	return cmd
}

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve searches over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			var history server.History
			if a.store != nil {
				history = a.store
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", addr)
			return server.New(a.engine, history, logger.GetDefault()).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var (
		limit     int
		requestID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent retrieval events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.Telemetry.DBPath == "" {
				return errHistoryDisabled
			}

			store, err := telemetry.NewSQLiteStore(cfg.Telemetry.DBPath)
			if err != nil {
				return fmt.Errorf("failed to open event store: %w", err)
			}
			defer store.Close()

			var events []*telemetry.Event
			if requestID != "" {
				events, err = store.ForRequest(cmd.Context(), requestID)
			} else {
				events, err = store.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return fmt.Errorf("failed to read events: %w", err)
			}
			list := make([]telemetry.Event, len(events))
			for i, ev := range events {
				list[i] = *ev
			}
			fmt.Fprint(cmd.OutOrStdout(), cli.FormatEvents(list, nowFunc()))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of events to show")
	cmd.Flags().StringVar(&requestID, "request", "", "show every event of one request instead")
	return cmd
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show or manage configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.String())

			path, _ := config.ConfigPath()
			fmt.Fprintf(cmd.OutOrStdout(), "\nConfig file path: %s\n", path)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "Coco v%s\n", cli.Version)
		},
	}
}

// app holds everything a retrieval front-end needs.
type app struct {
	cfg     *config.Config
	prompts config.LanguagePrompts
	store   *telemetry.SQLiteStore
	engine  *retrieval.Engine
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.IsSearchConfigured() {
		dir, _ := config.ConfigDir()
		return nil, fmt.Errorf("search credentials not configured: set SEARCH_API_KEY and SEARCH_ENGINE_ID in %s/.secrets", dir)
	}

	if err := logger.Init(logger.Config{
		LogDir:     cfg.Telemetry.LogDir,
		Level:      logger.ParseLevel(cfg.Telemetry.LogLevel),
		ConsoleOut: cfg.Telemetry.Console,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logConfigInfo(cfg)

	promptCfg, err := config.LoadPromptConfig()
	if err != nil {
		logger.Warn("Using default prompts: %v", err)
		promptCfg = config.DefaultPromptConfig()
	}

	a := &app{cfg: cfg, prompts: promptCfg.GetPrompts()}

	telemetry.RegisterMetrics()
	recorders := telemetry.Multi{telemetry.NewLogRecorder(logger.GetDefault()), telemetry.MetricsRecorder{}}
	if cfg.Telemetry.DBPath != "" {
		store, err := telemetry.NewSQLiteStore(cfg.Telemetry.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open event store: %w", err)
		}
		a.store = store
		recorders = append(recorders, store)
	}

	engine, err := retrieval.New(
		websearch.NewProvider(cfg.Search),
		fetch.NewClient(cfg.Fetch),
		recorders,
		retrieval.OptionsFromConfig(cfg),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize retrieval engine: %w", err)
	}
	a.engine = engine
	return a, nil
}

func (a *app) Close() {
	if a.engine != nil {
		a.engine.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Warn("Failed to close event store: %v", err)
		}
	}
	_ = logger.Close()
}

// logConfigInfo writes the effective configuration to the log, with
// credentials reduced to whether they are set.
func logConfigInfo(cfg *config.Config) {
	logger.Info("Configuration loaded:")
	logger.Info("  Search: provider=%s base_url=%s max_calls=%d api_key_set=%v engine_id_set=%v",
		cfg.Search.Provider, cfg.Search.BaseURL, cfg.Search.MaxCalls,
		cfg.Search.APIKey != "", cfg.Search.EngineID != "")
	logger.Info("  Fetch: timeout=%ds max_bytes=%d", cfg.Fetch.TimeoutSeconds, cfg.Fetch.MaxBytes)
	logger.Info("  Query: stopwords=%s qualifier=%q", cfg.Query.StopwordsPath, cfg.Query.LocaleQualifier)
	logger.Info("  Ranking: top_k=%d partitions=%d denylist=%d", cfg.Ranking.TopK, cfg.Ranking.Partitions, len(cfg.Ranking.Denylist))
	logger.Info("  Telemetry: db=%s", cfg.Telemetry.DBPath)
}
