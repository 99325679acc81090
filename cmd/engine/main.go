package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/firewatch/internal/ai"
	"github.com/good-yellow-bee/firewatch/internal/analysis"
	"github.com/good-yellow-bee/firewatch/internal/api"
	"github.com/good-yellow-bee/firewatch/internal/clock"
	"github.com/good-yellow-bee/firewatch/internal/metrics"
	"github.com/good-yellow-bee/firewatch/internal/notifier"
	"github.com/good-yellow-bee/firewatch/internal/settings"
	"github.com/good-yellow-bee/firewatch/internal/stats"
	"github.com/good-yellow-bee/firewatch/internal/storage"
	"github.com/good-yellow-bee/firewatch/pkg/config"
)

var (
	configFile string
	httpAddr   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "firewatch-engine",
	Short: "Firewatch Engine - Incident intake and triage server",
	Long: `Firewatch Engine receives incident reports from agents, classifies
them with AI-assisted or rule-based analysis, records them, and
dispatches alerts with per-resource cooldown.`,
	RunE: runEngine,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("firewatch-engine %s\n", config.Version)
		fmt.Printf("  commit: %s\n", config.Commit)
		fmt.Printf("  built:  %s\n", config.BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runEngine(cmd *cobra.Command, args []string) error {
	var cfg *Config

	// Load configuration from file if provided
	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}

	// Override with CLI flags
	if httpAddr != "" {
		cfg.Server.Address = httpAddr
	}
	cfg.Verbose = verbose

	// Auto-create data directory
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// Initialize storage
	store := storage.NewSQLiteStorage(cfg.Database.Path)
	if err := store.Open(); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	log.Printf("database initialized at %s", cfg.Database.Path)

	// Runtime settings snapshot, swapped atomically on config reload
	settingsStore := settings.NewStore(cfg.RuntimeSettings())

	// Usage counters, drained into daily_stats by the flusher
	modelCalls := stats.NewCounter()
	notifications := stats.NewCounter()
	flusher := stats.NewFlusher(modelCalls, notifications, store.Stats(), clock.Real{},
		time.Duration(cfg.Stats.FlushInterval)*time.Second)

	// Analysis pipeline: AI provider with rule-based fallback
	analyzer := analysis.New(ai.NewClient(modelCalls))

	// Alert dispatch
	dispatcher := notifier.NewDispatcher(notifier.NewTelegramNotifier(), notifications)

	apiCfg := &api.Config{
		Address:        cfg.Server.Address,
		RateLimitPerIP: cfg.Server.RateLimitPerIP,
		QueryTimeout:   time.Duration(cfg.Server.QueryTimeout) * time.Second,
		Verbose:        cfg.Verbose,
	}
	srv, err := api.New(apiCfg, store, analyzer, dispatcher, settingsStore)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	metrics.SetBuildInfo(config.Version, config.Commit, config.BuildTime)

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	log.Printf("starting firewatch-engine %s", config.Version)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gctx)
	})

	g.Go(func() error {
		return flusher.Run(gctx)
	})

	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Address)
		g.Go(metricsServer.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsServer.Shutdown(shutdownCtx)
		})
	}

	if configFile != "" {
		g.Go(func() error {
			return settings.Watch(gctx, configFile, settingsStore, func() (settings.Settings, error) {
				reloaded, err := LoadConfig(configFile)
				if err != nil {
					return settings.Settings{}, err
				}
				return reloaded.RuntimeSettings(), nil
			})
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run engine: %w", err)
	}

	log.Printf("engine stopped")
	return nil
}
