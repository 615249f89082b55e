// Package main is the CLI entry point for staffmon.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/shoreagents/staffmon/internal/api"
	"github.com/shoreagents/staffmon/internal/breaks"
	"github.com/shoreagents/staffmon/internal/bus"
	"github.com/shoreagents/staffmon/internal/capture"
	"github.com/shoreagents/staffmon/internal/config"
	"github.com/shoreagents/staffmon/internal/daemon"
	"github.com/shoreagents/staffmon/internal/domain"
	"github.com/shoreagents/staffmon/internal/identity"
	"github.com/shoreagents/staffmon/internal/infra"
	"github.com/shoreagents/staffmon/internal/metrics"
	"github.com/shoreagents/staffmon/internal/syncer"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "staffmon",
	Short: "Workstation attendance and telemetry agent",
	Long: `staffmon is a background agent for staff workstations. It classifies
activity from input and power events, accumulates behavioral counters,
reconciles them with the workforce service using a delta protocol, and
captures screenshots on a hybrid schedule.

It exposes a loopback HTTP API for the desktop shell: tracking control,
breaks, clock-in reset, forced sync/capture, and status queries.`,
	Version: Version,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the agent in the foreground",
	Long: `Starts the telemetry agent and the loopback command API, blocking
until SIGINT/SIGTERM. Tracking begins once the desktop shell reports
the staff-facing context over /api/navigation.`,
	RunE: runStart,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query a running agent's status",
	RunE:  runStatus,
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Print the running agent's current metric snapshot",
	RunE:  runSnapshot,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   runVersion,
}

var jsonOutput bool

func init() {
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(versionCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := createLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	logger.Info("staffmon starting",
		zap.String("version", Version),
		zap.String("remote", cfg.Remote.BaseURL))

	dataDir := cfg.Data.Dir
	if dataDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			base = os.TempDir()
		}
		dataDir = filepath.Join(base, "staffmon")
	}

	// Local encrypted state: sync baseline, open break, identity.
	// Losing the store degrades to in-memory state, never a refusal
	// to start.
	var store *infra.Store
	if key, err := infra.EnsureKey(dataDir); err != nil {
		logger.Warn("state store key unavailable, running without persistence", zap.Error(err))
	} else if store, err = infra.NewStore(dataDir, key); err != nil {
		logger.Warn("state store unavailable, running without persistence", zap.Error(err))
		store = nil
	}
	// A typed nil in the interface would defeat callers' nil checks.
	var stateStore domain.StateStore
	if store != nil {
		defer store.Close()
		stateStore = store
	}

	remote := infra.NewRemoteClient(cfg.Remote.BaseURL, cfg.Remote.Timeout)
	binder := identity.NewBinder(remote, stateStore, 15*time.Minute, logger)
	remote.SetIdentity(binder)

	events := bus.New()
	gate := daemon.NewGate(logger)
	classifier := metrics.NewClassifier(infra.NewIdleProber(), cfg.Tracking.IdleThreshold, cfg.Capture.InactivityThreshold, events, logger)
	aggregator := metrics.NewAggregator(classifier, gate, cfg.Tracking.Interval, logger)
	coordinator := breaks.NewCoordinator(aggregator, classifier, stateStore, logger)

	engine := syncer.NewEngine(aggregator, remote, stateStore, syncer.Config{
		Interval:    cfg.Sync.Interval,
		MaxAttempts: cfg.Sync.MaxRetryAttempts,
		RetryDelay:  cfg.Sync.RetryDelay,
	}, logger)

	scheduler := capture.NewScheduler(infra.NewDisplayCapturer(), remote, coordinator, capture.Config{
		Interval:    cfg.Capture.Interval,
		JPEGQuality: cfg.Capture.JPEGQuality,
		Scale:       cfg.Capture.Scale,
	}, logger)

	agent := daemon.NewAgent(
		daemon.DefaultConfig(),
		events,
		gate,
		classifier,
		aggregator,
		coordinator,
		engine,
		scheduler,
		binder,
		infra.NewProcessAppObserver(),
		infra.NewNetBandwidthObserver(),
		infra.NullClipboardWatcher{},
		logger,
	)

	server := api.NewServer(agent, cfg.API.Port, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("command API failed", zap.Error(err))
			cancel()
		}
	}()

	err = agent.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if serr := server.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("command API shutdown error", zap.Error(serr))
	}

	if err == context.Canceled {
		return nil
	}
	return err
}

func runStatus(cmd *cobra.Command, args []string) error {
	return queryLocal("/api/status")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	return queryLocal("/api/snapshot")
}

// queryLocal hits the running agent's loopback API and pretty-prints
// the JSON response.
func queryLocal(path string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	url := fmt.Sprintf("http://127.0.0.1:%d%s", cfg.API.Port, path)
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("agent not reachable at %s (is it running?): %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var pretty map[string]interface{}
	if err := json.Unmarshal(body, &pretty); err != nil {
		fmt.Println(string(body))
		return nil
	}
	out, _ := json.MarshalIndent(pretty, "", "  ")
	fmt.Println(string(out))
	return nil
}

func createLogger(cfg config.LogConfig) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	if cfg.File != "" {
		zcfg.OutputPaths = []string{cfg.File}
		zcfg.ErrorOutputPaths = []string{cfg.File}
	}
	if level, err := zapcore.ParseLevel(cfg.Level); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	zcfg.EncoderConfig.TimeKey = "time"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zcfg.Build()
	if err != nil {
		// Fallback to stderr if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("staffmon %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
