package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lvalerom/samphub/config"
	"github.com/lvalerom/samphub/hub"
	"github.com/lvalerom/samphub/profile/standard"
	"github.com/lvalerom/samphub/profile/web"
	"github.com/spf13/cobra"
)

var (
	enableStandard bool
	enableWeb      bool
	webPort        int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the hub, serving the enabled profiles until terminated",
	RunE:  runHub,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&enableStandard, "standard", true, "serve the Standard Profile (lockfile + XML-RPC)")
	runCmd.Flags().BoolVar(&enableWeb, "web", true, "serve the Web Profile (single HTTP/JSON endpoint)")
	runCmd.Flags().IntVar(&webPort, "web-port", 0, "Web Profile listen port (0 asks the OS for one)")
}

func runHub(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if cmd.Flags().Changed("web-port") {
		cfg.WebProfilePort = webPort
	}

	h := hub.New(hub.Options{
		MaxClients:          cfg.MaxClients,
		CallbackConcurrency: cfg.CallbackConcurrency,
		Logger:              logger,
	})
	h.AddObserver(hub.NewMessageTrackerObserver(logger))

	var standardServer *standard.Server
	var webServer *web.Server

	if enableStandard {
		standardServer = standard.New(standard.Options{
			Hub:             h,
			LockfilePath:    cfg.LockfilePath,
			CallbackTimeout: cfg.CallbackTimeout,
			HTTPWorkers:     cfg.HTTPWorkers,
			Logger:          logger,
		})
		if err := standardServer.Start(); err != nil {
			return fmt.Errorf("starting standard profile: %w", err)
		}
	}

	if enableWeb {
		webServer = web.New(web.Options{
			Hub:             h,
			MaxPendingQueue: cfg.MaxPendingQueue,
			HTTPWorkers:     cfg.HTTPWorkers,
			Logger:          logger,
		})
		if err := webServer.Start(cfg.WebProfilePort); err != nil {
			return fmt.Errorf("starting web profile: %w", err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if standardServer != nil {
		if err := standardServer.Stop(ctx); err != nil {
			logger.Error("standard profile shutdown error", "error", err)
		}
	}
	if webServer != nil {
		if err := webServer.Stop(); err != nil {
			logger.Error("web profile shutdown error", "error", err)
		}
	}
	// The hub is shared by both profiles, so whichever of them owns its
	// lifecycle is the caller's business, not either profile server's; wake
	// every pending callAndWait/pullCallbacks waiter here regardless of
	// which profiles were actually enabled.
	h.Shutdown()
	return nil
}
