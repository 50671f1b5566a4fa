package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"stuytown-watcher/config"
	"stuytown-watcher/scraper/stuytown"
	"stuytown-watcher/services"
	"stuytown-watcher/storage"
	"stuytown-watcher/utils"
)

func main() {
	root := &cobra.Command{
		Use:           "stuytown-watcher",
		Short:         "Watches the StuyTown listing page and emails about new apartments",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch()
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "baseline",
		Short: "Save the current listings as the known baseline, without notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBaseline()
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "test-email",
		Short: "Send a test email to verify the notification configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTestEmail()
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runWatch() error {
	cfg := config.Load()
	logger := utils.NewLogger(cfg.Debug)

	logger.Info("=== StuyTown Listing Watcher starting ===")
	logger.Info("Config — url: %s | state: %s | interval: %ds | recipients: %d",
		cfg.ListingURL, cfg.StateFile, cfg.CheckIntervalSec, len(cfg.EmailTo))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitor, cleanup := buildMonitor(cfg, logger)
	defer cleanup()

	if err := monitor.RunContinuous(ctx); err != nil {
		logger.Error("Watcher failed: %v", err)
		return err
	}
	return nil
}

func runBaseline() error {
	cfg := config.Load()
	logger := utils.NewLogger(cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitor, cleanup := buildMonitor(cfg, logger)
	defer cleanup()

	if err := monitor.SaveBaseline(ctx); err != nil {
		logger.Error("Baseline save failed: %v", err)
		return err
	}
	return nil
}

func runTestEmail() error {
	cfg := config.Load()
	logger := utils.NewLogger(cfg.Debug)

	monitor, cleanup := buildMonitor(cfg, logger)
	defer cleanup()

	if err := monitor.SendTestNotification(); err != nil {
		logger.Error("Test email failed: %v", err)
		return err
	}
	return nil
}

// buildMonitor wires the monitor from its collaborators. The snapshot
// archive is optional: a missing or unreachable archive database is logged
// and the watcher runs without it.
func buildMonitor(cfg *config.Config, logger *utils.Logger) (*services.Monitor, func()) {
	store := storage.NewJSONStore(cfg.StateFile, logger)

	var archive storage.SnapshotArchiver
	cleanup := func() {}
	if cfg.ArchiveDSN != "" {
		pg, err := storage.NewPostgresArchive(cfg.ArchiveDSN)
		if err != nil {
			logger.Error("Snapshot archive unavailable, continuing without it: %v", err)
		} else {
			archive = pg
			cleanup = func() {
				if err := pg.Close(); err != nil {
					logger.Error("Failed to close snapshot archive: %v", err)
				}
			}
		}
	}

	scraper := stuytown.New(cfg, logger)
	notifier := services.NewNotifier(cfg, logger)

	return services.NewMonitor(cfg, logger, scraper, store, archive, notifier), cleanup
}
