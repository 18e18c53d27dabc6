package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/simbridge/app"
	"github.com/kilianp07/simbridge/config"
	coremon "github.com/kilianp07/simbridge/core/monitoring"
	"github.com/kilianp07/simbridge/infra/logger"
	"github.com/kilianp07/simbridge/infra/monitoring"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:          "simbridge",
	Short:        "Bridge between a driving simulator and a Pure Pursuit controller",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json); defaults when empty")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// loadConfig reads the configuration and applies its logging section.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}
	if err := logger.SetFormat(cfg.Logging.Format); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()

	mon, err := monitoring.NewSentryMonitor(cfg.Monitoring, svc.RunID())
	if err != nil {
		return fmt.Errorf("init monitoring: %w", err)
	}
	coremon.Init(mon)
	defer coremon.Flush(2 * time.Second)
	return svc.Run(ctx)
}
