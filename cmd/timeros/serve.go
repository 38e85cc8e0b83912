package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/timeros/timeros/internal/app"
	"github.com/timeros/timeros/internal/config"
	"github.com/timeros/timeros/internal/logger"
	"github.com/timeros/timeros/internal/version"
)

var (
	serveConfigPath string
	serveLogLevel   string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the TimerOS server (main command)",
	Long: `Start TimerOS with the specified configuration. This initializes the
job store, scheduler, agent, and HTTP API, and handles graceful shutdown
on SIGINT/SIGTERM.`,
	Run: serveHandler,
}

func serveHandler(cmd *cobra.Command, args []string) {
	// Load .env file if it exists
	_ = config.LoadEnvOptional("./.env")

	configPath := serveConfigPath
	if configPath == "" {
		configPath = "./config.toml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if serveLogLevel != "" {
		cfg.Logging.Level = serveLogLevel
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		fmt.Println("Configuration is invalid:")
		for _, e := range errs {
			fmt.Printf("  - %v\n", e)
		}
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	log.Info("Starting TimerOS",
		logger.Field{Key: "version", Value: version.Version})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg, log)
	if err := application.Run(ctx); err != nil {
		log.Error("Application failed", err)
		os.Exit(1)
	}
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "path to config file (default ./config.toml)")
	serveCmd.Flags().StringVarP(&serveLogLevel, "log-level", "l", "", "override log level (debug, info, warn, error)")
}
