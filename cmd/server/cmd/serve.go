package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"cryptodash/internal/config"
	"cryptodash/internal/logger"
	"cryptodash/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and WebSocket server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Logging.Level, !cfg.IsProduction())
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer log.Sync()

	srv, err := server.New(cfg, log, server.Dependencies{})
	if err != nil {
		log.Error("Failed to initialise server", zap.Error(err))
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}
