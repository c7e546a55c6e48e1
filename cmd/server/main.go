package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/concordtech/contact-api/config"
	"github.com/concordtech/contact-api/domain"
	"github.com/concordtech/contact-api/internal/log"
	"github.com/spf13/cobra"
)

type serverOptions struct {
	autoMigrate     bool
	shutdownTimeout time.Duration
}

func main() {
	if err := newServerCmd(log.NewLoggerFromEnv(os.Stdout)).Execute(); err != nil {
		os.Exit(1)
	}
}

func newServerCmd(logger *log.Logger) *cobra.Command {
	opts := &serverOptions{}

	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Run the contact API HTTP server",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := run(ctx, logger, opts); err != nil {
				logger.Error("Server exited with error", "error", err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&opts.autoMigrate, "auto-migrate", "m", false, "create or update tables on boot (development environments only)")
	cmd.Flags().DurationVar(&opts.shutdownTimeout, "shutdown-timeout", 30*time.Second, "grace period for in-flight requests on shutdown")

	return cmd
}

func run(ctx context.Context, logger *log.Logger, opts *serverOptions) error {
	logger.Info("Contact API server starting", "auto_migrate", opts.autoMigrate)

	appConfig, err := config.LoadApplicationConfiguration(logger, opts.autoMigrate)
	if err != nil {
		logger.Error("Failed to load application configuration", "error", err.Error())
		return err
	}
	defer appConfig.Cleanup()

	domain.SetupCoreDomain(appConfig)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- appConfig.RouterService.RunHTTPServer()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return err
		}
		return errors.New("http server stopped unexpectedly")
	case <-ctx.Done():
		logger.Info("Shutdown signal received, shutting down gracefully...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.shutdownTimeout)
	defer cancel()

	if err := appConfig.RouterService.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	logger.Info("Graceful shutdown completed")
	return nil
}
