package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fieldcrm-service/internal/app"
	"fieldcrm-service/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "fieldcrm",
		Short:         "Field CRM visits and reporting API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "optional YAML config file")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap(configFile)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return app.NewServer(cfg, logger).Run(ctx)
		},
	}

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap(configFile)
			if err != nil {
				return err
			}
			defer logger.Sync()

			return app.Migrate(cmd.Context(), cfg, logger)
		},
	}

	root.AddCommand(serve, migrate)
	root.RunE = serve.RunE
	return root
}

func bootstrap(configFile string) (config.AppConfig, *zap.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return config.AppConfig{}, nil, err
	}

	var logger *zap.Logger
	if cfg.IsProduction() {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return config.AppConfig{}, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, logger, nil
}
