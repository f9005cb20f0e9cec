package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/garyjia/travel-approval/internal/config"
	"github.com/garyjia/travel-approval/internal/container"
	"github.com/garyjia/travel-approval/pkg/database"
	"github.com/garyjia/travel-approval/pkg/utils"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "travel-workflow",
		Short:         "Travel request approval workflow service",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to the YAML config file")

	root.AddCommand(
		newServeCmd(&configPath),
		newMigrateCmd(&configPath),
		newVersionCmd(),
	)
	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the SLA monitor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if cfg.Database.Driver != config.DriverSQLite {
				return fmt.Errorf("migrate needs the %s driver, configured driver is %q",
					config.DriverSQLite, cfg.Database.Driver)
			}

			db, err := database.New(database.Config{Path: cfg.Database.Path}, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			return db.Migrate()
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "travel-workflow %s\n", version)
			return err
		},
	}
}

func bootstrap(configPath string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
		Service:    "travel-workflow",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, logger, nil
}

func runServe(ctx context.Context, configPath string) error {
	cfg, logger, err := bootstrap(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting travel approval workflow service",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("database_driver", cfg.Database.Driver))

	c, err := container.NewContainer(cfg.ToContainerConfig(version), logger)
	if err != nil {
		return err
	}
	if err := c.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Shutdown finished with errors", zap.Error(err))
		}
	}()

	health := c.Health(ctx)
	logger.Info("Service ready", zap.Bool("healthy", health.Overall))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.Server().Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down, stopping workers")
		return c.Workers().StopAll()
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Service stopped")
	return nil
}
