package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/movie-harvester/internal/config"
	"github.com/JakeFAU/movie-harvester/internal/logging"
)

// envKey is the key for storing the loaded environment in the context.
type envKey struct{}

// env is what PersistentPreRunE hands to every subcommand.
type env struct {
	cfg    config.Config
	logger *zap.Logger
}

// loadConfig is a variable so tests can inject configuration.
var loadConfig = config.Load

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "movie-harvester",
		Short: "Harvests movie metadata into a dimensional model.",
		Long: `movie-harvester discovers movies per language from the metadata API,
reconciles a public release listing against it, detects changes between
listing snapshots, and normalizes everything into dimension, fact and
bridge tables that can be exported as JSON or bulk loaded into Postgres.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("logger init failed: %w", err)
			}
			zap.ReplaceGlobals(logger)
			logger.Debug("configuration loaded",
				zap.String("config_file", cfgFile),
				zap.String("tmdb_api_key", logging.Redact(cfg.TMDB.APIKey)),
				zap.String("storage_backend", cfg.Storage.Backend),
				zap.Bool("database", cfg.DB.Enabled()),
			)
			cmd.SetContext(context.WithValue(cmd.Context(), envKey{}, &env{cfg: cfg, logger: logger}))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if e, ok := cmd.Context().Value(envKey{}).(*env); ok && e != nil {
				_ = e.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (env vars use the HARVESTER_ prefix)")

	cmd.AddCommand(newHarvestCmd())
	cmd.AddCommand(newListingCmd())
	cmd.AddCommand(newNormalizeCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

func resolveEnv(ctx context.Context) (*env, error) {
	e, ok := ctx.Value(envKey{}).(*env)
	if !ok || e == nil {
		return nil, errors.New("configuration not loaded")
	}
	return e, nil
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
