package main

import (
	"os"

	"github.com/spf13/cobra"

	app "github.com/okian/scout/internal/app"
	"github.com/okian/scout/internal/config"
	"github.com/okian/scout/pkg/logger"
)

// cli carries state shared by every subcommand once the root has run.
type cli struct {
	configPath   string
	logLevel     string
	artifactsDir string
	datasetPath  string

	cfg *config.Config
	log logger.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "scout",
		Short:         "Football player market value inference",
		Long:          "scout predicts player market values, classifies them against observed values and ranks the most mispriced players.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "YAML config file (overrides SCOUT_CONFIG)")
	flags.StringVar(&c.logLevel, "log-level", "", "debug, info, warn or error")
	flags.StringVar(&c.artifactsDir, "artifacts", "", "artifacts directory")
	flags.StringVar(&c.datasetPath, "dataset", "", "reference dataset CSV")

	root.AddCommand(newServeCmd(c), newRegenerateCmd(c), newFitCmd(c))
	return root
}

// setup loads configuration (defaults -> file -> env -> flags) and logging.
func (c *cli) setup(cmd *cobra.Command) error {
	if c.configPath != "" {
		if err := os.Setenv("SCOUT_CONFIG", c.configPath); err != nil {
			return err
		}
	}
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if c.artifactsDir != "" {
		cfg.ArtifactsDir = c.artifactsDir
	}
	if c.datasetPath != "" {
		cfg.DatasetPath = c.datasetPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithWriter(cmd.ErrOrStderr())); err != nil {
		return err
	}
	c.log = logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		c.log.Warn(cmd.Context(), "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	c.cfg = cfg
	return nil
}

// service builds the inference context from configuration.
func (c *cli) service() *app.Service {
	return app.New(
		app.WithLogger(c.log.Named("service")),
		app.WithArtifactsDir(c.cfg.ArtifactsDir),
		app.WithDatasetPath(c.cfg.DatasetPath),
		app.WithTolerance(c.cfg.Tolerance),
		app.WithScanSample(c.cfg.ScanSampleSize, c.cfg.ScanSeed),
		app.WithScanChunks(c.cfg.ScanChunkSize, c.cfg.ScanWorkers),
		app.WithMinActualValue(c.cfg.MinActualValue),
	)
}
