package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ironsheep/terrace-extractor/internal/config"
)

// app holds the state shared by all subcommands.
type app struct {
	cfgFile string
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "terrace-extractor",
		Short: "Extract terrace lines from aerial imagery",
		Long: `terrace-extractor finds agricultural terrace risers in an aerial photo or
orthophoto and writes them as georeferenced polylines.

The image is run through Canny edge detection, the edges are thinned to
one-pixel-wide skeletons, traced into polylines and placed on the ground
using the image's GeoTIFF tags, a world file, control points or a fixed
pixel size. Lines shorter than a minimum length are dropped.`,
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetVersionTemplate(versionText())

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "YAML config file; flags override its values")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(a.extractCmd(), a.infoCmd(), a.serveCmd(), versionCmd())
	return root
}

// setup loads the configuration and builds the logger. Logs go to stderr so
// stdout stays clean for results and the serve protocol.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	if a.verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.cfg = cfg
	a.logger = logger.With(zap.String("cmd", cmd.Name()))
	return nil
}
