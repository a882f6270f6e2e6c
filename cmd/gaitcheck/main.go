// Command gaitcheck validates gait-cycle step data against range tables,
// tunes the tables from observed failures and serves the engine over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/banshee-data/gait.report/internal/config"
	"github.com/banshee-data/gait.report/internal/fsutil"
	"github.com/banshee-data/gait.report/internal/monitoring"
	"github.com/banshee-data/gait.report/internal/version"
)

var rootFlags struct {
	configPath string
	debug      bool
}

var rootCmd = &cobra.Command{
	Use:   "gaitcheck",
	Short: "Representative-phase validation for gait-cycle data",
	Long: `gaitcheck checks normalised gait-cycle step data against per-task range
tables at the representative phases (0, 25, 50, 75% of the cycle), classifies
each step's features, and proposes range adjustments from observed failures.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if rootFlags.debug {
			monitoring.SetDebug(true)
		}
	},
}

// fsys is swapped for tests.
var fsys fsutil.FileSystem = fsutil.OSFileSystem{}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.configPath, "config", "", "Engine config JSON (default: "+config.DefaultConfigPath+" when present)")
	pf.BoolVar(&rootFlags.debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(synthCmd)
	rootCmd.AddCommand(tuneCmd)
	rootCmd.AddCommand(plotCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = version.Version
}

// loadConfig returns the --config file, the defaults file when present, or
// an empty config.
func loadConfig() (*config.EngineConfig, error) {
	path := rootFlags.configPath
	if path == "" {
		if !fsutil.Exists(fsys, config.DefaultConfigPath) {
			return config.EmptyEngineConfig(), nil
		}
		path = config.DefaultConfigPath
	}
	cfg, err := config.LoadEngineConfig(fsys, path)
	if err != nil {
		return nil, err
	}
	if cfg.GetDebug() {
		monitoring.SetDebug(true)
	}
	monitoring.Debugf("loaded config from %s", path)
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
