// Package cli contains the trendctl commands. trendctl runs the fetch, train
// and predict workflow offline against a fixture file and a model directory.
package cli

import (
	"log/slog"
	"os"
	"sync"

	"github.com/couchcryptid/case-trend-service/internal/observability"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	modelDir string
	verbose  bool
	noColor  bool
	logger   *slog.Logger
	version  = "dev"

	metricsOnce sync.Once
	metrics     *observability.Metrics
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "trendctl",
	Short: "Case-count trend model CLI",
	Long: `trendctl fetches case-count series, fits trend models, and queries them.

Example usage:
  trendctl fetch italy --out data/italy.json     # Pull a series from the provider
  trendctl train --data data/italy.json          # Fit and save models
  trendctl predict italy 30                      # Predict day 30
  trendctl predict italy 0 --to 60               # Print a forecast table`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initLogging()
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	version = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&modelDir, "model-dir", sharedcfg.EnvOrDefault("REGISTRY_DIR", "models"), "directory holding trained models")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

func initLogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	if noColor {
		color.NoColor = true
	}
}

// cliMetrics registers the service metrics once per process so repeated
// command executions share them.
func cliMetrics() *observability.Metrics {
	metricsOnce.Do(func() {
		metrics = observability.NewMetrics()
	})
	return metrics
}
