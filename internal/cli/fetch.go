package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/case-trend-service/internal/adapter/provider"
	"github.com/couchcryptid/case-trend-service/internal/config"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch ENTITY",
	Short: "Download an entity's series into a fixture file",
	Long: `Fetch the entity's daily series from the case-data provider and write it
as an observation fixture usable by "trendctl train".

Examples:
  trendctl fetch italy                          # Writes data/italy.json
  trendctl fetch italy --out /tmp/italy.json
  trendctl fetch italy --provider-url http://localhost:9000`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().String("provider-url", sharedcfg.EnvOrDefault("PROVIDER_URL", config.DefaultProviderURL), "case-data provider base URL")
	fetchCmd.Flags().String("out", "", "output fixture path (default data/<entity>.json)")
	fetchCmd.Flags().Duration("timeout", 30*time.Second, "provider request timeout")
}

func runFetch(cmd *cobra.Command, args []string) error {
	entityID := args[0]
	baseURL, _ := cmd.Flags().GetString("provider-url")
	out, _ := cmd.Flags().GetString("out")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if out == "" {
		out = filepath.Join("data", entityID+".json")
	}

	client := provider.NewClient(baseURL, timeout, cliMetrics(), logger)
	series, err := client.FetchSeries(cmd.Context(), entityID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(series, "", "  ")
	if err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	if err := os.WriteFile(out, append(data, '\n'), 0o600); err != nil {
		return err
	}

	newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr()).Success("wrote %d observations for %s to %s",
		len(series), entityID, out)
	return nil
}
