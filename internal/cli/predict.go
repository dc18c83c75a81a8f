package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/couchcryptid/case-trend-service/internal/domain"
	"github.com/couchcryptid/case-trend-service/internal/query"
	"github.com/couchcryptid/case-trend-service/internal/registry"
	"github.com/spf13/cobra"
)

var predictCmd = &cobra.Command{
	Use:   "predict ENTITY OFFSET",
	Short: "Predict confirmed cases from a saved model",
	Long: `Predict the confirmed-case count OFFSET days after the entity's first
observation using the model saved by "trendctl train".

Examples:
  trendctl predict Italy 30
  trendctl predict Italy 0 --to 60     # Forecast table for days 0..60
  trendctl predict Italy 30 --json`,
	Args: cobra.ExactArgs(2),
	RunE: runPredict,
}

func init() {
	rootCmd.AddCommand(predictCmd)

	predictCmd.Flags().Int("to", -1, "print a forecast from OFFSET through this offset")
	predictCmd.Flags().Bool("json", false, "output as JSON")
}

func runPredict(cmd *cobra.Command, args []string) error {
	entityID := args[0]
	offset, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("OFFSET must be an integer: %w", domain.ErrInvalidArgument)
	}
	to, _ := cmd.Flags().GetInt("to")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	models, err := registry.NewFile(modelDir)
	if err != nil {
		return err
	}
	svc := query.New(models, logger, cliMetrics())

	var points []domain.Point
	if to >= 0 {
		points, err = svc.Forecast(cmd.Context(), entityID, offset, to)
	} else {
		var value float64
		value, err = svc.Predict(cmd.Context(), entityID, offset)
		points = []domain.Point{{OffsetDays: offset, Confirmed: value}}
	}
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"entity_id": entityID, "points": points})
	}

	rows := make([][]string, 0, len(points))
	for _, p := range points {
		rows = append(rows, []string{strconv.Itoa(p.OffsetDays), formatFloat(p.Confirmed)})
	}
	return renderTable(cmd.OutOrStdout(), []string{"offset_days", "confirmed"}, rows)
}
