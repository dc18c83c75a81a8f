package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/couchcryptid/case-trend-service/internal/domain"
	"github.com/couchcryptid/case-trend-service/internal/pipeline"
	"github.com/couchcryptid/case-trend-service/internal/registry"
	"github.com/couchcryptid/case-trend-service/internal/store"
	"github.com/couchcryptid/case-trend-service/internal/trend"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fit trend models from a fixture file",
	Long: `Load an observation fixture, fit one trend model per entity, and save the
models to the model directory.

Examples:
  trendctl train --data data/italy.json
  trendctl train --data data/mock/observations_200221.json --entity Italy
  trendctl train --data data/italy.json --test-fraction 0 --json`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().String("data", "", "observation fixture (JSON array)")
	trainCmd.Flags().StringSlice("entity", nil, "train only these entities (default: all)")
	trainCmd.Flags().Float64("test-fraction", trend.DefaultTestFraction, "share of samples held out for evaluation")
	trainCmd.Flags().Uint64("seed", trend.DefaultSeed, "hold-out shuffle seed")
	trainCmd.Flags().Bool("json", false, "output reports as JSON")
	_ = trainCmd.MarkFlagRequired("data")
}

func runTrain(cmd *cobra.Command, _ []string) error {
	dataPath, _ := cmd.Flags().GetString("data")
	entities, _ := cmd.Flags().GetStringSlice("entity")
	fraction, _ := cmd.Flags().GetFloat64("test-fraction")
	seed, _ := cmd.Flags().GetUint64("seed")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if fraction < 0 || fraction >= 1 {
		return fmt.Errorf("--test-fraction must be in [0, 1): %w", domain.ErrInvalidArgument)
	}

	st, err := loadFixture(dataPath)
	if err != nil {
		return err
	}
	if len(entities) == 0 {
		entities = st.Entities()
	}

	models, err := registry.NewFile(modelDir)
	if err != nil {
		return err
	}
	trainer := pipeline.NewTrainer(st, models, nil, clockwork.NewRealClock(), logger, cliMetrics(),
		pipeline.TrainerOptions{TestFraction: fraction, Seed: seed})

	printer := newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr())
	var (
		reports []domain.Report
		errs    []error
	)
	for _, id := range entities {
		report, err := trainer.Train(cmd.Context(), id)
		if err != nil {
			printer.Error("%s: %v", id, err)
			errs = append(errs, err)
			continue
		}
		if report.InSample {
			printer.Warning("%s: too few observations for a hold-out split, evaluated in-sample", id)
		}
		reports = append(reports, report)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return err
		}
	} else if len(reports) > 0 {
		if err := renderTable(cmd.OutOrStdout(), reportHeaders, reportRows(reports)); err != nil {
			return err
		}
		printer.Success("saved %d model(s) to %s", len(reports), modelDir)
	}
	return errors.Join(errs...)
}

var reportHeaders = []string{"entity", "train", "test", "intercept", "slope", "mae", "rmse"}

func reportRows(reports []domain.Report) [][]string {
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		test := strconv.Itoa(r.TestSamples)
		if r.InSample {
			test = "in-sample"
		}
		rows = append(rows, []string{
			r.EntityID,
			strconv.Itoa(r.TrainSamples),
			test,
			formatFloat(r.Model.Intercept()),
			formatFloat(r.Model.Slope()),
			formatFloat(r.Evaluation.MAE),
			formatFloat(r.Evaluation.RMSE),
		})
	}
	return rows
}

// loadFixture parses every row with the ingestion parser and appends it to a
// fresh record store.
func loadFixture(path string) (*store.Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode fixture %s: %w", path, err)
	}

	st := store.New()
	for i, row := range rows {
		obs, err := domain.ParseObservation(domain.RawEvent{Value: row})
		if err != nil {
			return nil, fmt.Errorf("fixture row %d: %w", i, err)
		}
		if err := st.Append(obs); err != nil {
			return nil, fmt.Errorf("fixture row %d: %w", i, err)
		}
	}
	return st, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
