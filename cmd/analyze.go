package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/intake-cli/internal/fetcher"
	"github.com/sells-group/intake-cli/internal/submission"
)

var (
	analyzeRequirements string
	analyzeMapping      string
	analyzeMods         string
	analyzeSave         bool
	analyzeTxID         string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.json>",
	Short: "Score a submission document for completeness and data quality",
	Long:  "Scores a submission document (a file, or - for stdin) against the triage, appetite and clearance requirements.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		doc, err := fetcher.ReadJSONFile[any](args[0])
		if err != nil {
			return err
		}
		mods, err := readMods(analyzeMods)
		if err != nil {
			return err
		}
		overrides, err := loadCLIOverrides(analyzeRequirements, analyzeMapping)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, envOptions{WithStore: analyzeSave, Overrides: overrides})
		if err != nil {
			return err
		}
		defer env.Close()

		res := env.analyze(ctx, analyzeTxID, *doc, mods)
		if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
		if res.Status != submission.StatusSuccess {
			return eris.New(res.Message)
		}
		return nil
	},
}

// loadCLIOverrides takes the requirement lists from one overrides file and
// the field mapping from another. Either path may be empty.
func loadCLIOverrides(requirementsFile, mappingFile string) (submission.Overrides, error) {
	var out submission.Overrides
	if requirementsFile != "" {
		o, err := submission.LoadOverrides(requirementsFile)
		if err != nil {
			return out, err
		}
		out.Requirements = o.Requirements
		out.Thresholds = o.Thresholds
		out.MaxNextSteps = o.MaxNextSteps
	}
	if mappingFile != "" {
		o, err := submission.LoadOverrides(mappingFile)
		if err != nil {
			return out, err
		}
		out.FieldMapping = o.FieldMapping
	}
	return out, nil
}

// readMods loads a JSON object of field corrections. An empty path yields nil.
func readMods(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	mods, err := fetcher.ReadJSONFile[map[string]any](path)
	if err != nil {
		return nil, eris.Wrap(err, "read modifications")
	}
	if *mods == nil {
		return map[string]any{}, nil
	}
	return *mods, nil
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeRequirements, "requirements", "", "YAML/JSON file overriding requirement lists and thresholds")
	analyzeCmd.Flags().StringVar(&analyzeMapping, "mapping", "", "YAML/JSON file overriding field mappings")
	analyzeCmd.Flags().StringVar(&analyzeMods, "mods", "", "JSON file of field corrections to apply before scoring")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "record the run in the store")
	analyzeCmd.Flags().StringVar(&analyzeTxID, "tx", "", "transaction id recorded with the run")
	rootCmd.AddCommand(analyzeCmd)
}
