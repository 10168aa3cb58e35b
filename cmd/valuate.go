package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/intake-cli/internal/fetcher"
	"github.com/sells-group/intake-cli/internal/property"
	"github.com/sells-group/intake-cli/internal/valuation"
)

var (
	valuateSOV    string
	valuateSheet  string
	valuateTables string
	valuateState  string
	valuateNoRecs bool
	valuateNoCite bool
	valuateSave   bool
	valuateTxID   string
)

var valuateCmd = &cobra.Command{
	Use:   "valuate <file.json>",
	Short: "Estimate replacement cost for every property in a submission",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		doc, err := fetcher.ReadJSONFile[any](args[0])
		if err != nil {
			return err
		}
		opts, err := valuationOptions(valuateSOV, valuateSheet)
		if err != nil {
			return err
		}
		opts.DefaultState = valuateState
		opts.SkipRecommendations = valuateNoRecs
		opts.SkipCitations = valuateNoCite

		env, err := initEnv(ctx, envOptions{WithStore: valuateSave})
		if err != nil {
			return err
		}
		defer env.Close()

		if valuateTables != "" {
			if err := env.useTables(valuateTables); err != nil {
				return err
			}
		}

		rep := env.valuate(ctx, valuateTxID, *doc, opts)
		if err := writeJSON(cmd.OutOrStdout(), rep); err != nil {
			return err
		}
		if !rep.OK() {
			return eris.New(rep.Error)
		}
		return nil
	},
}

// valuationOptions reads an optional statement of values into extra
// property records.
func valuationOptions(sovPath, sheet string) (valuation.Options, error) {
	var opts valuation.Options
	if sovPath == "" {
		return opts, nil
	}
	rows, err := fetcher.ReadSOV(sovPath, fetcher.SOVOptions{SheetName: sheet})
	if err != nil {
		return opts, err
	}
	opts.Extra = property.FromSOV(rows)
	return opts, nil
}

// useTables rebuilds the valuation tool with cost tables from path.
func (e *appEnv) useTables(path string) error {
	vcfg, err := valuationConfig(cfg.Valuation, path)
	if err != nil {
		return err
	}
	model, err := valuation.NewModel(vcfg)
	if err != nil {
		return eris.Wrap(err, "valuation: invalid tables")
	}
	e.Valuation = valuation.NewTool(model)
	return nil
}

func init() {
	valuateCmd.Flags().StringVar(&valuateSOV, "sov", "", "statement of values (.xlsx or .csv) to value alongside the submission")
	valuateCmd.Flags().StringVar(&valuateSheet, "sheet", "", "SOV sheet name (default first sheet)")
	valuateCmd.Flags().StringVar(&valuateTables, "tables", "", "YAML/JSON cost tables merged over the defaults")
	valuateCmd.Flags().StringVar(&valuateState, "state", "", "state assumed for properties without one")
	valuateCmd.Flags().BoolVar(&valuateNoRecs, "no-recommendations", false, "omit per-property recommendations")
	valuateCmd.Flags().BoolVar(&valuateNoCite, "no-citations", false, "omit source citations")
	valuateCmd.Flags().BoolVar(&valuateSave, "save", false, "record the run in the store")
	valuateCmd.Flags().StringVar(&valuateTxID, "tx", "", "transaction id recorded with the run")
	rootCmd.AddCommand(valuateCmd)
}
