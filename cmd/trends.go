package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/intake-cli/internal/fetcher"
	"github.com/sells-group/intake-cli/internal/trend"
	"github.com/sells-group/intake-cli/internal/valuation"
)

var (
	trendsCurrent string
	trendsPeriod  string
	trendsSave    bool
	trendsTxID    string
)

var trendsCmd = &cobra.Command{
	Use:   "trends <history.json>",
	Short: "Analyze how property valuations changed across periods",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		history, err := fetcher.ReadJSONFile[any](args[0])
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, envOptions{WithStore: trendsSave})
		if err != nil {
			return err
		}
		defer env.Close()

		opts := trend.Options{CurrentPeriod: trendsPeriod}
		if trendsCurrent != "" {
			doc, err := fetcher.ReadJSONFile[any](trendsCurrent)
			if err != nil {
				return err
			}
			cur := env.Valuation.Analyze(*doc, valuation.Options{SkipRecommendations: true, SkipCitations: true})
			if !cur.OK() {
				return eris.Wrap(cur.Err, "value current submission")
			}
			opts.Current = &cur
		}

		rep := env.trends(ctx, trendsTxID, *history, opts)
		if err := writeJSON(cmd.OutOrStdout(), rep); err != nil {
			return err
		}
		if !rep.OK() {
			return eris.New(rep.Error)
		}
		return nil
	},
}

func init() {
	trendsCmd.Flags().StringVar(&trendsCurrent, "current", "", "current submission to value and add as the latest period")
	trendsCmd.Flags().StringVar(&trendsPeriod, "period", "", "label for the current period (default this year)")
	trendsCmd.Flags().BoolVar(&trendsSave, "save", false, "record the run in the store")
	trendsCmd.Flags().StringVar(&trendsTxID, "tx", "", "transaction id recorded with the run")
	rootCmd.AddCommand(trendsCmd)
}
