package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/intake-cli/internal/submission"
)

var checkMods string

var checkCmd = &cobra.Command{
	Use:   "check <transaction-id>",
	Short: "Check a stored submission for completeness",
	Long:  "Loads the latest submission version for a transaction, applies optional corrections, and reports completeness, quality tiers and next steps.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mods, err := readMods(checkMods)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, envOptions{WithStore: true})
		if err != nil {
			return err
		}
		defer env.Close()

		rep := env.check(ctx, args[0], mods)
		if err := writeJSON(cmd.OutOrStdout(), rep); err != nil {
			return err
		}
		if rep.Status != submission.StatusSuccess {
			return eris.New(rep.Error)
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkMods, "mods", "", "JSON file of field corrections")
	rootCmd.AddCommand(checkCmd)
}
