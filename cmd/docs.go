package main

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/fetcher"
	"github.com/sells-group/intake-cli/internal/store"
)

// importChunk is the number of versions written per bulk call.
const importChunk = 500

var (
	docsTxID string
	docsSeq  int
	docsBulk bool
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage stored submission documents",
}

var docsImportCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Store a submission document as a new version",
	Long: "Stores a submission document under --tx. With --bulk the file is a JSON array of " +
		"{transaction_id, sequence, submission_data} versions, streamed into the store in chunks.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, envOptions{WithStore: true})
		if err != nil {
			return err
		}
		defer env.Close()

		if docsBulk {
			f, err := openInput(args[0])
			if err != nil {
				return err
			}
			defer f.Close() //nolint:errcheck
			n, err := importVersions(ctx, env.Store, f)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]int64{"imported": n})
		}

		if docsTxID == "" {
			return eris.New("--tx is required")
		}
		doc, err := fetcher.ReadJSONFile[map[string]any](args[0])
		if err != nil {
			return err
		}
		seq, err := env.Store.PutSubmission(ctx, store.SubmissionVersion{
			TransactionID: docsTxID,
			Sequence:      docsSeq,
			Data:          *doc,
		})
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), map[string]any{"transaction_id": docsTxID, "sequence": seq})
	},
}

var docsGetCmd = &cobra.Command{
	Use:   "get <transaction-id>",
	Short: "Print the latest submission document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, envOptions{WithStore: true})
		if err != nil {
			return err
		}
		defer env.Close()

		doc, err := env.Store.LatestSubmission(ctx, args[0])
		if err != nil {
			return err
		}
		if doc == nil {
			return eris.Errorf("no submission found for transaction %s", args[0])
		}
		return writeJSON(cmd.OutOrStdout(), doc)
	},
}

var docsHistoryCmd = &cobra.Command{
	Use:   "history <transaction-id>",
	Short: "List every stored version of a submission",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, envOptions{WithStore: true})
		if err != nil {
			return err
		}
		defer env.Close()

		versions, err := env.Store.ListVersions(ctx, args[0])
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), versions)
	},
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete <transaction-id>",
	Short: "Delete every version of a submission",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, envOptions{WithStore: true})
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Store.DeleteSubmission(ctx, args[0]); err != nil {
			return err
		}
		zap.L().Info("deleted submission", zap.String("transaction_id", args[0]))
		return nil
	},
}

// openInput opens path, or stdin for "-".
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	return f, nil
}

// importVersions streams a JSON array of versions into st in chunks.
func importVersions(ctx context.Context, st store.Store, r io.Reader) (int64, error) {
	items, errs := fetcher.DecodeJSONArray[store.SubmissionVersion](ctx, r)

	var total int64
	chunk := make([]store.SubmissionVersion, 0, importChunk)
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		n, err := st.PutSubmissions(ctx, chunk)
		if err != nil {
			return err
		}
		total += n
		zap.L().Debug("imported submission chunk", zap.Int64("rows", n), zap.Int64("total", total))
		chunk = chunk[:0]
		return nil
	}

	for v := range items {
		chunk = append(chunk, v)
		if len(chunk) == importChunk {
			if err := flush(); err != nil {
				// Drain so the decoder goroutine can exit.
				for range items {
				}
				return total, err
			}
		}
	}
	if err := <-errs; err != nil {
		return total, err
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

func init() {
	docsImportCmd.Flags().StringVar(&docsTxID, "tx", "", "transaction id")
	docsImportCmd.Flags().IntVar(&docsSeq, "seq", 0, "history sequence (default next after the latest)")
	docsImportCmd.Flags().BoolVar(&docsBulk, "bulk", false, "import a JSON array of versions")
	docsCmd.AddCommand(docsImportCmd, docsGetCmd, docsHistoryCmd, docsDeleteCmd)
	rootCmd.AddCommand(docsCmd)
}
