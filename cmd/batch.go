package main

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/intake-cli/internal/resilience"
	"github.com/sells-group/intake-cli/internal/submission"
)

var batchLimit int

var batchCmd = &cobra.Command{
	Use:   "batch <ids-file>",
	Short: "Run the completeness checker for many transactions",
	Long:  "Reads transaction ids (one per line, # comments allowed, - for stdin) and checks each stored submission concurrently.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		f, err := openInput(args[0])
		if err != nil {
			return err
		}
		ids, err := readIDs(f)
		_ = f.Close()
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, envOptions{WithStore: true})
		if err != nil {
			return err
		}
		defer env.Close()

		summary, err := processBatch(ctx, ids, batchLimit, cfg.Batch.Concurrency, env.check)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), summary)
	},
}

// checkFunc runs the completeness checker for one transaction.
type checkFunc func(ctx context.Context, txID string, mods map[string]any) submission.Report

// batchItem is the per-transaction line of a batch summary.
type batchItem struct {
	TransactionID string  `json:"transaction_id"`
	Status        string  `json:"status"`
	OverallStatus string  `json:"overall_status,omitempty"`
	QualityScore  float64 `json:"quality_score"`
	Error         string  `json:"error,omitempty"`
	ErrorType     string  `json:"error_type,omitempty"`
}

// batchSummary is the output of a batch run.
type batchSummary struct {
	Total     int         `json:"total"`
	Succeeded int64       `json:"succeeded"`
	Failed    int64       `json:"failed"`
	Results   []batchItem `json:"results"`
}

// readIDs reads one transaction id per line, skipping blanks, comments
// and repeats.
func readIDs(r io.Reader) ([]string, error) {
	seen := map[string]bool{}
	var ids []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		id := strings.TrimSpace(sc.Text())
		if id == "" || strings.HasPrefix(id, "#") || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "batch: read ids")
	}
	return ids, nil
}

// processBatch applies limit, then checks ids concurrently. Individual
// failures are recorded in the summary and never abort the batch.
func processBatch(ctx context.Context, ids []string, limit, concurrency int, check checkFunc) (*batchSummary, error) {
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	summary := &batchSummary{Total: len(ids), Results: make([]batchItem, len(ids))}
	if len(ids) == 0 {
		zap.L().Info("batch: no transaction ids")
		return summary, nil
	}

	zap.L().Info("processing batch",
		zap.Int("transactions", len(ids)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64

	for i, id := range ids {
		g.Go(func() error {
			log := zap.L().With(zap.String("transaction_id", id))

			rep := check(gctx, id, nil)
			item := batchItem{
				TransactionID: id,
				Status:        string(rep.Status),
				OverallStatus: rep.Summary.OverallStatus,
				QualityScore:  rep.Summary.QualityScore,
			}
			if rep.Status != submission.StatusSuccess {
				failed.Add(1)
				item.Error = rep.Error
				item.ErrorType = resilience.Classify(rep.Err)
				log.Warn("check failed", zap.String("error_type", item.ErrorType), zap.Error(rep.Err))
			} else {
				succeeded.Add(1)
				log.Debug("check complete", zap.Float64("quality_score", rep.Summary.QualityScore))
			}
			summary.Results[i] = item
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "batch processing")
	}

	summary.Succeeded = succeeded.Load()
	summary.Failed = failed.Load()
	zap.L().Info("batch complete",
		zap.Int64("succeeded", summary.Succeeded),
		zap.Int64("failed", summary.Failed),
	)
	return summary, nil
}

func init() {
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of transactions to check (0 = all)")
	rootCmd.AddCommand(batchCmd)
}
