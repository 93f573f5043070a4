package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-dedup/internal/fetcher"
	"github.com/sells-group/lead-dedup/internal/model"
	"github.com/sells-group/lead-dedup/internal/pipeline"
)

// recordFlags are shared by the dedup and validate commands.
type recordFlags struct {
	input     string
	output    string
	minScore  int
	either    bool
	noStore   bool
	statsOnly bool
}

var (
	dedupFlags recordFlags
	dedupRules string
)

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Deduplicate, validate and filter a lead file",
	Long: "Reads leads from a CSV, XLSX or JSON file (local, zipped or over HTTP), merges duplicates, " +
		"validates and scores the survivors, and writes the records that meet the minimum quality score.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if dedupRules != "" {
			cfg.Dedup.RulesFile = dedupRules
			cfg.Dedup.Rules = nil
		}
		applyRecordFlags(cmd, &dedupFlags)
		if err := cfg.Validate("dedup"); err != nil {
			return err
		}

		return runRecords(ctx, cmd.OutOrStdout(), dedupFlags, func(p *pipeline.Pipeline, input string, recs []model.Record) (*pipeline.Output, error) {
			return p.Run(ctx, input, recs)
		})
	},
}

func init() {
	addRecordFlags(dedupCmd, &dedupFlags)
	dedupCmd.Flags().StringVar(&dedupRules, "rules", "", "YAML file of match rules (overrides dedup.rules)")
	rootCmd.AddCommand(dedupCmd)
}

func addRecordFlags(cmd *cobra.Command, f *recordFlags) {
	cmd.Flags().StringVar(&f.input, "input", "", "input file path, .zip archive or http(s) URL (csv, xlsx, json)")
	cmd.Flags().StringVar(&f.output, "output", "", "output file path (csv, xlsx, json)")
	cmd.Flags().IntVar(&f.minScore, "min-score", 0, "minimum quality score to keep (default from config)")
	cmd.Flags().BoolVar(&f.either, "either", false, "a record is valid when email OR phone is valid")
	cmd.Flags().BoolVar(&f.noStore, "no-store", false, "do not record the run in the ledger")
	cmd.Flags().BoolVar(&f.statsOnly, "stats-only", false, "print statistics without writing output")
	_ = cmd.MarkFlagRequired("input")
}

// applyRecordFlags copies explicitly set flags over the loaded config.
func applyRecordFlags(cmd *cobra.Command, f *recordFlags) {
	if cmd.Flags().Changed("min-score") {
		cfg.Validation.MinQualityScore = f.minScore
	}
	if f.either {
		cfg.Validation.ValidMode = "either"
	}
}

type runFunc func(p *pipeline.Pipeline, input string, recs []model.Record) (*pipeline.Output, error)

// runRecords loads the input, runs fn over it, writes the kept records and
// prints the run summary to w.
func runRecords(ctx context.Context, w io.Writer, f recordFlags, fn runFunc) error {
	if f.output == "" && !f.statsOnly {
		return eris.New("--output is required unless --stats-only is set")
	}
	if f.output != "" {
		if _, err := fetcher.DetectFormat(f.output); err != nil {
			return err
		}
	}

	recs, err := loadInput(ctx, f.input)
	if err != nil {
		return err
	}

	env, err := initPipeline(ctx, !f.noStore)
	if err != nil {
		return err
	}
	defer env.Close()

	out, err := fn(env.Pipeline, f.input, recs)
	if err != nil {
		return err
	}

	if !f.statsOnly {
		if err := fetcher.WriteRecords(f.output, out.Records()); err != nil {
			return err
		}
		zap.L().Info("wrote output", zap.String("path", f.output), zap.Int("records", len(out.Filtered)))
	}

	printSummary(w, out)
	return nil
}

// loadInput reads the records named by src, downloading or extracting it
// into a scratch directory first when needed.
func loadInput(ctx context.Context, src string) ([]model.Record, error) {
	dir, err := os.MkdirTemp("", "lead-dedup-*")
	if err != nil {
		return nil, eris.Wrap(err, "create scratch dir")
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	path, err := fetcher.Localize(ctx, fetcher.NewHTTPFetcher(fetcher.HTTPOptions{}), src, dir)
	if err != nil {
		return nil, err
	}
	recs, err := fetcher.ReadRecords(ctx, path)
	if err != nil {
		return nil, err
	}
	zap.L().Info("loaded input", zap.String("input", src), zap.Int("records", len(recs)))
	return recs, nil
}

// printSummary writes run statistics and the dataset quality report.
func printSummary(out io.Writer, o *pipeline.Output) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if o.RunID != "" {
		_, _ = fmt.Fprintf(w, "Run:\t%s\n", o.RunID)
	}
	s := o.Stats
	_, _ = fmt.Fprintf(w, "Input records:\t%d\n", s.InputCount)
	_, _ = fmt.Fprintf(w, "After dedup:\t%d\n", s.OutputCount)
	_, _ = fmt.Fprintf(w, "Duplicates removed:\t%d (%.2f%%)\n", s.RemovedCount, s.RemovedPercentage)
	_, _ = fmt.Fprintf(w, "Invalid records:\t%d\n", s.InvalidRecordCount)
	_, _ = fmt.Fprintf(w, "Below min score:\t%d\n", s.FilteredCount)
	_, _ = fmt.Fprintf(w, "Kept:\t%d\n", len(o.Filtered))
	if len(o.Failures) > 0 {
		_, _ = fmt.Fprintf(w, "Failed batches:\t%d\n", len(o.Failures))
	}
	if s.Truncated {
		_, _ = fmt.Fprintln(w, "Truncated:\tyes (cancelled before all batches ran)")
	}
	_ = w.Flush()

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprint(out, o.Report.Format())
}
