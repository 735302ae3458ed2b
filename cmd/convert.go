package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hangil-labs/geoconv/internal/addr"
	"github.com/hangil-labs/geoconv/internal/batch"
	"github.com/hangil-labs/geoconv/internal/config"
	"github.com/hangil-labs/geoconv/internal/merge"
	"github.com/hangil-labs/geoconv/internal/quota"
	"github.com/hangil-labs/geoconv/internal/resilience"
	"github.com/hangil-labs/geoconv/internal/table"
	"github.com/hangil-labs/geoconv/pkg/vworld"
)

var (
	convertInput       string
	convertOutput      string
	convertColumn      string
	convertSheet       string
	convertAudit       string
	convertLimit       int
	convertConcurrency int
	convertNoProgress  bool
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Geocode an address column and write the augmented table",
	Long: `Reads a tabular file (.xlsx or .csv), classifies and geocodes every
address in the chosen column, and writes the same table with latitude
and longitude columns appended. Unresolved rows keep empty coordinate
cells so they can be followed up by hand.

Examples:
  # Convert the 주소 column of an Excel file
  geoconv convert --input stores.xlsx --output stores_geocoded.xlsx --column 주소

  # CSV in, CSV out, first 100 rows only, with a classification audit
  geoconv convert --input addrs.csv --output out.csv --column address --limit 100 --audit audit.yaml`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		summary, err := runConvert(ctx, cfg, convertOptions{
			Input:        convertInput,
			Output:       convertOutput,
			Column:       convertColumn,
			Sheet:        convertSheet,
			Audit:        convertAudit,
			Limit:        convertLimit,
			Concurrency:  convertConcurrency,
			ShowProgress: !convertNoProgress,
		})
		if summary.Total > 0 {
			fmt.Printf("Converted %d rows: %d resolved (%.1f%%), %d failed, %d skipped, %d skipped by quota\n",
				summary.Total, summary.Resolved, summary.SuccessRate()*100,
				summary.Failed, summary.Skipped, summary.SkippedQuota)
		}
		return err
	},
}

func init() {
	convertCmd.Flags().StringVar(&convertInput, "input", "", "input .xlsx or .csv file (required)")
	convertCmd.Flags().StringVar(&convertOutput, "output", "", "output file; format follows its extension (required)")
	convertCmd.Flags().StringVar(&convertColumn, "column", "", "name of the address column (required)")
	convertCmd.Flags().StringVar(&convertSheet, "sheet", "", "xlsx sheet name (default: first sheet)")
	convertCmd.Flags().StringVar(&convertAudit, "audit", "", "write a YAML classification audit to this path")
	convertCmd.Flags().IntVar(&convertLimit, "limit", 0, "max rows to geocode; the rest pass through empty (0 = all)")
	convertCmd.Flags().IntVar(&convertConcurrency, "concurrency", 0, "rows in flight at once (default: config convert.concurrency)")
	convertCmd.Flags().BoolVar(&convertNoProgress, "no-progress", false, "disable the progress bar")
	_ = convertCmd.MarkFlagRequired("input")
	_ = convertCmd.MarkFlagRequired("output")
	_ = convertCmd.MarkFlagRequired("column")
	rootCmd.AddCommand(convertCmd)
}

type convertOptions struct {
	Input        string
	Output       string
	Column       string
	Sheet        string
	Audit        string
	Limit        int
	Concurrency  int
	ShowProgress bool
}

// runConvert executes the whole pipeline: read, resolve, merge, write.
// A fatal provider rejection still writes the partial output before the
// error is returned.
func runConvert(ctx context.Context, cfg *config.Config, opts convertOptions) (batch.Summary, error) {
	if cfg.VWorld.Key == "" {
		return batch.Summary{}, eris.New("convert: VWorld API key missing; set GEOCONV_VWORLD_KEY or vworld.key in config.yaml")
	}

	tbl, err := table.ReadFile(opts.Input, table.Options{SheetName: opts.Sheet})
	if err != nil {
		return batch.Summary{}, err
	}
	col, err := tbl.ColumnIndex(opts.Column)
	if err != nil {
		return batch.Summary{}, err
	}

	zap.L().Info("input loaded",
		zap.String("file", opts.Input),
		zap.Int("rows", len(tbl.Rows)),
		zap.Int("columns", len(tbl.Header)),
		zap.String("address_column", opts.Column),
	)

	records := batch.RecordsFromColumn(tbl, col)
	orchestrator, err := buildOrchestrator(cfg, opts, len(records))
	if err != nil {
		return batch.Summary{}, err
	}

	outcomes, runErr := orchestrator.Run(ctx, records)

	// Outcomes are complete even after an abort; merge and write what we have.
	out, err := merge.Append(tbl, outcomes)
	if err != nil {
		return batch.Summarize(outcomes), err
	}
	if err := table.WriteFile(opts.Output, out, table.Options{SheetName: opts.Sheet}); err != nil {
		return batch.Summarize(outcomes), err
	}

	if opts.Audit != "" {
		report := batch.NewAuditReport(opts.Column, outcomes)
		if err := report.WriteFile(opts.Audit); err != nil {
			return batch.Summarize(outcomes), err
		}
		zap.L().Info("audit report written",
			zap.String("path", opts.Audit),
			zap.String("run_id", report.RunID),
		)
	}

	return batch.Summarize(outcomes), runErr
}

// buildOrchestrator wires the classifier, provider client, and quota
// counter from configuration.
func buildOrchestrator(cfg *config.Config, opts convertOptions, total int) (*batch.Orchestrator, error) {
	fallback, err := cfg.Convert.FallbackTypes()
	if err != nil {
		return nil, err
	}

	q := quota.New(cfg.VWorld.DailyLimit)
	client := vworld.NewClient(cfg.VWorld.Key,
		vworld.WithBaseURL(cfg.VWorld.BaseURL),
		vworld.WithRateLimit(cfg.VWorld.RatePerSec),
		vworld.WithTimeout(time.Duration(cfg.VWorld.TimeoutSecs)*time.Second),
		vworld.WithRetryPolicy(resilience.Policy{MaxAttempts: cfg.VWorld.MaxAttempts}),
		vworld.WithQuota(q),
	)

	classifier := addr.NewClassifier(buildJudge(cfg.Judge))

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = cfg.Convert.Concurrency
	}

	batchOpts := []batch.Option{
		batch.WithFallbackOrder(fallback),
		batch.WithConcurrency(concurrency),
		batch.WithRowLimit(opts.Limit),
	}
	if opts.ShowProgress {
		bar := progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Geocoding"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		batchOpts = append(batchOpts, batch.WithProgress(func(batch.Outcome) {
			_ = bar.Add(1)
		}))
	}

	return batch.New(classifier, client, q, batchOpts...), nil
}

// buildJudge returns the configured classification judge, or nil when
// heuristics alone should decide.
func buildJudge(cfg config.JudgeConfig) addr.Judge {
	if cfg.Provider != "anthropic" || cfg.Key == "" {
		return nil
	}
	return addr.NewAnthropicJudge(cfg.Key, cfg.Model)
}
