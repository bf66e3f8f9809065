package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"rfm-segmentation/pkg/calculator"
	"rfm-segmentation/pkg/config"
	"rfm-segmentation/pkg/database"
	"rfm-segmentation/pkg/export"
	"rfm-segmentation/pkg/ingest"
	"rfm-segmentation/pkg/log"
	"rfm-segmentation/pkg/models"
	"rfm-segmentation/pkg/rfm"
)

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.StringP("input", "i", "", "Online Retail export (.xlsx or .csv)")
	f.String("sheet", "", "Worksheet to read (default: first sheet)")
	f.String("reference-date", "2011-12-11", "Date recency is measured from (YYYY-MM-DD)")
	f.Bool("save", false, "Store the segment assignments in the rfm_segments table (requires --dsn)")
	f.Bool("describe", false, "Print descriptive statistics of the metrics")
	f.String("export-segment", string(models.LoyalCustomers), "Segment written to --output")
	f.StringP("output", "o", "", "Export file for --export-segment")
	f.String("format", "xlsx", "Export format (xlsx, csv or json)")

	bindFlags(f, map[string]string{
		"input":          "input",
		"sheet":          "sheet",
		"reference_date": "reference-date",
		"save":           "save",
		"describe":       "describe",
		"export_segment": "export-segment",
		"output":         "output",
		"format":         "format",
	})
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compute RFM scores and segments",
	Long: `Load transactions, compute recency/frequency/monetary per customer,
score each metric in quintiles and classify customers into segments.
Prints one summary line per segment and optionally exports one segment.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	source, store, closeDB, err := openSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	res, err := calculator.Run(ctx, source, store, models.Config{
		ReferenceDate: cfg.Run.ReferenceDate,
		Persist:       cfg.Run.Save,
		Verbose:       cfg.App.Verbose,
	})
	if err != nil {
		return fmt.Errorf("compute: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s ; reference %s ; transactions=%d ; customers=%d ; dropped=%d\n",
		res.RunID, res.ReferenceDate.Format(config.DateLayout), res.TransactionsIn, len(res.Customers), res.DroppedCustomer)
	if err := printSummary(out, res.Summary); err != nil {
		return err
	}

	if cfg.Run.Describe {
		metrics := make([]models.CustomerMetrics, len(res.Customers))
		for i, c := range res.Customers {
			metrics[i] = c.CustomerMetrics
		}
		if err := printDescribe(out, rfm.Describe(metrics)); err != nil {
			return err
		}
	}

	if cfg.Export.Output == "" {
		return nil
	}
	seg, err := models.ParseSegment(cfg.Export.Segment)
	if err != nil {
		return err
	}
	format, err := export.ParseFormat(cfg.Export.Format)
	if err != nil {
		return err
	}
	selected := rfm.FilterBySegment(res.Customers, seg)
	if err := export.WriteFile(cfg.Export.Output, format, selected); err != nil {
		return err
	}
	log.ForContext(ctx).WithField("segment", seg).Infof("exported %d customers to %s", len(selected), cfg.Export.Output)
	return nil
}

// setup loads the configuration and applies its logging settings.
func setup() (*config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	if err := log.Setup(cfg.App.LogLevel, cfg.App.LogFormat); err != nil {
		return nil, fmt.Errorf("log_level: %w", err)
	}
	return cfg, nil
}

// openSource picks the transaction source from cfg. The store is nil unless
// saving was requested.
func openSource(ctx context.Context, cfg *config.Config) (calculator.TransactionSource, calculator.SegmentStore, func(), error) {
	noop := func() {}
	if cfg.Source.DSN == "" {
		return ingest.FileSource{Path: cfg.Source.Input, Sheet: cfg.Source.Sheet}, nil, noop, nil
	}

	db, dsnUsed, err := openDB(ctx, cfg.Source.DSN)
	if err != nil {
		return nil, nil, noop, err
	}
	closeDB := func() { _ = db.Close() }
	log.L.Debugf("connected dsn=%s", dsnUsed)

	source := database.TableSource{DB: db, Table: cfg.Source.Table}
	if !cfg.Run.Save {
		return source, nil, closeDB, nil
	}
	repo := database.NewSegmentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		closeDB()
		return nil, nil, noop, err
	}
	return source, repo, closeDB, nil
}

func openDB(ctx context.Context, dsn string) (*sql.DB, string, error) {
	db, dsnUsed, err := database.Open(dsn)
	if err != nil {
		return nil, "", fmt.Errorf("open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("ping db: %w", err)
	}
	return db, dsnUsed, nil
}

func printSummary(w io.Writer, summary []models.SegmentSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEGMENT\tCUSTOMERS\tRECENCY\tFREQUENCY\tMONETARY")
	for _, s := range summary {
		fmt.Fprintf(tw, "%s\t%d\t%.1f\t%.1f\t%.2f\n", s.Segment, s.Count, s.RecencyMean, s.FrequencyMean, s.MonetaryMean)
	}
	return tw.Flush()
}

func printDescribe(w io.Writer, stats []rfm.Stats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METRIC\tCOUNT\tMEAN\tSTD\tMIN\t25%\t50%\t75%\tMAX")
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\n",
			s.Metric, s.Count, s.Mean, s.Std, s.Min, s.P25, s.P50, s.P75, s.Max)
	}
	return tw.Flush()
}
