package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"rfm-segmentation/pkg/database"
	"rfm-segmentation/pkg/models"
	"rfm-segmentation/pkg/rfm"
)

func init() {
	rootCmd.AddCommand(segmentsCmd)
	segmentsCmd.AddCommand(segmentsShowCmd)
}

var segmentsCmd = &cobra.Command{
	Use:   "segments",
	Short: "Print the segment rule table",
	Long: `Print the ordered rules mapping a recency/frequency score pair to a
segment. The first matching rule wins.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "PATTERN\tRECENCY\tFREQUENCY\tSEGMENT")
		for _, r := range rfm.Rules() {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Pattern(), r.Recency, r.Frequency, r.Segment)
		}
		return tw.Flush()
	},
}

var segmentsShowCmd = &cobra.Command{
	Use:   "show RUN_ID SEGMENT",
	Short: "List the customers of a segment saved by `run --save`",
	Args:  cobra.ExactArgs(2),
	RunE:  runSegmentsShow,
}

func runSegmentsShow(cmd *cobra.Command, args []string) error {
	runID := args[0]
	seg, err := models.ParseSegment(args[1])
	if err != nil {
		return err
	}
	cfg, err := setup()
	if err != nil {
		return err
	}
	if cfg.Source.DSN == "" {
		return fmt.Errorf("--dsn is required")
	}

	db, _, err := openDB(cmd.Context(), cfg.Source.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	customers, err := database.NewSegmentRepository(db).ListBySegment(cmd.Context(), runID, seg)
	if err != nil {
		return err
	}
	if len(customers) == 0 {
		return fmt.Errorf("no %s customers stored for run %s", seg, runID)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CUSTOMER\tRECENCY\tFREQUENCY\tMONETARY\tRFM")
	for _, c := range customers {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f\t%s\n", c.CustomerID, c.Recency, c.Frequency, c.Monetary, c.RFMScore())
	}
	return tw.Flush()
}
