package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/cardscan/internal/pricing"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var (
		output string
		export string
	)

	cmd := &cobra.Command{
		Use:   "history <card-id>",
		Short: "Show a card's valuation history",
		Example: `  # Newest first, with the chart series
  cardscan history 42

  # Save the history for analysis
  cardscan history 42 --export card-42.parquet`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := pricing.NewReader(root.client()).History(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if export != "" {
				if err := h.Export(export, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d price points to %s\n", len(h.Points), export)
			}

			out := cmd.OutOrStdout()
			if output != "text" {
				return printOutput(out, output, h)
			}
			if len(h.Points) == 0 {
				fmt.Fprintln(out, "No price history yet")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tESTIMATE\tLOW\tHIGH")
			for _, p := range h.Points {
				fmt.Fprintf(tw, "%s\t$%.2f\t$%.2f\t$%.2f\n", pricing.ChartLabel(p.ObservedAt), p.Estimate, p.Low, p.High)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			low, high := h.Range()
			fmt.Fprintf(out, "\nRange: $%.2f - $%.2f\nChart:", low, high)
			for _, c := range h.Chart {
				fmt.Fprintf(out, " %s=$%.2f", c.Label, c.Value)
			}
			fmt.Fprintln(out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text, json or yaml")
	cmd.Flags().StringVar(&export, "export", "", "Also write the history to a .parquet or .jsonl file")
	return cmd
}
