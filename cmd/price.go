package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/cardscan/internal/pricing"
)

func newPriceCmd(root *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "price <card-id>",
		Short: "Show the current market estimate for a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			est, err := pricing.NewReader(root.client()).Estimate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if output != "text" {
				return printOutput(out, output, est)
			}
			if est == nil {
				fmt.Fprintln(out, "No pricing data yet")
				return nil
			}
			fmt.Fprintf(out, "Estimate:   $%.2f\n", est.Estimate)
			fmt.Fprintf(out, "Range:      $%.2f - $%.2f\n", est.Low, est.High)
			fmt.Fprintf(out, "Confidence: %.0f%%\n", est.Confidence*100)
			fmt.Fprintf(out, "Sales:      %d\n", est.NumSales)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text, json or yaml")
	return cmd
}
