package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/cardscan/internal/api"
	"github.com/lehigh-university-libraries/cardscan/internal/models"
)

func newCardCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "card",
		Short: "Inspect and manage saved cards",
	}
	cmd.AddCommand(newCardGetCmd(root))
	cmd.AddCommand(newCardListCmd(root))
	cmd.AddCommand(newCardSaveCmd(root))
	return cmd
}

func newCardGetCmd(root *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get <card-id>",
		Short: "Show one card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := root.client()
			card, err := client.GetCard(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output != "text" {
				return printOutput(cmd.OutOrStdout(), output, card)
			}
			printCard(cmd.OutOrStdout(), client, card)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text, json or yaml")
	return cmd
}

func printCard(w io.Writer, client *api.Client, card *models.Card) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", card.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", card.Name)
	fmt.Fprintf(tw, "Number:\t%s\n", card.CardNumber)
	fmt.Fprintf(tw, "Series:\t%s\n", card.CardSeries)
	fmt.Fprintf(tw, "Type:\t%s\n", card.CardType)
	fmt.Fprintf(tw, "Team:\t%s\n", card.TeamName)
	fmt.Fprintf(tw, "Saved:\t%t\n", card.Saved)
	fmt.Fprintf(tw, "Front:\t%s\n", client.ImageURL(card.FrontImageKey))
	fmt.Fprintf(tw, "Back:\t%s\n", client.ImageURL(card.BackImageKey))
	_ = tw.Flush()
}

func newCardListCmd(root *rootOptions) *cobra.Command {
	var (
		opts   api.ListOptions
		query  string
		output string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent cards",
		Example: `  # Saved cards matching a player or team
  cardscan card list --saved --query yankees`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cards, err := root.client().ListCards(cmd.Context(), opts)
			if err != nil {
				return err
			}
			cards = api.Filter(cards, query)
			if output != "text" {
				return printOutput(cmd.OutOrStdout(), output, cards)
			}

			if len(cards) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No cards found")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tNUMBER\tTEAM\tSAVED")
			for _, c := range cards {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", c.ID, c.Name, c.CardNumber, c.TeamName, c.Saved)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&opts.Limit, "limit", api.DefaultListLimit, "Maximum number of cards to fetch")
	cmd.Flags().BoolVar(&opts.Saved, "saved", false, "Only saved cards")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Filter by name, team or card number")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text, json or yaml")
	return cmd
}

func newCardSaveCmd(root *rootOptions) *cobra.Command {
	var unsave bool

	cmd := &cobra.Command{
		Use:   "save <card-id>",
		Short: "Mark a card as saved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := root.client().SetSaved(cmd.Context(), args[0], !unsave); err != nil {
				return err
			}
			if unsave {
				fmt.Fprintf(cmd.OutOrStdout(), "Card %s removed from saved\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Card %s saved\n", args[0])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&unsave, "unsave", false, "Remove the saved mark instead")
	return cmd
}
