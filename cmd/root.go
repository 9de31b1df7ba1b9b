package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/cardscan/internal/config"
)

// rootOptions carries settings resolved before any subcommand runs
type rootOptions struct {
	configPath string
	cfg        config.Config
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "cardscan",
		Short: "Digitize trading cards: capture, detect, read, save and price",
		Long: `Cardscan turns photos of a trading card into a saved card record.

It uploads the front and back photos to the card detector, crops them,
reads the card details from the back, lets you correct them and saves the
card. Saved cards can then be listed, priced and tracked over time.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			path := opts.configPath
			if path == "" {
				path = os.Getenv("CARDSCAN_CONFIG")
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			opts.cfg = cfg

			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file (default $CARDSCAN_CONFIG)")

	cmd.AddCommand(newNewCmd(opts))
	cmd.AddCommand(newCardCmd(opts))
	cmd.AddCommand(newPriceCmd(opts))
	cmd.AddCommand(newHistoryCmd(opts))
	cmd.AddCommand(newRecentCmd(opts))
	cmd.AddCommand(newServeCmd(opts))

	return cmd
}
