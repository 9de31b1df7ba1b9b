package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/cardscan/internal/device"
	"github.com/lehigh-university-libraries/cardscan/internal/models"
	"github.com/lehigh-university-libraries/cardscan/internal/session"
)

type newOptions struct {
	front      string
	back       string
	editor     string
	manualCrop []string
	fields     []string
	yes        bool
}

func newNewCmd(root *rootOptions) *cobra.Command {
	opts := &newOptions{}

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Scan a new card from front and back photos",
		Long: `Runs a complete card session from two photos.

Each photo is uploaded to the detector and cropped to the card. When the
detector cannot find the card the original photo is kept and flagged for
manual cropping. The back is then read for the card details, which you can
review and correct before the card is saved.`,
		Example: `  # Scan a card and review the details interactively
  cardscan new --front front.jpg --back back.jpg

  # Scan without prompts, fixing the team name
  cardscan new --front front.jpg --back back.jpg --field team=Yankees --yes

  # Re-crop the front by hand with an external editor
  cardscan new --front f.jpg --back b.jpg --editor "gimp -i" --manual-crop front`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNew(cmd.Context(), root, opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.front, "front", "", "Photo of the card front")
	cmd.Flags().StringVar(&opts.back, "back", "", "Photo of the card back")
	cmd.Flags().StringVar(&opts.editor, "editor", "", "Image editor command, run as '<editor> <input> <output>'")
	cmd.Flags().StringSliceVar(&opts.manualCrop, "manual-crop", nil, "Sides to crop by hand with --editor (front, back)")
	cmd.Flags().StringArrayVar(&opts.fields, "field", nil, "Set a card field, e.g. --field name='Mickey Mantle' (repeatable)")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Save without reviewing the card details")
	_ = cmd.MarkFlagRequired("front")
	_ = cmd.MarkFlagRequired("back")

	return cmd
}

func runNew(ctx context.Context, root *rootOptions, opts *newOptions, in io.Reader, out io.Writer) error {
	var editor device.Editor
	if opts.editor != "" {
		editor = device.CommandEditor{Command: opts.editor, OutDir: root.workDir("edits")}
	}
	var manual []models.Side
	for _, s := range opts.manualCrop {
		side, err := models.ParseSide(s)
		if err != nil {
			return err
		}
		manual = append(manual, side)
	}
	if len(manual) > 0 && editor == nil {
		return fmt.Errorf("--manual-crop requires --editor")
	}

	p, err := root.newPipeline(editor)
	if err != nil {
		return err
	}
	defer p.Close()

	sess := p.sessions.Start()
	defer p.sessions.Remove(sess.ID)

	photos := map[models.Side]string{models.SideFront: opts.front, models.SideBack: opts.back}
	for _, side := range []models.Side{models.SideFront, models.SideBack} {
		if err := captureSide(ctx, p, sess, side, photos[side], editor, slices.Contains(manual, side), out); err != nil {
			return err
		}
	}

	fields, err := p.extraction.Extract(ctx, sess)
	switch {
	case errors.Is(err, session.ErrExtractionUnavailable):
		fmt.Fprintf(out, "⚠️  %s\n", session.UserMessage(err))
	case err != nil:
		return fmt.Errorf("%s: %w", session.UserMessage(err), err)
	default:
		fmt.Fprintf(out, "Read card: %s\n", describe(fields))
	}

	for _, kv := range opts.fields {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("invalid --field %q: want name=value", kv)
		}
		if err := sess.UpdateField(key, value); err != nil {
			return err
		}
	}

	if !opts.yes {
		if err := reviewFields(sess, in, out); err != nil {
			return err
		}
	}

	id, err := p.finalization.Finalize(ctx, sess)
	if err != nil {
		return fmt.Errorf("%s: %w", session.UserMessage(err), err)
	}
	fmt.Fprintf(out, "✅ Saved card %s\n", id)
	return nil
}

func captureSide(ctx context.Context, p *pipeline, sess *session.Session, side models.Side, photo string, editor device.Editor, manual bool, out io.Writer) error {
	result, err := p.capture.Capture(ctx, sess, side, device.FileCamera{Path: photo})
	if err != nil {
		return fmt.Errorf("%s: %w", session.UserMessage(err), err)
	}

	switch result.State {
	case session.StateCancelled:
		return fmt.Errorf("capture of the %s was cancelled", side)
	case session.StateCropFallback:
		fmt.Fprintf(out, "⚠️  %s: %s\n", side, session.UserMessage(result.Cause))
		manual = manual || editor != nil
	default:
		fmt.Fprintf(out, "📷 %s captured (%s)\n", side, result.Slot.StorageKey)
	}

	if !manual {
		return nil
	}
	cropped, err := p.capture.ManualCrop(ctx, sess, side, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", session.UserMessage(err), err)
	}
	if cropped.Changed {
		fmt.Fprintf(out, "✂️  %s cropped by hand\n", side)
	}
	return nil
}

// reviewFields prompts for each field, keeping the current value on an empty
// answer
func reviewFields(sess *session.Session, in io.Reader, out io.Writer) error {
	f := sess.Fields()
	prompts := []struct {
		key, label, value string
	}{
		{"name", "Name", f.Name},
		{"card_number", "Card number", f.CardNumber},
		{"card_series", "Series", f.CardSeries},
		{"card_type", "Type", f.CardType},
		{"team_name", "Team", f.TeamName},
	}

	fmt.Fprintln(out, "Review the card details (press Enter to keep a value):")
	scanner := bufio.NewScanner(in)
	for _, p := range prompts {
		fmt.Fprintf(out, "  %s [%s]: ", p.label, p.value)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			break
		}
		if answer := strings.TrimSpace(scanner.Text()); answer != "" {
			if err := sess.UpdateField(p.key, answer); err != nil {
				return err
			}
		}
	}
	return scanner.Err()
}

func describe(f models.CardFields) string {
	if f.IsEmpty() {
		return "(no details found)"
	}
	var parts []string
	for _, v := range []string{f.Name, f.TeamName, f.CardSeries, f.CardType} {
		if v != "" {
			parts = append(parts, v)
		}
	}
	if f.CardNumber != "" {
		parts = append(parts, "#"+f.CardNumber)
	}
	return strings.Join(parts, ", ")
}
