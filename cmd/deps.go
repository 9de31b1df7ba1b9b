package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/cardscan/internal/api"
	"github.com/lehigh-university-libraries/cardscan/internal/crop"
	"github.com/lehigh-university-libraries/cardscan/internal/device"
	"github.com/lehigh-university-libraries/cardscan/internal/imaging"
	"github.com/lehigh-university-libraries/cardscan/internal/ledger"
	"github.com/lehigh-university-libraries/cardscan/internal/ocr"
	"github.com/lehigh-university-libraries/cardscan/internal/session"
)

func (o *rootOptions) client() *api.Client {
	client := api.NewClient(o.cfg.APIURL, api.StaticToken(o.cfg.Token), o.cfg.HTTPTimeout)
	client.StorageURL = o.cfg.StorageURL
	return client
}

func (o *rootOptions) ledgerPath() string {
	if o.cfg.LedgerPath != "" {
		return o.cfg.LedgerPath
	}
	return ledger.DefaultPath()
}

func (o *rootOptions) workDir(name string) string {
	return filepath.Join(o.cfg.WorkDir, "cardscan", name)
}

// pipeline is everything a capture session needs, wired to the backend
type pipeline struct {
	sessions     *session.Manager
	capture      *session.CaptureOrchestrator
	extraction   *session.ExtractionOrchestrator
	finalization *session.FinalizationOrchestrator
	cropper      *imaging.FileCropper
	ledger       *ledger.Store
}

func (o *rootOptions) newPipeline(editor device.Editor) (*pipeline, error) {
	client := o.client()

	extractor, err := ocr.NewService(o.cfg, client)
	if err != nil {
		return nil, err
	}

	cropper := imaging.NewFileCropper(o.workDir("crops"))
	executor := crop.NewExecutor(cropper, device.TempGallery{Dir: o.workDir("gallery")}, editor)

	p := &pipeline{
		sessions:     session.NewManager(),
		capture:      session.NewCaptureOrchestrator(client, executor, o.cfg.DetectorMaxSide),
		extraction:   session.NewExtractionOrchestrator(extractor),
		finalization: session.NewFinalizationOrchestrator(client),
		cropper:      cropper,
	}
	p.finalization.OnFinalized(p.sessions.RemoveOnFinalize)

	store, err := ledger.Open(o.ledgerPath())
	if err != nil {
		slog.Warn("Local ledger unavailable, finalized cards will not be recorded", "path", o.ledgerPath(), "err", err)
	} else {
		p.ledger = store
		p.finalization.OnFinalized(store.Record)
	}
	return p, nil
}

func (p *pipeline) Close() {
	if p.ledger != nil {
		if err := p.ledger.Close(); err != nil {
			slog.Error("Unable to close ledger", "err", err)
		}
	}
}

// printOutput renders v in the requested machine-readable format
func printOutput(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}
