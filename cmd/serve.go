package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/cardscan/internal/handlers"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		port       string
		sessionTTL time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the card session HTTP API",
		Long: `Starts the card session API on the specified port.

Clients start a session, post the photo of each side, optionally re-crop a
side by posting a rectangle, read and correct the card details and finalize.
Abandoned sessions are dropped after --session-ttl.`,
		Example: `  # Start server on default port 8888
  cardscan serve

  # Start server on custom port
  cardscan serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := root.newPipeline(nil)
			if err != nil {
				return err
			}
			defer p.Close()

			handler := handlers.New(handlers.Deps{
				Sessions:     p.sessions,
				Capture:      p.capture,
				Extraction:   p.extraction,
				Finalization: p.finalization,
				Cropper:      p.cropper,
				// uploads and crops share a directory so both are served under /uploads/
				UploadDir: p.cropper.Dir,
			})

			ctx, stop := context.WithCancel(cmd.Context())
			defer stop()
			go p.sessions.RunCleanup(ctx, 5*time.Minute, sessionTTL)

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Cardscan API available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			select {
			case <-ctx.Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().DurationVar(&sessionTTL, "session-ttl", time.Hour, "Drop sessions idle for longer than this")

	return cmd
}
