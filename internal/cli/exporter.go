package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/redhat-eets/glpi-helper-scripts/internal/metrics"
	"github.com/redhat-eets/glpi-helper-scripts/internal/middleware"
)

func newExporterCommand(opts *rootOptions) *cobra.Command {
	var (
		listen    string
		authToken string
	)

	cmd := &cobra.Command{
		Use:   "exporter",
		Short: "Serve Prometheus metrics about the GLPI inventory",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			client, err := opts.openSession(ctx)
			if err != nil {
				return err
			}
			defer closeSession(context.Background(), client)

			reg := metrics.NewRegistry(metrics.GLPISource{Client: client})

			mux := http.NewServeMux()
			mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintln(w, "ok")
			})
			mux.Handle("GET /metrics", middleware.Auth(authToken, metrics.Handler(reg)))

			srv := &http.Server{
				Addr:              listen,
				Handler:           middleware.RequestLogger(slog.Default(), mux),
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					slog.Error("shutdown exporter", "error", err)
				}
			}()

			slog.Info("exporter listening", "addr", listen)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", ":9464", "address to serve /metrics on")
	cmd.Flags().StringVar(&authToken, "auth-token", "", "require this Bearer token on /metrics")
	return cmd
}
