package commands

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/legalaide/legalaide-go/internal/logging"
	"github.com/legalaide/legalaide-go/internal/server"
)

// NewServeCmd constructs the `legalaide serve` command, which starts the
// HTTP API server.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the legalaide HTTP API server",
		Long: `Start the legalaide HTTP server.

The server exposes the ingestion and retrieval API: POST /api/ingest,
/api/reindex, /api/search, /api/ask, GET /api/case/{id}, plus health,
readiness, and Prometheus metrics endpoints.

Examples:
  legalaide serve
  legalaide serve --port 9090
  LEGALAIDE_API_KEY=sekret legalaide serve --host 0.0.0.0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			st, err := buildStack(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer st.close()

			pingers := []server.Pinger{server.NewPostgresPinger(st.store.Pool())}
			if st.settings.EmbeddingAPIURL != "" {
				pingers = append(pingers, server.NewHTTPPinger(st.settings.EmbeddingAPIURL, "embeddings"))
			}
			if st.settings.LLMAPIURL != "" {
				pingers = append(pingers, server.NewHTTPPinger(st.settings.LLMAPIURL, "llm"))
			}

			if host == "" {
				host = envOr("LEGALAIDE_HOST", "127.0.0.1")
			}
			if port == 0 {
				port, _ = strconv.Atoi(envOr("LEGALAIDE_PORT", "8080"))
			}

			srv, err := server.New(st.engine, st.pipeline, st.store, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("LEGALAIDE_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Host address to bind to (default: LEGALAIDE_HOST or 127.0.0.1)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "TCP port to listen on (default: LEGALAIDE_PORT or 8080)")

	return cmd
}

// envOr returns the named environment variable or fallback when unset.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
