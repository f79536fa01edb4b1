package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/legalaide/legalaide-go/internal/elibrary"
	"github.com/legalaide/legalaide-go/internal/logging"
)

// NewSyncCmd constructs the `legalaide sync` command group, which manages the
// e-Library staging queue.
func NewSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Stage, download, and ingest decisions from the e-Library",
		Long: `Manage the local staging queue of e-Library decisions.

Decisions move through pending → downloading → downloaded → ingesting →
ingested (or failed). The queue lives in a local SQLite database so an
interrupted sync resumes where it left off.`,
	}

	cmd.AddCommand(
		newSyncStageCmd(),
		newSyncDownloadCmd(),
		newSyncIngestCmd(),
		newSyncStatusCmd(),
	)

	return cmd
}

// withSyncService opens the queue and the ingestion stack (when needed) and
// runs fn with the wired service.
func withSyncService(cmd *cobra.Command, needIngester bool, fn func(ctx context.Context, svc *elibrary.Service) error) error {
	log := logging.New()
	ctx := logging.WithLogger(cmd.Context(), log)

	st, err := buildStack(ctx, log)
	if err != nil {
		return err
	}
	defer st.close()

	queue, err := elibrary.OpenQueue(st.settings.SyncDBPath)
	if err != nil {
		return err
	}
	defer queue.Close()

	var ingester elibrary.Ingester
	if needIngester {
		ingester = st.pipeline
	}
	svc, err := elibrary.NewService(queue, ingester, st.settings.ElibraryBaseURL, st.settings.SyncDownloadDir)
	if err != nil {
		return err
	}
	return fn(ctx, svc)
}

func newSyncStageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stage [csv]",
		Short: "Stage decisions from a CSV listing (case_number, title, url)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSyncService(cmd, false, func(ctx context.Context, svc *elibrary.Service) error {
				staged, err := svc.StageFromCSV(ctx, args[0])
				if err != nil {
					return fmt.Errorf("sync stage: %w", err)
				}
				return printJSON(map[string]int{"staged": staged})
			})
		},
	}
}

func newSyncDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download",
		Short: "Download every pending decision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSyncService(cmd, false, func(ctx context.Context, svc *elibrary.Service) error {
				report, err := svc.DownloadPending(ctx)
				if err != nil {
					return fmt.Errorf("sync download: %w", err)
				}
				return printJSON(report)
			})
		},
	}
}

func newSyncIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Ingest every downloaded decision into the corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSyncService(cmd, true, func(ctx context.Context, svc *elibrary.Service) error {
				report, err := svc.IngestPending(ctx)
				if err != nil {
					return fmt.Errorf("sync ingest: %w", err)
				}
				return printJSON(report)
			})
		},
	}
}

func newSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show per-status decision counts in the staging queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSyncService(cmd, false, func(ctx context.Context, svc *elibrary.Service) error {
				stats, err := svc.Stats(ctx)
				if err != nil {
					return fmt.Errorf("sync status: %w", err)
				}
				return printJSON(stats)
			})
		},
	}
}
