package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/legalaide/legalaide-go/internal/logging"
)

// NewReindexCmd constructs the `legalaide reindex` command, which ingests a
// whole folder of decisions.
func NewReindexCmd() *cobra.Command {
	var dropExisting bool

	cmd := &cobra.Command{
		Use:   "reindex [folder]",
		Short: "Ingest every decision under a folder",
		Long: `Recursively ingest every .pdf and .txt file under the given folder.

Files are processed in sorted path order. A file that fails to ingest is
recorded in the report and does not stop the run. With --drop-existing the
whole corpus is removed before reindexing.

Examples:
  legalaide reindex ./decisions
  legalaide reindex ./decisions --drop-existing`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			st, err := buildStack(ctx, log)
			if err != nil {
				return fmt.Errorf("reindex: %w", err)
			}
			defer st.close()

			report, err := st.pipeline.ReindexFolder(ctx, args[0], dropExisting)
			if err != nil {
				return fmt.Errorf("reindex: %w", err)
			}
			return printJSON(report)
		},
	}

	cmd.Flags().BoolVar(&dropExisting, "drop-existing", false, "Delete all stored cases before reindexing")

	return cmd
}
