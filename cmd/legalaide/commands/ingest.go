package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/legalaide/legalaide-go/internal/logging"
)

// NewIngestCmd constructs the `legalaide ingest` command, which ingests a
// single decision file.
func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Ingest one decision file (PDF or text) into the corpus",
		Long: `Extract, clean, chunk, embed, and store a single decision.

Scanned PDFs whose text layer is too sparse are OCR'd when pdftoppm and
tesseract are available.

Examples:
  legalaide ingest decisions/gr-252091.pdf
  legalaide ingest decisions/gr-252091.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			st, err := buildStack(ctx, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer st.close()

			result, err := st.pipeline.IngestFile(ctx, args[0])
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			return printJSON(result)
		},
	}

	return cmd
}
