package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/legalaide/legalaide-go/internal/logging"
	"github.com/legalaide/legalaide-go/internal/rag"
)

// filterDateLayout is the CLI date-flag format.
const filterDateLayout = "2006-01-02"

// filterFlags holds the shared search/ask filter flag values.
type filterFlags struct {
	court      string
	dateFrom   string
	dateTo     string
	caseNumber string
	topK       int
}

// register attaches the shared filter flags to cmd.
func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.court, "court", "", "Filter on exact court label")
	cmd.Flags().StringVar(&f.dateFrom, "from", "", "Inclusive promulgation date lower bound (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.dateTo, "to", "", "Inclusive promulgation date upper bound (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.caseNumber, "case-number", "", "Filter on exact G.R. docket number")
	cmd.Flags().IntVarP(&f.topK, "top-k", "k", 10, "Maximum number of results")
}

// parse converts the flag values into rag.SearchFilters.
func (f *filterFlags) parse() (rag.SearchFilters, error) {
	out := rag.SearchFilters{Court: f.court, CaseNumber: f.caseNumber}
	if f.dateFrom != "" {
		d, err := time.Parse(filterDateLayout, f.dateFrom)
		if err != nil {
			return out, fmt.Errorf("invalid --from date %q, want YYYY-MM-DD", f.dateFrom)
		}
		out.DateFrom = &d
	}
	if f.dateTo != "" {
		d, err := time.Parse(filterDateLayout, f.dateTo)
		if err != nil {
			return out, fmt.Errorf("invalid --to date %q, want YYYY-MM-DD", f.dateTo)
		}
		out.DateTo = &d
	}
	return out, nil
}

// NewSearchCmd constructs the `legalaide search` command, which retrieves the
// most relevant chunks for a query.
func NewSearchCmd() *cobra.Command {
	var flags filterFlags

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the corpus for relevant decision chunks",
		Long: `Embed the query, run a filtered similarity search, and print the
diversity-reranked chunks as JSON.

Examples:
  legalaide search "elements of estafa"
  legalaide search "bail pending appeal" --from 2020-01-01 -k 5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			filters, err := flags.parse()
			if err != nil {
				return err
			}

			st, err := buildStack(ctx, log)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			defer st.close()

			results, err := st.engine.SearchChunks(ctx, args[0], filters, flags.topK)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			return printJSON(results)
		},
	}

	flags.register(cmd)

	return cmd
}
