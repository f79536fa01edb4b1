package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/legalaide/legalaide-go/internal/logging"
)

// NewAskCmd constructs the `legalaide ask` command, which answers a question
// grounded in the retrieved jurisprudence.
func NewAskCmd() *cobra.Command {
	var flags filterFlags
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question grounded in the stored decisions",
		Long: `Retrieve the most relevant decision chunks and synthesize an answer
with the configured language model. Without LLM credentials the retrieved
context is printed instead, so the command works fully offline.

Examples:
  legalaide ask "what are the elements of estafa?"
  legalaide ask "when is bail a matter of right?" --court "PH Supreme Court"
  legalaide ask --json "what did the court rule on psychological incapacity?"`,
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
				return fmt.Errorf("ask: %w", err)
			}
			defer st.close()

			answer, err := st.engine.AnswerQuestion(ctx, args[0], filters, flags.topK)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			if jsonOut {
				return printJSON(answer)
			}
			fmt.Println(answer.Answer)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the full answer object (chunks, case IDs) as JSON")

	return cmd
}
