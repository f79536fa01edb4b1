// Package commands defines all Cobra CLI commands for the legalaide binary.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/legalaide/legalaide-go/internal/audit"
	"github.com/legalaide/legalaide-go/internal/config"
	"github.com/legalaide/legalaide-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "legalaide",
		Short: "legalaide — search and question-answering over PH Supreme Court decisions",
		Long: `legalaide ingests Philippine Supreme Court decisions (PDF or text),
splits them into section-aware chunks, embeds them, and stores them in
Postgres/pgvector. It then answers natural language questions grounded in
the retrieved jurisprudence.

Configuration is layered: a YAML config file (~/.legalaide/config.yaml)
provides defaults and environment variables always override it.
See 'legalaide --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// A local .env is a development convenience; a missing file is fine.
			_ = godotenv.Load()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.legalaide/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewIngestCmd(),
		NewReindexCmd(),
		NewSearchCmd(),
		NewAskCmd(),
		NewSyncCmd(),
		NewVersionCmd(),
	)

	return root
}
