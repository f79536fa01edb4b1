// Command legalaide is the entry point for the Philippine jurisprudence
// retrieval engine. It provides a CLI (via Cobra) for ingesting Supreme Court
// decisions and an HTTP server for search and grounded question answering.
package main

import (
	"fmt"
	"os"

	"github.com/legalaide/legalaide-go/cmd/legalaide/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
