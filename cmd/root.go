// Package cmd implements the ragent command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ragent",
	Short: "ragent - adaptive retrieval and answering engine",
	Long: `ragent answers questions over a document corpus with hybrid retrieval.

When the retrieved context is sufficient it answers directly; otherwise a
tool-augmented agent searches the corpus, Wikipedia, arXiv, and the web.
Each conversation thread keeps its latest state in a checkpoint store.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
