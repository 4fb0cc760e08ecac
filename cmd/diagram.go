package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/koopa0/ragent/internal/orchestrator"
)

var diagramCmd = &cobra.Command{
	Use:   "diagram",
	Short: "Print the turn state machine as a mermaid diagram",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(orchestrator.Diagram())
	},
}

func init() {
	rootCmd.AddCommand(diagramCmd)
}
