// Package cmd contains the magpie command-line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "magpie",
	Short: "Magpie - terminal client for the MAGPIE agent platform",
	Long: `Magpie is a terminal client for the MAGPIE multi-agent platform.

Questions go to the master coordinator, which routes them to the right
specialist (engineering procedures, data science, or general chat).
Responses stream live and are kept in a local conversation history.

Running magpie with no arguments starts the interactive chat interface.`,
	RunE: runChat,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
