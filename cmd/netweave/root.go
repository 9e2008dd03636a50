package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use: "netweave",
	Short: "Netweave runs connection pipelines with idle-timeout " +
		"supervision.",
	Long: `Netweave runs connection pipelines with idle-timeout ` +
		`supervision. The serve subcommand starts a TCP echo server that ` +
		`closes connections left idle for longer than the configured ` +
		`threshold.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
