package main

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "timeros",
	Short: "TimerOS - schedule tasks in plain language, run them with an agent",
	Long: `TimerOS turns natural-language task descriptions into scheduled jobs.
When a job fires, an LLM agent completes it using web search, email,
Notion, and data analysis tools, and the outcome is persisted for audit.`,
	Version: Version,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
}
