// Package main is the CLI entry point for canvasd, the collaborative canvas
// AI agent daemon.
//
// canvasd accepts natural-language canvas commands over HTTP, runs them
// through a tool-calling LLM agent, and persists the resulting shapes.
//
// Start the server:
//
//	canvasd serve --config canvasd.yaml
//
// Configuration can also be provided via environment variables referenced in
// the config file, most importantly:
//
//   - OPENAI_API_KEY: OpenAI API key for GPT models
//   - ANTHROPIC_API_KEY: Anthropic API key for Claude models
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	root := &cobra.Command{
		Use:           "canvasd",
		Short:         "Collaborative canvas AI agent daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newVersionCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("canvasd %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
