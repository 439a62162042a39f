// Package main provides the examgen CLI — the root entrypoint wiring
// together the static analyser, step-by-step tracer, relational query
// compiler, and question-text renderer into seven verbs: run, query,
// generate, tui, serve, mcp and version.
//
// Grounded on cmd/gert/main.go's rootCmd + one-command-per-concern layout
// (validate/exec/debug/compile/schema/serve/test as cobra.Command values
// registered in an init(), flags defined alongside each command) — the
// same shape, carrying examgen's own verbs instead of runbook verbs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "examgen",
	Short: "Generate exam questions from traced execution of a small scripting language",
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("examgen %s (build: %s)\n", version, commit)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
}
