package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/algotrace/tracequery/pkg/replquery"
	"github.com/algotrace/tracequery/pkg/stepdriver"
)

var (
	queryEntry string
	queryVars  []string
)

var queryCmd = &cobra.Command{
	Use:   "query [source.src]",
	Short: "Run a source file's entry function, then open an interactive query REPL over its trace",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryEntry, "entry", "", "Entry function to call (required)")
	queryCmd.Flags().StringArrayVar(&queryVars, "var", nil, "Set a test-data argument (name=value), repeatable")
	_ = queryCmd.MarkFlagRequired("entry")
}

func runQuery(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	testData, err := parseVarFlags(queryVars)
	if err != nil {
		return err
	}

	result, err := stepdriver.Run(stepdriver.RunConfig{
		Source:        string(data),
		EntryFunction: queryEntry,
		TestData:      testData,
	})
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	repl := replquery.New(result.Context.AllItems())
	return repl.Run()
}
