package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/algotrace/tracequery/pkg/stepdriver"
	"github.com/algotrace/tracequery/pkg/tracetui"
)

var (
	tuiEntry string
	tuiVars  []string
)

var tuiCmd = &cobra.Command{
	Use:   "tui [source.src]",
	Short: "Run a source file's entry function and step through the trace in a terminal viewer",
	Args:  cobra.ExactArgs(1),
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().StringVar(&tuiEntry, "entry", "", "Entry function to call (required)")
	tuiCmd.Flags().StringArrayVar(&tuiVars, "var", nil, "Set a test-data argument (name=value), repeatable")
	_ = tuiCmd.MarkFlagRequired("entry")
}

func runTUI(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	testData, err := parseVarFlags(tuiVars)
	if err != nil {
		return err
	}

	result, err := stepdriver.Run(stepdriver.RunConfig{
		Source:        string(data),
		EntryFunction: tuiEntry,
		TestData:      testData,
	})
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	return tracetui.Run(tracetui.Config{
		Items:  result.Context.AllItems(),
		Scopes: result.Context.GlobalScope,
	})
}
