package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/algotrace/tracequery/pkg/stepdriver"
)

var (
	runEntry string
	runVars  []string
)

var runCmd = &cobra.Command{
	Use:   "run [source.src]",
	Short: "Run a source file's entry function and print the captured trace summary",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runEntry, "entry", "", "Entry function to call (required)")
	runCmd.Flags().StringArrayVar(&runVars, "var", nil, "Set a test-data argument (name=value), repeatable")
	_ = runCmd.MarkFlagRequired("entry")
}

func runRun(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	testData, err := parseVarFlags(runVars)
	if err != nil {
		return err
	}

	result, err := stepdriver.Run(stepdriver.RunConfig{
		Source:        string(data),
		EntryFunction: runEntry,
		TestData:      testData,
	})
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	items := result.Context.AllItems()
	fmt.Printf("run %s completed in %s\n", result.RunID, result.Duration)
	fmt.Printf("%d trace rows captured\n", len(items))
	return nil
}

// parseVarFlags converts "name=value" flags into a test-data map,
// guessing int64/float64/bool/string the same way replquery's REPL
// console resolves a typed literal from raw command-line text.
func parseVarFlags(vars []string) (map[string]any, error) {
	out := make(map[string]any, len(vars))
	for _, v := range vars {
		parts := strings.SplitN(v, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid --var %q: expected name=value", v)
		}
		out[parts[0]] = parseLiteral(parts[1])
	}
	return out, nil
}

func parseLiteral(raw string) any {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}
