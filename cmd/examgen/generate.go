package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/algotrace/tracequery/pkg/distractor"
	"github.com/algotrace/tracequery/pkg/querycompile"
	"github.com/algotrace/tracequery/pkg/questionspec"
	"github.com/algotrace/tracequery/pkg/questiontext"
	"github.com/algotrace/tracequery/pkg/stepdriver"
)

var (
	generateFixture       string
	generateName          string
	generateQuestionType  string
	generateNumDistractor int
)

var generateCmd = &cobra.Command{
	Use:   "generate [fixture.yaml]",
	Short: "Generate an exam question from a question-spec fixture",
	Args:  cobra.ExactArgs(1),
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateName, "name", "", "Generate only the named spec in the fixture file (default: all)")
	generateCmd.Flags().StringVar(&generateQuestionType, "question-type", "written", "mcq | mrq | written")
	generateCmd.Flags().IntVar(&generateNumDistractor, "distractors", 3, "Number of distractor options for mcq/mrq")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	fx, err := questionspec.LoadFile(args[0])
	if err != nil {
		return fmt.Errorf("load fixture: %w", err)
	}

	for _, spec := range fx.Specs {
		if generateName != "" && spec.Name != generateName {
			continue
		}
		if errs := questionspec.Validate(spec); len(errs) > 0 {
			fmt.Fprintf(os.Stderr, "skipping %q: %v\n", spec.Name, errs)
			continue
		}
		if err := generateOne(spec); err != nil {
			fmt.Fprintf(os.Stderr, "generating %q: %v\n", spec.Name, err)
		}
	}
	return nil
}

func generateOne(spec questionspec.Spec) error {
	run, err := stepdriver.Run(stepdriver.RunConfig{
		Source:        spec.Program,
		EntryFunction: spec.EntryFunction,
		TestData:      spec.TestData,
	})
	if err != nil {
		return fmt.Errorf("running algorithm: %w", err)
	}

	target := make([]querycompile.TargetElement, len(spec.Target))
	for i, t := range spec.Target {
		target[i] = t.Compile()
	}
	outputType := querycompile.OutputType(spec.OutputType)

	gen := querycompile.NewGenerator(run.Context)
	q, err := gen.GenerateQuery(target, outputType)
	if err != nil {
		return fmt.Errorf("compiling query: %w", err)
	}
	answerRows, err := q.Execute()
	if err != nil {
		return fmt.Errorf("executing query: %w", err)
	}

	qtype := questiontext.QuestionType(generateQuestionType)
	text, err := questiontext.Generate(target, outputType, qtype, spec.TestData)
	if err != nil {
		return fmt.Errorf("rendering question text: %w", err)
	}

	response := map[string]any{
		"name":     spec.Name,
		"question": text,
	}
	if len(answerRows) == 1 {
		response["answer"] = answerRows[0]
	} else {
		response["answer"] = answerRows
	}

	if qtype == questiontext.QuestionMCQ || qtype == questiontext.QuestionMRQ {
		genForDistractors := querycompile.NewGenerator(run.Context)
		opts := distractor.Generate(answerRows, target, outputType, genForDistractors, generateNumDistractor)
		options := make([]any, 0, len(opts)+1)
		options = append(options, response["answer"])
		for _, o := range opts {
			options = append(options, o.Value)
		}
		response["options"] = options
		response["correct_indices"] = []int{0}
	}

	data, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
