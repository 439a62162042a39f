// Package questiontext renders a target/output_type/question_type spec
// into a natural-language question prompt.
//
// Grounded on
// original_source/src/edcraft_engine/question_generator/text_generator/text_generator.py
// — the context/target/question-type/input-data phrase structure is
// carried over verbatim; the question-type phrase is rendered with
// text/template (the other phrases use fmt.Sprintf) the way
// the teacher's pkg/kernel/eval/eval.go renders runbook templates, since
// that's the teacher's own choice of tool for this job, not a
// stdlib-fallback here.
package questiontext

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/algotrace/tracequery/pkg/querycompile"
)

// QuestionType selects the closing instruction sentence.
type QuestionType string

const (
	QuestionMCQ     QuestionType = "mcq"
	QuestionMRQ     QuestionType = "mrq"
	QuestionWritten QuestionType = "written"
)

var questionTypePhrase = template.Must(template.New("qtype").Parse(
	`{{if eq .Type "mcq"}}Choose the correct option.{{else if eq .Type "mrq"}}Select all that apply.{{else}}Provide the answer.{{end}}`,
))

// Generate renders the full question prompt for target/outputType, given
// the question_type and the test-data input bound for this run.
func Generate(target []querycompile.TargetElement, outputType querycompile.OutputType, qtype QuestionType, inputData map[string]any) (string, error) {
	if len(target) == 0 {
		return "", fmt.Errorf("questiontext: target must name at least one element")
	}
	context := buildContext(target[:len(target)-1])
	targetPhrase := buildTarget(target[len(target)-1], outputType)

	var qt bytes.Buffer
	if err := questionTypePhrase.Execute(&qt, struct{ Type string }{string(qtype)}); err != nil {
		return "", fmt.Errorf("questiontext: rendering question type phrase: %w", err)
	}

	inputPhrase := buildInputDataPhrase(inputData)
	return fmt.Sprintf("%s, %s? %s\nGiven input: %s", context, targetPhrase, qt.String(), inputPhrase), nil
}

// buildContext renders every target element before the final one as a
// hierarchical "in the loop at line 3, for each `f()` call" lead-in.
func buildContext(targets []querycompile.TargetElement) string {
	var parts []string
	for _, t := range targets {
		switch t.Type {
		case "function":
			name := "function"
			if t.Name != nil {
				name = *t.Name
			}
			lineInfo := ""
			if t.LineNumber != nil {
				lineInfo = fmt.Sprintf(" (line %d)", *t.LineNumber)
			}
			parts = append(parts, fmt.Sprintf("for each `%s()` call%s", name, lineInfo))
		case "loop":
			if t.Modifier == "loop_iterations" {
				if t.LineNumber != nil {
					parts = append(parts, fmt.Sprintf("for each loop iteration (line %d)", *t.LineNumber))
				} else {
					parts = append(parts, "for each loop iteration")
				}
			} else if t.LineNumber != nil {
				parts = append(parts, fmt.Sprintf("in the loop at line %d", *t.LineNumber))
			} else {
				parts = append(parts, "in the loop")
			}
		case "branch":
			name := ""
			if t.Name != nil {
				name = *t.Name
			}
			line := 0
			if t.LineNumber != nil {
				line = *t.LineNumber
			}
			parts = append(parts, fmt.Sprintf("in each `%s` branch (line %d)", name, line))
			if t.Modifier != "" {
				cond := "true"
				if t.Modifier == "branch_false" {
					cond = "false"
				}
				parts = append(parts, fmt.Sprintf("when the condition is %s", cond))
			}
		}
	}
	if len(parts) == 0 {
		return "During execution"
	}
	parts[0] = strings.ToUpper(parts[0][:1]) + parts[0][1:]
	return strings.Join(parts, ", ")
}

func buildTarget(t querycompile.TargetElement, outputType querycompile.OutputType) string {
	switch t.Type {
	case "function":
		return buildFuncTarget(t, outputType)
	case "loop":
		return buildLoopTarget(t, outputType)
	case "branch":
		return buildBranchTarget(t, outputType)
	case "variable":
		return buildVariableTarget(t, outputType)
	default:
		return "unknown target"
	}
}

func name(t querycompile.TargetElement) string {
	if t.Name != nil {
		return *t.Name
	}
	return ""
}

func buildFuncTarget(t querycompile.TargetElement, outputType querycompile.OutputType) string {
	n := name(t)
	if outputType == querycompile.OutputCount {
		switch t.Modifier {
		case "arguments":
			return fmt.Sprintf("how many unique sets of arguments were passed to function `%s()`", n)
		case "return_value":
			return fmt.Sprintf("how many unique return values were produced by function `%s()`", n)
		default:
			return fmt.Sprintf("how many times was function `%s()` called", n)
		}
	}
	quantifier := "each"
	switch outputType {
	case querycompile.OutputFirst:
		quantifier = "the first"
	case querycompile.OutputLast:
		quantifier = "the last"
	}
	switch t.Modifier {
	case "arguments":
		return fmt.Sprintf("what are the arguments passed to %s function `%s()` call", quantifier, n)
	case "return_value":
		return fmt.Sprintf("what is the return value of %s function `%s()` call", quantifier, n)
	default:
		if outputType == querycompile.OutputList {
			return fmt.Sprintf("what are the function `%s()` calls", n)
		}
		return fmt.Sprintf("what is %s function `%s()` call", quantifier, n)
	}
}

func buildLoopTarget(t querycompile.TargetElement, outputType querycompile.OutputType) string {
	line := 0
	if t.LineNumber != nil {
		line = *t.LineNumber
	}
	if t.Modifier == "loop_iterations" {
		switch outputType {
		case querycompile.OutputCount:
			return fmt.Sprintf("how many loop iterations are there in each loop execution (line %d)", line)
		case querycompile.OutputFirst:
			return fmt.Sprintf("what is the first loop iteration for each loop execution (line %d)", line)
		case querycompile.OutputLast:
			return fmt.Sprintf("what is the last loop iteration for each loop execution (line %d)", line)
		default:
			return fmt.Sprintf("what are the loop iterations for each loop execution (line %d)", line)
		}
	}
	switch outputType {
	case querycompile.OutputCount:
		return fmt.Sprintf("how many times does the loop (line %d) execute", line)
	case querycompile.OutputFirst:
		return fmt.Sprintf("what is the first execution of the loop (line %d)", line)
	case querycompile.OutputLast:
		return fmt.Sprintf("what is the last execution of the loop (line %d)", line)
	default:
		return fmt.Sprintf("what are the executions of the loop (line %d)", line)
	}
}

func buildBranchTarget(t querycompile.TargetElement, outputType querycompile.OutputType) string {
	var question string
	switch outputType {
	case querycompile.OutputCount:
		question = "how many times do"
	case querycompile.OutputList:
		question = "what are the times"
	case querycompile.OutputFirst:
		question = "what is the first time"
	default:
		question = "what is the last time"
	}
	context := ""
	switch t.Modifier {
	case "branch_true":
		context = " when the condition is true"
	case "branch_false":
		context = " when the condition is false"
	}
	line := 0
	if t.LineNumber != nil {
		line = *t.LineNumber
	}
	return fmt.Sprintf("%s we enter the branch `%s` (line %d)%s", question, name(t), line, context)
}

func buildVariableTarget(t querycompile.TargetElement, outputType querycompile.OutputType) string {
	n := name(t)
	switch outputType {
	case querycompile.OutputCount:
		return fmt.Sprintf("how many times was the variable `%s` modified", n)
	case querycompile.OutputFirst:
		return fmt.Sprintf("what is the value of the variable `%s` at the beginning", n)
	case querycompile.OutputLast:
		return fmt.Sprintf("what is the value of the variable `%s` at the end", n)
	default:
		return fmt.Sprintf("what are the values of the variable `%s`", n)
	}
}

// buildInputDataPhrase renders e.g. `arr = [5, 2, 8, 1], k = 2` — keys
// sorted for deterministic output, since Go map iteration order isn't.
func buildInputDataPhrase(inputData map[string]any) string {
	if len(inputData) == 0 {
		return ""
	}
	keys := make([]string, 0, len(inputData))
	for k := range inputData {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		v := inputData[k]
		if s, ok := v.(string); ok {
			parts[i] = fmt.Sprintf("%s = %q", k, s)
		} else {
			parts[i] = fmt.Sprintf("%s = %v", k, v)
		}
	}
	return strings.Join(parts, ", ")
}
