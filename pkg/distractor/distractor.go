// Package distractor generates plausible wrong answers for a compiled
// question, so a multiple-choice rendering has something besides the
// correct option to offer.
//
// Grounded on
// original_source/src/edcraft_engine/question_generator/distractor_generator
// (a Strategy interface, one implementation per perturbation family) and
// original_source/src/core/question_generator/distractor_strategies
// (output_modification_strategy.py's numeric/list/dict variation
// generators, query_variation_strategy.py's "re-run the compiled query
// with one layer of target/modifier removed" idea). Numeric perturbation
// is expressed as a tiny expr-lang/expr program ("value + 1",
// "value * -1") evaluated per candidate instead of hand-rolled
// arithmetic, per SPEC_FULL's domain-stack wiring; strings are not
// perturbed.
package distractor

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/google/uuid"

	"github.com/algotrace/tracequery/pkg/querycompile"
)

// Option is one distractor: a stable ID plus its value, so a client can
// render and deduplicate against the correct answer's own ID-less value.
type Option struct {
	ID    string
	Value any
}

// Strategy generates distractor candidates for one compiled answer.
type Strategy interface {
	Generate(correct []any, target []querycompile.TargetElement, outputType querycompile.OutputType, gen *querycompile.Generator, numDistractors int) []any
}

// numericPerturbations are the small expr-lang programs tried against a numeric
// correct answer, evaluated with "value" bound to the candidate.
var numericPerturbations = []string{
	"value + 1",
	"value - 1",
	"value + 2",
	"value - 2",
	"value * -1",
	"value * 2",
}

// OutputPerturbationStrategy produces distractors by nudging the correct
// answer's own value: off-by-one/two and doubling variants for int64
// answers (a candidate whose sign differs from the answer's is dropped),
// shuffles for lists. Answers of any other type, dicts included, get no
// distractors from this strategy.
type OutputPerturbationStrategy struct{}

func (OutputPerturbationStrategy) Generate(correct []any, _ []querycompile.TargetElement, _ querycompile.OutputType, _ *querycompile.Generator, numDistractors int) []any {
	if len(correct) == 0 {
		return nil
	}
	seen := map[string]bool{}
	for _, c := range correct {
		seen[fmt.Sprint(c)] = true
	}

	var out []any
	add := func(v any) {
		if len(out) >= numDistractors {
			return
		}
		key := fmt.Sprint(v)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, v)
	}

	switch v := correct[0].(type) {
	case int64:
		for _, d := range numericVariations(v, numDistractors) {
			add(d)
		}
	case []any:
		for _, perm := range listShuffles(v, 3) {
			add(perm)
		}
	}
	return out
}

// numericVariations evaluates each candidate perturbation expression
// against value and keeps the ones that stay on the same side of zero,
// matching the original strategy's sign-preserving policy.
func numericVariations(value int64, numNeeded int) []int64 {
	var out []int64
	seen := map[int64]bool{value: true}
	env := map[string]any{"value": value}
	for _, src := range numericPerturbations {
		if len(out) >= numNeeded {
			break
		}
		program, err := expr.Compile(src, expr.Env(env))
		if err != nil {
			continue
		}
		result, err := expr.Run(program, env)
		if err != nil {
			continue
		}
		candidate, ok := toInt64(result)
		if !ok || seen[candidate] {
			continue
		}
		if (value < 0) != (candidate < 0) {
			continue
		}
		seen[candidate] = true
		out = append(out, candidate)
	}
	return out
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

// listShuffles returns up to n reversed/rotated permutations of items —
// deterministic stand-ins for the original's random.shuffle, since this
// package has no source of randomness available to it.
func listShuffles(items []any, n int) [][]any {
	if len(items) < 2 {
		return nil
	}
	var out [][]any
	reversed := make([]any, len(items))
	for i, v := range items {
		reversed[len(items)-1-i] = v
	}
	out = append(out, reversed)
	for shift := 1; shift < len(items) && len(out) < n; shift++ {
		rotated := make([]any, len(items))
		for i := range items {
			rotated[i] = items[(i+shift)%len(items)]
		}
		out = append(out, rotated)
	}
	return out
}

// modifierVariations mirrors query_variation_strategy.py's
// modifier_variations table: for a target element ending in one of these
// modifiers (or bare types), the alternate modifiers worth re-querying.
var modifierVariations = map[string][]string{
	"branch_true":     {"branch_false", ""},
	"branch_false":    {"branch_true", ""},
	"loop_iterations": {""},
	"branch":          {"branch_true", "branch_false"},
	"loop":            {"loop_iterations"},
}

// QueryVariationStrategy produces distractors by re-running the compiled
// query with one layer of target context removed, or with its trailing
// modifier swapped for a plausible alternative — the same query shape a
// student might mistakenly write.
type QueryVariationStrategy struct{}

func (QueryVariationStrategy) Generate(correct []any, target []querycompile.TargetElement, outputType querycompile.OutputType, gen *querycompile.Generator, numDistractors int) []any {
	var out []any
	seen := map[string]bool{}
	for _, c := range correct {
		seen[fmt.Sprint(c)] = true
	}
	add := func(v any) bool {
		if len(out) >= numDistractors {
			return false
		}
		key := fmt.Sprint(v)
		if seen[key] {
			return true
		}
		seen[key] = true
		out = append(out, v)
		return true
	}

	runVariant := func(variant []querycompile.TargetElement, variantOutput querycompile.OutputType) {
		q, err := gen.GenerateQuery(variant, variantOutput)
		if err != nil {
			return
		}
		rows, err := q.Execute()
		if err != nil {
			return
		}
		for _, r := range rows {
			if !add(r) {
				return
			}
		}
	}

	if outputType == querycompile.OutputFirst || outputType == querycompile.OutputLast {
		runVariant(target, querycompile.OutputList)
	}

	for i := range target {
		if len(target) > 1 {
			withoutLayer := make([]querycompile.TargetElement, 0, len(target)-1)
			withoutLayer = append(withoutLayer, target[:i]...)
			withoutLayer = append(withoutLayer, target[i+1:]...)
			runVariant(withoutLayer, outputType)
		}
		if len(out) >= numDistractors {
			return out
		}
	}
	if len(target) > 1 {
		runVariant([]querycompile.TargetElement{target[len(target)-1]}, outputType)
	}

	for i, t := range target {
		alts, ok := modifierVariations[t.Modifier]
		if !ok {
			alts, ok = modifierVariations[t.Type]
		}
		if !ok {
			continue
		}
		for _, alt := range alts {
			variant := append([]querycompile.TargetElement(nil), target...)
			variant[i].Modifier = alt
			runVariant(variant, outputType)
			if len(out) >= numDistractors {
				return out
			}
		}
	}
	return out
}

// Generate runs every registered strategy in turn and returns up to
// numDistractors unique wrong-answer Options, each with a stable ID
// suitable for client-side rendering.
func Generate(correct []any, target []querycompile.TargetElement, outputType querycompile.OutputType, gen *querycompile.Generator, numDistractors int) []Option {
	strategies := []Strategy{OutputPerturbationStrategy{}, QueryVariationStrategy{}}

	seen := map[string]bool{}
	for _, c := range correct {
		seen[fmt.Sprint(c)] = true
	}

	var opts []Option
	for _, s := range strategies {
		if len(opts) >= numDistractors {
			break
		}
		for _, v := range s.Generate(correct, target, outputType, gen, numDistractors-len(opts)) {
			key := fmt.Sprint(v)
			if seen[key] {
				continue
			}
			seen[key] = true
			opts = append(opts, Option{ID: uuid.NewString(), Value: v})
			if len(opts) >= numDistractors {
				break
			}
		}
	}
	return opts
}
