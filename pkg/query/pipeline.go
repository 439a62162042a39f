// Package query implements the pipeline query engine (component C5):
// composable steps run in sequence over the flat relation
// execution_trace ++ variables.
//
// Grounded on original_source/src/edcraft_engine/query_engine/{query_engine,
// pipeline_steps}.py, the richest of the repository's several query-engine
// revisions (see DESIGN.md's Open Question decisions) — it's the only one
// with joins, multi-field select, and group_by+agg, all of which the
// query compiler (pkg/querycompile) depends on.
package query

import (
	"fmt"
	"sort"
)

// Step is one stage of a query pipeline.
type Step interface {
	Apply(items []any) ([]any, error)
}

// ---- WhereStep ----

// WhereStep keeps rows matching any of its conditions (OR within one
// `Where` call); a Query chains multiple WhereSteps (AND across calls).
type WhereStep struct{ Conditions []Condition }

func (s WhereStep) Apply(items []any) ([]any, error) {
	out := items[:0:0]
	for _, item := range items {
		keep := false
		for _, cond := range s.Conditions {
			ok, err := cond.Evaluate(item)
			if err != nil {
				return nil, err
			}
			if ok {
				keep = true
				break
			}
		}
		if keep {
			out = append(out, item)
		}
	}
	return out, nil
}

// ---- SelectStep ----

// SelectStep projects one field (returning the bare value per row) or
// several fields (returning a map[string]any per row).
type SelectStep struct{ Fields []string }

func (s SelectStep) Apply(items []any) ([]any, error) {
	if len(s.Fields) == 0 {
		return nil, NewQueryEngineError("At least one field must be specified for select.")
	}
	out := make([]any, len(items))
	if len(s.Fields) == 1 {
		for i, item := range items {
			v, err := getFieldValue(item, s.Fields[0])
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
	for i, item := range items {
		row := make(map[string]any, len(s.Fields))
		for _, f := range s.Fields {
			v, err := getFieldValue(item, f)
			if err != nil {
				return nil, err
			}
			row[f] = v
		}
		out[i] = row
	}
	return out, nil
}

// ---- MapStep / ReduceStep ----

type MapStep struct{ Func func(any) any }

func (s MapStep) Apply(items []any) ([]any, error) {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = s.Func(item)
	}
	return out, nil
}

// ReduceStep flattens one level: each []any item is spliced in place;
// anything else passes through unchanged.
type ReduceStep struct{}

func (ReduceStep) Apply(items []any) ([]any, error) {
	var out []any
	for _, item := range items {
		if list, ok := item.([]any); ok {
			out = append(out, list...)
		} else {
			out = append(out, item)
		}
	}
	return out, nil
}

// ---- DistinctStep ----

type DistinctStep struct{}

func (DistinctStep) Apply(items []any) ([]any, error) {
	var out []any
	for _, item := range items {
		dup := false
		for _, seen := range out {
			if equal(seen, item) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, item)
		}
	}
	return out, nil
}

// ---- OrderByStep ----

type OrderByStep struct {
	Field       string
	IsAscending bool
}

func (s OrderByStep) Apply(items []any) ([]any, error) {
	out := append([]any(nil), items...)
	var sortErr error
	sort.SliceStable(out, func(i, j int) bool {
		vi, err := getFieldValue(out[i], s.Field)
		if err != nil {
			sortErr = err
			return false
		}
		vj, err := getFieldValue(out[j], s.Field)
		if err != nil {
			sortErr = err
			return false
		}
		r, ok := compare(vi, vj)
		if !ok {
			return false
		}
		if s.IsAscending {
			return r < 0
		}
		return r > 0
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return out, nil
}

// ---- GroupByStep ----

// GroupByStep partitions rows by the tuple of group-field values, then
// reduces each group to a map of {field: keyValue, ..., aggName: fn(group)}.
// GroupFields preserves insertion order (field -> output key name);
// ordinary Go maps would scramble that, so it's kept as a slice of pairs.
type GroupField struct {
	OutputKey string
	Field     string
}

type GroupByStep struct {
	GroupFields  []GroupField
	Aggregations map[string]func([]any) any
	// AggOrder preserves the order agg names were added, for deterministic output.
	AggOrder []string
}

func (s GroupByStep) Apply(items []any) ([]any, error) {
	if len(s.Aggregations) == 0 {
		return nil, NewQueryEngineError("At least one aggregation function must be specified for group_by.")
	}

	type group struct {
		key   []any
		items []any
	}
	var groups []*group
	index := map[string]*group{}

	keyOf := func(item any) ([]any, string, error) {
		if len(s.GroupFields) == 0 {
			return nil, "", nil
		}
		key := make([]any, len(s.GroupFields))
		for i, gf := range s.GroupFields {
			v, err := getFieldValue(item, gf.Field)
			if err != nil {
				return nil, "", err
			}
			key[i] = v
		}
		return key, keyString(key), nil
	}

	if len(s.GroupFields) == 0 {
		groups = []*group{{items: items}}
	} else {
		for _, item := range items {
			key, ks, err := keyOf(item)
			if err != nil {
				return nil, err
			}
			g, ok := index[ks]
			if !ok {
				g = &group{key: key}
				index[ks] = g
				groups = append(groups, g)
			}
			g.items = append(g.items, item)
		}
	}

	out := make([]any, 0, len(groups))
	for _, g := range groups {
		row := map[string]any{}
		for i, gf := range s.GroupFields {
			row[gf.OutputKey] = g.key[i]
		}
		for _, name := range s.AggOrder {
			row[name] = s.Aggregations[name](g.items)
		}
		out = append(out, row)
	}
	return out, nil
}

func keyString(key []any) string {
	s := ""
	for _, k := range key {
		s += "\x00" + fmt.Sprintf("%v", k)
	}
	return s
}

// ---- CompareStep ----

// CompareStep sorts with an arbitrary less function, for callers (the
// query compiler's first/last output types) that need a composite sort
// key no single dotted field path can express.
type CompareStep struct{ Less func(a, b any) bool }

func (s CompareStep) Apply(items []any) ([]any, error) {
	out := append([]any(nil), items...)
	sort.SliceStable(out, func(i, j int) bool { return s.Less(out[i], out[j]) })
	return out, nil
}

// ---- Offset / Limit ----

type OffsetStep struct{ Offset int }

func (s OffsetStep) Apply(items []any) ([]any, error) {
	if s.Offset < 0 {
		return nil, NewQueryEngineError("Offset must be non-negative.")
	}
	if s.Offset >= len(items) {
		return []any{}, nil
	}
	return items[s.Offset:], nil
}

type LimitStep struct{ Limit int }

func (s LimitStep) Apply(items []any) ([]any, error) {
	if s.Limit <= 0 {
		return nil, NewQueryEngineError("Limit must be positive.")
	}
	if s.Limit >= len(items) {
		return items, nil
	}
	return items[:s.Limit], nil
}
