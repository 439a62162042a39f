package query

// Query is a builder over a pipeline of Steps, grounded on
// original_source/src/edcraft_engine/query_engine/query_engine.py::Query.
// Every builder method appends a step and returns the Query so calls
// chain the way the Python original's fluent interface does.
type Query struct {
	items    []any
	pipeline []Step
	err      error
}

// New seeds a query over items — callers pass execctx.Context.AllItems().
func New(items []any) *Query {
	return &Query{items: items}
}

func (q *Query) fail(err error) *Query {
	if q.err == nil {
		q.err = err
	}
	return q
}

// Where adds one WHERE step whose conditions are OR'd together; chain
// multiple Where calls to AND across them.
func (q *Query) Where(conds ...Condition) *Query {
	if len(conds) == 0 {
		return q
	}
	q.pipeline = append(q.pipeline, WhereStep{Conditions: conds})
	return q
}

// WhereEq is shorthand for Where(Condition{Field: field, Op: "==", Value: value}).
func (q *Query) WhereEq(field string, value any) *Query {
	return q.Where(Condition{Field: field, Op: "==", Value: value})
}

func (q *Query) Map(fn func(any) any) *Query {
	q.pipeline = append(q.pipeline, MapStep{Func: fn})
	return q
}

func (q *Query) Reduce() *Query {
	q.pipeline = append(q.pipeline, ReduceStep{})
	return q
}

func (q *Query) Select(fields ...string) *Query {
	if len(fields) == 0 {
		return q.fail(NewQueryEngineError("At least one field must be specified for select."))
	}
	q.pipeline = append(q.pipeline, SelectStep{Fields: fields})
	return q
}

func (q *Query) Distinct() *Query {
	q.pipeline = append(q.pipeline, DistinctStep{})
	return q
}

func (q *Query) OrderBy(field string, ascending bool) *Query {
	q.pipeline = append(q.pipeline, OrderByStep{Field: field, IsAscending: ascending})
	return q
}

// GroupBy appends a new grouping step over the named fields; an existing
// trailing GroupByStep is never reused.
func (q *Query) GroupBy(fields ...string) *Query {
	if len(fields) == 0 {
		return q.fail(NewQueryEngineError("At least one field must be specified for group_by."))
	}
	gfs := make([]GroupField, len(fields))
	for i, f := range fields {
		gfs[i] = GroupField{OutputKey: f, Field: f}
	}
	q.pipeline = append(q.pipeline, GroupByStep{GroupFields: gfs, Aggregations: map[string]func([]any) any{}})
	return q
}

// Agg attaches an aggregation to the most recently added GroupByStep, or
// creates a fresh grouping-everything-into-one-group step if the pipeline
// doesn't already end in one — mirroring Query.agg's "if not isinstance
// pipeline[-1], GroupByStep" check in the original.
func (q *Query) Agg(name string, fn func([]any) any) *Query {
	if len(q.pipeline) > 0 {
		if last, ok := q.pipeline[len(q.pipeline)-1].(GroupByStep); ok {
			last.Aggregations[name] = fn
			last.AggOrder = append(last.AggOrder, name)
			q.pipeline[len(q.pipeline)-1] = last
			return q
		}
	}
	q.pipeline = append(q.pipeline, GroupByStep{
		Aggregations: map[string]func([]any) any{name: fn},
		AggOrder:     []string{name},
	})
	return q
}

// SortWith sorts using an arbitrary less function, for composite sort
// keys a single field path can't express.
func (q *Query) SortWith(less func(a, b any) bool) *Query {
	q.pipeline = append(q.pipeline, CompareStep{Less: less})
	return q
}

func (q *Query) Offset(n int) *Query {
	if n < 0 {
		return q.fail(NewQueryEngineError("Offset must be non-negative."))
	}
	q.pipeline = append(q.pipeline, OffsetStep{Offset: n})
	return q
}

func (q *Query) Limit(n int) *Query {
	if n <= 0 {
		return q.fail(NewQueryEngineError("Limit must be positive."))
	}
	q.pipeline = append(q.pipeline, LimitStep{Limit: n})
	return q
}

func (q *Query) InnerJoin(other []any, cond JoinCondition, leftAlias, rightAlias string) *Query {
	step, err := NewInnerJoinStep(other, cond, leftAlias, rightAlias)
	if err != nil {
		return q.fail(err)
	}
	q.pipeline = append(q.pipeline, step)
	return q
}

func (q *Query) LeftJoin(other []any, cond JoinCondition, leftAlias, rightAlias string) *Query {
	step, err := NewLeftJoinStep(other, cond, leftAlias, rightAlias)
	if err != nil {
		return q.fail(err)
	}
	q.pipeline = append(q.pipeline, step)
	return q
}

func (q *Query) RightJoin(other []any, cond JoinCondition, leftAlias, rightAlias string) *Query {
	step, err := NewRightJoinStep(other, cond, leftAlias, rightAlias)
	if err != nil {
		return q.fail(err)
	}
	q.pipeline = append(q.pipeline, step)
	return q
}

func (q *Query) FullOuterJoin(other []any, cond JoinCondition, leftAlias, rightAlias string) *Query {
	step, err := NewFullOuterJoinStep(other, cond, leftAlias, rightAlias)
	if err != nil {
		return q.fail(err)
	}
	q.pipeline = append(q.pipeline, step)
	return q
}

// Execute runs the pipeline in order over the seeded items.
func (q *Query) Execute() ([]any, error) {
	if q.err != nil {
		return nil, q.err
	}
	result := q.items
	for _, step := range q.pipeline {
		var err error
		result, err = step.Apply(result)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}
