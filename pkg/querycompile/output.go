package querycompile

import (
	"github.com/algotrace/tracequery/pkg/query"
	"github.com/algotrace/tracequery/pkg/tracemodel"
)

// applyOutputType reduces the joined relation per outputType:
//   - list:  no-op, every matching row chain is returned
//   - count: collapses to a single {"count": n} row
//   - first/last: sorts by the composite (execution_id, var_id) key of the
//     final target and keeps one row — var_id only distinguishes variable
//     snapshots sharing an execution_id, so non-variable targets sort on
//     execution_id alone.
func (g *Generator) applyOutputType(q *query.Query, outputType OutputType) *query.Query {
	switch outputType {
	case OutputCount:
		return q.Agg("count", func(items []any) any { return len(items) })
	case OutputFirst, OutputLast:
		lastAlias := alias(g.joinIdx)
		ascending := outputType == OutputFirst
		return q.SortWith(func(a, b any) bool {
			ea, va := g.compositeKey(a, lastAlias)
			eb, vb := g.compositeKey(b, lastAlias)
			if ea != eb {
				if ascending {
					return ea < eb
				}
				return ea > eb
			}
			if ascending {
				return va < vb
			}
			return va > vb
		}).Limit(1)
	default: // OutputList
		return q
	}
}

// compositeKey resolves the (execution_id, var_id) sort key for item,
// unwrapping the last join alias if one is in play. Rows this target
// chain didn't actually match (a nil bound to lastAlias in an outer join)
// sort to the -1,-1 sentinel, pushing them to one end regardless of
// ascending/descending order.
func (g *Generator) compositeKey(item any, lastAlias string) (execID, varID int) {
	target := item
	if jr, ok := item.(*query.JoinResult); ok {
		v, present := jr.Get(lastAlias)
		if !present || v == nil {
			return -1, -1
		}
		target = v
	}
	switch r := target.(type) {
	case *tracemodel.LoopExecution:
		return r.ExecutionID, 0
	case *tracemodel.LoopIteration:
		return r.ExecutionID, 0
	case *tracemodel.FunctionCall:
		return r.ExecutionID, 0
	case *tracemodel.BranchExecution:
		return r.ExecutionID, 0
	case *tracemodel.VariableSnapshot:
		return r.ExecutionID, r.VarID
	default:
		return -1, -1
	}
}

// cleanOutput applies the final field projection.
//
//   - A target ending in an "arguments"/"return_value" modifier reached
//     through a join (rather than as the sole, unjoined target) hasn't
//     been projected yet — getBaseTarget only selects when it's handling
//     target[0] with no joins ahead of it.
//   - A final "variable" target (joined or not) projects to "value" when
//     a name was given, or {"name", "value"} otherwise — prefixed with
//     the trailing join alias when any join was performed.
func (g *Generator) cleanOutput(q *query.Query, target []TargetElement, outputType OutputType) *query.Query {
	if outputType == OutputCount || len(target) == 0 {
		return q
	}
	last := target[len(target)-1]
	prefix := ""
	if g.joinIdx > 0 {
		prefix = alias(g.joinIdx) + "."
	}

	switch {
	case last.Modifier == "arguments" || last.Modifier == "return_value":
		if g.joinIdx == 0 {
			return q
		}
		return q.Select(prefix + last.Modifier)
	case last.Type == "variable":
		if last.Name != nil {
			return q.Select(prefix + "value")
		}
		return q.Select(prefix+"name", prefix+"value")
	default:
		return q
	}
}
