package query

import (
	"errors"
	"testing"
)

type row struct {
	Name  string
	Count int
}

func TestQuery_WhereOrWithinAndAcross(t *testing.T) {
	items := []any{row{"a", 1}, row{"b", 2}, row{"c", 3}}
	// within one Where: OR — keep rows named "a" OR with count 3.
	rows, err := New(items).
		Where(Condition{Field: "name", Op: "==", Value: "a"}, Condition{Field: "count", Op: "==", Value: 3}).
		Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2 (a, c)", len(rows))
	}

	// across two Where calls: AND.
	rows2, err := New(items).
		Where(Condition{Field: "name", Op: "==", Value: "a"}).
		Where(Condition{Field: "count", Op: "==", Value: 3}).
		Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(rows2) != 0 {
		t.Fatalf("got %d rows, want 0 (no row is both a and count=3)", len(rows2))
	}
}

func TestQuery_UnknownFieldFailsConditionSilently(t *testing.T) {
	items := []any{row{"a", 1}}
	rows, err := New(items).WhereEq("nonexistent", "x").Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("got %d rows, want 0 (unresolvable field should fail quietly)", len(rows))
	}
}

func TestQuery_UnknownOperatorErrors(t *testing.T) {
	items := []any{row{"a", 1}}
	_, err := New(items).Where(Condition{Field: "name", Op: "~=", Value: "a"}).Execute()
	var opErr *InvalidOperatorError
	if !errors.As(err, &opErr) {
		t.Fatalf("err = %v, want *InvalidOperatorError", err)
	}
}

func TestQuery_SelectSingleAndMultiField(t *testing.T) {
	items := []any{row{"a", 1}, row{"b", 2}}
	rows, err := New(items).Select("name").Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if rows[0] != "a" || rows[1] != "b" {
		t.Fatalf("got %v, want [a b]", rows)
	}

	rows2, err := New(items).Select("name", "count").Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	m := rows2[0].(map[string]any)
	if m["name"] != "a" || m["count"] != 1 {
		t.Fatalf("got %v, want {name:a count:1}", m)
	}
}

func TestQuery_SelectNoFieldsErrors(t *testing.T) {
	_, err := New([]any{row{"a", 1}}).Select().Execute()
	var qe *QueryEngineError
	if !errors.As(err, &qe) {
		t.Fatalf("err = %v, want *QueryEngineError", err)
	}
}

func TestQuery_Distinct_PreservesFirstOccurrenceOrder(t *testing.T) {
	items := []any{1, 2, 1, 3, 2}
	rows, err := New(items).Distinct().Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := []any{1, 2, 3}
	if len(rows) != len(want) {
		t.Fatalf("got %v, want %v", rows, want)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Fatalf("got %v, want %v", rows, want)
		}
	}
}

func TestQuery_OrderBy_StableOnTies(t *testing.T) {
	items := []any{row{"a", 1}, row{"b", 1}, row{"c", 0}}
	rows, err := New(items).OrderBy("count", true).Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	got := []string{rows[0].(row).Name, rows[1].(row).Name, rows[2].(row).Name}
	want := []string{"c", "a", "b"} // ties (a,b both count=1) keep input order
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestQuery_GroupByWithoutAggErrors(t *testing.T) {
	items := []any{row{"a", 1}}
	_, err := New(items).GroupBy("name").Execute()
	var qe *QueryEngineError
	if !errors.As(err, &qe) {
		t.Fatalf("err = %v, want *QueryEngineError", err)
	}
}

func TestQuery_GroupByAgg(t *testing.T) {
	items := []any{row{"a", 1}, row{"a", 2}, row{"b", 3}}
	rows, err := New(items).GroupBy("name").Agg("total", func(g []any) any {
		sum := 0
		for _, it := range g {
			sum += it.(row).Count
		}
		return sum
	}).Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d groups, want 2", len(rows))
	}
	byName := map[string]int{}
	for _, r := range rows {
		m := r.(map[string]any)
		byName[m["name"].(string)] = m["total"].(int)
	}
	if byName["a"] != 3 || byName["b"] != 3 {
		t.Fatalf("got %v, want a:3 b:3", byName)
	}
}

func TestQuery_AggWithoutGroupByGroupsEverythingIntoOne(t *testing.T) {
	items := []any{row{"a", 1}, row{"b", 2}}
	rows, err := New(items).Agg("count", func(g []any) any { return len(g) }).Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].(map[string]any)["count"] != 2 {
		t.Fatalf("got %v, want count:2", rows[0])
	}
}

func TestQuery_OffsetAndLimit(t *testing.T) {
	items := []any{1, 2, 3, 4, 5}
	rows, err := New(items).Offset(2).Limit(2).Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(rows) != 2 || rows[0] != 3 || rows[1] != 4 {
		t.Fatalf("got %v, want [3 4]", rows)
	}

	_, err = New(items).Offset(-1).Execute()
	var qe *QueryEngineError
	if !errors.As(err, &qe) {
		t.Fatalf("negative offset err = %v, want *QueryEngineError", err)
	}
	_, err = New(items).Limit(0).Execute()
	if !errors.As(err, &qe) {
		t.Fatalf("zero limit err = %v, want *QueryEngineError", err)
	}
}

func TestQuery_Reduce_FlattensOneLevel(t *testing.T) {
	items := []any{[]any{1, 2}, 3, []any{4}}
	rows, err := New(items).Reduce().Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := []any{1, 2, 3, 4}
	if len(rows) != len(want) {
		t.Fatalf("got %v, want %v", rows, want)
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Fatalf("got %v, want %v", rows, want)
		}
	}
}

func TestQuery_Reduce_InverseOfMapSingleton(t *testing.T) {
	items := []any{1, 2, 3}
	rows, err := New(items).Map(func(v any) any { return []any{v} }).Reduce().Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for i, v := range items {
		if rows[i] != v {
			t.Fatalf("reduce(map(singleton)) != identity: got %v, want %v", rows, items)
		}
	}
}

func TestInnerJoin_AliasCollisionErrors(t *testing.T) {
	left := []any{row{"a", 1}}
	right := []any{row{"a", 1}}
	_, err := New(left).InnerJoin(right, func(l, r any) bool { return true }, "x", "x").Execute()
	var qe *QueryEngineError
	if !errors.As(err, &qe) {
		t.Fatalf("err = %v, want *QueryEngineError (same alias on both sides)", err)
	}
}

func TestInnerJoin_KeepsOnlyMatchingPairs(t *testing.T) {
	left := []any{row{"a", 1}, row{"b", 2}}
	right := []any{row{"a", 100}}
	cond := func(l, r any) bool { return l.(row).Name == r.(row).Name }
	rows, err := New(left).InnerJoin(right, cond, "l", "r").Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	jr := rows[0].(*JoinResult)
	l, _ := jr.Get("l")
	r, _ := jr.Get("r")
	if l.(row).Name != "a" || r.(row).Count != 100 {
		t.Fatalf("joined row = %+v/%+v, want a/100", l, r)
	}
}

func TestLeftJoin_UnmatchedLeftGetsNilRight(t *testing.T) {
	left := []any{row{"a", 1}, row{"b", 2}}
	right := []any{row{"a", 100}}
	cond := func(l, r any) bool { return r != nil && l.(row).Name == r.(row).Name }
	rows, err := New(left).LeftJoin(right, cond, "l", "r").Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(rows) != len(left) {
		t.Fatalf("got %d rows, want %d (>= |left|)", len(rows), len(left))
	}
	jr := rows[1].(*JoinResult)
	r, bound := jr.Get("r")
	if !bound || r != nil {
		t.Fatalf("unmatched left's right alias = %v (bound=%v), want nil bound", r, bound)
	}
}

func TestFullOuterJoin_KeepsBothUnmatchedSides(t *testing.T) {
	left := []any{row{"a", 1}}
	right := []any{row{"b", 2}}
	cond := func(l, r any) bool { return false }
	rows, err := New(left).FullOuterJoin(right, cond, "l", "r").Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2 (max(|left|,|right|) at minimum, here no matches)", len(rows))
	}
}

func TestGetFieldValue_InvalidFieldErrors(t *testing.T) {
	_, err := New([]any{row{"a", 1}}).Select("nonexistent").Execute()
	var fe *InvalidFieldError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *InvalidFieldError", err)
	}
}

func TestGetFieldValue_OuterJoinNullToleratedNotAnError(t *testing.T) {
	left := []any{row{"a", 1}}
	right := []any{}
	cond := func(l, r any) bool { return false }
	rows, err := New(left).LeftJoin(right, cond, "l", "r").Select("r.count").Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if rows[0] != nil {
		t.Fatalf("got %v, want nil for a missing-alias field path", rows[0])
	}
}
