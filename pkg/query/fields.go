package query

import (
	"reflect"
	"strings"
)

// getFieldValue walks a dotted field path over obj, grounded on
// original_source/src/core/query_engine/utils.py::get_field_value. Go has
// no hasattr/dict duck-typing, so the walk is done with reflection: each
// path segment is converted from the query's snake_case spelling to the
// exported Go field name the row types actually use (see fieldNameToGo).
//
// join results resolve their first segment as an alias lookup, tolerating
// a missing alias by returning (nil, nil) — outer-join null tolerance, not
// an error.
func getFieldValue(obj any, path string) (any, error) {
	segments := strings.Split(path, ".")
	var cur any = obj
	for _, seg := range segments {
		if jr, ok := cur.(*JoinResult); ok {
			v, _ := jr.Get(seg)
			if v == nil {
				// missing alias or an outer-join null bound to it — both
				// collapse to a null result, short-circuiting any
				// remaining path segments (matches get_field_value).
				return nil, nil
			}
			cur = v
			continue
		}
		if cur == nil {
			return nil, &InvalidFieldError{Field: seg}
		}
		v, ok := resolveOne(cur, seg)
		if !ok {
			return nil, &InvalidFieldError{Field: seg}
		}
		cur = v
	}
	return cur, nil
}

func resolveOne(obj any, field string) (any, bool) {
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, false
	}
	goName := fieldNameToGo(field)
	fv := rv.FieldByName(goName)
	if !fv.IsValid() {
		return nil, false
	}
	if fv.Kind() == reflect.Ptr && fv.IsNil() {
		return nil, true
	}
	return fv.Interface(), true
}

// fieldNameToGo converts a snake_case query field name (e.g.
// "func_full_name", "execution_id") to the exported Go field name the
// tracemodel row types use ("FuncFullName", "ExecutionID"). "id" segments
// capitalize fully, matching Go's own ID-not-Id convention.
func fieldNameToGo(field string) string {
	parts := strings.Split(field, "_")
	var sb strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		if strings.EqualFold(p, "id") {
			sb.WriteString("ID")
			continue
		}
		sb.WriteString(strings.ToUpper(p[:1]))
		sb.WriteString(p[1:])
	}
	return sb.String()
}
