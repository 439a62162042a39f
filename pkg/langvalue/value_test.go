package langvalue

import "testing"

func TestDeepCopy_ListIndependence(t *testing.T) {
	orig := []Value{int64(1), []Value{int64(2), int64(3)}}
	copied := DeepCopy(orig).([]Value)
	inner := orig[1].([]Value)
	inner[0] = int64(99)
	copiedInner := copied[1].([]Value)
	if copiedInner[0] != int64(2) {
		t.Errorf("copied inner list mutated alongside original: got %v", copiedInner[0])
	}
}

func TestDeepCopy_DictPreservesOrderAndIndependence(t *testing.T) {
	d := NewDict()
	d.Set("b", int64(1))
	d.Set("a", int64(2))
	copied := DeepCopy(d).(*Dict)

	var keys []string
	for pair := copied.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Fatalf("copied dict keys = %v, want [b a] (insertion order preserved)", keys)
	}

	d.Set("b", int64(999))
	if v, _ := copied.Get("b"); v != int64(1) {
		t.Errorf("copied dict mutated alongside original: got %v, want 1", v)
	}
}

func TestDeepCopy_Instance(t *testing.T) {
	fields := NewDict()
	fields.Set("x", int64(1))
	inst := &Instance{ClassName: "Point", Fields: fields}
	copied := DeepCopy(inst).(*Instance)
	fields.Set("x", int64(2))
	if v, _ := copied.Fields.Get("x"); v != int64(1) {
		t.Errorf("instance field copy mutated alongside original: got %v, want 1", v)
	}
	if copied.ClassName != "Point" {
		t.Errorf("ClassName = %q, want Point", copied.ClassName)
	}
}

func TestDeepCopy_ScalarsReturnedAsIs(t *testing.T) {
	for _, v := range []Value{nil, true, int64(5), 3.14, "hi"} {
		if got := DeepCopy(v); got != v {
			t.Errorf("DeepCopy(%v) = %v, want unchanged", v, got)
		}
	}
}

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{nil, false},
		{false, false},
		{true, true},
		{int64(0), false},
		{int64(1), true},
		{0.0, false},
		{1.5, true},
		{"", false},
		{"x", true},
		{[]Value{}, false},
		{[]Value{int64(1)}, true},
	}
	for _, c := range cases {
		if got := Truthy(c.v); got != c.want {
			t.Errorf("Truthy(%#v) = %v, want %v", c.v, got, c.want)
		}
	}
	empty := NewDict()
	if Truthy(empty) {
		t.Error("Truthy(empty dict) = true, want false")
	}
	empty.Set("k", int64(1))
	if !Truthy(empty) {
		t.Error("Truthy(non-empty dict) = false, want true")
	}
}
