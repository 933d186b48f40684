package value

import "testing"

func TestPath(t *testing.T) {
	obj := NewObject().
		Set("params", NewObject().Set("requested", Number(100)).Set("pre-approved", Number(200)))

	got, ok := obj.Path("params.requested")
	if !ok {
		t.Fatalf("Path(params.requested) not found")
	}
	if f, _ := got.Number(); f != 100 {
		t.Errorf("Path(params.requested) = %v, want 100", f)
	}

	if _, ok := obj.Path("params.missing"); ok {
		t.Errorf("Path(params.missing) unexpectedly found")
	}

	if _, ok := obj.Path("params.requested.nope"); ok {
		t.Errorf("descending into a non-object should fail")
	}
}

func TestSetPreservesOrder(t *testing.T) {
	obj := NewObject().Set("b", Number(2)).Set("a", Number(1)).Set("b", Number(20))

	keys := obj.Keys()
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Fatalf("Keys() = %v, want [b a] (insertion order, overwrite keeps position)", keys)
	}
	got, _ := obj.Get("b")
	if f, _ := got.Number(); f != 20 {
		t.Errorf("Get(b) = %v, want 20 after overwrite", f)
	}
}

func TestFromAnyToAnyRoundTrip(t *testing.T) {
	in := map[string]any{
		"name":  "ok",
		"count": float64(3),
		"tags":  []any{"a", "b"},
	}
	v := FromAny(in)
	if v.Kind() != KindObject {
		t.Fatalf("FromAny(map) kind = %v, want object", v.Kind())
	}
	out := v.ToAny().(map[string]any)
	if out["name"] != "ok" || out["count"] != float64(3) {
		t.Errorf("ToAny() = %#v, want round-trip of %#v", out, in)
	}
}

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{Null, false},
		{Bool(false), false},
		{Bool(true), true},
		{Number(0), false},
		{Number(1), true},
		{String(""), false},
		{String("x"), true},
		{Array(), false},
		{Array(Number(1)), true},
	}
	for _, c := range cases {
		if got := c.v.Truthy(); got != c.want {
			t.Errorf("Truthy(%v) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestCompare(t *testing.T) {
	if r, ok := Compare(Number(1), Number(2)); !ok || r >= 0 {
		t.Errorf("Compare(1,2) = %v,%v, want <0,true", r, ok)
	}
	if r, ok := Compare(String("a"), String("b")); !ok || r >= 0 {
		t.Errorf("Compare(a,b) = %v,%v, want <0,true", r, ok)
	}
	if _, ok := Compare(Number(1), String("1")); ok {
		t.Errorf("Compare(number,string) should report ok=false")
	}
}

func TestEqual(t *testing.T) {
	a := NewObject().Set("x", Array(Number(1), Number(2)))
	b := NewObject().Set("x", Array(Number(1), Number(2)))
	if !Equal(a, b) {
		t.Errorf("Equal(a,b) = false, want true")
	}
	c := NewObject().Set("x", Array(Number(1), Number(3)))
	if Equal(a, c) {
		t.Errorf("Equal(a,c) = true, want false")
	}
}

func TestJSONMarshalPreservesOrder(t *testing.T) {
	obj := NewObject().Set("z", Number(1)).Set("a", Number(2))
	data, err := obj.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	want := `{"z":1,"a":2}`
	if string(data) != want {
		t.Errorf("MarshalJSON() = %s, want %s", data, want)
	}
}
