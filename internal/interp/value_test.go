package interp

import "testing"

func TestAddNumbers(t *testing.T) {
	v, err := Add(Number(2), Number(3))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if v.AsNumber() != 5 {
		t.Fatalf("got %v, want 5", v.AsNumber())
	}
}

func TestAddStrings(t *testing.T) {
	v, err := Add(String("foo"), String("bar"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if v.AsString() != "foobar" {
		t.Fatalf("got %q, want %q", v.AsString(), "foobar")
	}
}

func TestAddListsConcatenatesFresh(t *testing.T) {
	a := List([]Value{Number(1)})
	b := List([]Value{Number(2)})
	v, err := Add(a, b)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(v.AsList()) != 2 {
		t.Fatalf("got len %d, want 2", len(v.AsList()))
	}
	// Mutating the result must not alias either input.
	v.SetIndex(0, Number(99))
	if a.AsList()[0].AsNumber() != 1 {
		t.Fatalf("Add mutated its left operand")
	}
}

func TestAddKindMismatchErrors(t *testing.T) {
	if _, err := Add(Number(1), String("x")); err == nil {
		t.Fatal("expected an error adding a number and a string")
	}
}

func TestListIsSharedMutableByReference(t *testing.T) {
	a := List([]Value{Number(1), Number(2)})
	b := a
	b.SetIndex(0, Number(42))
	if a.AsList()[0].AsNumber() != 42 {
		t.Fatalf("copying a List Value should alias the underlying cell")
	}
}

func TestEqualsElementwiseOnLists(t *testing.T) {
	a := List([]Value{Number(1), String("x")})
	b := List([]Value{Number(1), String("x")})
	eq, err := Equals(a, b)
	if err != nil {
		t.Fatalf("Equals: %v", err)
	}
	if !eq {
		t.Fatal("expected equal lists to compare equal")
	}
}

func TestEqualsTableIsUndefined(t *testing.T) {
	a := Table(map[string]Value{"k": Number(1)})
	b := Table(map[string]Value{"k": Number(1)})
	if _, err := Equals(a, b); err == nil {
		t.Fatal("expected table equality to be an error")
	}
}

func TestCompareStringsLexicographic(t *testing.T) {
	cmp, err := Compare(String("abc"), String("abd"))
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if cmp >= 0 {
		t.Fatalf("got %d, want negative", cmp)
	}
}

func TestLookupByIndexList(t *testing.T) {
	l := List([]Value{Number(10), Number(20)})
	v, err := LookupByIndex(l, Number(1))
	if err != nil {
		t.Fatalf("LookupByIndex: %v", err)
	}
	if v.AsNumber() != 20 {
		t.Fatalf("got %v, want 20", v.AsNumber())
	}
}

func TestLookupByIndexOutOfRange(t *testing.T) {
	l := List([]Value{Number(10)})
	if _, err := LookupByIndex(l, Number(5)); err == nil {
		t.Fatal("expected an out-of-range error")
	}
}

func TestSliceFreshCopy(t *testing.T) {
	l := List([]Value{Number(1), Number(2), Number(3)})
	s, err := Slice(l, 1, 3)
	if err != nil {
		t.Fatalf("Slice: %v", err)
	}
	if len(s.AsList()) != 2 || s.AsList()[0].AsNumber() != 2 {
		t.Fatalf("unexpected slice contents: %v", s.AsList())
	}
	s.SetIndex(0, Number(999))
	if l.AsList()[1].AsNumber() != 2 {
		t.Fatal("Slice result must not alias the source list")
	}
}

func TestTruthiness(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{Number(0), false},
		{Number(1), true},
		{String(""), false},
		{String("x"), true},
		{List(nil), false},
		{List([]Value{Number(0)}), true},
		{Table(nil), false},
	}
	for _, c := range cases {
		if got := c.v.Truthy(); got != c.want {
			t.Errorf("Truthy(%v) = %v, want %v", c.v.Kind(), got, c.want)
		}
	}
}

func TestNoneIsZeroValue(t *testing.T) {
	var v Value
	if !v.IsNone() {
		t.Fatal("zero Value should be None")
	}
}

func TestToJSONTable(t *testing.T) {
	tbl := Table(map[string]Value{"b": Number(2), "a": Number(1)})
	got := ToJSON(tbl)
	want := `{"a": 1, "b": 2}`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestToStringStringIsRaw(t *testing.T) {
	if ToString(String(`hi "there"`)) != `hi "there"` {
		t.Fatal("to_string of a String must return the raw text, not JSON")
	}
}
