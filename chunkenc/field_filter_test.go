package chunkenc

import "testing"

func TestFilterAllIncludesEverything(t *testing.T) {
	f := All()
	if !f.Includes(1) || !f.Includes(999) {
		t.Fatalf("All() must include every field")
	}
	if !f.Sub(1).IsAll() {
		t.Fatalf("All().Sub(x) must still be All()")
	}
}

func TestFilterNoneExcludesEverything(t *testing.T) {
	f := None()
	if f.Includes(1) {
		t.Fatalf("None() must exclude every field")
	}
	if !f.Sub(1).IsNone() {
		t.Fatalf("None().Sub(x) must still be None()")
	}
}

func TestFilterTopLevelPath(t *testing.T) {
	f := New([]uint32{1})
	if !f.Includes(1) {
		t.Fatalf("expected field 1 to be included")
	}
	if f.Includes(2) {
		t.Fatalf("expected field 2 to be excluded")
	}
	if !f.Sub(1).IsAll() {
		t.Fatalf("expected field 1's subtree to be fully included")
	}
	if !f.Sub(2).IsNone() {
		t.Fatalf("expected field 2's subtree to be fully excluded")
	}
}

func TestFilterNestedPath(t *testing.T) {
	f := New([]uint32{1, 2})
	if !f.Includes(1) {
		t.Fatalf("expected field 1 to be included (to reach nested field 2)")
	}
	sub := f.Sub(1)
	if sub.IsAll() {
		t.Fatalf("field 1's subtree must not be fully included: only field 2 is named")
	}
	if !sub.Includes(2) {
		t.Fatalf("expected nested field 2 to be included")
	}
	if sub.Includes(3) {
		t.Fatalf("expected nested field 3 to be excluded")
	}
}

func TestFilterMultiplePaths(t *testing.T) {
	f := New([]uint32{1}, []uint32{2, 5})
	if !f.Includes(1) || !f.Includes(2) {
		t.Fatalf("expected both top-level fields named by a path to be included")
	}
	if f.Includes(3) {
		t.Fatalf("expected field 3 to be excluded")
	}
	if !f.Sub(2).Includes(5) {
		t.Fatalf("expected field 2.5 to be included")
	}
}
