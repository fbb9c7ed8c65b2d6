package ratel

import (
	"sort"
	"testing"
)

func TestContextLookupChain(t *testing.T) {
	root := NewContext()
	root.Define("a", IntValue(1))
	child := root.Child()
	child.Define("b", IntValue(2))

	if v, ok := child.Lookup("a"); !ok || Format(v, root.Settings()) != "1" {
		t.Errorf("child lookup a = %v, %v", v, ok)
	}
	if _, ok := root.Lookup("b"); ok {
		t.Error("root sees child binding")
	}

	// Shadowing binds locally without touching the outer frame.
	child.Define("a", IntValue(10))
	if v, _ := child.Lookup("a"); Format(v, root.Settings()) != "10" {
		t.Errorf("shadowed a = %v", v)
	}
	if v, _ := root.Lookup("a"); Format(v, root.Settings()) != "1" {
		t.Errorf("outer a = %v", v)
	}
}

func TestContextAssignWhereBound(t *testing.T) {
	root := NewContext()
	root.Define("x", IntValue(1))
	child := root.Child()

	// Assign updates the frame that holds the binding.
	child.Assign("x", IntValue(5))
	if v, _ := root.Lookup("x"); Format(v, root.Settings()) != "5" {
		t.Errorf("root x = %v after child assign", v)
	}
	if _, ok := child.vars["x"]; ok {
		t.Error("assign created a shadow binding")
	}

	// An unbound name lands in the assigning frame.
	child.Assign("y", IntValue(7))
	if _, ok := root.Lookup("y"); ok {
		t.Error("unbound assign leaked to the root")
	}
	if v, ok := child.Lookup("y"); !ok || Format(v, root.Settings()) != "7" {
		t.Errorf("child y = %v, %v", v, ok)
	}
}

func TestContextSnapshot(t *testing.T) {
	root := NewContext()
	root.Define("a", IntValue(1))
	child := root.Child()
	child.Define("a", IntValue(2))
	child.Define("b", IntValue(3))

	snap := child.Snapshot()
	// Inner frames win, and later mutation of the chain is invisible.
	child.Define("a", IntValue(99))
	root.Define("b", IntValue(99))
	if v, _ := snap.Lookup("a"); Format(v, root.Settings()) != "2" {
		t.Errorf("snapshot a = %v", v)
	}
	if v, _ := snap.Lookup("b"); Format(v, root.Settings()) != "3" {
		t.Errorf("snapshot b = %v", v)
	}
	if snap.Settings() != root.Settings() {
		t.Error("snapshot lost the root settings")
	}
}

func TestContextReset(t *testing.T) {
	ctx := NewContext()
	if _, err := EvalString("x := 1; f(a) := a + x", ctx); err != nil {
		t.Fatal(err)
	}
	ctx.Reset()
	if _, ok := ctx.Lookup("x"); ok {
		t.Error("variable survived Reset")
	}
	if _, ok := ctx.LookupFunc("f"); ok {
		t.Error("user function survived Reset")
	}
	// The context stays usable.
	if got := mustEvalIn(t, ctx, "1 + 1"); got != "2" {
		t.Errorf("post-reset eval = %s", got)
	}
}

func TestContextNames(t *testing.T) {
	root := NewContext(WithVar("a", IntValue(1)))
	child := root.Child()
	child.Define("b", IntValue(2))
	child.Define("a", IntValue(3)) // shadow, must not duplicate

	names := child.Names()
	sort.Strings(names)
	want := []string{"a", "b"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestContextOptions(t *testing.T) {
	s := DefaultSettings()
	s.DecimalPlaces = 2
	ctx := NewContext(WithSettings(s), WithVar("tau", FloatValue(6.2831853)))
	v, err := EvalString("tau", ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got := Format(v, ctx.Settings()); got != "6.28" {
		t.Errorf("tau = %s, want 6.28", got)
	}
}

func TestRecursionTrackerRecovers(t *testing.T) {
	r := &recursionTracker{max: 2}
	if err := r.enter(); err != nil {
		t.Fatal(err)
	}
	if err := r.enter(); err != nil {
		t.Fatal(err)
	}
	if err := r.enter(); err == nil {
		t.Fatal("expected depth error")
	}
	// A failed enter must not consume depth.
	r.exit()
	r.exit()
	if r.depth != 0 {
		t.Errorf("depth = %d after unwinding, want 0", r.depth)
	}
}
