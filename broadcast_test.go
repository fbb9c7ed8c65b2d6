package ratel

import (
	"strings"
	"testing"
)

func TestBroadcastElementwise(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"{1, 2, 3} + {10, 20, 30}", "{11, 22, 33}"},
		{"{1, 2, 3} * 2", "{2, 4, 6}"},
		{"2 - {1, 2}", "{1, 0}"},
		{"{1, 2, 3}^2", "{1, 4, 9}"},
		{"-{1, 2}", "{-1, -2}"},
		{"abs({-1, 2, -3})", "{1, 2, 3}"},
		{"[1, 2; 3, 4] + 1", "[2, 3; 4, 5]"},
		{"[1, 2; 3, 4] * [1, 0; 0, 1]", "[1, 0; 0, 4]"},
		{"(1..3) * 2", "{2, 4, 6}"},
		{"{1, 2} == {1, 2}", "true"},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			if got := evalFormat(t, c.src); got != c.want {
				t.Errorf("%s = %s, want %s", c.src, got, c.want)
			}
		})
	}
}

func TestBroadcastPadAndReplicate(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		// Mismatched lengths pad the shorter side with zeros.
		{"{1, 2, 3} + {1, 2}", "{2, 4, 3}"},
		{"{1, 2} - {1, 2, 3}", "{0, 0, -3}"},
		// A single-element vector broadcasts like a scalar.
		{"{5} * {1, 2, 3}", "{5, 10, 15}"},
		{"{1, 2, 3} + {10}", "{11, 12, 13}"},
		// A single-row matrix replicates down the rows.
		{"[1, 2; 3, 4] + [10, 20]", "[11, 22; 13, 24]"},
		{"[10, 20] + [1, 2; 3, 4]", "[11, 22; 13, 24]"},
		// A single-column matrix replicates across the columns.
		{"[10; 20] + [1, 2; 3, 4]", "[11, 12; 23, 24]"},
		// A vector maps over each matrix row.
		{"[1, 2; 3, 4] + {10, 20}", "[11, 22; 13, 24]"},
		// Differing row counts pad the shorter matrix with zero rows.
		{"[1, 2; 3, 4] + [1, 1; 1, 1; 1, 1]", "[2, 3; 4, 5; 1, 1]"},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			if got := evalFormat(t, c.src); got != c.want {
				t.Errorf("%s = %s, want %s", c.src, got, c.want)
			}
		})
	}
}

func TestBroadcastStrictShapes(t *testing.T) {
	s := DefaultSettings()
	s.StrictShapes = true
	ctx := NewContext(WithSettings(s))
	for _, src := range []string{
		"{1, 2, 3} + {1, 2}",
		"[1, 2; 3, 4] + [1, 2; 3, 4; 5, 6]",
	} {
		if _, err := EvalString(src, ctx); err == nil {
			t.Errorf("%s: expected shape error under strict shapes", src)
		} else if !strings.Contains(err.Error(), "shape mismatch") {
			t.Errorf("%s: error %q, want shape mismatch", src, err)
		}
	}
	// Exact shapes still work.
	v, err := EvalString("{1, 2} + {3, 4}", ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got := Format(v, s); got != "{4, 6}" {
		t.Errorf("got %s, want {4, 6}", got)
	}
}

func TestMatrixProduct(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"{1, 2} @ {3, 4}", "11"},
		{"[1, 2; 3, 4] @ [5, 6; 7, 8]", "[19, 22; 43, 50]"},
		{"[1, 2; 3, 4] @ [1, 0; 0, 1]", "[1, 2; 3, 4]"},
		{"[1, 2; 3, 4] @ {1, 1}", "{3, 7}"},
		{"{1, 1} @ [1, 2; 3, 4]", "{4, 6}"},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			if got := evalFormat(t, c.src); got != c.want {
				t.Errorf("%s = %s, want %s", c.src, got, c.want)
			}
		})
	}
}

// The product operator never pads, regardless of StrictShapes.
func TestMatrixProductStrict(t *testing.T) {
	for _, src := range []string{
		"{1, 2} @ {1, 2, 3}",
		"[1, 2; 3, 4] @ [1, 2]",
		"[1, 2; 3, 4] @ {1, 2, 3}",
		"{1, 2} @ 3",
	} {
		t.Run(src, func(t *testing.T) {
			ctx := NewContext()
			if _, err := EvalString(src, ctx); err == nil {
				t.Errorf("%s: expected error", src)
			}
		})
	}
}

func TestQuantityArithmetic(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"1 meters + 1 feet", "1.3048 meter"},
		{"2 meters * 3", "6 meter"},
		{"3 * 2 meters", "6 meter"},
		{"6 meters / 2", "3 meter"},
		{"1 feet < 1 meters", "true"},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			if got := evalFormat(t, c.src); got != c.want {
				t.Errorf("%s = %s, want %s", c.src, got, c.want)
			}
		})
	}
	ctx := NewContext()
	if _, err := EvalString("2 meters * 3 meters", ctx); err == nil {
		t.Error("expected compound-unit error")
	} else if !strings.Contains(err.Error(), "compound units") {
		t.Errorf("error %q, want compound-unit message", err)
	}
	if _, err := EvalString("1 meters + 1 seconds", ctx); err == nil {
		t.Error("expected dimension mismatch error")
	}
}
