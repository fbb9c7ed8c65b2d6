package ratel

import (
	"errors"
	"math"
	"testing"
)

func TestCompileSharedAcrossContexts(t *testing.T) {
	p, err := Compile("x^2 + 1", nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	cases := []struct {
		x    int64
		want string
	}{
		{3, "10"},
		{5, "26"},
		{-2, "5"},
	}
	for _, c := range cases {
		ctx := NewContext(WithVar("x", IntValue(c.x)))
		v, err := p.Evaluate(ctx)
		if err != nil {
			t.Fatalf("Evaluate with x=%d: %v", c.x, err)
		}
		if got := Format(v, ctx.Settings()); got != c.want {
			t.Errorf("x=%d: got %s, want %s", c.x, got, c.want)
		}
	}
}

func TestProgramEvaluateNilContext(t *testing.T) {
	p, err := Compile("2 + 3", nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if p.Source() != "2 + 3" {
		t.Errorf("Source() = %q", p.Source())
	}
	if got := Render(p.Tree()); got != "2 + 3" {
		t.Errorf("Render(Tree()) = %q", got)
	}
	v, err := p.Evaluate(nil)
	if err != nil {
		t.Fatalf("Evaluate(nil): %v", err)
	}
	if got := Format(v, nil); got != "5" {
		t.Errorf("got %s, want 5", got)
	}
}

func TestCompileError(t *testing.T) {
	_, err := Compile("2 +", nil)
	if err == nil {
		t.Fatal("Compile of incomplete expression succeeded")
	}
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error is %T, want *ParseError", err)
	}
}

func TestCompileInCustomRegistry(t *testing.T) {
	units := DefaultUnits()
	units["smoot"] = &Unit{Name: "smoot", Symbol: "smoot", Dim: "length", Factor: ratDec("1.7018")}
	units["smoots"] = units["smoot"]
	ctx := NewContext(WithUnits(units))

	p, err := CompileIn("2 smoots in meters", ctx)
	if err != nil {
		t.Fatalf("CompileIn: %v", err)
	}
	v, err := p.Evaluate(ctx)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got := Format(v, ctx.Settings()); got != "3.4036 meter" {
		t.Errorf("got %s, want 3.4036 meter", got)
	}
}

func TestCurve(t *testing.T) {
	crv, err := NewCurve("x^2 + 1", "x", nil)
	if err != nil {
		t.Fatalf("NewCurve: %v", err)
	}
	if crv.Var() != "x" {
		t.Errorf("Var() = %q", crv.Var())
	}
	if got := crv.String(); got != "x -> x^2 + 1" {
		t.Errorf("String() = %q", got)
	}
	for _, c := range []struct{ x, want float64 }{
		{3, 10},
		{0, 1},
		{-2, 5},
		{0.5, 1.25},
	} {
		y, err := crv.At(c.x)
		if err != nil {
			t.Fatalf("At(%v): %v", c.x, err)
		}
		if math.Abs(y-c.want) > 1e-12 {
			t.Errorf("At(%v) = %v, want %v", c.x, y, c.want)
		}
	}
}

func TestCurveFromSharedProgram(t *testing.T) {
	p, err := Compile("sin(x)", nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	a := p.Curve("x")
	b := p.Curve("x")
	ya, err := a.At(math.Pi / 2)
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	yb, err := b.At(0)
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	if math.Abs(ya-1) > 1e-12 || math.Abs(yb) > 1e-12 {
		t.Errorf("sin(pi/2) = %v, sin(0) = %v", ya, yb)
	}
}

func TestCurveErrors(t *testing.T) {
	crv, err := NewCurve("y + 1", "x", nil)
	if err != nil {
		t.Fatalf("NewCurve: %v", err)
	}
	if _, err := crv.At(1); err == nil {
		t.Error("At with unbound variable succeeded")
	}

	crv, err = NewCurve(`"a" + "b"`, "x", nil)
	if err != nil {
		t.Fatalf("NewCurve: %v", err)
	}
	if _, err := crv.At(1); err == nil {
		t.Error("At on a non-numeric expression succeeded")
	}
}

func TestEvalShorthand(t *testing.T) {
	v, err := Eval("2 + 2")
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if !v.Equal(IntValue(4)) {
		t.Errorf("Eval(2 + 2) = %v", v)
	}

	if !MustEval("3 * 3").Equal(IntValue(9)) {
		t.Error("MustEval(3 * 3) != 9")
	}
	defer func() {
		if recover() == nil {
			t.Error("MustEval on bad input did not panic")
		}
	}()
	MustEval("1 +")
}
