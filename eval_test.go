package ratel

import (
	"strings"
	"testing"
)

// evalFormat evaluates src in a fresh default context and formats the
// result.
func evalFormat(t *testing.T, src string) string {
	t.Helper()
	ctx := NewContext()
	v, err := EvalString(src, ctx)
	if err != nil {
		t.Fatalf("EvalString(%q): %v", src, err)
	}
	return Format(v, ctx.Settings())
}

func TestEvalArithmetic(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"2 + 3 * 4", "14"},
		{"10 - 4 - 3", "3"},
		{"1/3 + 1/6", "1/2"},
		{"6/3^2", "2/3"},
		{"-2^2", "-4"},
		{"2^3^2", "512"},
		{"2^-1", "1/2"},
		{"5!", "120"},
		{"17 mod 5", "2"},
		{"-7 mod 3", "2"},
		{"50% + 1", "3/2"},
		{"0.5 + 0.25", "3/4"},
		{"1.5e2 + 1", "151"},
		{"sqrt(16/9)", "4/3"},
		{"sqrt(2)", "1.414214"},
		{"gcd(12, 18)", "6"},
		{"lcm(4, 6)", "12"},
		{"abs(-3/4)", "3/4"},
		{"floor(-3/2)", "-2"},
		{"ceil(3/2)", "2"},
		{"round(5/2)", "3"},
		{"1 < 2", "true"},
		{"2 == 4/2", "true"},
		{"true and false", "false"},
		{"true or false", "true"},
		{"not false", "true"},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			if got := evalFormat(t, c.src); got != c.want {
				t.Errorf("%s = %s, want %s", c.src, got, c.want)
			}
		})
	}
}

func TestEvalVectorsAndMatrices(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"{1, 2, 3} + {4, 5, 6}", "{5, 7, 9}"},
		{"{1, 2, 3} * 2", "{2, 4, 6}"},
		{"{1, 2} + {1, 2, 3}", "{2, 4, 3}"},
		{"{10} * {1, 2, 3}", "{10, 20, 30}"},
		{"m := [1, 2; 3, 4]; m @ m", "[7, 10; 15, 22]"},
		{"[1, 2; 3, 4] @ {5, 6}", "{17, 39}"},
		{"{1, 2, 3} @ {4, 5, 6}", "32"},
		{"dot({1, 2, 3}, {4, 5, 6})", "32"},
		{"cross({1, 0, 0}, {0, 1, 0})", "{0, 0, 1}"},
		{"transpose([1, 2; 3, 4])", "[1, 3; 2, 4]"},
		{"det([1, 2; 3, 4])", "-2"},
		{"identity(2)", "[1, 0; 0, 1]"},
		{"[[1, 2], [3, 4]] @ [1, 0; 0, 1]", "[1, 2; 3, 4]"},
		{"{10, 20, 30}[2]", "20"},
		{"{1, 2, 3, 4, 5}[2:4]", "{2, 3, 4}"},
		{"[1, 2; 3, 4][2]", "{3, 4}"},
		{"[1, 2; 3, 4][2][1]", "3"},
		{"sin({0, 0, 0})", "{0, 0, 0}"},
		{"sum(1..100)", "5050"},
		{"len({4, 5, 6})", "3"},
		{"min({3, 1, 2})", "1"},
		{"max(3, 7, 2)", "7"},
		{"mean({1, 2, 3, 4})", "5/2"},
		{"median({5, 1, 3})", "3"},
		{"sort({3, 1, 2})", "{1, 2, 3}"},
		{"reverse({1, 2, 3})", "{3, 2, 1}"},
		{"{v^2 for v in 1..4}", "{1, 4, 9, 16}"},
		{"{v for v in 1..10 if v mod 2 == 0}", "{2, 4, 6, 8, 10}"},
		{"(1..5)[3]", "3"},
		{"(10..1)[2]", "9"},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			if got := evalFormat(t, c.src); got != c.want {
				t.Errorf("%s = %s, want %s", c.src, got, c.want)
			}
		})
	}
}

func TestEvalStrictShapes(t *testing.T) {
	s := DefaultSettings()
	s.StrictShapes = true
	ctx := NewContext(WithSettings(s))
	_, err := EvalString("{1, 2} + {1, 2, 3}", ctx)
	if err == nil {
		t.Fatal("expected shape mismatch error")
	}
	if !strings.Contains(err.Error(), "shape mismatch") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEvalNameResolution(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		// Variables shadow constants; #const bypasses the shadow.
		{"pi := 100; pi", "100"},
		{"pi := 100; $pi", "100"},
		{"pi := 100; #pi * 1.0", "3.141593"},
		// Implicit multiplication splits undefined identifiers.
		{"x := 3; 2x", "6"},
		{"x := 3; y := 4; xy", "12"},
		// Units.
		{"100 meters in feet", "328.08399 foot"},
		{"0 celsius in fahrenheit", "32 fahrenheit"},
		{"2 * 100 meters", "200 meter"},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			if got := evalFormat(t, c.src); got != c.want {
				t.Errorf("%s = %s, want %s", c.src, got, c.want)
			}
		})
	}
}

func TestEvalUndefinedName(t *testing.T) {
	_, err := EvalString("nosuchthing + 1", nil)
	if err == nil {
		t.Fatal("expected undefined name error")
	}
	if !strings.Contains(err.Error(), "undefined name") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEvalFunctionsAndScoping(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		// if is lazy, so recursion terminates.
		{"f(n) := if(n <= 1, 1, n * f(n - 1)); f(5)", "120"},
		{"if(1 < 2, \"yes\", 1/0)", "yes"},
		// := functions are dynamically scoped.
		{"h(x) := x + b; b := 5; h(1)", "6"},
		// Lambdas close over their definition environment.
		{"a := 10; g := (x) -> x + a; a := 99; g(1)", "11"},
		{"square := x -> x * x; square(7)", "49"},
		{"add := (a, b) -> a + b; add(2, 3)", "5"},
		// A lambda is a value.
		{"twice := (f, x) -> f(f(x)); twice(n -> n + 1, 5)", "7"},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			if got := evalFormat(t, c.src); got != c.want {
				t.Errorf("%s = %s, want %s", c.src, got, c.want)
			}
		})
	}
}

func TestEvalRecursionLimit(t *testing.T) {
	ctx := NewContext()
	_, err := EvalString("loop(n) := loop(n + 1); loop(0)", ctx)
	if err == nil {
		t.Fatal("expected recursion limit error")
	}
	if !strings.Contains(err.Error(), "recursion depth") {
		t.Errorf("unexpected error: %v", err)
	}
	// The tracker must unwind so the session stays usable.
	if got := mustEvalIn(t, ctx, "1 + 1"); got != "2" {
		t.Errorf("after limit error, 1 + 1 = %s", got)
	}
}

func mustEvalIn(t *testing.T, ctx *Context, src string) string {
	t.Helper()
	v, err := EvalString(src, ctx)
	if err != nil {
		t.Fatalf("EvalString(%q): %v", src, err)
	}
	return Format(v, ctx.Settings())
}

func TestEvalErrors(t *testing.T) {
	cases := []struct {
		src  string
		frag string
	}{
		{"1/0 + 1", "division by zero"},
		{"1 / 0", "division by zero"},
		{"sin(1, 2)", "expects 1 arguments"},
		{"atan2(1)", "expects 2 arguments"},
		{"ln(-1)", "outside domain"},
		{"{1, 2, 3}[4]", "out of range"},
		{"{1, 2, 3}[0]", "out of range"},
		{"5 in feet", "cannot convert"},
		{"100 meters in seconds", "cannot convert"},
		{"\"a\" * \"b\"", "cannot apply"},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			_, err := EvalString(c.src, nil)
			if err == nil {
				t.Fatalf("%s: expected error", c.src)
			}
			if !strings.Contains(err.Error(), c.frag) {
				t.Errorf("%s: error %q does not mention %q", c.src, err, c.frag)
			}
		})
	}
}

func TestEvalDivisionByZeroLiteral(t *testing.T) {
	// 1/0 cannot lex as a rational literal; it must become a division and
	// then fail at evaluation.
	_, err := EvalString("1/0", nil)
	if err == nil {
		t.Fatal("expected division by zero")
	}
}

func TestEvalAngleUnits(t *testing.T) {
	s := DefaultSettings()
	s.Angle = Degrees
	ctx := NewContext(WithSettings(s))
	v, err := EvalString("sin(90)", ctx)
	if err != nil {
		t.Fatal(err)
	}
	f, _ := v.AsFloat()
	if f < 0.999999 || f > 1.000001 {
		t.Errorf("sin(90 deg) = %v, want 1", f)
	}
	v, err = EvalString("asin(1)", ctx)
	if err != nil {
		t.Fatal(err)
	}
	f, _ = v.AsFloat()
	if f < 89.9999 || f > 90.0001 {
		t.Errorf("asin(1) in degrees = %v, want 90", f)
	}
}

func TestEvalDisabledFeatures(t *testing.T) {
	s := DefaultSettings()
	s.Lambdas = false
	s.UserFunctions = false
	ctx := NewContext(WithSettings(s))
	if _, err := EvalString("x -> x + 1", ctx); err == nil {
		t.Error("expected lambda error with lambdas disabled")
	}
	if _, err := EvalString("f(x) := x", ctx); err == nil {
		t.Error("expected error with user functions disabled")
	}
}

func TestEvalShortCircuit(t *testing.T) {
	// The right side of and/or must not evaluate when the left decides.
	if got := evalFormat(t, "false and 1/0 > 0"); got != "false" {
		t.Errorf("false and _ = %s", got)
	}
	if got := evalFormat(t, "true or 1/0 > 0"); got != "true" {
		t.Errorf("true or _ = %s", got)
	}
}

func TestEvalStrings(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{`"foo" + "bar"`, "foobar"},
		{`upper("abc")`, "ABC"},
		{`lower("ABC")`, "abc"},
		{`len("hello")`, "5"},
		{`"hello"[1]`, "h"},
		{`"hello"[2:4]`, "ell"},
		{`reverse("abc")`, "cba"},
		{`str(1/2)`, "1/2"},
		{`num("3/4") * 4`, "3"},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			if got := evalFormat(t, c.src); got != c.want {
				t.Errorf("%s = %s, want %s", c.src, got, c.want)
			}
		})
	}
}

func TestEvalRoundTrip(t *testing.T) {
	// Exact results re-parse to themselves.
	srcs := []string{"1/2", "14", "-4", "{5, 7, 9}", "3/2"}
	for _, src := range srcs {
		got := evalFormat(t, src)
		if got != src {
			t.Errorf("round trip of %q gave %q", src, got)
		}
	}
}
