package ratel

import (
	"testing"
)

// FuzzEval evaluates arbitrary source against a context with one bound
// variable. Invalid input must come back as an error, never a panic, and
// every successful result must format.
func FuzzEval(f *testing.F) {
	for _, seed := range []string{
		"x",
		"y",
		"x^2 + 1",
		"1/3 + 1/6",
		"1/0",
		"{1, 2, 3} * 2",
		"sin(pi / 2)",
		"f(n) := if(n <= 1, 1, n * f(n - 1)); f(5)",
		"100 meters in feet",
		"50% + 1",
		"1 +",
	} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, s string) {
		if len(s) > 200 {
			t.Skip()
		}
		ctx := NewContext(WithVar("x", FloatValue(2)))
		v, err := EvalString(s, ctx)
		if err != nil {
			return
		}
		Format(v, ctx.Settings())
	})
}
