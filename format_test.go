package ratel

import (
	"math/big"
	"testing"
)

func TestFormatRationals(t *testing.T) {
	s := DefaultSettings()
	cases := []struct {
		v    Value
		want string
	}{
		{IntValue(0), "0"},
		{IntValue(-42), "-42"},
		{RationalValue(big.NewRat(1, 2)), "1/2"},
		{RationalValue(big.NewRat(-3, 4)), "-3/4"},
		{RationalValue(big.NewRat(10, 5)), "2"},
		{IntValue(3628800), "3628800"},
	}
	for _, c := range cases {
		if got := Format(c.v, s); got != c.want {
			t.Errorf("Format(%v) = %q, want %q", c.v, got, c.want)
		}
	}
}

func TestFormatGroupDigits(t *testing.T) {
	s := DefaultSettings()
	s.GroupDigits = true
	if got := Format(IntValue(3628800), s); got != "3,628,800" {
		t.Errorf("grouped = %q, want 3,628,800", got)
	}
	if got := Format(IntValue(999), s); got != "999" {
		t.Errorf("grouped = %q, want 999", got)
	}
	// Fractions never group.
	if got := Format(RationalValue(big.NewRat(10000, 3)), s); got != "10000/3" {
		t.Errorf("grouped fraction = %q", got)
	}
}

func TestFormatFloats(t *testing.T) {
	s := DefaultSettings() // DecimalPlaces: 6
	cases := []struct {
		f    float64
		want string
	}{
		{1.5, "1.5"},
		{3.14159265358979, "3.141593"},
		{100, "100"},
		{0.000001, "0.000001"},
		{1.0000004, "1"},
		{-2.5, "-2.5"},
	}
	for _, c := range cases {
		if got := Format(FloatValue(c.f), s); got != c.want {
			t.Errorf("Format(%v) = %q, want %q", c.f, got, c.want)
		}
	}
	s.DecimalPlaces = 2
	if got := Format(FloatValue(3.14159), s); got != "3.14" {
		t.Errorf("2 places = %q", got)
	}
}

func TestFormatForceDouble(t *testing.T) {
	s := DefaultSettings()
	s.ForceDouble = true
	if got := Format(RationalValue(big.NewRat(1, 2)), s); got != "0.5" {
		t.Errorf("forced double 1/2 = %q", got)
	}
	if got := Format(IntValue(3), s); got != "3" {
		t.Errorf("forced double 3 = %q", got)
	}
}

func TestFormatOtherKinds(t *testing.T) {
	s := DefaultSettings()
	if got := Format(PercentValue(big.NewRat(50, 1)), s); got != "50%" {
		t.Errorf("percent = %q", got)
	}
	if got := Format(BoolValue(true), s); got != "true" {
		t.Errorf("bool = %q", got)
	}
	if got := Format(StringValue("hi"), s); got != "hi" {
		t.Errorf("string = %q", got)
	}
	v := VectorValue([]Value{IntValue(1), RationalValue(big.NewRat(1, 2))})
	if got := Format(v, s); got != "{1, 1/2}" {
		t.Errorf("vector = %q", got)
	}
	m := MatrixValue([][]Value{{IntValue(1), IntValue(2)}, {IntValue(3), IntValue(4)}})
	if got := Format(m, s); got != "[1, 2; 3, 4]" {
		t.Errorf("matrix = %q", got)
	}
}

func TestFormatRangesAndLambdas(t *testing.T) {
	ctx := NewContext()
	if got := mustEvalIn(t, ctx, "1..10"); got != "1..10" {
		t.Errorf("range = %q", got)
	}
	if got := mustEvalIn(t, ctx, "1..10 step 2"); got != "1..10 step 2" {
		t.Errorf("stepped range = %q", got)
	}
	if got := mustEvalIn(t, ctx, "10..1"); got != "10..1 step -1" {
		t.Errorf("descending range = %q", got)
	}
	if got := mustEvalIn(t, ctx, "(a, b) -> a + b"); got != "(a, b) -> a + b" {
		t.Errorf("lambda = %q", got)
	}
}

// Formatted exact results parse back to an equal value.
func TestFormatRoundTrip(t *testing.T) {
	srcs := []string{
		"1/3 + 1/6",
		"2^40",
		"{1, 1/2, -3}",
		"[1, 2; 3, 4]",
		"50%",
	}
	for _, src := range srcs {
		t.Run(src, func(t *testing.T) {
			ctx := NewContext()
			v, err := EvalString(src, ctx)
			if err != nil {
				t.Fatal(err)
			}
			text := Format(v, ctx.Settings())
			back, err := EvalString(text, NewContext())
			if err != nil {
				t.Fatalf("reparse %q: %v", text, err)
			}
			if !v.Equal(back) {
				t.Errorf("%q round-trips to %q (%v != %v)", src, text, v, back)
			}
		})
	}
}
