package ratel

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func integrated(t *testing.T, src string) string {
	t.Helper()
	out, err := IntegrateString(src, "x", nil)
	if err != nil {
		t.Fatalf("IntegrateString(%q): %v", src, err)
	}
	return out
}

func TestIntegrate(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"x", "x^2 / 2 + C"},
		{"7", "7 * x + C"},
		{"x^2", "x^3 / 3 + C"},
		{"x^2 + 3*x", "x^3 / 3 + 3/2 * x^2 + C"},
		{"sin(x)", "-cos(x) + C"},
		{"cos(x)", "sin(x) + C"},
		{"exp(x)", "exp(x) + C"},
		{"ln(x)", "x * ln(x) - x + C"},
		{"1/x", "ln(abs(x)) + C"},
		{"cos(2*x + 1)", "sin(2 * x + 1) / 2 + C"},
		{"exp(3*x)", "exp(3 * x) / 3 + C"},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			if got := integrated(t, c.src); got != c.want {
				t.Errorf("int %s = %s, want %s", c.src, got, c.want)
			}
		})
	}
}

func TestIntegrateLogDerivative(t *testing.T) {
	got := integrated(t, "(2*x) / (x^2 + 1)")
	want := "ln(abs(x^2 + 1)) + C"
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	// Up to a constant multiple of the derivative.
	got = integrated(t, "x / (x^2 + 1)")
	want = "1/2 * ln(abs(x^2 + 1)) + C"
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestIntegrateByParts(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"x * sin(x)", "x * (-cos(x)) + sin(x) + C"},
		{"x * exp(x)", "x * exp(x) - exp(x) + C"},
		{"ln(x) * x", "ln(x) * x^2 / 2 - 1/4 * x^2 + C"},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			if got := integrated(t, c.src); got != c.want {
				t.Errorf("int %s = %s, want %s", c.src, got, c.want)
			}
		})
	}
}

func TestIntegrateErrors(t *testing.T) {
	for _, src := range []string{
		"sin(x^2)",
		"sin(x) * cos(x)",
		"x / sin(x)",
		"x ^ x",
		"max(x, 1)",
	} {
		t.Run(src, func(t *testing.T) {
			_, err := IntegrateString(src, "x", nil)
			if err == nil {
				t.Fatalf("int %s: expected error", src)
			}
			var ce *CalculusError
			if !errors.As(err, &ce) {
				t.Fatalf("error type %T, want *CalculusError", err)
			}
			if ce.Op != "integrate" {
				t.Errorf("Op = %q, want integrate", ce.Op)
			}
			if ce.Rule == "" {
				t.Error("empty Rule")
			}
		})
	}
}

// Each antiderivative must differentiate back to the integrand, checked
// numerically at a handful of points.
func TestIntegrateNumeric(t *testing.T) {
	cases := []string{
		"x^2 + 3*x",
		"sin(x)",
		"cos(2*x + 1)",
		"x * exp(x)",
		"ln(x) * x",
		"x / (x^2 + 1)",
	}
	const h = 1e-5
	for _, src := range cases {
		t.Run(src, func(t *testing.T) {
			f, err := NewCurve(src, "x", nil)
			if err != nil {
				t.Fatal(err)
			}
			anti, err := IntegrateString(src, "x", nil)
			if err != nil {
				t.Fatal(err)
			}
			body := strings.TrimSuffix(anti, " + C")
			F, err := NewCurve(body, "x", nil)
			if err != nil {
				t.Fatalf("antiderivative %q does not evaluate: %v", body, err)
			}
			for _, x0 := range []float64{0.7, 1.9, 3.3} {
				hi, err := F.At(x0 + h)
				if err != nil {
					t.Fatal(err)
				}
				lo, err := F.At(x0 - h)
				if err != nil {
					t.Fatal(err)
				}
				want, err := f.At(x0)
				if err != nil {
					t.Fatal(err)
				}
				got := (hi - lo) / (2 * h)
				if math.Abs(got-want) > 1e-4*(1+math.Abs(want)) {
					t.Errorf("d/dx of int %s at %v = %v, want %v", src, x0, got, want)
				}
			}
		})
	}
}

func TestSimplifyTextIdempotent(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"x + -y", "x - y"},
		{"x - -y", "x + y"},
		{"x + 0", "x"},
		{"0 + x", "x"},
		{"(x + y)", "x + y"},
		{"(x) + (y)", "(x) + (y)"},
		{"x + 0 + y", "x + y"},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			got := simplifyText(c.in)
			if got != c.want {
				t.Errorf("simplifyText(%q) = %q, want %q", c.in, got, c.want)
			}
			if again := simplifyText(got); again != got {
				t.Errorf("not idempotent: %q -> %q", got, again)
			}
		})
	}
}
