package ratel

import (
	"testing"
)

func simplified(t *testing.T, src string) string {
	t.Helper()
	n, err := ParseString(src)
	if err != nil {
		t.Fatalf("ParseString(%q): %v", src, err)
	}
	return Render(Simplify(n))
}

func TestSimplify(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"x + 0", "x"},
		{"0 + x", "x"},
		{"x - 0", "x"},
		{"0 - x", "-x"},
		{"x * 1", "x"},
		{"1 * x", "x"},
		{"x * 0", "0"},
		{"x * -1", "-x"},
		{"x / 1", "x"},
		{"0 / x", "0"},
		{"x ^ 1", "x"},
		{"x ^ 0", "1"},
		{"1 ^ x", "1"},
		{"2 + 3", "5"},
		{"2 * 3 + 1", "7"},
		{"2 ^ 10", "1024"},
		{"- - x", "x"},
		{"x + -y", "x - y"},
		{"x - -y", "x + y"},
		// Rational factors meet across quotients.
		{"(1 / x) * (x^2 / 2)", "1/2 * x"},
		{"(x / 2) / 3", "x / 6"},
		{"x * x", "x^2"},
		{"x^3 / x", "x^2"},
		{"x / x", "1"},
		{"x^2 * x^3", "x^5"},
		{"(2 * x) / (4 * x)", "1/2"},
		{"sin(x) / sin(x)", "1"},
		// No rule applies: left alone.
		{"x + y", "x + y"},
		{"sin(x) * cos(x)", "sin(x) * cos(x)"},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			if got := simplified(t, c.src); got != c.want {
				t.Errorf("Simplify(%s) = %s, want %s", c.src, got, c.want)
			}
		})
	}
}

func TestSimplifyIdempotent(t *testing.T) {
	srcs := []string{
		"(1 / x) * (x^2 / 2)",
		"x * -1 + 0 * y",
		"2 ^ 3 ^ 2",
		"sin(x) + cos(x) * 1",
	}
	for _, src := range srcs {
		t.Run(src, func(t *testing.T) {
			n, err := ParseString(src)
			if err != nil {
				t.Fatal(err)
			}
			once := Simplify(n)
			twice := Simplify(once)
			if Render(once) != Render(twice) {
				t.Errorf("not idempotent: %q vs %q", Render(once), Render(twice))
			}
		})
	}
}

// Simplify must rewrite functionally: the input tree's literals stay intact.
func TestSimplifyPreservesInput(t *testing.T) {
	n, err := ParseString("-(2 * x) + 3")
	if err != nil {
		t.Fatal(err)
	}
	before := Render(n)
	Simplify(n)
	if got := Render(n); got != before {
		t.Errorf("input mutated: %q -> %q", before, got)
	}
}

func TestLinearizeOperands(t *testing.T) {
	n, err := ParseString("a * b + c")
	if err != nil {
		t.Fatal(err)
	}
	items, err := linearize(n, nil)
	if err != nil {
		t.Fatal(err)
	}
	// Postfix: a b * c +
	if len(items) != 5 {
		t.Fatalf("len(items) = %d, want 5", len(items))
	}
	kids := operands(items, 4)
	if len(kids) != 2 || kids[0] != 2 || kids[1] != 3 {
		t.Errorf("operands of + = %v, want [2 3]", kids)
	}
	if got := span(items, 2); got != 0 {
		t.Errorf("span of * = %d, want 0", got)
	}
}

func TestLinearizeRejects(t *testing.T) {
	for _, src := range []string{
		"{1, 2, 3}",
		"x!",
		"x mod 2",
		"max(x, 1)",
		"a and b",
	} {
		t.Run(src, func(t *testing.T) {
			n, err := ParseString(src)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := linearize(n, nil); err == nil {
				t.Errorf("linearize(%s): expected error", src)
			}
		})
	}
}
