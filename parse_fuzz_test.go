package ratel

import (
	"testing"
)

// FuzzParse feeds arbitrary source to the parser and, when it parses,
// checks the renderer's contract: rendered text must re-parse and render
// to the same text.
func FuzzParse(f *testing.F) {
	for _, seed := range []string{
		"x",
		"1 + 2 * 3",
		"(2^3)^2",
		"2^3^2",
		"17 mod 5",
		"-2^2",
		"2x + 1",
		"1/0",
		"{x^2 for x in 1..5 if x > 2}",
		"[1, 2; 3, 4]",
		"f(a, b) := a + b; f(1, 2)",
		"100 meters in feet",
		`"a" + "b"`,
		"$x + @meters + #pi",
		"1 +",
		"((((",
	} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, s string) {
		n, err := ParseString(s)
		if err != nil {
			return
		}
		once := Render(n)
		m, err := ParseString(once)
		if err != nil {
			t.Fatalf("render of %q is unparseable: %q: %v", s, once, err)
		}
		if twice := Render(m); twice != once {
			t.Errorf("render not stable: %q -> %q -> %q", s, once, twice)
		}
	})
}
