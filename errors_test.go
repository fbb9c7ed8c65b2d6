package ratel

import (
	"strings"
	"testing"
)

func TestReportCaret(t *testing.T) {
	err := &ParseError{Msg: "boom", Line: 1, Col: 5}
	got := Report(err, "ab + x")
	want := "parse error at line 1:5: boom\n" +
		"  1 | ab + x\n" +
		"    |     ^"
	if got != want {
		t.Errorf("Report:\n%s\nwant:\n%s", got, want)
	}
}

func TestReportCaretMultibyte(t *testing.T) {
	// Columns count runes; the caret must not drift on multibyte lines.
	err := &ParseError{Msg: "boom", Line: 1, Col: 5}
	got := Report(err, "αβ + x")
	lines := strings.Split(got, "\n")
	if len(lines) != 3 {
		t.Fatalf("Report produced %d lines: %q", len(lines), got)
	}
	caret := lines[2]
	if caret != "    |     ^" {
		t.Errorf("caret line = %q, want %q", caret, "    |     ^")
	}
}

func TestReportCaretSecondLine(t *testing.T) {
	src := "1 +\n  ~"
	_, err := Tokenize(src)
	if err == nil {
		t.Fatal("Tokenize accepted ~")
	}
	got := Report(err, src)
	if !strings.Contains(got, "2 |   ~") {
		t.Errorf("snippet missing source line: %q", got)
	}
	if !strings.HasSuffix(got, "  ^") {
		t.Errorf("caret misplaced: %q", got)
	}
}

func TestReportClampsColumn(t *testing.T) {
	err := &EvalError{Msg: "boom", Line: 1, Col: 40}
	got := Report(err, "αβ")
	// Two runes on the line: the caret clamps to just past the end.
	if want := "|   ^"; !strings.HasSuffix(got, want) {
		t.Errorf("caret line ends %q, want suffix %q", got, want)
	}
}

func TestReportWithoutPosition(t *testing.T) {
	err := &CalculusError{Op: "integrate", Rule: "operator mod"}
	if got := Report(err, "x mod 2"); got != "cannot integrate: operator mod" {
		t.Errorf("Report = %q", got)
	}
}
