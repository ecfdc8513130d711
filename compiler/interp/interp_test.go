package interp

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/slowlang/bf/src/compiler/optimize"
	"github.com/slowlang/bf/src/compiler/parse"
)

func run(t *testing.T, src, in string, prof Profile) string {
	t.Helper()

	prog, err := parse.Parse(context.Background(), []byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	prog = optimize.Run(context.Background(), optimize.Default(), prog)

	var out bytes.Buffer
	if err := Run(context.Background(), prog, strings.NewReader(in), &out, prof); err != nil {
		t.Fatalf("run: %v", err)
	}

	return out.String()
}

func TestRunHelloWorld(t *testing.T) {
	const hello = "++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.>---.+++++++..+++.>>.<-.<.+++.------.--------.>>+.>++."

	got := run(t, hello, "", nil)

	want := "Hello World!\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRunEchoesInput(t *testing.T) {
	got := run(t, ",.,.,.", "abc", nil)

	if got != "abc" {
		t.Errorf("got %q, want %q", got, "abc")
	}
}

func TestRunSimpleLoopClearsAndCopies(t *testing.T) {
	// Set cell 0 to 5, copy it to cell 1 via a SimpleLoop, then print cell 1.
	got := run(t, "+++++[->+<]>.", "", nil)

	if len(got) != 1 || got[0] != 5 {
		t.Errorf("got %q, want a single byte of value 5", got)
	}
}

func TestRunScanLoopFindsZero(t *testing.T) {
	// Lay down three nonzero cells followed by an implicit zero cell, walk
	// back to the start, and scan right with a ScanLoop until landing on
	// the zero cell.
	got := run(t, "+>+>+<<[>].", "", nil)

	if got != "\x00" {
		t.Errorf("got %q, want a single zero byte", got)
	}
}

func TestRunUnderflow(t *testing.T) {
	prog, err := parse.Parse(context.Background(), []byte("<"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	err = Run(context.Background(), prog, strings.NewReader(""), &bytes.Buffer{}, nil)
	if err == nil {
		t.Fatal("want a pointer-underflow error")
	}
}

func TestRunGrowsTapeRightwardWithoutError(t *testing.T) {
	// ">" 40000 times walks well past the fixed-backend tape size; the
	// interpreter's tape must grow to accommodate it rather than erroring.
	src := strings.Repeat(">", 40000) + "+."

	got := run(t, src, "", nil)

	if got != "\x01" {
		t.Errorf("got %q, want a single byte of value 1", got)
	}
}

func TestRecordingProfileReport(t *testing.T) {
	prof := NewRecordingProfile()

	// The loop body contains Output, so it stays General rather than
	// folding to a SimpleLoop; its '-' decrement executes once per
	// iteration, giving a single instruction id a count above 1.
	run(t, "+++[.-]", "", prof)

	report := prof.Report()

	if !strings.Contains(report, "Instruction execution counts:") {
		t.Errorf("report missing header:\n%s", report)
	}

	if !strings.Contains(report, "- 3") {
		t.Errorf("report missing '- 3':\n%s", report)
	}

	if !strings.Contains(report, "Non-simple innermost loops:") {
		t.Errorf("report missing non-simple loops section:\n%s", report)
	}

	if !strings.Contains(report, "executed 3 times") {
		t.Errorf("report missing loop iteration count:\n%s", report)
	}
}

func TestRecordingProfileReportIsPerInstructionID(t *testing.T) {
	// Two separate '+' instructions at different ids must not collapse
	// into one summed line.
	prof := NewRecordingProfile()

	run(t, "+.+.", "", prof)

	report := prof.Report()

	if strings.Count(report, "+ 1") != 2 {
		t.Errorf("want two separate '+ 1' lines, got:\n%s", report)
	}
}
