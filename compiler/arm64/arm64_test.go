package arm64

import (
	"context"
	"strings"
	"testing"

	"github.com/slowlang/bf/src/compiler/optimize"
	"github.com/slowlang/bf/src/compiler/parse"
)

func emit(t *testing.T, src string) string {
	t.Helper()

	prog, err := parse.Parse(context.Background(), []byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	prog = optimize.Run(context.Background(), optimize.Default(), prog)

	out, err := Emit(context.Background(), prog)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	return string(out)
}

func TestEmitEntryPoint(t *testing.T) {
	out := emit(t, "+.")

	if !strings.Contains(out, "_main:") {
		t.Error("want a _main label")
	}

	if !strings.Contains(out, "BL	_malloc") {
		t.Error("want the tape to be allocated with malloc")
	}
}

func TestEmitOutputCallsPutchar(t *testing.T) {
	out := emit(t, ".")

	if !strings.Contains(out, "BL	_putchar") {
		t.Error("want a putchar call")
	}
}

func TestEmitInputHandlesEOF(t *testing.T) {
	out := emit(t, ",")

	if !strings.Contains(out, "BL	_getchar") {
		t.Error("want a getchar call")
	}

	if !strings.Contains(out, "CSEL") {
		t.Error("want a conditional select mapping EOF to zero")
	}
}

func TestEmitSimpleLoopClosedForm(t *testing.T) {
	out := emit(t, "[->+<]")

	if strings.Contains(out, "loop_cond") {
		t.Error("SimpleLoop should not lower to a branchy loop")
	}

	if !strings.Contains(out, "MUL") {
		t.Error("want a multiply in the SimpleLoop closed form")
	}
}

func TestEmitScanLoopBranches(t *testing.T) {
	out := emit(t, "[>]")

	if !strings.Contains(out, "loop_scan") {
		t.Error("want a scan loop label")
	}
}

func TestEmitGeneralLoopBranches(t *testing.T) {
	out := emit(t, "[.]")

	if !strings.Contains(out, "loop_cond") {
		t.Error("want a branchy loop for a General-classified loop")
	}
}

func TestEmitNegativePointerOffsetUsesSub(t *testing.T) {
	out := emit(t, "<")

	if !strings.Contains(out, "SUB	X19, X19, #1") {
		t.Errorf("want SUB for negative PtrAdd, got:\n%s", out)
	}
}
