package compiler

import (
	"context"
	"testing"

	"github.com/slowlang/bf/src/compiler/optimize"
)

func TestPrepareAppliesPEThenOptimize(t *testing.T) {
	cfg := Config{PE: true, Optimize: optimize.Default()}

	prog, out, err := Prepare(context.Background(), cfg, []byte("++++++++[>++++++++<-]>+."))
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}

	if len(prog) != 0 {
		t.Errorf("want fully folded program, got %#v", prog)
	}

	if len(out) != 1 || out[0] != 65 {
		t.Errorf("want output [65], got %v", out)
	}
}

func TestPrepareWithoutPESkipsFolding(t *testing.T) {
	cfg := Config{Optimize: optimize.Default()}

	prog, out, err := Prepare(context.Background(), cfg, []byte("[->+<]"))
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}

	if len(out) != 0 {
		t.Errorf("want no compile-time output without --pe, got %v", out)
	}

	if len(prog) != 1 {
		t.Fatalf("want 1 node, got %#v", prog)
	}
}
