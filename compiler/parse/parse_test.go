package parse

import (
	"context"
	"testing"

	"github.com/slowlang/bf/src/compiler/ir"
)

func TestParseBasic(t *testing.T) {
	prog, err := Parse(context.Background(), []byte("+[->+<]."))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(prog) != 3 {
		t.Fatalf("want 3 top-level nodes, got %d", len(prog))
	}

	add, ok := prog[0].(ir.CellAdd)
	if !ok || add.K != 1 {
		t.Errorf("node 0: want CellAdd{K:1}, got %#v", prog[0])
	}

	loop, ok := prog[1].(ir.Loop)
	if !ok {
		t.Fatalf("node 1: want Loop, got %#v", prog[1])
	}

	if len(loop.Body) != 4 {
		t.Errorf("loop body: want 4 nodes, got %d", len(loop.Body))
	}

	if _, ok := prog[2].(ir.Output); !ok {
		t.Errorf("node 2: want Output, got %#v", prog[2])
	}
}

func TestParseIgnoresComments(t *testing.T) {
	prog, err := Parse(context.Background(), []byte("hello + world - ok"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(prog) != 2 {
		t.Fatalf("want 2 nodes, got %d", len(prog))
	}
}

func TestParseEmpty(t *testing.T) {
	prog, err := Parse(context.Background(), []byte(""))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(prog) != 0 {
		t.Errorf("want empty program, got %d nodes", len(prog))
	}
}

func TestParseDenseIDs(t *testing.T) {
	prog, err := Parse(context.Background(), []byte("+[+[+]+]+"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	var ids []int
	var walk func([]ir.Instruction)
	walk = func(seq []ir.Instruction) {
		for _, n := range seq {
			ids = append(ids, int(ir.IDOf(n)))
			if l, ok := n.(ir.Loop); ok {
				walk(l.Body)
			}
		}
	}
	walk(prog)

	for i, id := range ids {
		if id != i {
			t.Errorf("ids not dense/stable in parse order: at position %d got id %d", i, id)
		}
	}
}

func TestParseUnmatchedOpen(t *testing.T) {
	_, err := Parse(context.Background(), []byte("+["))
	if err == nil {
		t.Fatal("want error for unmatched '['")
	}
}

func TestParseUnmatchedClose(t *testing.T) {
	_, err := Parse(context.Background(), []byte("+]"))
	if err == nil {
		t.Fatal("want error for unmatched ']'")
	}
}
