package analyze

import (
	"testing"

	"github.com/slowlang/bf/src/compiler/ir"
)

func TestSimpleClearLoop(t *testing.T) {
	// [-]
	body := []ir.Instruction{ir.CellAdd{Node: 0, K: -1}}

	deltas, ok := Simple(body)
	if !ok {
		t.Fatal("want Simple loop")
	}

	if len(deltas) != 1 || deltas[0] != -1 {
		t.Errorf("want deltas={0:-1}, got %v", deltas)
	}
}

func TestSimpleCopyLoop(t *testing.T) {
	// [->+<]
	body := []ir.Instruction{
		ir.CellAdd{Node: 0, K: -1},
		ir.PtrAdd{Node: 1, K: 1},
		ir.CellAdd{Node: 2, K: 1},
		ir.PtrAdd{Node: 3, K: -1},
	}

	deltas, ok := Simple(body)
	if !ok {
		t.Fatal("want Simple loop")
	}

	if deltas[0] != -1 || deltas[1] != 1 || len(deltas) != 2 {
		t.Errorf("want deltas={0:-1, 1:1}, got %v", deltas)
	}
}

func TestSimpleRejectsIO(t *testing.T) {
	body := []ir.Instruction{ir.CellAdd{Node: 0, K: -1}, ir.Output{Node: 1}}

	if _, ok := Simple(body); ok {
		t.Error("want not Simple: body has I/O")
	}
}

func TestSimpleRejectsNonZeroOffset(t *testing.T) {
	body := []ir.Instruction{ir.CellAdd{Node: 0, K: -1}, ir.PtrAdd{Node: 1, K: 1}}

	if _, ok := Simple(body); ok {
		t.Error("want not Simple: pointer does not return to entry")
	}
}

func TestSimpleRejectsBadControllingDelta(t *testing.T) {
	body := []ir.Instruction{ir.CellAdd{Node: 0, K: -2}}

	if _, ok := Simple(body); ok {
		t.Error("want not Simple: delta[0] not in {-1,+1}")
	}
}

func TestScanRight(t *testing.T) {
	// [>]
	body := []ir.Instruction{ir.PtrAdd{Node: 0, K: 1}}

	stride, ok := Scan(body)
	if !ok || stride != 1 {
		t.Errorf("want ScanPow2 stride=1, got stride=%d ok=%v", stride, ok)
	}
}

func TestScanRejectsNonPow2Stride(t *testing.T) {
	body := []ir.Instruction{
		ir.PtrAdd{Node: 0, K: 1},
		ir.PtrAdd{Node: 1, K: 1},
		ir.PtrAdd{Node: 2, K: 1},
	}

	if _, ok := Scan(body); ok {
		t.Error("want not ScanPow2: stride 3 is not a power of two")
	}
}

func TestScanRejectsCellArithmetic(t *testing.T) {
	body := []ir.Instruction{ir.PtrAdd{Node: 0, K: 1}, ir.CellAdd{Node: 1, K: 1}}

	if _, ok := Scan(body); ok {
		t.Error("want not ScanPow2: body has cell arithmetic")
	}
}

func TestClassifyGeneral(t *testing.T) {
	body := []ir.Instruction{ir.Output{Node: 0}}

	if got := Classify(body); got != ir.General {
		t.Errorf("want General, got %v", got)
	}
}

func TestClassifyRejectsNestedLoop(t *testing.T) {
	body := []ir.Instruction{ir.Loop{Node: 0, Body: nil, Class: ir.General}}

	if got := Classify(body); got != ir.General {
		t.Errorf("want General for body containing nested loop, got %v", got)
	}
}
