// Package analyze classifies loop bodies as Simple, ScanPow2, or General
// per §4.2. Both classifiers reject a body that contains a loop-shaped node
// or an I/O instruction; the optimizer recurses bottom-up, so nested loops
// are already specialized when their parent is classified.
package analyze

import (
	"tlog.app/go/tlog"

	"github.com/slowlang/bf/src/compiler/ir"
)

// Simple walks body and reports whether it qualifies as a Simple loop,
// returning the per-offset cell deltas (including offset 0) when it does.
func Simple(body []ir.Instruction) (deltas map[int32]int8, ok bool) {
	deltas = map[int32]int8{}

	var offset int32

	for _, n := range body {
		switch n := n.(type) {
		case ir.PtrAdd:
			offset += n.K
		case ir.CellAdd:
			deltas[offset] += n.K
		case ir.Loop, ir.SimpleLoop, ir.ScanLoop, ir.Output, ir.Input:
			return nil, false
		default:
			panic(n)
		}
	}

	if offset != 0 {
		return nil, false
	}

	d0 := deltas[0]
	if d0 != -1 && d0 != 1 {
		return nil, false
	}

	return deltas, true
}

// Scan walks body and reports whether it qualifies as a ScanPow2 loop,
// returning the net per-iteration pointer stride when it does.
func Scan(body []ir.Instruction) (stride int32, ok bool) {
	for _, n := range body {
		switch n := n.(type) {
		case ir.PtrAdd:
			stride += n.K
		case ir.CellAdd, ir.Loop, ir.SimpleLoop, ir.ScanLoop, ir.Output, ir.Input:
			return 0, false
		default:
			panic(n)
		}
	}

	if stride == 0 {
		return 0, false
	}

	return stride, isPow2(abs32(stride))
}

// Classify runs both tests and returns the resulting class. A loop body
// failing both tests is General.
func Classify(body []ir.Instruction) ir.LoopClass {
	if _, ok := Simple(body); ok {
		return ir.Simple
	}

	if _, ok := Scan(body); ok {
		return ir.ScanPow2
	}

	return ir.General
}

// ClassifyLogged is Classify with a tlog trace line, for use at the top of
// the optimizer's per-loop rewrite step.
func ClassifyLogged(tr tlog.Span, node ir.ID, body []ir.Instruction) ir.LoopClass {
	class := Classify(body)

	if tr.If("classify") {
		tr.Printw("classify loop", "node", node, "class", class.String(), "body_len", len(body))
	}

	return class
}

func abs32(x int32) int32 {
	if x < 0 {
		return -x
	}

	return x
}

func isPow2(x int32) bool {
	return x != 0 && x&(x-1) == 0
}
