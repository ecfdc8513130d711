// Package arm64 emits AArch64 assembly text for a program (§4.7). There is
// no general register allocation: two callee-saved registers are fixed for
// the life of the function, X19 holding the current data pointer and X20
// the malloc'd tape's allocation base, freeing every other register for
// scratch use around calls to putchar/getchar.
package arm64

import (
	"context"
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/bf/src/compiler/ir"
)

// TapeSize is the size of the heap-allocated tape.
const TapeSize = 30000

// Ptr is the register permanently holding the current data pointer.
const Ptr = "X19"

// Base is the register permanently holding the tape's allocation base.
const Base = "X20"

type emitter struct {
	tr    tlog.Span
	b     []byte
	label int
}

// Emit lowers prog to a complete AArch64 assembly text with a _main entry
// point. The tape is malloc'd and zeroed on entry and freed before return,
// per the reference backend's allocation strategy (DESIGN.md).
func Emit(ctx context.Context, prog ir.Program) ([]byte, error) {
	e := &emitter{tr: tlog.SpanFromContext(ctx)}

	e.b = fmt.Appendf(e.b, `.global _main
.align 4
_main:
	STP	X29, X30, [SP, #-16]!
	MOV	X29, SP
	STP	%s, %s, [SP, #-16]!

	MOV	X0, #%d
	BL	_malloc
	MOV	%s, X0

	MOV	X0, %s
	MOV	X1, #0
	MOV	X2, #%d
	BL	_memset

	MOV	%s, %s

`, Base, Ptr, TapeSize, Base, Base, TapeSize, Ptr, Base)

	if err := e.seq([]ir.Instruction(prog)); err != nil {
		return nil, errors.Wrap(err, "emit arm64")
	}

	e.b = fmt.Appendf(e.b, `
	MOV	X0, %s
	BL	_free

	LDP	%s, %s, [SP], #16
	LDP	X29, X30, [SP], #16
	MOV	W0, #0
	RET
`, Base, Base, Ptr)

	return e.b, nil
}

func (e *emitter) seq(seq []ir.Instruction) error {
	for _, n := range seq {
		if err := e.node(n); err != nil {
			return err
		}
	}

	return nil
}

func (e *emitter) node(n ir.Instruction) error {
	switch n := n.(type) {
	case ir.PtrAdd:
		e.addImm(Ptr, Ptr, int64(n.K))
	case ir.CellAdd:
		e.b = fmt.Appendf(e.b, "	LDRB	W0, [%s]\n", Ptr)
		e.addImm("W0", "W0", int64(n.K))
		e.b = fmt.Appendf(e.b, "	STRB	W0, [%s]\n", Ptr)
	case ir.Output:
		e.b = fmt.Appendf(e.b, "	LDRB	W0, [%s]\n\tBL	_putchar\n", Ptr)
	case ir.Input:
		e.b = fmt.Appendf(e.b, "	BL	_getchar\n")
		e.b = fmt.Appendf(e.b, "	CMP	W0, #-1\n")
		e.b = fmt.Appendf(e.b, "	MOV	W1, #0\n")
		e.b = fmt.Appendf(e.b, "	CSEL	W0, W1, W0, EQ\n")
		e.b = fmt.Appendf(e.b, "	STRB	W0, [%s]\n", Ptr)
	case ir.Loop:
		return e.loop(n)
	case ir.SimpleLoop:
		e.simpleLoop(n)
	case ir.ScanLoop:
		e.scanLoop(n)
	default:
		return errors.New("arm64: unhandled node %T", n)
	}

	return nil
}

func (e *emitter) loop(l ir.Loop) error {
	e.label++
	n := e.label

	e.b = fmt.Appendf(e.b, "loop_cond_%d:\n\tLDRB	W0, [%s]\n\tCMP	W0, #0\n\tB.EQ	loop_end_%d\nloop_body_%d:\n", n, Ptr, n, n)

	if err := e.seq(l.Body); err != nil {
		return err
	}

	e.b = fmt.Appendf(e.b, "\tB	loop_cond_%d\nloop_end_%d:\n", n, n)

	return nil
}

// simpleLoop emits the closed form: n = *ptr, then for every offset in
// Deltas, cell += delta*n, then the entry cell is zeroed unconditionally.
func (e *emitter) simpleLoop(sl ir.SimpleLoop) {
	e.label++
	n := e.label

	e.b = fmt.Appendf(e.b, "\tLDRB	W0, [%s]	// n\n\tCBZ	W0, simple_skip_%d\n", Ptr, n)

	for _, off := range sortedOffsets(sl.Deltas) {
		d := sl.Deltas[off]

		e.addImm("X1", Ptr, int64(off))
		e.b = fmt.Appendf(e.b, "\tLDRB	W2, [X1]\n\tMOV	W3, #%d\n\tMUL	W3, W3, W0\n\tADD	W2, W2, W3\n\tSTRB	W2, [X1]\n", int32(d))
	}

	e.b = fmt.Appendf(e.b, "\tSTRB	WZR, [%s]\nsimple_skip_%d:\n", Ptr, n)
}

// scanLoop emits a tight loop that advances Ptr by Stride while the
// current cell is nonzero; the result depends on tape contents, so unlike
// SimpleLoop it cannot be folded to a closed form.
func (e *emitter) scanLoop(sc ir.ScanLoop) {
	e.label++
	n := e.label

	e.b = fmt.Appendf(e.b, "loop_scan_%d:\n\tLDRB	W0, [%s]\n\tCBZ	W0, scan_end_%d\n", n, Ptr, n)
	e.addImm(Ptr, Ptr, int64(sc.Stride))
	e.b = fmt.Appendf(e.b, "\tB	loop_scan_%d\nscan_end_%d:\n", n, n)
}

func (e *emitter) addImm(dst, src string, k int64) {
	if k >= 0 {
		e.b = fmt.Appendf(e.b, "\tADD	%s, %s, #%d\n", dst, src, k)
	} else {
		e.b = fmt.Appendf(e.b, "\tSUB	%s, %s, #%d\n", dst, src, -k)
	}
}

func sortedOffsets(m map[int32]int8) []int32 {
	keys := make([]int32, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}

	return keys
}
