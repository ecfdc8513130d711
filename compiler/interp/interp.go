// Package interp is the tree-walk interpreter backend (§4.5). It executes an
// IR program directly against a tape that grows to the right as the data
// pointer advances past its current length, optionally recording a
// per-instruction and per-loop execution profile. Only the data pointer
// moving below cell 0 is an error (§1 Non-goals); rightward growth is never
// bounds-checked. The fixed 30000-cell tape belongs to the LLVM and ARM64
// backends (§4.6/§4.7), not here.
package interp

import (
	"bufio"
	"context"
	"io"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/bf/src/compiler/analyze"
	"github.com/slowlang/bf/src/compiler/bitmap"
	"github.com/slowlang/bf/src/compiler/ir"
)

// ErrPointerUnderflow is wrapped into the returned error when the data
// pointer moves below cell 0.
var ErrPointerUnderflow = errors.New("data pointer underflow")

type interp struct {
	tr   tlog.Span
	tape []uint8
	ptr  int

	in  *bufio.Reader
	out *bufio.Writer

	prof Profile

	innermost bitmap.Big
	simple    bitmap.Big
}

// grow extends the tape with zero cells until ptr is a valid index,
// mirroring bf_interpreter.cpp's data.push_back(0) on rightward growth.
func (it *interp) grow(ptr int) {
	for ptr >= len(it.tape) {
		it.tape = append(it.tape, 0)
	}
}

// Run executes prog against a fresh tape, reading Input bytes from in (EOF
// yields 0) and writing Output bytes to out. prof may be nil, in which case
// a NoopProfile is used.
func Run(ctx context.Context, prog ir.Program, in io.Reader, out io.Writer, prof Profile) error {
	if prof == nil {
		prof = NoopProfile{}
	}

	it := &interp{
		tr:   tlog.SpanFromContext(ctx),
		in:   bufio.NewReader(in),
		out:  bufio.NewWriter(out),
		prof: prof,
	}

	it.grow(0)

	classify([]ir.Instruction(prog), &it.innermost, &it.simple)

	err := it.exec([]ir.Instruction(prog))
	if ferr := it.out.Flush(); err == nil {
		err = ferr
	}

	return err
}

// classify walks prog once, recording into innermost every Loop/SimpleLoop/
// ScanLoop node that has no nested loop-shaped node in its body, and into
// simple the subset of those that are structurally Simple (§4.2) — ScanPow2
// loops are innermost but not simple, matching bf_interpreter.cpp's
// isLoopSimple, which returns false whenever net pointer movement is
// nonzero. SimpleLoop nodes are innermost and simple by construction (the
// optimizer only produces them from a Simple body); ScanLoop nodes are
// innermost but never simple, for the same reason their unoptimized Loop
// form wouldn't be.
func classify(seq []ir.Instruction, innermost, simple *bitmap.Big) {
	for _, n := range seq {
		switch n := n.(type) {
		case ir.Loop:
			classify(n.Body, innermost, simple)

			if !hasNestedLoop(n.Body) {
				innermost.Set(int(n.Node))

				if analyze.Classify(n.Body) == ir.Simple {
					simple.Set(int(n.Node))
				}
			}
		case ir.SimpleLoop:
			innermost.Set(int(n.Node))
			simple.Set(int(n.Node))
		case ir.ScanLoop:
			innermost.Set(int(n.Node))
		}
	}
}

func hasNestedLoop(seq []ir.Instruction) bool {
	for _, n := range seq {
		if ir.IsLoop(n) {
			return true
		}
	}

	return false
}

func (it *interp) exec(seq []ir.Instruction) error {
	for _, n := range seq {
		if err := it.execOne(n); err != nil {
			return err
		}
	}

	return nil
}

func (it *interp) execOne(n ir.Instruction) error {
	switch n := n.(type) {
	case ir.PtrAdd:
		it.ptr += int(n.K)
		if it.ptr < 0 {
			return errors.Wrap(ErrPointerUnderflow, "node %d ptr=%d", n.Node, it.ptr)
		}

		it.grow(it.ptr)
		it.prof.Instr(n.Node, ir.Symbol(n), 1)

	case ir.CellAdd:
		it.tape[it.ptr] += uint8(n.K)
		it.prof.Instr(n.Node, ir.Symbol(n), 1)

	case ir.Output:
		if err := it.out.WriteByte(it.tape[it.ptr]); err != nil {
			return errors.Wrap(err, "write output")
		}

		it.prof.Instr(n.Node, '.', 1)

	case ir.Input:
		b, err := it.in.ReadByte()
		if err != nil && err != io.EOF {
			return errors.Wrap(err, "read input")
		}

		if err == io.EOF {
			b = 0
		}

		it.tape[it.ptr] = b
		it.prof.Instr(n.Node, ',', 1)

	case ir.Loop:
		it.prof.Instr(n.Node, ir.Symbol(n), 1)
		return it.execLoop(n)

	case ir.SimpleLoop:
		it.prof.Instr(n.Node, ir.Symbol(n), 1)
		return it.execSimpleLoop(n)

	case ir.ScanLoop:
		it.prof.Instr(n.Node, ir.Symbol(n), 1)
		return it.execScanLoop(n)

	default:
		panic(n)
	}

	return nil
}

func (it *interp) execLoop(l ir.Loop) error {
	isInner := it.innermost.IsSet(int(l.Node))
	isSimple := it.simple.IsSet(int(l.Node))

	var iters int64

	for it.tape[it.ptr] != 0 {
		iters++

		if err := it.exec(l.Body); err != nil {
			return err
		}
	}

	if isInner {
		it.prof.Loop(l.Node, isSimple, iters)
	}

	return nil
}

// execSimpleLoop applies a SimpleLoop's closed form in O(len(Deltas)) time:
// the loop runs exactly as many times as the entry cell's current value,
// adding delta*n to every other referenced cell, then zeroing the entry
// cell. Per §9, this holds even when the original controlling delta was +1:
// the zeroing step is unconditional. Offsets are folded out of the
// unexpanded loop body's own PtrAdd nodes, so the tape may not yet have
// grown to cover them; grow explicitly before touching each one.
func (it *interp) execSimpleLoop(sl ir.SimpleLoop) error {
	n := int32(it.tape[it.ptr])
	if n == 0 {
		it.prof.Loop(sl.Node, true, 0)
		return nil
	}

	for offset, d := range sl.Deltas {
		idx := it.ptr + int(offset)
		if idx < 0 {
			return errors.Wrap(ErrPointerUnderflow, "node %d ptr=%d", sl.Node, idx)
		}

		it.grow(idx)
		it.tape[idx] = uint8(int32(it.tape[idx]) + int32(d)*n)
	}

	it.tape[it.ptr] = 0

	it.prof.Loop(sl.Node, true, int64(n))

	return nil
}

// execScanLoop repeatedly advances the pointer by Stride until it lands on a
// zero cell. The result depends on tape contents, so it cannot be
// closed-formed; only the pointer arithmetic is collapsed out of the IR.
func (it *interp) execScanLoop(sc ir.ScanLoop) error {
	var iters int64

	for it.tape[it.ptr] != 0 {
		it.ptr += int(sc.Stride)
		if it.ptr < 0 {
			return errors.Wrap(ErrPointerUnderflow, "node %d ptr=%d", sc.Node, it.ptr)
		}

		it.grow(it.ptr)
		iters++
	}

	it.prof.Loop(sc.Node, false, iters)

	return nil
}
