// Package llvm emits textual LLVM IR for a program (§4.6). Nothing here
// links against the real LLVM libraries: Emit builds the .ll text the way
// the reference implementation's naive lowering does, through an alloca'd
// pointer cell rather than SSA phis, and Verify is a self-authored
// structural check standing in for llvm::verifyModule.
package llvm

import (
	"context"
	"strconv"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/bf/src/compiler/ir"
)

// TapeSize is the size of the stack-allocated tape (§4.6). Unlike the
// interpreter, this backend's tape is fixed-size: arm64.TapeSize matches it.
const TapeSize = 30000

type emitter struct {
	tr    tlog.Span
	b     []byte
	tmp   int
	label int
}

// Emit lowers prog to a complete, self-contained .ll module text. peOutput is
// the partial evaluator's compile-time output buffer, if any (§4.4): each of
// its bytes is emitted as one literal call to putchar, in order, ahead of
// the residual program's own body, so the emitted module still produces the
// full program output when PE ran ahead of this backend.
func Emit(ctx context.Context, prog ir.Program, peOutput []byte) ([]byte, error) {
	e := &emitter{tr: tlog.SpanFromContext(ctx)}

	e.header()

	e.b = hfmt.Appendf(e.b, "define i32 @main() {\nentry:\n")
	e.b = hfmt.Appendf(e.b, "  %%tape = alloca [%d x i8], align 1\n", TapeSize)
	e.b = hfmt.Appendf(e.b, "  %%ptr = alloca i8*, align 8\n")
	e.b = hfmt.Appendf(e.b, "  %%tape0 = getelementptr inbounds [%d x i8], [%d x i8]* %%tape, i64 0, i64 0\n", TapeSize, TapeSize)
	e.b = hfmt.Appendf(e.b, "  call void @llvm.memset.p0i8.i64(i8* %%tape0, i8 0, i64 %d, i1 false)\n", TapeSize)
	e.b = hfmt.Appendf(e.b, "  store i8* %%tape0, i8** %%ptr\n")
	e.b = hfmt.Appendf(e.b, "  br label %%body\n\nbody:\n")

	e.peOutput(peOutput)

	if err := e.seq([]ir.Instruction(prog)); err != nil {
		return nil, err
	}

	e.b = hfmt.Appendf(e.b, "  br label %%exit\n\nexit:\n  ret i32 0\n}\n\n")
	e.trailer()

	if err := Verify(e.b); err != nil {
		return nil, errors.Wrap(err, "emitted module")
	}

	return e.b, nil
}

func (e *emitter) header() {
	e.b = hfmt.Appendf(e.b, "; ModuleID = 'bf'\n\ndeclare i32 @putchar(i32)\ndeclare i32 @getchar()\n\n")
}

func (e *emitter) trailer() {
	e.b = hfmt.Appendf(e.b, "declare void @llvm.memset.p0i8.i64(i8*, i8, i64, i1)\n")
}

func (e *emitter) next() string {
	e.tmp++
	return "%t" + strconv.Itoa(e.tmp)
}

func (e *emitter) nextLabel(prefix string) string {
	e.label++
	return prefix + strconv.Itoa(e.label)
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
		e.ptrAdd(int64(n.K))
	case ir.CellAdd:
		e.cellAdd(0, int64(n.K))
	case ir.Output:
		e.output()
	case ir.Input:
		e.input()
	case ir.Loop:
		return e.loop(n.Body)
	case ir.SimpleLoop:
		e.simpleLoop(n)
	case ir.ScanLoop:
		return e.loop([]ir.Instruction{ir.PtrAdd{Node: n.Node, K: n.Stride}})
	default:
		return errors.New("llvm: unhandled node %T", n)
	}

	return nil
}

// ptrAdd emits: load current pointer, offset it by k bytes, store it back.
func (e *emitter) ptrAdd(k int64) string {
	p0 := e.next()
	p1 := e.next()

	e.b = hfmt.Appendf(e.b, "  %s = load i8*, i8** %%ptr\n", p0)
	e.b = hfmt.Appendf(e.b, "  %s = getelementptr inbounds i8, i8* %s, i64 %d\n", p1, p0, k)
	e.b = hfmt.Appendf(e.b, "  store i8* %s, i8** %%ptr\n", p1)

	return p1
}

// cellAdd emits a load/add/store at the pointer offset by extra bytes.
func (e *emitter) cellAdd(extra, k int64) {
	p := e.cellPtr(extra)
	v0 := e.next()
	v1 := e.next()

	e.b = hfmt.Appendf(e.b, "  %s = load i8, i8* %s\n", v0, p)
	e.b = hfmt.Appendf(e.b, "  %s = add i8 %s, %d\n", v1, v0, int8(k))
	e.b = hfmt.Appendf(e.b, "  store i8 %s, i8* %s\n", v1, p)
}

// cellPtr loads the current pointer and, if extra != 0, offsets it.
func (e *emitter) cellPtr(extra int64) string {
	p0 := e.next()
	e.b = hfmt.Appendf(e.b, "  %s = load i8*, i8** %%ptr\n", p0)

	if extra == 0 {
		return p0
	}

	p1 := e.next()
	e.b = hfmt.Appendf(e.b, "  %s = getelementptr inbounds i8, i8* %s, i64 %d\n", p1, p0, extra)

	return p1
}

func (e *emitter) output() {
	p := e.cellPtr(0)
	v := e.next()
	vi := e.next()
	rv := e.next()

	e.b = hfmt.Appendf(e.b, "  %s = load i8, i8* %s\n", v, p)
	e.b = hfmt.Appendf(e.b, "  %s = zext i8 %s to i32\n", vi, v)
	e.b = hfmt.Appendf(e.b, "  %s = call i32 @putchar(i32 %s)\n", rv, vi)
}

// peOutput emits one literal call to putchar per byte of a partial
// evaluator's compile-time output buffer, ahead of the residual program.
func (e *emitter) peOutput(out []byte) {
	for _, b := range out {
		e.b = hfmt.Appendf(e.b, "  call i32 @putchar(i32 %d)\n", int32(b))
	}
}

func (e *emitter) input() {
	c := e.next()
	isEOF := e.next()
	truncd := e.next()
	byt := e.next()
	p := e.cellPtr(0)

	e.b = hfmt.Appendf(e.b, "  %s = call i32 @getchar()\n", c)
	e.b = hfmt.Appendf(e.b, "  %s = icmp eq i32 %s, -1\n", isEOF, c)
	e.b = hfmt.Appendf(e.b, "  %s = trunc i32 %s to i8\n", truncd, c)
	e.b = hfmt.Appendf(e.b, "  %s = select i1 %s, i8 0, i8 %s\n", byt, isEOF, truncd)
	e.b = hfmt.Appendf(e.b, "  store i8 %s, i8* %s\n", byt, p)
}

// loop emits the reference's three-block pattern: a condition block that
// tests the current cell, a body block, and a join block.
func (e *emitter) loop(body []ir.Instruction) error {
	cond := e.nextLabel("loop.cond.")
	bodyLabel := e.nextLabel("loop.body.")
	end := e.nextLabel("loop.end.")

	e.b = hfmt.Appendf(e.b, "  br label %%%s\n\n%s:\n", cond, cond)

	p := e.cellPtr(0)
	v := e.next()
	iszero := e.next()

	e.b = hfmt.Appendf(e.b, "  %s = load i8, i8* %s\n", v, p)
	e.b = hfmt.Appendf(e.b, "  %s = icmp eq i8 %s, 0\n", iszero, v)
	e.b = hfmt.Appendf(e.b, "  br i1 %s, label %%%s, label %%%s\n\n%s:\n", iszero, end, bodyLabel, bodyLabel)

	if err := e.seq(body); err != nil {
		return err
	}

	e.b = hfmt.Appendf(e.b, "  br label %%%s\n\n%s:\n", cond, end)

	return nil
}

// simpleLoop emits the closed form directly: n = *ptr, then for every
// referenced offset, cell += delta*n, then *ptr = 0.
func (e *emitter) simpleLoop(sl ir.SimpleLoop) {
	p := e.cellPtr(0)
	n8 := e.next()
	n32 := e.next()

	e.b = hfmt.Appendf(e.b, "  %s = load i8, i8* %s\n", n8, p)
	e.b = hfmt.Appendf(e.b, "  %s = zext i8 %s to i32\n", n32, n8)

	for _, off := range sortedOffsets(sl.Deltas) {
		d := sl.Deltas[off]

		dp := e.cellPtr(int64(off))
		old := e.next()
		prod := e.next()
		prod8 := e.next()
		sum := e.next()

		e.b = hfmt.Appendf(e.b, "  %s = load i8, i8* %s\n", old, dp)
		e.b = hfmt.Appendf(e.b, "  %s = mul i32 %d, %s\n", prod, int32(d), n32)
		e.b = hfmt.Appendf(e.b, "  %s = trunc i32 %s to i8\n", prod8, prod)
		e.b = hfmt.Appendf(e.b, "  %s = add i8 %s, %s\n", sum, old, prod8)
		e.b = hfmt.Appendf(e.b, "  store i8 %s, i8* %s\n", sum, dp)
	}

	e.b = hfmt.Appendf(e.b, "  store i8 0, i8* %s\n", p)
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
