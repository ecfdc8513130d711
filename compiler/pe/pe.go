// Package pe is the partial evaluator (§4.4): it symbolically executes an
// IR sequence on a shadow tape, emitting Output bytes into a compile-time
// buffer and dropping the leading instructions whose effect is fully known, so a
// backend only has to handle the residual, input-dependent suffix.
package pe

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/bf/src/compiler/ir"
)

// MaxIterations bounds loop unrolling during evaluation (§4.4, §5).
const MaxIterations = 10_000_000

// ErrIterationCap is returned, wrapped, when a loop's controlling cell does
// not reach zero within MaxIterations steps.
var ErrIterationCap = errors.New("partial evaluation exceeded iteration cap")

type (
	cell struct {
		value   uint8
		tainted bool
	}

	// ShadowTape is the sparse, signed-offset map of §3: missing keys read
	// as the zero cell.
	ShadowTape struct {
		cells map[int32]cell
	}

	eval struct {
		tr     tlog.Span
		tape   *ShadowTape
		ptr    int32
		output []byte
	}
)

// NewShadowTape returns a tape seeded with an explicit zero cell at offset 0,
// matching the reference implementation's initial data_tape[0] seed.
func NewShadowTape() *ShadowTape {
	t := &ShadowTape{cells: map[int32]cell{}}
	t.cells[0] = cell{}

	return t
}

func (t *ShadowTape) get(off int32) cell {
	return t.cells[off]
}

func (t *ShadowTape) set(off int32, c cell) {
	t.cells[off] = c
}

// Copy returns an independent snapshot of t.
func (t *ShadowTape) Copy() *ShadowTape {
	c := &ShadowTape{cells: make(map[int32]cell, len(t.cells))}

	for k, v := range t.cells {
		c.cells[k] = v
	}

	return c
}

// Evaluate partially evaluates prog from an empty shadow tape at offset 0.
// It returns the residual program (every instruction that could not be
// proven fully evaluated) and the compile-time output buffer accumulated
// along the conclusively-evaluated prefix.
func Evaluate(ctx context.Context, prog ir.Program) (ir.Program, []byte, error) {
	e := &eval{tr: tlog.SpanFromContext(ctx), tape: NewShadowTape()}

	residual, err := e.seq([]ir.Instruction(prog))
	if err != nil {
		return nil, nil, err
	}

	e.tr.Printw("partial evaluation done", "residual_nodes", len(residual), "output_bytes", len(e.output))

	return ir.Program(residual), e.output, nil
}

// seq evaluates a sequence in place against e's tape/pointer/output and
// returns the surviving instructions. The first instruction that cannot be
// fully evaluated, and everything after it, stays in the residual program
// without being evaluated against e's state;
// a Loop among those gets its own body re-evaluated against a copy of the
// tape at that point, with a throwaway local output buffer, since output
// past a fork point cannot be guaranteed to occur.
func (e *eval) seq(in []ir.Instruction) ([]ir.Instruction, error) {
	var out []ir.Instruction

	for _, n := range in {
		if len(out) == 0 {
			ok, err := e.node(n)
			if err != nil {
				return nil, err
			}

			if ok {
				continue
			}
		}

		if loop, isLoop := n.(ir.Loop); isLoop {
			sub := &eval{tr: e.tr, tape: e.tape.Copy(), ptr: e.ptr}

			body, err := sub.seq(loop.Body)
			if err != nil {
				return nil, err
			}

			loop.Body = body
			n = loop
		}

		out = append(out, n)
	}

	return out, nil
}

// node evaluates a single instruction against e's state. It returns true iff
// the instruction's effect was fully resolved (and so can be dropped).
func (e *eval) node(n ir.Instruction) (bool, error) {
	switch n := n.(type) {
	case ir.PtrAdd:
		e.ptr += n.K
		return true, nil
	case ir.CellAdd:
		c := e.tape.get(e.ptr)
		if c.tainted {
			return false, nil
		}

		c.value += uint8(n.K)
		e.tape.set(e.ptr, c)

		return true, nil
	case ir.Output:
		c := e.tape.get(e.ptr)
		if c.tainted {
			return false, nil
		}

		e.output = append(e.output, c.value)

		return true, nil
	case ir.Input:
		c := e.tape.get(e.ptr)
		c.tainted = true
		e.tape.set(e.ptr, c)

		return false, nil
	case ir.Loop:
		return e.loop(n)
	default:
		panic(n)
	}
}

func (e *eval) loop(l ir.Loop) (bool, error) {
	c := e.tape.get(e.ptr)
	if c.tainted {
		return false, nil
	}

	if c.value == 0 {
		return true, nil
	}

	for iters := 0; ; iters++ {
		if iters >= MaxIterations {
			e.tr.Printw("iteration cap exceeded", "node", l.Node, "from", loc.Callers(1, 3))
			return false, errors.Wrap(ErrIterationCap, "loop node %d", l.Node)
		}

		for _, instr := range l.Body {
			ok, err := e.node(instr)
			if err != nil {
				return false, err
			}

			if !ok {
				return false, nil
			}
		}

		c = e.tape.get(e.ptr)
		if c.value == 0 {
			return true, nil
		}
	}
}
