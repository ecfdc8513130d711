// Package parse turns Brainfuck source text into an ir.Program by recursive
// descent, matching brackets as it goes.
package parse

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/bf/src/compiler/ir"
)

type (
	// UnmatchedError reports a bracket with no matching partner.
	UnmatchedError struct {
		Bracket byte
		Pos     int
	}

	state struct {
		src []byte
		pos int
		gen int
	}
)

func (e UnmatchedError) Error() string {
	if e.Bracket == '[' {
		return "unmatched '[' "
	}

	return "unmatched ']'"
}

// Parse parses src into a Program. On a bracket mismatch it returns an
// UnmatchedError.
func Parse(ctx context.Context, src []byte) (ir.Program, error) {
	s := &state{src: src}

	body, err := s.parseSeq(ctx, false)
	if err != nil {
		return nil, err
	}

	tlog.SpanFromContext(ctx).Printw("parsed program", "nodes", len(body), "ids", s.gen)

	return ir.Program(body), nil
}

// parseSeq parses instructions up to the matching ']' (if inLoop) or to the
// end of input. inLoop controls what end-of-input means: inside a loop it is
// fatal (unmatched '['); at top level it is the normal terminator.
func (s *state) parseSeq(ctx context.Context, inLoop bool) ([]ir.Instruction, error) {
	var seq []ir.Instruction

	for s.pos < len(s.src) {
		c := s.src[s.pos]
		s.pos++

		switch c {
		case '>':
			seq = append(seq, ir.PtrAdd{Node: s.next(), K: 1})
		case '<':
			seq = append(seq, ir.PtrAdd{Node: s.next(), K: -1})
		case '+':
			seq = append(seq, ir.CellAdd{Node: s.next(), K: 1})
		case '-':
			seq = append(seq, ir.CellAdd{Node: s.next(), K: -1})
		case '.':
			seq = append(seq, ir.Output{Node: s.next()})
		case ',':
			seq = append(seq, ir.Input{Node: s.next()})
		case '[':
			id := s.next()

			body, err := s.parseSeq(ctx, true)
			if err != nil {
				return nil, err
			}

			seq = append(seq, ir.Loop{Node: id, Body: body, Class: ir.Unknown})
		case ']':
			if !inLoop {
				return nil, errors.Wrap(UnmatchedError{Bracket: ']', Pos: s.pos - 1}, "at pos %d", s.pos-1)
			}

			return seq, nil
		default:
			// comment byte: dropped
		}
	}

	if inLoop {
		return nil, errors.Wrap(UnmatchedError{Bracket: '[', Pos: s.pos}, "at pos %d", s.pos)
	}

	return seq, nil
}

func (s *state) next() ir.ID {
	id := ir.ID(s.gen)
	s.gen++

	return id
}
