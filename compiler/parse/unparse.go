package parse

import (
	"github.com/slowlang/bf/src/compiler/ir"
)

// Unparse renders prog back to Brainfuck source text. It only accepts
// PtrAdd/CellAdd/Output/Input/Loop nodes — SimpleLoop and ScanLoop have no
// canonical source form, since the optimizer has already discarded the
// count of basic steps they replace. Round-tripping Unparse(Parse(s))
// against a source s that went through no optimization pass reproduces s
// with every non-command byte dropped (§8).
func Unparse(prog ir.Program) []byte {
	return unparseSeq(nil, []ir.Instruction(prog))
}

func unparseSeq(b []byte, seq []ir.Instruction) []byte {
	for _, n := range seq {
		b = unparseOne(b, n)
	}

	return b
}

func unparseOne(b []byte, n ir.Instruction) []byte {
	switch n := n.(type) {
	case ir.PtrAdd:
		return repeat(b, n.K, '>', '<')
	case ir.CellAdd:
		return repeat(b, int32(n.K), '+', '-')
	case ir.Output:
		return append(b, '.')
	case ir.Input:
		return append(b, ',')
	case ir.Loop:
		b = append(b, '[')
		b = unparseSeq(b, n.Body)
		return append(b, ']')
	default:
		panic(n)
	}
}

func repeat(b []byte, k int32, pos, neg byte) []byte {
	c := pos
	if k < 0 {
		c = neg
		k = -k
	}

	for ; k > 0; k-- {
		b = append(b, c)
	}

	return b
}
