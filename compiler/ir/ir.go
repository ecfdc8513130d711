// Package ir defines the intermediate representation of a Brainfuck program:
// a tree of instruction nodes produced by the parser, rewritten into new
// sequences by the optimizer and partial evaluator, and consumed read-only
// by a backend.
package ir

import (
	"tlog.app/go/tlog/tlwire"
)

type (
	// ID is a dense, stable integer assigned to every node at parse time.
	ID int

	// Instruction is the tagged union of IR nodes. The concrete type of the
	// value is the tag; callers switch on it rather than inspecting a field.
	Instruction interface{}

	// PtrAdd shifts the data pointer by K. The parser only ever emits K = ±1.
	PtrAdd struct {
		Node ID
		K    int32
	}

	// CellAdd adds K to the current cell, wrapping modulo 256.
	CellAdd struct {
		Node ID
		K    int8
	}

	// Output emits the current cell as a byte.
	Output struct {
		Node ID
	}

	// Input replaces the current cell with a byte read from input; EOF yields 0.
	Input struct {
		Node ID
	}

	// Loop executes Body while the current cell is nonzero.
	Loop struct {
		Node  ID
		Body  []Instruction
		Class LoopClass
	}

	// SimpleLoop is the closed-form replacement for a Simple-classified Loop.
	// Deltas excludes offset 0, which the zeroing step handles implicitly.
	SimpleLoop struct {
		Node   ID
		Deltas map[int32]int8
	}

	// ScanLoop is the closed-form replacement for a ScanPow2-classified Loop.
	ScanLoop struct {
		Node   ID
		Stride int32
	}

	// LoopClass is the result of loop analysis (§4.2).
	LoopClass int

	// Program is a top-level instruction sequence.
	Program []Instruction
)

const (
	Unknown LoopClass = iota
	Simple
	ScanPow2
	General
)

func (c LoopClass) String() string {
	switch c {
	case Unknown:
		return "unknown"
	case Simple:
		return "simple"
	case ScanPow2:
		return "scan_pow2"
	case General:
		return "general"
	default:
		return "invalid"
	}
}

// IDOf returns the stable id carried by any IR node.
func IDOf(x Instruction) ID {
	switch x := x.(type) {
	case PtrAdd:
		return x.Node
	case CellAdd:
		return x.Node
	case Output:
		return x.Node
	case Input:
		return x.Node
	case Loop:
		return x.Node
	case SimpleLoop:
		return x.Node
	case ScanLoop:
		return x.Node
	default:
		panic(x)
	}
}

// Symbol returns the source command character a node was parsed from (or, for
// an optimized loop, the '[' of the loop it replaced). Used by the profiler
// report.
func Symbol(x Instruction) byte {
	switch x := x.(type) {
	case PtrAdd:
		if x.K < 0 {
			return '<'
		}
		return '>'
	case CellAdd:
		if x.K < 0 {
			return '-'
		}
		return '+'
	case Output:
		return '.'
	case Input:
		return ','
	case Loop, SimpleLoop, ScanLoop:
		return '['
	default:
		panic(x)
	}
}

// IsLoop reports whether x is one of the three loop-shaped node kinds.
func IsLoop(x Instruction) bool {
	switch x.(type) {
	case Loop, SimpleLoop, ScanLoop:
		return true
	default:
		return false
	}
}

// HasIO reports whether x is an Output or Input node.
func HasIO(x Instruction) bool {
	switch x.(type) {
	case Output, Input:
		return true
	default:
		return false
	}
}

func (x SimpleLoop) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	keys := make([]int32, 0, len(x.Deltas))
	for k := range x.Deltas {
		keys = append(keys, k)
	}

	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}

	b = e.AppendMap(b, len(keys)+1)
	b = e.AppendKeyInt64(b, "node", int64(x.Node))

	for _, k := range keys {
		b = e.AppendKeyInt64(b, itoa(k), int64(x.Deltas[k]))
	}

	return b
}

func itoa(k int32) string {
	if k == 0 {
		return "0"
	}

	neg := k < 0
	if neg {
		k = -k
	}

	var buf [12]byte
	i := len(buf)

	for k > 0 {
		i--
		buf[i] = byte('0' + k%10)
		k /= 10
	}

	if neg {
		i--
		buf[i] = '-'
	}

	return string(buf[i:])
}
