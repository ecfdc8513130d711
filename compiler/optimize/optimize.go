// Package optimize rewrites classified loops into specialized IR nodes per
// §4.3: a recursive pass over an instruction sequence that replaces Loop
// nodes with SimpleLoop or ScanLoop wherever analysis permits, leaving
// everything else untouched.
package optimize

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/slowlang/bf/src/compiler/analyze"
	"github.com/slowlang/bf/src/compiler/ir"
)

// Config is an explicit replacement for the reference implementation's
// global optimize_simple_loops / optimize_memory_scans flags (§9). The zero
// value disables both passes; Default enables both, and cmd/bf starts every
// invocation from Default.
type Config struct {
	SimpleLoops bool
	MemoryScans bool
}

// Default returns the configuration with both passes enabled, matching the
// reference CLI's --optimize-all / default behavior.
func Default() Config {
	return Config{SimpleLoops: true, MemoryScans: true}
}

// Run returns the optimized program. It builds new sequences at every level
// (nested bodies are replaced by value inside copies of their parent Loop
// nodes) and leaves prog itself unmodified.
func Run(ctx context.Context, cfg Config, prog ir.Program) ir.Program {
	tr := tlog.SpanFromContext(ctx)

	return ir.Program(optimizeSeq(tr, cfg, []ir.Instruction(prog)))
}

func optimizeSeq(tr tlog.Span, cfg Config, seq []ir.Instruction) []ir.Instruction {
	out := make([]ir.Instruction, len(seq))

	for i, n := range seq {
		loop, ok := n.(ir.Loop)
		if !ok {
			out[i] = n
			continue
		}

		loop.Body = optimizeSeq(tr, cfg, loop.Body)
		class := analyze.ClassifyLogged(tr, loop.Node, loop.Body)
		loop.Class = class

		switch {
		case class == ir.Simple && cfg.SimpleLoops:
			deltas, _ := analyze.Simple(loop.Body)
			delete(deltas, 0)
			out[i] = ir.SimpleLoop{Node: loop.Node, Deltas: deltas}
		case class == ir.ScanPow2 && cfg.MemoryScans:
			stride, _ := analyze.Scan(loop.Body)
			out[i] = ir.ScanLoop{Node: loop.Node, Stride: stride}
		default:
			out[i] = loop
		}
	}

	return out
}
