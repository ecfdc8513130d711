// Package compiler wires the pipeline stages together: parse, optional
// partial evaluation, optional optimization. A backend (interp, llvm, arm64)
// consumes the resulting IR independently.
package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/bf/src/compiler/ir"
	"github.com/slowlang/bf/src/compiler/optimize"
	"github.com/slowlang/bf/src/compiler/parse"
	"github.com/slowlang/bf/src/compiler/pe"
)

// Config controls the optional stages between parsing and a backend.
type Config struct {
	PE       bool
	Optimize optimize.Config
}

// PrepareFile reads name and runs Prepare over its contents.
func PrepareFile(ctx context.Context, cfg Config, name string) (ir.Program, []byte, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Prepare(ctx, cfg, text)
}

// Prepare parses src and runs the optional partial-evaluation and
// optimization stages, returning the IR a backend should consume and the
// compile-time output buffer partial evaluation produced, if any.
func Prepare(ctx context.Context, cfg Config, src []byte) (ir.Program, []byte, error) {
	prog, err := parse.Parse(ctx, src)
	if err != nil {
		return nil, nil, errors.Wrap(err, "parse")
	}

	var peOutput []byte

	if cfg.PE {
		prog, peOutput, err = pe.Evaluate(ctx, prog)
		if err != nil {
			return nil, nil, errors.Wrap(err, "partial evaluate")
		}
	}

	prog = optimize.Run(ctx, cfg.Optimize, prog)

	return prog, peOutput, nil
}
