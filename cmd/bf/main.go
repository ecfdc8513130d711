package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/bf/src/compiler"
	"github.com/slowlang/bf/src/compiler/arm64"
	"github.com/slowlang/bf/src/compiler/interp"
	"github.com/slowlang/bf/src/compiler/llvm"
	"github.com/slowlang/bf/src/compiler/optimize"
)

func main() {
	runCmd := &cli.Command{
		Name:        "run",
		Description: "interpret a Brainfuck program",
		Action:      runAct,
		Args:        cli.Args{},
	}

	llvmCmd := &cli.Command{
		Name:        "llvm",
		Description: "emit textual LLVM IR for a Brainfuck program",
		Action:      llvmAct,
		Args:        cli.Args{},
	}

	arm64Cmd := &cli.Command{
		Name:        "arm64",
		Description: "emit AArch64 assembly for a Brainfuck program to output.s",
		Action:      arm64Act,
		Args:        cli.Args{},
	}

	app := &cli.Command{
		Name:        "bf",
		Description: "bf parses, analyzes, optimizes, and runs Brainfuck programs",
		Commands: []*cli.Command{
			runCmd,
			llvmCmd,
			arm64Cmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

// flags is the result of hand-scanning c.Args: the reference cli package
// models a command's arguments as a flat []string, not a flag.FlagSet, so
// each Action picks its own flags and positional file argument out of it.
type flags struct {
	compiler.Config
	profile bool
	file    string
}

func parseFlags(args []string, allowProfile, allowPE bool) (flags, error) {
	f := flags{Config: compiler.Config{Optimize: optimize.Default()}}

	var files []string

	for _, a := range args {
		switch a {
		case "--no-optimizations":
			f.Optimize = optimize.Config{}
		case "--optimize-simple-loops":
			f.Optimize = optimize.Config{SimpleLoops: true}
		case "--optimize-memory-scans":
			f.Optimize = optimize.Config{MemoryScans: true}
		case "--optimize-all":
			f.Optimize = optimize.Default()
		case "--pe":
			if !allowPE {
				return f, errors.New("--pe is not valid for arm64")
			}

			f.PE = true
		case "-p":
			if !allowProfile {
				return f, errors.New("-p is only valid for run")
			}

			f.profile = true
		default:
			if len(a) > 0 && a[0] == '-' {
				return f, errors.New("unknown flag %q", a)
			}

			files = append(files, a)
		}
	}

	if len(files) > 1 {
		return f, errors.New("too many positional arguments: %v", files)
	}

	if len(files) == 1 {
		f.file = files[0]
	}

	return f, nil
}

func readSource(f flags) ([]byte, error) {
	if f.file == "" {
		return io.ReadAll(os.Stdin)
	}

	return os.ReadFile(f.file)
}

func rootSpan(ctx context.Context) context.Context {
	return tlog.ContextWithSpan(ctx, tlog.Root())
}

func runAct(c *cli.Command) error {
	ctx := rootSpan(context.Background())

	f, err := parseFlags(c.Args, true, true)
	if err != nil {
		return errors.Wrap(err, "flags")
	}

	src, err := readSource(f)
	if err != nil {
		return errors.Wrap(err, "read source")
	}

	prog, peOutput, err := compiler.Prepare(ctx, f.Config, src)
	if err != nil {
		return err
	}

	if len(peOutput) > 0 {
		if _, err := os.Stdout.Write(peOutput); err != nil {
			return errors.Wrap(err, "write partial output")
		}
	}

	var prof interp.Profile

	var rec *interp.RecordingProfile

	if f.profile {
		rec = interp.NewRecordingProfile()
		prof = rec
	}

	if err := interp.Run(ctx, prog, os.Stdin, os.Stdout, prof); err != nil {
		return errors.Wrap(err, "run")
	}

	if rec != nil {
		fmt.Print(rec.Report())
	}

	return nil
}

func llvmAct(c *cli.Command) error {
	ctx := rootSpan(context.Background())

	f, err := parseFlags(c.Args, false, true)
	if err != nil {
		return errors.Wrap(err, "flags")
	}

	src, err := readSource(f)
	if err != nil {
		return errors.Wrap(err, "read source")
	}

	prog, peOutput, err := compiler.Prepare(ctx, f.Config, src)
	if err != nil {
		return err
	}

	mod, err := llvm.Emit(ctx, prog, peOutput)
	if err != nil {
		return errors.Wrap(err, "emit llvm")
	}

	_, err = os.Stdout.Write(mod)

	return err
}

func arm64Act(c *cli.Command) error {
	ctx := rootSpan(context.Background())

	f, err := parseFlags(c.Args, false, false)
	if err != nil {
		return errors.Wrap(err, "flags")
	}

	if f.file == "" {
		return errors.New("arm64 requires a filename")
	}

	prog, _, err := compiler.PrepareFile(ctx, f.Config, f.file)
	if err != nil {
		return err
	}

	asm, err := arm64.Emit(ctx, prog)
	if err != nil {
		return errors.Wrap(err, "emit arm64")
	}

	return os.WriteFile("output.s", asm, 0644)
}
