package llvm

import (
	"bytes"

	"tlog.app/go/errors"
)

// Verify is a structural stand-in for llvm::verifyModule: this package never
// links the real LLVM libraries, so it cannot actually parse or verify IR.
// It checks that the text has at least one function definition, that its
// '{' and '}' counts match, and that every branch target names a defined
// label. It does not check that each basic block ends in a terminator.
func Verify(mod []byte) error {
	if n := bytes.Count(mod, []byte("define ")); n == 0 {
		return errors.New("no function definitions")
	}

	opens := bytes.Count(mod, []byte("{"))
	closes := bytes.Count(mod, []byte("}"))

	if opens != closes {
		return errors.New("unbalanced braces: %d open, %d close", opens, closes)
	}

	defined := map[string]bool{}

	for _, line := range bytes.Split(mod, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 || line[0] == ';' {
			continue
		}

		if bytes.HasSuffix(line, []byte(":")) && !bytes.Contains(line, []byte(" ")) {
			defined[string(line[:len(line)-1])] = true
		}
	}

	for _, target := range branchTargets(mod) {
		if !defined[target] {
			return errors.New("branch to undefined label %q", target)
		}
	}

	return nil
}

func branchTargets(mod []byte) []string {
	var out []string

	for _, line := range bytes.Split(mod, []byte("\n")) {
		line = bytes.TrimSpace(line)

		if !bytes.HasPrefix(line, []byte("br ")) {
			continue
		}

		fields := bytes.Fields(line)

		for i, f := range fields {
			if !bytes.Equal(f, []byte("label")) {
				continue
			}

			if i+1 >= len(fields) {
				continue
			}

			target := bytes.TrimSuffix(fields[i+1], []byte(","))
			target = bytes.TrimPrefix(target, []byte("%"))
			out = append(out, string(target))
		}
	}

	return out
}
