package coretools

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mattn/go-shellwords"
)

// InterpreterPolicy decides which program runs a script, by extension.
type InterpreterPolicy struct {
	commands map[string][]string
}

// NewInterpreterPolicy parses each command line with shell quoting rules.
// Extensions are matched case-insensitively and must start with a dot.
func NewInterpreterPolicy(interpreters map[string]string) (*InterpreterPolicy, error) {
	commands := make(map[string][]string, len(interpreters))
	for ext, line := range interpreters {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return nil, fmt.Errorf("invalid script extension %q: must start with a dot", ext)
		}

		argv, err := shellwords.Parse(line)
		if err != nil {
			return nil, fmt.Errorf("invalid interpreter for %s: %w", ext, err)
		}
		if len(argv) == 0 {
			return nil, fmt.Errorf("empty interpreter for %s", ext)
		}
		commands[ext] = argv
	}
	return &InterpreterPolicy{commands: commands}, nil
}

// Command returns the argv that runs script with args, or false when the
// extension is not allowed.
func (p *InterpreterPolicy) Command(script string, args []string) ([]string, bool) {
	argv, ok := p.commands[strings.ToLower(filepath.Ext(script))]
	if !ok {
		return nil, false
	}

	cmd := make([]string, 0, len(argv)+1+len(args))
	cmd = append(cmd, argv...)
	cmd = append(cmd, script)
	return append(cmd, args...), true
}

// Extensions lists the allowed extensions in sorted order.
func (p *InterpreterPolicy) Extensions() []string {
	exts := make([]string, 0, len(p.commands))
	for ext := range p.commands {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
