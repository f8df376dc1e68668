// Package workspace establishes the single directory that every tool
// operation is confined to and resolves model-supplied paths against it.
//
// A Root is created once at process start and never changes afterwards:
//
//	root, err := workspace.NewRoot("./workspace", workspace.Options{Create: true})
//	if err != nil {
//		log.Fatal().Err(err).Msg("Failed to open workspace")
//	}
//
//	abs, err := root.Resolve("notes/todo.txt", workspace.OpRead)
//	var ce *workspace.ConfinementError
//	if errors.As(err, &ce) {
//		// compose a user-facing message from ce.Path and ce.Op
//	}
//
// Resolve is purely lexical: it does not touch the filesystem, and it never
// follows symlinks when deciding whether a path is contained.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Op names the kind of access a caller intends to make with a resolved path.
type Op string

const (
	OpList    Op = "list"
	OpRead    Op = "read"
	OpWrite   Op = "write"
	OpExecute Op = "execute"
)

// ErrOutsideRoot is matched by every *ConfinementError.
var ErrOutsideRoot = errors.New("path is outside the permitted working directory")

// ConfinementError reports a path that escapes the root. It carries the
// path exactly as the caller supplied it.
type ConfinementError struct {
	Path string
	Op   Op
}

func (e *ConfinementError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Path, ErrOutsideRoot)
}

// Is makes errors.Is(err, ErrOutsideRoot) true.
func (e *ConfinementError) Is(target error) bool {
	return target == ErrOutsideRoot
}

// Options configures NewRoot.
type Options struct {
	// Create makes the directory (and parents) when it does not exist.
	Create bool
}

// Root is an absolute, symlink-free directory path. The zero value is not
// usable; construct it with NewRoot.
type Root struct {
	path string
}

// NewRoot canonicalizes dir and checks that it is an existing directory.
func NewRoot(dir string, opts Options) (Root, error) {
	if strings.TrimSpace(dir) == "" {
		return Root{}, errors.New("working directory is required")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return Root{}, fmt.Errorf("failed to resolve working directory: %w", err)
	}

	if opts.Create {
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return Root{}, fmt.Errorf("failed to create working directory: %w", err)
		}
	}

	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return Root{}, fmt.Errorf("failed to resolve working directory: %w", err)
	}

	info, err := os.Stat(canonical)
	if err != nil {
		return Root{}, fmt.Errorf("failed to stat working directory: %w", err)
	}
	if !info.IsDir() {
		return Root{}, fmt.Errorf("working directory %q is not a directory", canonical)
	}

	return Root{path: canonical}, nil
}

// Path returns the absolute root directory.
func (r Root) Path() string {
	return r.path
}

func (r Root) String() string {
	return r.path
}

// Resolve joins rel onto the root and returns the normalized absolute path,
// or a *ConfinementError when the result is not the root or a descendant.
//
// An empty rel resolves to the root. An absolute rel replaces the root
// before normalization, so "/etc/passwd" is rejected rather than re-rooted.
// ".." segments are collapsed lexically.
func (r Root) Resolve(rel string, op Op) (string, error) {
	candidate := rel
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(r.path, candidate)
	}
	candidate = filepath.Clean(candidate)

	if !r.Contains(candidate) {
		return "", &ConfinementError{Path: rel, Op: op}
	}
	return candidate, nil
}

// Contains reports whether the cleaned absolute path abs is the root or lies
// beneath it.
func (r Root) Contains(abs string) bool {
	rel, err := filepath.Rel(r.path, abs)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// Rel returns abs relative to the root, using forward slashes.
func (r Root) Rel(abs string) string {
	rel, err := filepath.Rel(r.path, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}
