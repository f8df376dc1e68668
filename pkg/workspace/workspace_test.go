package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoot(t *testing.T) Root {
	t.Helper()
	root, err := NewRoot(t.TempDir(), Options{})
	require.NoError(t, err)
	return root
}

func TestNewRoot(t *testing.T) {
	t.Run("canonicalizes symlinks", func(t *testing.T) {
		base := t.TempDir()
		real := filepath.Join(base, "real")
		require.NoError(t, os.Mkdir(real, 0o755))
		link := filepath.Join(base, "link")
		require.NoError(t, os.Symlink(real, link))

		root, err := NewRoot(link, Options{})
		require.NoError(t, err)

		want, err := filepath.EvalSymlinks(real)
		require.NoError(t, err)
		assert.Equal(t, want, root.Path())
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := NewRoot(filepath.Join(t.TempDir(), "nope"), Options{})
		assert.Error(t, err)
	})

	t.Run("creates missing directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "a", "b")
		root, err := NewRoot(dir, Options{Create: true})
		require.NoError(t, err)
		assert.DirExists(t, root.Path())
	})

	t.Run("regular file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "f")
		require.NoError(t, os.WriteFile(file, nil, 0o644))
		_, err := NewRoot(file, Options{})
		assert.ErrorContains(t, err, "not a directory")
	})

	t.Run("empty", func(t *testing.T) {
		_, err := NewRoot(" ", Options{})
		assert.Error(t, err)
	})
}

func TestRoot_Resolve_Accepted(t *testing.T) {
	root := newTestRoot(t)
	base := root.Path()

	tests := []struct {
		name string
		rel  string
		want string
	}{
		{"empty is root", "", base},
		{"dot is root", ".", base},
		{"root itself", base, base},
		{"trailing separator", "sub/", filepath.Join(base, "sub")},
		{"nested", "a/b/c.txt", filepath.Join(base, "a", "b", "c.txt")},
		{"dotdot that stays inside", "a/../b.txt", filepath.Join(base, "b.txt")},
		{"nonexistent target", "missing/file.py", filepath.Join(base, "missing", "file.py")},
		{"absolute under root", filepath.Join(base, "x"), filepath.Join(base, "x")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := root.Resolve(tt.rel, OpRead)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoot_Resolve_Rejected(t *testing.T) {
	root := newTestRoot(t)
	sibling := filepath.Base(root.Path()) + "-sibling"

	tests := []struct {
		name string
		rel  string
		op   Op
	}{
		{"parent", "..", OpList},
		{"escape via dotdot", "../secret.txt", OpRead},
		{"deep escape", "a/../../..", OpWrite},
		{"absolute elsewhere", "/bin/cat", OpExecute},
		{"prefix sibling", "../" + sibling + "/x", OpRead},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := root.Resolve(tt.rel, tt.op)
			assert.Empty(t, got)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrOutsideRoot)

			var ce *ConfinementError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.rel, ce.Path)
			assert.Equal(t, tt.op, ce.Op)
		})
	}
}

func TestRoot_Resolve_DoesNotFollowSymlinks(t *testing.T) {
	root := newTestRoot(t)
	outside := t.TempDir()
	require.NoError(t, os.Symlink(outside, filepath.Join(root.Path(), "escape")))

	got, err := root.Resolve("escape/file.txt", OpRead)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root.Path(), "escape", "file.txt"), got)
}

func TestRoot_Rel(t *testing.T) {
	root := newTestRoot(t)
	assert.Equal(t, "a/b.txt", root.Rel(filepath.Join(root.Path(), "a", "b.txt")))
	assert.Equal(t, ".", root.Rel(root.Path()))
}

func TestConfinementError_Message(t *testing.T) {
	err := &ConfinementError{Path: "../x", Op: OpWrite}
	assert.Equal(t, `write "../x": path is outside the permitted working directory`, err.Error())
}
