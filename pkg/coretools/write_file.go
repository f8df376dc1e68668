package coretools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/harun/warden/pkg/workspace"
)

// WriteFile creates or overwrites a file under the root, creating missing
// parent directories.
func (c *Catalog) WriteFile(_ context.Context, p WriteFileParams) (string, error) {
	if err := c.checkRoot(KindWriteFile, p.WorkingDirectory); err != nil {
		return "", err
	}

	target, err := c.root.Resolve(p.FilePath, workspace.OpWrite)
	if err != nil {
		return "", confinement(KindWriteFile, err)
	}

	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return "", failf(KindWriteFile, nil, "Cannot write to \"%s\" as it is a directory", p.FilePath)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fault(KindWriteFile, err)
	}
	if err := os.WriteFile(target, []byte(p.Content), 0o644); err != nil {
		return "", fault(KindWriteFile, err)
	}

	n := utf8.RuneCountInString(p.Content)
	c.logger.Debug().Str("file", p.FilePath).Int("chars", n).Msg("Wrote file")
	return formatWritten(p.FilePath, n), nil
}

func formatWritten(path string, n int) string {
	return fmt.Sprintf("Successfully wrote to \"%s\" (%d characters written)", path, n)
}
