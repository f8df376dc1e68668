package coretools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/harun/warden/pkg/workspace"
)

// ListDirectory lists the immediate children of a directory under the root,
// one "- name: file_size=N bytes, is_dir=B" line each, sorted by name.
func (c *Catalog) ListDirectory(_ context.Context, p ListDirectoryParams) (string, error) {
	if err := c.checkRoot(KindListDirectory, p.WorkingDirectory); err != nil {
		return "", err
	}

	dir := p.Directory
	if dir == "" {
		dir = "."
	}

	target, err := c.root.Resolve(dir, workspace.OpList)
	if err != nil {
		return "", confinement(KindListDirectory, err)
	}

	info, err := os.Stat(target)
	if err != nil || !info.IsDir() {
		return "", failf(KindListDirectory, err, "\"%s\" is not a directory", dir)
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		return "", fault(KindListDirectory, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		// Stat follows symlinks; a dangling link falls back to the link itself.
		entryInfo, err := os.Stat(filepath.Join(target, entry.Name()))
		if err != nil {
			entryInfo, err = entry.Info()
			if err != nil {
				return "", fault(KindListDirectory, err)
			}
		}
		lines = append(lines, fmt.Sprintf("- %s: file_size=%d bytes, is_dir=%s",
			entry.Name(), entryInfo.Size(), pyBool(entryInfo.IsDir())))
	}

	c.logger.Debug().Str("directory", dir).Int("entries", len(lines)).Msg("Listed directory")
	return strings.Join(lines, "\n"), nil
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
