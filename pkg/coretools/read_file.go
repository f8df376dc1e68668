package coretools

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/harun/warden/pkg/workspace"
)

// ReadFile returns up to MaxChars characters of a regular file. When the file
// holds more, a truncation marker naming the file and the cap is appended.
func (c *Catalog) ReadFile(_ context.Context, p ReadFileParams) (string, error) {
	if err := c.checkRoot(KindReadFile, p.WorkingDirectory); err != nil {
		return "", err
	}

	target, err := c.root.Resolve(p.FilePath, workspace.OpRead)
	if err != nil {
		return "", confinement(KindReadFile, err)
	}

	info, err := os.Stat(target)
	if err != nil || !info.Mode().IsRegular() {
		return "", failf(KindReadFile, err, "File not found or is not a regular file: \"%s\"", p.FilePath)
	}

	content, truncated, err := readRunesWithLimit(target, c.maxChars)
	if err != nil {
		return "", fault(KindReadFile, err)
	}
	if truncated {
		content += fmt.Sprintf("[...File \"%s\" truncated at %d characters]", p.FilePath, c.maxChars)
	}

	c.logger.Debug().
		Str("file", p.FilePath).
		Int("chars", utf8.RuneCountInString(content)).
		Bool("truncated", truncated).
		Msg("Read file")
	return content, nil
}

var errNotUTF8 = errors.New("file is not valid UTF-8 text")

// readRunesWithLimit reads at most limit characters and reports whether any
// data remains after them.
func readRunesWithLimit(path string, limit int) (string, bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", false, err
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	var buf strings.Builder
	for n := 0; n < limit; n++ {
		r, size, err := reader.ReadRune()
		if errors.Is(err, io.EOF) {
			return buf.String(), false, nil
		}
		if err != nil {
			return "", false, err
		}
		if r == utf8.RuneError && size == 1 {
			return "", false, errNotUTF8
		}
		buf.WriteRune(r)
	}

	if _, err := reader.Peek(1); err == nil {
		return buf.String(), true, nil
	} else if !errors.Is(err, io.EOF) {
		return "", false, err
	}
	return buf.String(), false, nil
}
