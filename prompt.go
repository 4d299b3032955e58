package abatch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// PromptEntry is one unit of work: a named prompt body. Entries are immutable
// once loaded and their order is significant.
type PromptEntry struct {
	Name    string
	Content string
}

// PromptsFromArgs builds entries from literal command-line arguments.
// Names are 1-based positional indexes. Whitespace-only arguments are skipped.
func PromptsFromArgs(args []string) []PromptEntry {
	entries := make([]PromptEntry, 0, len(args))

	for i, arg := range args {
		if strings.TrimSpace(arg) == "" {
			continue
		}

		entries = append(entries, PromptEntry{
			Name:    strconv.Itoa(i + 1),
			Content: arg,
		})
	}

	return entries
}

// PromptsFromFile loads a single prompt from a file. The entry name is the
// file's base name and the content is the trimmed file body. An empty file
// yields no entry.
func PromptsFromFile(path string) ([]PromptEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt file: %w", err)
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return nil, nil
	}

	return []PromptEntry{{Name: filepath.Base(path), Content: content}}, nil
}

// PromptsFromDir loads one entry per regular file in dir, ordered by natural
// sort of the file names so that numeric suffixes compare numerically
// (task-2 before task-9 before task-10). Empty files are skipped.
func PromptsFromDir(dir string) ([]PromptEntry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read prompt dir: %w", err)
	}

	names := make([]string, 0, len(dirEntries))

	for _, de := range dirEntries {
		if !de.Type().IsRegular() {
			continue
		}

		names = append(names, de.Name())
	}

	sort.Slice(names, func(i, j int) bool {
		return naturalLess(names[i], names[j])
	})

	entries := make([]PromptEntry, 0, len(names))

	for _, name := range names {
		loaded, err := PromptsFromFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}

		entries = append(entries, loaded...)
	}

	return entries, nil
}

// naturalLess compares a and b treating runs of digits as numbers, so
// "task-9" sorts before "task-10".
func naturalLess(a, b string) bool {
	for a != "" && b != "" {
		aChunk, aNum, aRest := nextChunk(a)
		bChunk, bNum, bRest := nextChunk(b)

		if aNum && bNum {
			an := strings.TrimLeft(aChunk, "0")
			bn := strings.TrimLeft(bChunk, "0")

			if len(an) != len(bn) {
				return len(an) < len(bn)
			}

			if an != bn {
				return an < bn
			}
		} else if aChunk != bChunk {
			return aChunk < bChunk
		}

		a, b = aRest, bRest
	}

	return len(a) < len(b)
}

// nextChunk splits s into its leading run of digits or non-digits and the rest.
func nextChunk(s string) (chunk string, numeric bool, rest string) {
	if s == "" {
		return "", false, ""
	}

	isDigit := func(c byte) bool { return c >= '0' && c <= '9' }
	numeric = isDigit(s[0])

	i := 1
	for i < len(s) && isDigit(s[i]) == numeric {
		i++
	}

	return s[:i], numeric, s[i:]
}
