package policy

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/symrec/mirror/internal/symbol"
)

// defaultSeeds is the fallback vocabulary written when no seed file exists.
// Wide enough to keep early runs out of a tiny repeating cycle.
var defaultSeeds = []string{
	"symbolic", "recursion", "origin", "mirror", "self", "loop",
	"pattern", "context", "relation", "memory", "difference", "boundary",
	"constraint", "signal", "trace", "bind", "update", "state",
}

// EnsureSeeds writes the default vocabulary to path when the file is
// absent. An existing file is left untouched.
func EnsureSeeds(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat seed file: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create seed dir: %w", err)
		}
	}
	content := strings.Join(defaultSeeds, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write seed file: %w", err)
	}
	return nil
}

// LoadSeeds reads the newline-separated vocabulary at path. Each line is
// normalized; blank, fallback, and purely-numeric lines are dropped. A
// missing file yields an empty vocabulary, not an error.
func LoadSeeds(path string, norm *symbol.Normalizer) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		s := norm.Normalize(line)
		if s == symbol.Fallback || isNumeric(s) {
			continue
		}
		out = append(out, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan seed file: %w", err)
	}
	return out, nil
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
