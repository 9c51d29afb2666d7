package selection

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Stem returns the file name of path without its extension. It is the key
// that joins an original to its processed copy.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LoadTargets reads the target stems file at path.
func LoadTargets(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open targets file: %w", err)
	}
	defer f.Close()
	return ParseTargets(f)
}

// ParseTargets reads one stem per line. Lines are trimmed; blank lines and
// lines starting with # are ignored; repeated stems are kept once, in first
// appearance order.
func ParseTargets(r io.Reader) ([]string, error) {
	var stems []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if seen[line] {
			continue
		}
		seen[line] = true
		stems = append(stems, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read targets: %w", err)
	}
	return stems, nil
}
