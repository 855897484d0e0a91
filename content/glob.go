package content

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// payloadExts are the file extensions treated as payloads when a directory
// is given instead of a pattern.
var payloadExts = map[string]bool{".yaml": true, ".yml": true, ".json": true}

// IsPayloadFile reports whether path has a payload extension.
func IsPayloadFile(path string) bool {
	return payloadExts[strings.ToLower(filepath.Ext(path))]
}

// Glob resolves a file, directory or ** pattern to a sorted list of payload
// files. A directory expands to every payload file beneath it.
func Glob(pattern string) ([]string, error) {
	if !containsGlob(pattern) {
		info, err := os.Stat(pattern)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", pattern, err)
		}
		if !info.IsDir() {
			return []string{pattern}, nil
		}
		pattern = filepath.Join(pattern, "**", "*")
	}

	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob error: %w", err)
	}

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		if IsPayloadFile(m) {
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no payload files match pattern: %s", pattern)
	}
	sort.Strings(files)
	return files, nil
}

// containsGlob checks if a pattern contains glob characters.
func containsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}
