package pathmatch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/loupe-dev/loupe/internal/hashing"
)

// FileRecord is a discovered file: its root-relative posix path and the
// digest of its contents at discovery time.
type FileRecord struct {
	Path   string `json:"path"`
	Digest string `json:"digest"`
}

// Set is a compiled include/exclude pattern pair. A path is selected when it
// matches at least one include pattern and no exclude pattern; excludes win
// regardless of declaration order.
type Set struct {
	includes []*regexp.Regexp
	excludes []*regexp.Regexp
}

// CompileSet expands braces and compiles every pattern in both lists.
func CompileSet(includes, excludes []string) (*Set, error) {
	set := &Set{}
	var err error
	if set.includes, err = compileAll(includes); err != nil {
		return nil, err
	}
	if set.excludes, err = compileAll(excludes); err != nil {
		return nil, err
	}
	return set, nil
}

// Selected reports whether relPath passes the include/exclude rules.
func (s *Set) Selected(relPath string) bool {
	relPath = normalizePath(relPath)
	for _, re := range s.excludes {
		if re.MatchString(relPath) {
			return false
		}
	}
	for _, re := range s.includes {
		if re.MatchString(relPath) {
			return true
		}
	}
	return false
}

// Match walks root exhaustively and returns a FileRecord for every selected
// file. Results follow walk order; callers sort when they need a stable
// order. Any I/O error aborts discovery.
func Match(root string, includes, excludes []string) ([]FileRecord, error) {
	return MatchWithReader(root, includes, excludes, os.ReadFile)
}

// MatchWithReader is Match with an injected file reader, so callers can
// share one read of each file between hashing and extraction.
func MatchWithReader(root string, includes, excludes []string, read func(string) ([]byte, error)) ([]FileRecord, error) {
	set, err := CompileSet(includes, excludes)
	if err != nil {
		return nil, err
	}

	records := make([]FileRecord, 0)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("failed to walk %s: %w", path, walkErr)
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPath = normalizePath(relPath)
		if !set.Selected(relPath) {
			return nil
		}

		content, err := read(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", relPath, err)
		}
		records = append(records, FileRecord{Path: relPath, Digest: hashing.Digest(content)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		for _, expanded := range ExpandBraces(normalizePath(pattern)) {
			re, err := regexp.Compile("^" + globToRegex(expanded) + "$")
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
			}
			out = append(out, re)
		}
	}
	return out, nil
}

// ExpandBraces expands the first {a,b,c} group and recurses, so nested
// groups and multiple groups multiply out. Unbalanced braces are literal.
func ExpandBraces(pattern string) []string {
	open := strings.IndexByte(pattern, '{')
	if open == -1 {
		return []string{pattern}
	}

	depth := 0
	closeIdx := -1
	alts := make([]string, 0, 2)
	last := open + 1
	for i := open; i < len(pattern) && closeIdx == -1; i++ {
		switch pattern[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				closeIdx = i
			}
		case ',':
			if depth == 1 {
				alts = append(alts, pattern[last:i])
				last = i + 1
			}
		}
	}
	if closeIdx == -1 {
		return []string{pattern}
	}
	alts = append(alts, pattern[last:closeIdx])

	out := make([]string, 0, len(alts))
	for _, alt := range alts {
		out = append(out, ExpandBraces(pattern[:open]+alt+pattern[closeIdx+1:])...)
	}
	return out
}

// globToRegex compiles one brace-free glob. `*` matches within a segment,
// `**/` matches zero or more whole segments, a trailing `**` matches the
// rest of the path including separators.
func globToRegex(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]

		if ch == '*' {
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				if i+2 < len(pattern) && pattern[i+2] == '/' {
					b.WriteString(`(?:[^/]+/)*`)
					i += 2
					continue
				}
				if i+2 == len(pattern) {
					b.WriteString(`.*`)
					i++
					continue
				}
				// A bare ** mid-segment degrades to *.
				b.WriteString(`[^/]*`)
				i++
				continue
			}
			b.WriteString(`[^/]*`)
			continue
		}

		if ch == '?' {
			b.WriteString(`[^/]`)
			continue
		}

		if strings.ContainsRune(`.+()|[]{}^$\`, rune(ch)) {
			b.WriteByte('\\')
		}
		b.WriteByte(ch)
	}
	return b.String()
}

func normalizePath(path string) string {
	path = filepath.ToSlash(path)
	path = strings.TrimPrefix(path, "./")
	return strings.TrimPrefix(path, "/")
}
