// Package ignore matches source paths against gitignore-like exclude rules.
package ignore

import (
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultRules keep CMake's own probe sources out of a target.
var DefaultRules = []string{
	"CMakeFiles/",
}

type rule struct {
	pattern  *regexp.Regexp
	literal  string
	negated  bool
	dirOnly  bool
	anchored bool
	nested   bool
}

// Matcher applies rules with "last rule wins" behavior.
type Matcher struct {
	rules []rule
}

// NewMatcher builds a matcher from exclude lines. DefaultRules come first
// so user negations can re-include what they exclude.
func NewMatcher(userRules []string) *Matcher {
	all := make([]string, 0, len(DefaultRules)+len(userRules))
	all = append(all, DefaultRules...)
	all = append(all, userRules...)

	rules := make([]rule, 0, len(all))
	for _, line := range all {
		if parsed, ok := parseRule(line); ok {
			rules = append(rules, parsed)
		}
	}
	return &Matcher{rules: rules}
}

// ShouldIgnore reports whether the file at relPath is excluded.
func (m *Matcher) ShouldIgnore(relPath string) bool {
	relPath = normalizePath(relPath)
	ignored := false
	for _, r := range m.rules {
		if r.matches(relPath) {
			ignored = !r.negated
		}
	}
	return ignored
}

// Filter returns the paths that are not excluded, in order.
func (m *Matcher) Filter(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, path := range paths {
		if !m.ShouldIgnore(path) {
			out = append(out, path)
		}
	}
	return out
}

func parseRule(line string) (rule, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return rule{}, false
	}

	parsed := rule{}
	if strings.HasPrefix(line, "!") {
		parsed.negated = true
		line = strings.TrimPrefix(line, "!")
	}
	if strings.HasPrefix(line, "/") {
		parsed.anchored = true
		line = strings.TrimPrefix(line, "/")
	}
	if strings.HasSuffix(line, "/") {
		parsed.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}

	line = normalizePath(line)
	if line == "" {
		return rule{}, false
	}
	parsed.literal = line
	parsed.nested = strings.Contains(line, "/")
	parsed.pattern = regexp.MustCompile("^" + globToRegex(line) + "$")
	return parsed, true
}

func (r rule) matches(relPath string) bool {
	parts := strings.Split(relPath, "/")

	if r.dirOnly {
		// Only a directory component can match; the last part is the file.
		dirs := parts[:len(parts)-1]
		if r.anchored || r.nested {
			for i := range dirs {
				if r.pattern.MatchString(strings.Join(dirs[:i+1], "/")) {
					return true
				}
			}
			return false
		}
		for _, dir := range dirs {
			if r.pattern.MatchString(dir) {
				return true
			}
		}
		return false
	}

	if r.anchored {
		return r.pattern.MatchString(relPath)
	}

	if r.nested {
		for i := range parts {
			if r.pattern.MatchString(strings.Join(parts[i:], "/")) {
				return true
			}
		}
		return false
	}

	for _, segment := range parts {
		if r.pattern.MatchString(segment) {
			return true
		}
	}
	return false
}

func globToRegex(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]

		if ch == '*' {
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				b.WriteString(".*")
				i++
				continue
			}
			b.WriteString("[^/]*")
			continue
		}

		if ch == '?' {
			b.WriteString("[^/]")
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
	path = strings.TrimPrefix(path, "/")
	return path
}
