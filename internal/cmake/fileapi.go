// Package cmake talks to the CMake file API to find the sources and
// include directories of a build target.
package cmake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

const (
	apiDir    = ".cmake/api/v1"
	queryFile = "codemodel-v2"
)

// ErrTargetNotFound is returned by FindTarget when no reply names the target.
var ErrTargetNotFound = errors.New("target not found")

// QueryPath returns the path of the codemodel query file in buildDir.
func QueryPath(buildDir string) string {
	return filepath.Join(buildDir, apiDir, "query", queryFile)
}

// ReplyDir returns the directory CMake writes replies into.
func ReplyDir(buildDir string) string {
	return filepath.Join(buildDir, apiDir, "reply")
}

// WriteQuery creates the codemodel query so the next CMake run writes a
// reply for every target.
func WriteQuery(buildDir string) error {
	path := QueryPath(buildDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create query dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create query: %w", err)
	}
	return f.Close()
}

// Configure runs cmake in buildDir with args.
func Configure(ctx context.Context, buildDir string, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, "cmake", args...)
	cmd.Dir = buildDir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("cmake %s: %w", strings.Join(args, " "), err)
	}
	return nil
}

// Target is the part of a target reply the collectors need.
type Target struct {
	Name     string
	Sources  []string
	Includes []string
}

type targetReply struct {
	Name    string `json:"name"`
	Sources []struct {
		Path string `json:"path"`
	} `json:"sources"`
	CompileGroups []struct {
		Includes []struct {
			Path string `json:"path"`
		} `json:"includes"`
	} `json:"compileGroups"`
}

// FindTarget reads the reply for target name. Header files are left out of
// the sources; include directories of every compile group are collected.
func FindTarget(buildDir, name string) (Target, error) {
	pattern := filepath.Join(ReplyDir(buildDir), "target-"+name+"-*.json")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return Target{}, err
	}
	if len(matches) == 0 {
		return Target{}, fmt.Errorf("%w: no file API reply for target %q in %s", ErrTargetNotFound, name, ReplyDir(buildDir))
	}
	sort.Strings(matches)

	data, err := os.ReadFile(matches[0])
	if err != nil {
		return Target{}, fmt.Errorf("read target reply: %w", err)
	}
	var reply targetReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return Target{}, fmt.Errorf("parse %s: %w", filepath.Base(matches[0]), err)
	}

	target := Target{Name: reply.Name}
	if target.Name == "" {
		target.Name = name
	}
	for _, source := range reply.Sources {
		if source.Path == "" || IsHeader(source.Path) {
			continue
		}
		target.Sources = append(target.Sources, source.Path)
	}
	seen := make(map[string]bool)
	for _, group := range reply.CompileGroups {
		for _, include := range group.Includes {
			if include.Path == "" || seen[include.Path] {
				continue
			}
			seen[include.Path] = true
			target.Includes = append(target.Includes, include.Path)
		}
	}
	return target, nil
}

// IsHeader reports header files by extension.
func IsHeader(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".h", ".hh", ".hpp", ".hxx", ".inl":
		return true
	default:
		return false
	}
}
