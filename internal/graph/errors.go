package graph

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("function not found")
	ErrAmbiguousName = errors.New("ambiguous function name")
	ErrIO            = errors.New("call graph source unreadable")
)

// NotFoundError is returned when a name matches no node.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("function %q not found", e.Name)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// AmbiguousNameError is returned when a single-result lookup matches more
// than one node.
type AmbiguousNameError struct {
	Name  string
	Count int
}

func (e *AmbiguousNameError) Error() string {
	return fmt.Sprintf("function %q is ambiguous; %d nodes carry this name", e.Name, e.Count)
}

func (e *AmbiguousNameError) Is(target error) bool { return target == ErrAmbiguousName }

// IOError wraps a failure to read a document from disk.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("read call graph %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }
