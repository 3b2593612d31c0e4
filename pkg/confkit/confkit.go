package confkit

import (
	"fmt"
	"os"
	"path/filepath"
)

// Section is a config block whose body lives in its own file. File is set in
// the main config; Value is filled by Hydrate or assigned directly in code.
type Section[T any] struct {
	File  string `json:",optional"`
	Value *T     `json:"-"`
}

// Hydrate loads File relative to base. A section that already has a Value or
// names no file is left untouched.
func (s *Section[T]) Hydrate(base string, loader func(string) (*T, error)) error {
	if s.Value != nil || s.File == "" {
		return nil
	}
	p := ResolvePath(base, s.File)
	v, err := loader(p)
	if err != nil {
		return fmt.Errorf("section %s: %w", p, err)
	}
	s.File, s.Value = p, v
	return nil
}

// Describe renders the section for startup logs.
func (s Section[T]) Describe() string {
	switch {
	case s.Value != nil && s.File != "":
		return "loaded from " + s.File
	case s.Value != nil:
		return "inline"
	case s.File != "":
		return "pending " + s.File
	default:
		return "not configured"
	}
}

// ResolvePath expands environment references in file and joins it to base
// unless it is already absolute.
func ResolvePath(base, file string) string {
	file = os.ExpandEnv(file)
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(base, file)
}

// BaseDir is the directory that relative section files resolve against.
func BaseDir(mainPath string) string {
	return filepath.Dir(mainPath)
}
