package confkit

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const maxWalkDepth = 8

var rootMarkers = []string{"go.mod", ".git"}

// walkUp calls visit for start and each parent until visit returns true, a
// repository marker is found, or the filesystem root is reached. It returns
// the directory holding the marker, or "" when none was seen.
func walkUp(start string, visit func(dir string) bool) string {
	dir := start
	for i := 0; i < maxWalkDepth; i++ {
		if visit != nil && visit(dir) {
			return ""
		}
		for _, m := range rootMarkers {
			if _, err := os.Stat(filepath.Join(dir, m)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func sourceDir() (string, bool) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "", false
	}
	return filepath.Dir(file), true
}

// ProjectRoot locates the module root from this source file, falling back
// to the working directory.
func ProjectRoot() (string, error) {
	if dir, ok := sourceDir(); ok {
		if root := walkUp(dir, nil); root != "" {
			return root, nil
		}
	}
	wd, err := os.Getwd()
	if err != nil {
		return ".", fmt.Errorf("getwd: %w", err)
	}
	return wd, nil
}

// MustProjectPath joins rel onto ProjectRoot and panics when the root
// cannot be determined.
func MustProjectPath(rel string) string {
	root, err := ProjectRoot()
	if err != nil {
		panic(err)
	}
	return filepath.Join(root, rel)
}
