package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// ProjectRoot locates the repository root by walking upward from the caller
// location until a directory holds go.mod or .git. Falls back to the working
// directory.
func ProjectRoot() (string, error) {
	if _, file, _, ok := runtime.Caller(0); ok {
		dir := filepath.Dir(file)
		for i := 0; i < 8; i++ {
			if exists(filepath.Join(dir, "go.mod")) || exists(filepath.Join(dir, ".git")) {
				return dir, nil
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	wd, err := os.Getwd()
	if err != nil {
		return ".", err
	}
	return wd, nil
}

// MustProjectRoot is like ProjectRoot but panics on failure.
func MustProjectRoot() string {
	root, err := ProjectRoot()
	if err != nil {
		panic(err)
	}
	return root
}

func exists(p string) bool { _, err := os.Stat(p); return err == nil }
