package fsutil

import (
	"os"
	"path/filepath"
)

// EnsureDir creates a directory and all necessary parent directories with
// default permissions if they don't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, DirModeDefault)
}

// EnsureFileDir creates the parent directory of a file path if it doesn't
// exist. Useful when a directory must exist before a file is created in it.
func EnsureFileDir(filePath string) error {
	return EnsureDir(filepath.Dir(filePath))
}
