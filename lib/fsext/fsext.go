// Package fsext provides a filesystem abstraction for the rest of jsrt.
// Everything that touches files - the module loader, the fs built-in, the
// CLI - goes through these types so that tests can substitute an in-memory
// filesystem.
package fsext

import (
	"os"

	"github.com/spf13/afero"
)

// Fs is the filesystem type used throughout jsrt.
type Fs = afero.Fs

// File is an open file as returned by an Fs.
type File = afero.File

// NewOsFs returns a new filesystem backed by the OS.
func NewOsFs() Fs {
	return afero.NewOsFs()
}

// NewMemMapFs returns a new in-memory filesystem, used mostly in tests.
func NewMemMapFs() Fs {
	return afero.NewMemMapFs()
}

// NewReadOnlyFs wraps fs so that every mutating operation fails.
func NewReadOnlyFs(fs Fs) Fs {
	return afero.NewReadOnlyFs(fs)
}

// ReadFile reads the whole file at filename from fs.
func ReadFile(fs Fs, filename string) ([]byte, error) {
	return afero.ReadFile(fs, filename)
}

// WriteFile writes data to filename on fs, creating it if necessary.
func WriteFile(fs Fs, filename string, data []byte, perm os.FileMode) error {
	return afero.WriteFile(fs, filename, data, perm)
}

// Exists returns whether path exists on fs. Errors count as non-existence.
func Exists(fs Fs, path string) bool {
	ok, err := afero.Exists(fs, path)
	return err == nil && ok
}
