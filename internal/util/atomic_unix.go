//go:build !windows

package util

import (
	"os"

	"github.com/google/renameio/v2"
)

// WriteFileAtomic replaces path in a single rename, so a script starting
// concurrently never sees a half-written file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	return renameio.WriteFile(path, data, perm)
}
