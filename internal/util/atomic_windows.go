//go:build windows

package util

import (
	"bytes"
	"os"

	"github.com/natefinch/atomic"
)

// WriteFileAtomic replaces path with MoveFileEx, so a script starting
// concurrently never sees a half-written file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return err
	}
	return os.Chmod(path, perm)
}
