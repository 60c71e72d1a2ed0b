package deps

import (
	"fmt"
	"os"
	"os/exec"
)

// Find resolves a binary by explicit path or PATH lookup. name is used for
// the error message when nothing is found.
func Find(customPath, name string) (string, error) {
	if customPath != "" {
		if fi, err := os.Stat(customPath); err == nil && !fi.IsDir() {
			return customPath, nil
		}
		if p, err := exec.LookPath(customPath); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("could not find %s at %q", name, customPath)
	}
	if p, err := exec.LookPath(name); err == nil {
		return p, nil
	}
	return "", fmt.Errorf("could not find %s in PATH. Please install %s.", name, name)
}

// FindFFmpeg returns the path to the ffmpeg binary.
func FindFFmpeg(customPath string) (string, error) {
	return Find(customPath, "ffmpeg")
}

// FindFFprobe returns the path to the ffprobe binary.
func FindFFprobe(customPath string) (string, error) {
	return Find(customPath, "ffprobe")
}

// FindBash returns the path to bash, or an error when no bash is on PATH.
func FindBash() (string, error) {
	return Find("", "bash")
}
