// Package media names the files a run produces.
package media

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultFinalName is the joined output when auto-naming is off.
const DefaultFinalName = "final.mkv"

// FinalName returns the joined output file name: final.mkv, or
// <stem>.<fps>fps<ext> derived from the input when autoName is set. Inputs
// without an extension get .mkv.
func FinalName(inputPath string, fps int, autoName bool) string {
	if !autoName {
		return DefaultFinalName
	}
	base := filepath.Base(inputPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if ext == "" {
		ext = ".mkv"
	}
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		stem = "output"
	}
	return fmt.Sprintf("%s.%dfps%s", SanitizeFilename(stem), fps, ext)
}

// SanitizeFilename replaces characters that are awkward in file names and in
// generated scripts with underscores.
func SanitizeFilename(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '%', '\'', '\n', '\r', '\t':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
