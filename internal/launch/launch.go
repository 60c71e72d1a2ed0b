// Package launch writes the manifest and script into the output directory
// and starts the script detached from this process.
package launch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog"

	"parmint/internal/script"
	"parmint/internal/segment"
	"parmint/internal/util"
)

// ErrLaunch wraps every failure to materialize or start the script.
var ErrLaunch = errors.New("launch failed")

// Artifacts are the absolute paths written by WriteArtifacts.
type Artifacts struct {
	Dir          string
	ManifestPath string
	ScriptPath   string
}

// WriteArtifacts creates dir and writes the concat manifest and the script
// into it, replacing files left by a previous run. The script is made
// executable.
func WriteArtifacts(dir, manifest, scriptName, scriptBody string) (Artifacts, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Artifacts{}, fmt.Errorf("%w: resolve %q: %v", ErrLaunch, dir, err)
	}
	if err := util.EnsureDir(abs); err != nil {
		return Artifacts{}, fmt.Errorf("%w: create output dir %q: %v", ErrLaunch, abs, err)
	}
	a := Artifacts{
		Dir:          abs,
		ManifestPath: filepath.Join(abs, segment.ManifestName),
		ScriptPath:   filepath.Join(abs, scriptName),
	}
	if err := util.WriteFileAtomic(a.ManifestPath, []byte(manifest), 0o644); err != nil {
		return Artifacts{}, fmt.Errorf("%w: write manifest: %v", ErrLaunch, err)
	}
	if scriptName == "" {
		return a, nil
	}
	if err := util.WriteFileAtomic(a.ScriptPath, []byte(scriptBody), 0o755); err != nil {
		return Artifacts{}, fmt.Errorf("%w: write script: %v", ErrLaunch, err)
	}
	return a, nil
}

// Command builds the interpreter invocation for a script of dialect d.
func Command(d script.Dialect, scriptPath string) (string, []string, error) {
	switch d {
	case script.DialectPOSIX:
		return "bash", []string{scriptPath}, nil
	case script.DialectBatch:
		return "cmd", []string{"/C", scriptPath}, nil
	default:
		return "", nil, fmt.Errorf("%w: no interpreter for dialect %q", ErrLaunch, d)
	}
}

// Spawn starts the script in its own process group with the script's
// directory as working directory, then releases it. It does not wait: the
// script's exit status is never observed.
func Spawn(ctx context.Context, log zerolog.Logger, d script.Dialect, scriptPath string) (int, error) {
	prog, args, err := Command(d, scriptPath)
	if err != nil {
		return 0, err
	}
	path, err := exec.LookPath(prog)
	if err != nil {
		return 0, fmt.Errorf("%w: %s not found: %v", ErrLaunch, prog, err)
	}
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	// Not CommandContext: the child must outlive this process.
	cmd := exec.Command(path, args...)
	cmd.Dir = filepath.Dir(scriptPath)
	cmd.Stdin = nil
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("%w: start %s: %v", ErrLaunch, util.ShellQuote(path, args), err)
	}
	pid := cmd.Process.Pid
	log.Debug().Int("pid", pid).Str("script", scriptPath).Msg("script started")
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("%w: release pid %d: %v", ErrLaunch, pid, err)
	}
	return pid, nil
}
