package cmd

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/manifoldco/promptui"

	"parmint/internal/model"
)

var errDeclined = errors.New("aborted: not starting more encoders than the machine can run")

// confirmConcurrency asks before starting more than twice as many encoders
// as there are CPUs. Without a terminal on stdin the run proceeds.
func confirmConcurrency(opts model.Options, mode runMode) error {
	n := effectiveConcurrency(opts, mode)
	if opts.Yes || !oversubscribed(n) || !stdinIsTerminal() {
		return nil
	}
	p := promptui.Prompt{
		Label:     fmt.Sprintf("Start %d encoders on %d CPUs", n, runtime.NumCPU()),
		IsConfirm: true,
	}
	if _, err := p.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrInterrupt) {
			return errDeclined
		}
		return fmt.Errorf("prompt: %w", err)
	}
	return nil
}
