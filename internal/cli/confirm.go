package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/peterh/liner"
)

var errConfirmationRequired = errors.New("refusing to overwrite without confirmation (re-run with --force, or answer the prompt on a terminal)")

// confirmDestructive makes the operator type the device's base name back
// before anything is written to it. A bare y/n is too easy to reflex
// through when the argument was a typo'd device path.
func confirmDestructive(path string) error {
	if !liner.TerminalSupported() {
		return errConfirmationRequired
	}

	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)

	want := filepath.Base(path)

	got, err := line.Prompt(fmt.Sprintf("about to OVERWRITE data on %s; type %q to continue: ", path, want))
	if err != nil {
		return errConfirmationRequired
	}

	if got != want {
		return fmt.Errorf("%w: expected %q, got %q", errConfirmationRequired, want, got)
	}

	return nil
}
