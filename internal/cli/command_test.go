package cli

import (
	"context"
	"errors"
	"strings"
	"testing"

	flag "github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
)

func testCommand(exec func(ctx context.Context, o *IO, args []string) error) *Command {
	return &Command{
		Flags: flag.NewFlagSet("probe", flag.ContinueOnError),
		Usage: "probe <arg>",
		Short: "test fixture",
		Exec:  exec,
	}
}

func TestCommandRunExitErrorCode(t *testing.T) {
	t.Parallel()

	cmd := testCommand(func(context.Context, *IO, []string) error {
		return &ExitError{Code: ExitMismatch, Err: errors.New("data came back wrong")}
	})

	var out, errOut strings.Builder

	code := cmd.Run(context.Background(), NewIO(&out, &errOut), nil)

	assert.Equal(t, ExitMismatch, code)
	assert.Contains(t, errOut.String(), "data came back wrong")
}

func TestCommandRunPlainErrorIsIOError(t *testing.T) {
	t.Parallel()

	cmd := testCommand(func(context.Context, *IO, []string) error {
		return errors.New("boom")
	})

	var out, errOut strings.Builder

	code := cmd.Run(context.Background(), NewIO(&out, &errOut), nil)

	assert.Equal(t, ExitIOError, code)
	assert.Contains(t, errOut.String(), "error: boom")
}

func TestCommandName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "probe", testCommand(nil).Name())
}
