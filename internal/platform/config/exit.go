package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	apperrors "github.com/triplea-game/triplea-sub001/internal/platform/errors"
)

// Exit statuses of the battle commands.
const (
	ExitOK     = 0
	ExitFailed = 1
	// ExitInvalid reports a bad scenario, rule override, or flag.
	ExitInvalid = 2
)

// ExitCode maps a command error to its exit status.
func ExitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return ExitOK
	case apperrors.HasCode(err, apperrors.CodeConfigInvalid):
		return ExitInvalid
	default:
		return ExitFailed
	}
}

// Report writes the failure of service to w and returns its exit status.
// Nothing is written for a clean exit.
func Report(w io.Writer, service string, err error) int {
	code := ExitCode(err)
	if code != ExitOK {
		fmt.Fprintf(w, "%s: %v\n", service, err)
	}
	return code
}

// Exit reports err on stderr and ends the process.
func Exit(service string, err error) {
	os.Exit(Report(os.Stderr, service, err))
}
