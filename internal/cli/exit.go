package cli

import (
	stderrors "errors"

	"graft.dev/graft/internal/errors"
)

// Exit codes returned by the graft binary.
const (
	ExitOK       = 0
	ExitConflict = 1
	ExitFatal    = 255
)

// ExitCode maps a command error to the process exit status. A rebase that
// stopped on conflicts, or a continue that found them still unresolved, exits 1.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case stderrors.Is(err, errors.ErrMergeConflict), stderrors.Is(err, errors.ErrUnresolvedConflicts):
		return ExitConflict
	default:
		return ExitFatal
	}
}
