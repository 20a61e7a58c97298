package cli

import "github.com/gimsr/rotation-scheduler/internal/domain/shared"

// Process exit codes. 2 and 3 are also returned directly by the commands
// for usage errors and conflict checks.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitInvalid     = 2
	ExitConflicts   = 3
	ExitNotFound    = 4
	ExitUnavailable = 5
)

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case shared.IsValidation(err):
		return ExitInvalid
	case shared.IsNotFound(err):
		return ExitNotFound
	case shared.IsExternalService(err):
		return ExitUnavailable
	default:
		return ExitFailure
	}
}
