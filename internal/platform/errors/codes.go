// Package errors provides structured error handling with i18n support.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Dice errors
	CodeDiceInvalidSpec Code = "DICE_INVALID_SPEC"
	CodeDiceExhausted   Code = "DICE_EXHAUSTED"

	// Casualty errors
	CodeCasualtyInvalid        Code = "CASUALTY_INVALID"
	CodeCasualtyNotEnoughUnits Code = "CASUALTY_NOT_ENOUGH_UNITS"
	CodeCasualtyTargetsUnknown Code = "CASUALTY_TARGETS_UNKNOWN"

	// Retreat errors
	CodeRetreatInvalid Code = "RETREAT_INVALID"

	// Battle errors
	CodeBattleOver      Code = "BATTLE_OVER"
	CodeStackNotEmpty   Code = "STACK_NOT_EMPTY"
	CodeAAInconsistent  Code = "AA_INCONSISTENT"
	CodeConfigInvalid   Code = "CONFIG_INVALID"
	CodeRemoteTimeout   Code = "REMOTE_TIMEOUT"
	CodeRemoteForbidden Code = "REMOTE_FORBIDDEN"

	// Journal errors
	CodeJournalGap       Code = "JOURNAL_GAP"
	CodeJournalSignature Code = "JOURNAL_SIGNATURE"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeDiceInvalidSpec,
		CodeCasualtyInvalid,
		CodeCasualtyNotEnoughUnits,
		CodeCasualtyTargetsUnknown,
		CodeRetreatInvalid,
		CodeConfigInvalid:
		return codes.InvalidArgument

	// FailedPrecondition - state does not allow the operation
	case CodeBattleOver,
		CodeStackNotEmpty,
		CodeJournalGap:
		return codes.FailedPrecondition

	case CodeRemoteTimeout:
		return codes.DeadlineExceeded

	case CodeRemoteForbidden,
		CodeJournalSignature:
		return codes.PermissionDenied

	case CodeNotFound:
		return codes.NotFound

	case CodeDiceExhausted:
		return codes.ResourceExhausted

	default:
		return codes.Internal
	}
}
