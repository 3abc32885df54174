package policy

import (
	"fmt"

	"github.com/dimitrije/medportal-api/internal/apperr"
)

// RecordState is the lifecycle state of a users record.
type RecordState string

const (
	StateRegistered RecordState = "registered"
	StateApproved   RecordState = "approved"
	StateDeleted    RecordState = "deleted"
)

type RecordOp string

const (
	OpApprove RecordOp = "approve"
	OpRevoke  RecordOp = "revoke"
	OpDelete  RecordOp = "delete"
)

func StateOf(approved bool) RecordState {
	if approved {
		return StateApproved
	}
	return StateRegistered
}

// Transition returns the state reached by applying op to from.
// Re-applying the current approval state is a no-op.
func Transition(from RecordState, op RecordOp) (RecordState, error) {
	if from == StateDeleted {
		return from, apperr.NotFound("policy.transition", "user record was deleted")
	}
	if from != StateRegistered && from != StateApproved {
		return from, apperr.Validation("policy.transition", "invalid_state", fmt.Sprintf("unknown record state %q", from))
	}

	switch op {
	case OpApprove:
		return StateApproved, nil
	case OpRevoke:
		return StateRegistered, nil
	case OpDelete:
		return StateDeleted, nil
	}
	return from, apperr.Validation("policy.transition", "invalid_operation", fmt.Sprintf("unknown operation %q", op))
}

// CheckActor rejects administrative operations an account applies to itself.
func CheckActor(actorUID, targetUID string, op RecordOp) error {
	if actorUID == "" {
		return apperr.Unauthenticated("policy.actor", "unauthenticated", "sign in required")
	}
	if actorUID == targetUID {
		return apperr.Forbidden("policy.actor", fmt.Sprintf("cannot %s your own account", op))
	}
	return nil
}
