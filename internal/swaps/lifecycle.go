package swaps

import (
	"github.com/google/uuid"
	"github.com/jmerrifield20/skillswap/internal/apperr"
)

// ParseTarget validates a requested status. Only accepted, rejected and
// completed can be requested; pending is the initial state and never a target.
func ParseTarget(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusAccepted, StatusRejected, StatusCompleted:
		return st, nil
	}
	return "", apperr.InvalidArgument("invalid status")
}

// CheckTransition reports whether actor may move s to the target status.
//
//	pending  -> accepted | rejected   receiver only
//	accepted -> completed             either participant
//
// rejected and completed are terminal.
func CheckTransition(s *Swap, actor uuid.UUID, to Status) error {
	switch to {
	case StatusAccepted, StatusRejected:
		if actor != s.Receiver {
			return apperr.Forbidden("only receiver can accept/reject")
		}
		if s.Status != StatusPending {
			return apperr.InvalidState("cannot mark a %s swap as %s", s.Status, to)
		}
	case StatusCompleted:
		if !s.IsParticipant(actor) {
			return apperr.Forbidden("access denied")
		}
		if s.Status != StatusAccepted {
			return apperr.InvalidState("only accepted swaps can be completed; this swap is %s", s.Status)
		}
	default:
		return apperr.InvalidArgument("invalid status")
	}
	return nil
}

// CheckDelete reports whether actor may delete s: the requester, while pending.
func CheckDelete(s *Swap, actor uuid.UUID) error {
	if actor != s.Requester {
		return apperr.Forbidden("only requester can delete")
	}
	if s.Status != StatusPending {
		return apperr.Forbidden("only pending requests can be deleted")
	}
	return nil
}
