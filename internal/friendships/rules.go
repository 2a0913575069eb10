package friendships

import (
	"errors"

	"github.com/myphotos/backend/internal/models"
)

// decideRequest picks the transition for RequestOrConfirm given the edges
// between requester and target.
func decideRequest(p Pair) (Transition, error) {
	if p.Sent != nil {
		return "", ErrDuplicateRequest
	}
	if p.Received != nil {
		return TransitionConfirmed, nil
	}
	return TransitionRequested, nil
}

// decideWithdraw picks the transition for Withdraw and the edge it applies to.
// An outbound edge always takes precedence over an inbound one.
func decideWithdraw(p Pair) (Transition, *models.Friendship, error) {
	switch {
	case p.Sent != nil:
		if p.Sent.Status == models.FriendshipPending {
			return TransitionWithdrawn, p.Sent, nil
		}
		return TransitionRevoked, p.Sent, nil
	case p.Received != nil:
		if p.Received.Status == models.FriendshipConfirmed {
			return TransitionRevoked, p.Received, nil
		}
		return "", nil, ErrForbiddenDelete
	default:
		return "", nil, ErrNoRelationship
	}
}

func errorLabel(err error) string {
	switch {
	case errors.Is(err, ErrUnknownUser):
		return "unknown_user"
	case errors.Is(err, ErrSelfRequest):
		return "self_request"
	case errors.Is(err, ErrDuplicateRequest):
		return "duplicate_request"
	case errors.Is(err, ErrNoRelationship):
		return "no_relationship"
	case errors.Is(err, ErrForbiddenDelete):
		return "forbidden_delete"
	default:
		return "error"
	}
}
