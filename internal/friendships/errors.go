package friendships

import "errors"

var (
	// ErrUnknownUser indicates the referenced user does not exist.
	ErrUnknownUser = errors.New("unknown user")
	// ErrSelfRequest indicates a user attempted to befriend themselves.
	ErrSelfRequest = errors.New("cannot send a friend request to yourself")
	// ErrDuplicateRequest indicates the requester already has an outbound edge to the target.
	ErrDuplicateRequest = errors.New("friend request already sent")
	// ErrNoRelationship indicates no edge exists between the two users in either direction.
	ErrNoRelationship = errors.New("no friendship between users")
	// ErrForbiddenDelete indicates the actor tried to cancel a pending request they did not send.
	ErrForbiddenDelete = errors.New("cannot delete a friend request sent by another user")
)
