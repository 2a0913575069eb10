package photos

import (
	"context"
	"fmt"

	"github.com/myphotos/backend/internal/logging"
)

// Relationships answers whether two users are confirmed friends.
type Relationships interface {
	AreFriends(ctx context.Context, userID, otherID string) (bool, error)
}

// DecisionRecorder observes every visibility decision.
type DecisionRecorder interface {
	RecordAccessDecision(decision string)
}

const (
	decisionOwner  = "owner"
	decisionFriend = "friend"
	decisionDenied = "denied"
)

// Policy decides whether one user may view another user's photos.
type Policy struct {
	relationships Relationships
	metrics       DecisionRecorder
}

// NewPolicy constructs a Policy that consults the provided relationships.
func NewPolicy(relationships Relationships, metrics DecisionRecorder) *Policy {
	if relationships == nil {
		panic("photos: relationships must not be nil")
	}
	return &Policy{relationships: relationships, metrics: metrics}
}

// CanView reports whether viewer may see owner's photos: always for the owner,
// otherwise only for confirmed friends.
func (p *Policy) CanView(ctx context.Context, viewerID, ownerID string) (bool, error) {
	if viewerID == ownerID {
		p.record(decisionOwner)
		return true, nil
	}

	friends, err := p.relationships.AreFriends(ctx, viewerID, ownerID)
	if err != nil {
		return false, fmt.Errorf("check friendship: %w", err)
	}

	if friends {
		p.record(decisionFriend)
	} else {
		p.record(decisionDenied)
		logging.FromContext(ctx).Info("photo access denied", "viewerId", viewerID, "ownerId", ownerID)
	}
	return friends, nil
}

func (p *Policy) record(decision string) {
	if p.metrics != nil {
		p.metrics.RecordAccessDecision(decision)
	}
}
