package friendships

import (
	"context"

	"github.com/myphotos/backend/internal/models"
)

// Pair holds the edges between two users as seen from one of them.
// Sent is the edge from that user to the other; Received is the reverse edge.
type Pair struct {
	Sent     *models.Friendship
	Received *models.Friendship
}

// Confirmed reports whether either direction holds a confirmed edge.
func (p Pair) Confirmed() bool {
	return (p.Sent != nil && p.Sent.Status == models.FriendshipConfirmed) ||
		(p.Received != nil && p.Received.Status == models.FriendshipConfirmed)
}

// Tx is the view of the backing store available inside a single transaction.
type Tx interface {
	UserExists(ctx context.Context, userID string) (bool, error)
	Lookup(ctx context.Context, userID, otherID string) (Pair, error)
	Insert(ctx context.Context, edge models.Friendship) error
	SetStatus(ctx context.Context, edgeID string, status models.FriendshipStatus) error
	Delete(ctx context.Context, edgeID string) error
}

// Store persists friendship edges. Transact must run fn atomically and serialize
// concurrent transactions touching the same pair of users; if fn returns an error
// nothing it wrote may become visible.
type Store interface {
	Transact(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Lookup(ctx context.Context, userID, otherID string) (Pair, error)
	ListInitiated(ctx context.Context, userID string, status models.FriendshipStatus) ([]models.Friendship, error)
	ListReceived(ctx context.Context, userID string, status models.FriendshipStatus) ([]models.Friendship, error)
	ListConfirmed(ctx context.Context, userID string) ([]models.Friendship, error)
}
