package friendships

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/myphotos/backend/internal/models"
)

var errEdgeNotFound = errors.New("friendship edge not found")

type edgeKey struct {
	initiator string
	target    string
}

// NewInMemoryStore returns a Store backed by in-memory maps.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users: make(map[string]struct{}),
		edges: make(map[edgeKey]models.Friendship),
	}
}

// InMemoryStore implements Store for tests and local development. Transactions are
// serialized by a single lock and staged on a copy so a failed fn leaves no trace.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[string]struct{}
	edges map[edgeKey]models.Friendship
}

// AddUser registers a user id so it can take part in friendships.
func (s *InMemoryStore) AddUser(userID string) {
	s.mu.Lock()
	s.users[userID] = struct{}{}
	s.mu.Unlock()
}

// Edge returns the directed edge initiator->target, if any. Useful for tests.
func (s *InMemoryStore) Edge(initiatorID, targetID string) (models.Friendship, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	edge, ok := s.edges[edgeKey{initiatorID, targetID}]
	return edge, ok
}

// Len returns the number of stored edges.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges)
}

// Transact runs fn against a staged copy of the edges and commits it only on success.
func (s *InMemoryStore) Transact(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make(map[edgeKey]models.Friendship, len(s.edges))
	for k, v := range s.edges {
		staged[k] = v
	}

	tx := &memoryTx{users: s.users, edges: staged}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.edges = staged
	return nil
}

// Lookup returns the edges between userID and otherID.
func (s *InMemoryStore) Lookup(_ context.Context, userID, otherID string) (Pair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookupPair(s.edges, userID, otherID), nil
}

// ListInitiated returns edges sent by userID with the given status.
func (s *InMemoryStore) ListInitiated(_ context.Context, userID string, status models.FriendshipStatus) ([]models.Friendship, error) {
	return s.filter(func(f models.Friendship) bool {
		return f.InitiatorID == userID && f.Status == status
	}), nil
}

// ListReceived returns edges targeting userID with the given status.
func (s *InMemoryStore) ListReceived(_ context.Context, userID string, status models.FriendshipStatus) ([]models.Friendship, error) {
	return s.filter(func(f models.Friendship) bool {
		return f.TargetID == userID && f.Status == status
	}), nil
}

// ListConfirmed returns confirmed edges in which userID takes either role.
func (s *InMemoryStore) ListConfirmed(_ context.Context, userID string) ([]models.Friendship, error) {
	return s.filter(func(f models.Friendship) bool {
		return (f.InitiatorID == userID || f.TargetID == userID) && f.Status == models.FriendshipConfirmed
	}), nil
}

func (s *InMemoryStore) filter(keep func(models.Friendship) bool) []models.Friendship {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Friendship
	for _, edge := range s.edges {
		if keep(edge) {
			out = append(out, edge)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

type memoryTx struct {
	users map[string]struct{}
	edges map[edgeKey]models.Friendship
}

func (tx *memoryTx) UserExists(_ context.Context, userID string) (bool, error) {
	_, ok := tx.users[userID]
	return ok, nil
}

func (tx *memoryTx) Lookup(_ context.Context, userID, otherID string) (Pair, error) {
	return lookupPair(tx.edges, userID, otherID), nil
}

func (tx *memoryTx) Insert(_ context.Context, edge models.Friendship) error {
	key := edgeKey{edge.InitiatorID, edge.TargetID}
	if _, exists := tx.edges[key]; exists {
		return ErrDuplicateRequest
	}
	tx.edges[key] = edge
	return nil
}

func (tx *memoryTx) SetStatus(_ context.Context, edgeID string, status models.FriendshipStatus) error {
	for key, edge := range tx.edges {
		if edge.ID == edgeID {
			edge.Status = status
			tx.edges[key] = edge
			return nil
		}
	}
	return errEdgeNotFound
}

func (tx *memoryTx) Delete(_ context.Context, edgeID string) error {
	for key, edge := range tx.edges {
		if edge.ID == edgeID {
			delete(tx.edges, key)
			return nil
		}
	}
	return errEdgeNotFound
}

func lookupPair(edges map[edgeKey]models.Friendship, userID, otherID string) Pair {
	var pair Pair
	if edge, ok := edges[edgeKey{userID, otherID}]; ok {
		sent := edge
		pair.Sent = &sent
	}
	if edge, ok := edges[edgeKey{otherID, userID}]; ok {
		received := edge
		pair.Received = &received
	}
	return pair
}

var _ Store = (*InMemoryStore)(nil)
