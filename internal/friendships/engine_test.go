package friendships

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myphotos/backend/internal/models"
)

type recorderStub struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorderStub) RecordTransition(operation, result string) {
	r.mu.Lock()
	r.calls = append(r.calls, operation+":"+result)
	r.mu.Unlock()
}

func newTestEngine(t *testing.T, users ...string) (*Engine, *InMemoryStore) {
	t.Helper()
	store := NewInMemoryStore()
	for _, id := range users {
		store.AddUser(id)
	}
	return NewEngine(store, EngineConfig{}), store
}

func TestRequestCreatesPendingEdge(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, "a", "b")

	transition, err := engine.RequestOrConfirm(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, TransitionRequested, transition)

	edge, ok := store.Edge("a", "b")
	require.True(t, ok, "expected edge a->b")
	assert.Equal(t, models.FriendshipPending, edge.Status)
	assert.NotEmpty(t, edge.ID)

	_, ok = store.Edge("b", "a")
	assert.False(t, ok, "reverse edge must not be created")

	_, err = engine.RequestOrConfirm(ctx, "a", "b")
	assert.ErrorIs(t, err, ErrDuplicateRequest)
	assert.Equal(t, 1, store.Len())
}

func TestReciprocalRequestConfirmsExistingEdge(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, "a", "b")

	_, err := engine.RequestOrConfirm(ctx, "a", "b")
	require.NoError(t, err)

	transition, err := engine.RequestOrConfirm(ctx, "b", "a")
	require.NoError(t, err)
	assert.Equal(t, TransitionConfirmed, transition)

	edge, ok := store.Edge("a", "b")
	require.True(t, ok)
	assert.Equal(t, models.FriendshipConfirmed, edge.Status)

	_, ok = store.Edge("b", "a")
	assert.False(t, ok, "confirming must not create the reverse edge")
	assert.Equal(t, 1, store.Len())

	ab, err := engine.AreFriends(ctx, "a", "b")
	require.NoError(t, err)
	ba, err := engine.AreFriends(ctx, "b", "a")
	require.NoError(t, err)
	assert.True(t, ab)
	assert.True(t, ba)

	_, err = engine.RequestOrConfirm(ctx, "a", "b")
	assert.ErrorIs(t, err, ErrDuplicateRequest, "confirmed outbound edge still counts as sent")
}

func TestRequestPreconditions(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, "a")

	_, err := engine.RequestOrConfirm(ctx, "a", "a")
	assert.ErrorIs(t, err, ErrSelfRequest)

	_, err = engine.RequestOrConfirm(ctx, "a", "ghost")
	assert.ErrorIs(t, err, ErrUnknownUser)

	assert.Zero(t, store.Len())
}

func TestWithdrawPendingDeletesEdge(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, "a", "b")

	_, err := engine.RequestOrConfirm(ctx, "a", "b")
	require.NoError(t, err)

	transition, err := engine.Withdraw(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, TransitionWithdrawn, transition)
	assert.Zero(t, store.Len())

	friends, err := engine.AreFriends(ctx, "a", "b")
	require.NoError(t, err)
	assert.False(t, friends)

	_, err = engine.Withdraw(ctx, "a", "b")
	assert.ErrorIs(t, err, ErrNoRelationship)
}

func TestWithdrawConfirmedDemotesEdge(t *testing.T) {
	tests := []struct {
		name  string
		actor string
		other string
	}{
		{name: "initiator revokes", actor: "a", other: "b"},
		{name: "target revokes", actor: "b", other: "a"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			engine, store := newTestEngine(t, "a", "b")

			_, err := engine.RequestOrConfirm(ctx, "a", "b")
			require.NoError(t, err)
			_, err = engine.RequestOrConfirm(ctx, "b", "a")
			require.NoError(t, err)

			transition, err := engine.Withdraw(ctx, tc.actor, tc.other)
			require.NoError(t, err)
			assert.Equal(t, TransitionRevoked, transition)

			edge, ok := store.Edge("a", "b")
			require.True(t, ok, "revoked edge must persist")
			assert.Equal(t, models.FriendshipPending, edge.Status)
			assert.Equal(t, 1, store.Len())

			friends, err := engine.AreFriends(ctx, "a", "b")
			require.NoError(t, err)
			assert.False(t, friends)
		})
	}
}

func TestWithdrawAfterRevocationFollowsDirection(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, "a", "b")

	_, err := engine.RequestOrConfirm(ctx, "a", "b")
	require.NoError(t, err)
	_, err = engine.RequestOrConfirm(ctx, "b", "a")
	require.NoError(t, err)
	_, err = engine.Withdraw(ctx, "a", "b")
	require.NoError(t, err)

	// a->b is pending again, so b did not send it and may not cancel it.
	_, err = engine.Withdraw(ctx, "b", "a")
	assert.ErrorIs(t, err, ErrForbiddenDelete)

	// The revoked edge behaves like a fresh request: b can confirm it again.
	transition, err := engine.RequestOrConfirm(ctx, "b", "a")
	require.NoError(t, err)
	assert.Equal(t, TransitionConfirmed, transition)

	edge, _ := store.Edge("a", "b")
	assert.Equal(t, models.FriendshipConfirmed, edge.Status)
}

func TestWithdrawReceivedPendingIsForbidden(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, "a", "b")

	_, err := engine.RequestOrConfirm(ctx, "a", "b")
	require.NoError(t, err)

	_, err = engine.Withdraw(ctx, "b", "a")
	assert.ErrorIs(t, err, ErrForbiddenDelete)

	edge, ok := store.Edge("a", "b")
	require.True(t, ok)
	assert.Equal(t, models.FriendshipPending, edge.Status)
}

func TestWithdrawPreconditions(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, "a", "b")

	_, err := engine.Withdraw(ctx, "a", "ghost")
	assert.ErrorIs(t, err, ErrUnknownUser)

	_, err = engine.Withdraw(ctx, "a", "b")
	assert.ErrorIs(t, err, ErrNoRelationship)
}

func TestListingQueries(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, "a", "b", "c", "d")

	// a->b confirmed, c->a pending, a->d pending.
	_, err := engine.RequestOrConfirm(ctx, "a", "b")
	require.NoError(t, err)
	_, err = engine.RequestOrConfirm(ctx, "b", "a")
	require.NoError(t, err)
	_, err = engine.RequestOrConfirm(ctx, "c", "a")
	require.NoError(t, err)
	_, err = engine.RequestOrConfirm(ctx, "a", "d")
	require.NoError(t, err)

	sent, err := engine.PendingSentBy(ctx, "a")
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, "d", sent[0].TargetID)

	received, err := engine.PendingReceivedBy(ctx, "a")
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "c", received[0].InitiatorID)

	peers, err := engine.ConfirmedPeersOf(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, peers)

	peers, err = engine.ConfirmedPeersOf(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, peers)

	confirmed, err := engine.Confirmed(ctx, "b")
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, "a", confirmed[0].InitiatorID)
}

func TestConcurrentOpposingRequestsYieldSingleEdge(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		engine, store := newTestEngine(t, "a", "b")

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = engine.RequestOrConfirm(ctx, "a", "b")
		}()
		go func() {
			defer wg.Done()
			_, errs[1] = engine.RequestOrConfirm(ctx, "b", "a")
		}()
		wg.Wait()

		require.NoError(t, errs[0])
		require.NoError(t, errs[1])
		require.Equal(t, 1, store.Len(), "opposing requests must converge on one edge")

		friends, err := engine.AreFriends(ctx, "a", "b")
		require.NoError(t, err)
		require.True(t, friends)
	}
}

func TestFailedTransactionLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	store.AddUser("a")
	store.AddUser("b")

	boom := errors.New("boom")
	err := store.Transact(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Insert(ctx, models.Friendship{ID: "e1", InitiatorID: "a", TargetID: "b", Status: models.FriendshipPending}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, store.Len())
}

func TestEngineRecordsTransitions(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	store.AddUser("a")
	store.AddUser("b")
	recorder := &recorderStub{}
	engine := NewEngine(store, EngineConfig{Metrics: recorder})

	_, _ = engine.RequestOrConfirm(ctx, "a", "b")
	_, _ = engine.RequestOrConfirm(ctx, "a", "b")
	_, _ = engine.RequestOrConfirm(ctx, "b", "a")
	_, _ = engine.Withdraw(ctx, "b", "a")

	assert.Equal(t, []string{
		"request:requested",
		"request:duplicate_request",
		"request:confirmed",
		"withdraw:revoked",
	}, recorder.calls)
}

// Users 1 and 2 start with no relationship and end up sharing photos.
func TestFriendshipScenario(t *testing.T) {
	ctx := context.Background()
	engine, store := newTestEngine(t, "1", "2")

	_, err := engine.RequestOrConfirm(ctx, "1", "2")
	require.NoError(t, err)
	edge, _ := store.Edge("1", "2")
	assert.Equal(t, models.FriendshipPending, edge.Status)

	_, err = engine.RequestOrConfirm(ctx, "1", "2")
	assert.ErrorIs(t, err, ErrDuplicateRequest)

	_, err = engine.RequestOrConfirm(ctx, "2", "1")
	require.NoError(t, err)
	edge, _ = store.Edge("1", "2")
	assert.Equal(t, models.FriendshipConfirmed, edge.Status)
}
