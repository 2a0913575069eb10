package friendships

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/myphotos/backend/internal/logging"
	"github.com/myphotos/backend/internal/models"
)

// Transition names the state change applied by a successful write.
type Transition string

const (
	TransitionRequested Transition = "requested"
	TransitionConfirmed Transition = "confirmed"
	TransitionWithdrawn Transition = "withdrawn"
	TransitionRevoked   Transition = "revoked"
)

// TransitionRecorder observes the outcome of every write operation.
type TransitionRecorder interface {
	RecordTransition(operation, result string)
}

// EngineConfig carries optional collaborators for the Engine.
type EngineConfig struct {
	Logger  *slog.Logger
	Metrics TransitionRecorder
	NowFunc func() time.Time
}

// Engine owns the friendship state machine. It is stateless; all state lives in the Store.
type Engine struct {
	store   Store
	logger  *slog.Logger
	metrics TransitionRecorder
	now     func() time.Time
}

// NewEngine constructs an Engine over the provided store.
func NewEngine(store Store, cfg EngineConfig) *Engine {
	if store == nil {
		panic("friendships: store must not be nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.NowFunc == nil {
		cfg.NowFunc = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{
		store:   store,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		now:     cfg.NowFunc,
	}
}

// RequestOrConfirm sends a friend request from requester to target, or accepts the
// request target previously sent to requester.
func (e *Engine) RequestOrConfirm(ctx context.Context, requesterID, targetID string) (Transition, error) {
	ctx, span := logging.StartSpan(ctx, "friendships.request_or_confirm")
	defer span.End()

	if requesterID == targetID {
		e.record("request", "", ErrSelfRequest)
		return "", ErrSelfRequest
	}

	var transition Transition
	err := e.store.Transact(ctx, func(ctx context.Context, tx Tx) error {
		transition = ""

		exists, err := tx.UserExists(ctx, targetID)
		if err != nil {
			return fmt.Errorf("check target user: %w", err)
		}
		if !exists {
			return ErrUnknownUser
		}

		pair, err := tx.Lookup(ctx, requesterID, targetID)
		if err != nil {
			return fmt.Errorf("lookup friendship: %w", err)
		}

		next, err := decideRequest(pair)
		if err != nil {
			return err
		}

		switch next {
		case TransitionConfirmed:
			if err := tx.SetStatus(ctx, pair.Received.ID, models.FriendshipConfirmed); err != nil {
				return fmt.Errorf("confirm friendship: %w", err)
			}
		case TransitionRequested:
			now := e.now()
			edge := models.Friendship{
				ID:          uuid.NewString(),
				InitiatorID: requesterID,
				TargetID:    targetID,
				Status:      models.FriendshipPending,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := tx.Insert(ctx, edge); err != nil {
				return fmt.Errorf("create friend request: %w", err)
			}
		}

		transition = next
		return nil
	})

	e.record("request", transition, err)
	if err != nil {
		logging.FromContext(ctx).Warn("friend request rejected", "requesterId", requesterID, "targetId", targetID, "error", err)
		return "", err
	}

	logging.FromContext(ctx).Info("friend request applied", "requesterId", requesterID, "targetId", targetID, "transition", string(transition))
	return transition, nil
}

// Withdraw removes or demotes the relationship between actor and other.
func (e *Engine) Withdraw(ctx context.Context, actorID, otherID string) (Transition, error) {
	ctx, span := logging.StartSpan(ctx, "friendships.withdraw")
	defer span.End()

	var transition Transition
	err := e.store.Transact(ctx, func(ctx context.Context, tx Tx) error {
		transition = ""

		exists, err := tx.UserExists(ctx, otherID)
		if err != nil {
			return fmt.Errorf("check other user: %w", err)
		}
		if !exists {
			return ErrUnknownUser
		}

		pair, err := tx.Lookup(ctx, actorID, otherID)
		if err != nil {
			return fmt.Errorf("lookup friendship: %w", err)
		}

		next, edge, err := decideWithdraw(pair)
		if err != nil {
			return err
		}

		switch next {
		case TransitionWithdrawn:
			if err := tx.Delete(ctx, edge.ID); err != nil {
				return fmt.Errorf("delete friend request: %w", err)
			}
		case TransitionRevoked:
			if err := tx.SetStatus(ctx, edge.ID, models.FriendshipPending); err != nil {
				return fmt.Errorf("revoke friendship: %w", err)
			}
		}

		transition = next
		return nil
	})

	e.record("withdraw", transition, err)
	if err != nil {
		logging.FromContext(ctx).Warn("friend withdrawal rejected", "actorId", actorID, "otherId", otherID, "error", err)
		return "", err
	}

	logging.FromContext(ctx).Info("friend withdrawal applied", "actorId", actorID, "otherId", otherID, "transition", string(transition))
	return transition, nil
}

// AreFriends reports whether a confirmed edge exists in either direction.
func (e *Engine) AreFriends(ctx context.Context, userID, otherID string) (bool, error) {
	pair, err := e.store.Lookup(ctx, userID, otherID)
	if err != nil {
		return false, fmt.Errorf("lookup friendship: %w", err)
	}
	return pair.Confirmed(), nil
}

// PendingSentBy lists the pending edges the user initiated.
func (e *Engine) PendingSentBy(ctx context.Context, userID string) ([]models.Friendship, error) {
	return e.store.ListInitiated(ctx, userID, models.FriendshipPending)
}

// PendingReceivedBy lists the pending edges targeting the user.
func (e *Engine) PendingReceivedBy(ctx context.Context, userID string) ([]models.Friendship, error) {
	return e.store.ListReceived(ctx, userID, models.FriendshipPending)
}

// Confirmed lists the confirmed edges the user participates in, in either role.
func (e *Engine) Confirmed(ctx context.Context, userID string) ([]models.Friendship, error) {
	return e.store.ListConfirmed(ctx, userID)
}

// ConfirmedPeersOf returns the ids of every user the given user is friends with.
func (e *Engine) ConfirmedPeersOf(ctx context.Context, userID string) ([]string, error) {
	edges, err := e.store.ListConfirmed(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(edges))
	peers := make([]string, 0, len(edges))
	for _, edge := range edges {
		peer := edge.Counterpart(userID)
		if _, ok := seen[peer]; ok {
			continue
		}
		seen[peer] = struct{}{}
		peers = append(peers, peer)
	}
	return peers, nil
}

func (e *Engine) record(operation string, transition Transition, err error) {
	if e.metrics == nil {
		return
	}
	result := string(transition)
	if err != nil {
		result = errorLabel(err)
	}
	e.metrics.RecordTransition(operation, result)
}
