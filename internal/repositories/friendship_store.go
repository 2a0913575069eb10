package repositories

import (
	"context"
	"fmt"

	crdbpgxv5 "github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgxv5"
	"github.com/jackc/pgx/v5"

	"github.com/myphotos/backend/internal/db"
	"github.com/myphotos/backend/internal/friendships"
	"github.com/myphotos/backend/internal/models"
)

const friendshipTxAttempts = 5

const friendshipColumns = `id, initiator_id, target_id, status_id, created_at, updated_at`

// querier is the subset of pgx shared by pooled connections and transactions.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresFriendshipStore persists friendship edges in the friendships table.
// Transactions run at SERIALIZABLE isolation and are retried on conflicts.
type PostgresFriendshipStore struct {
	pool db.Pool
}

// NewPostgresFriendshipStore constructs a friendship store backed by PostgreSQL.
func NewPostgresFriendshipStore(pool db.Pool) *PostgresFriendshipStore {
	return &PostgresFriendshipStore{pool: pool}
}

// Transact runs fn inside a serializable transaction.
func (s *PostgresFriendshipStore) Transact(ctx context.Context, fn func(ctx context.Context, tx friendships.Tx) error) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	// ExecuteTx retries conflicts detected before commit; the outer loop covers
	// serialization failures reported by the commit itself.
	return db.Retry(ctx, friendshipTxAttempts, func(int) error {
		return crdbpgxv5.ExecuteTx(ctx, conn, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
			return fn(ctx, friendshipTx{tx: tx})
		})
	})
}

// Lookup loads both edges between two users outside of a transaction.
func (s *PostgresFriendshipStore) Lookup(ctx context.Context, userID, otherID string) (friendships.Pair, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return friendships.Pair{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return lookupPair(ctx, conn, userID, otherID, false)
}

// ListInitiated lists edges sent by the user with the given status.
func (s *PostgresFriendshipStore) ListInitiated(ctx context.Context, userID string, status models.FriendshipStatus) ([]models.Friendship, error) {
	return s.list(ctx, `
        SELECT `+friendshipColumns+`
        FROM friendships
        WHERE initiator_id = $1 AND status_id = $2
        ORDER BY created_at DESC, id
    `, userID, int(status))
}

// ListReceived lists edges targeting the user with the given status.
func (s *PostgresFriendshipStore) ListReceived(ctx context.Context, userID string, status models.FriendshipStatus) ([]models.Friendship, error) {
	return s.list(ctx, `
        SELECT `+friendshipColumns+`
        FROM friendships
        WHERE target_id = $1 AND status_id = $2
        ORDER BY created_at DESC, id
    `, userID, int(status))
}

// ListConfirmed lists confirmed edges the user takes part in, in either role.
func (s *PostgresFriendshipStore) ListConfirmed(ctx context.Context, userID string) ([]models.Friendship, error) {
	return s.list(ctx, `
        SELECT `+friendshipColumns+`
        FROM friendships
        WHERE (initiator_id = $1 OR target_id = $1) AND status_id = $2
        ORDER BY created_at DESC, id
    `, userID, int(models.FriendshipConfirmed))
}

func (s *PostgresFriendshipStore) list(ctx context.Context, query string, args ...any) ([]models.Friendship, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return queryFriendships(ctx, conn, query, args...)
}

type friendshipTx struct {
	tx pgx.Tx
}

func (t friendshipTx) UserExists(ctx context.Context, userID string) (bool, error) {
	var exists bool
	if err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

func (t friendshipTx) Lookup(ctx context.Context, userID, otherID string) (friendships.Pair, error) {
	return lookupPair(ctx, t.tx, userID, otherID, true)
}

func (t friendshipTx) Insert(ctx context.Context, edge models.Friendship) error {
	_, err := t.tx.Exec(ctx, `
        INSERT INTO friendships (`+friendshipColumns+`)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, edge.ID, edge.InitiatorID, edge.TargetID, int(edge.Status), edge.CreatedAt, edge.UpdatedAt)
	if err != nil {
		switch pgErrorCode(err) {
		case pgUniqueViolation:
			return friendships.ErrDuplicateRequest
		case pgForeignKeyViolation:
			return friendships.ErrUnknownUser
		case pgCheckViolation:
			return friendships.ErrSelfRequest
		}
		return fmt.Errorf("insert friendship: %w", err)
	}
	return nil
}

func (t friendshipTx) SetStatus(ctx context.Context, edgeID string, status models.FriendshipStatus) error {
	tag, err := t.tx.Exec(ctx, `
        UPDATE friendships
        SET status_id = $2, updated_at = NOW()
        WHERE id = $1
    `, edgeID, int(status))
	if err != nil {
		return fmt.Errorf("update friendship status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t friendshipTx) Delete(ctx context.Context, edgeID string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM friendships WHERE id = $1`, edgeID)
	if err != nil {
		return fmt.Errorf("delete friendship: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func lookupPair(ctx context.Context, q querier, userID, otherID string, forUpdate bool) (friendships.Pair, error) {
	query := `
        SELECT ` + friendshipColumns + `
        FROM friendships
        WHERE (initiator_id = $1 AND target_id = $2)
           OR (initiator_id = $2 AND target_id = $1)`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	edges, err := queryFriendships(ctx, q, query, userID, otherID)
	if err != nil {
		return friendships.Pair{}, err
	}

	var pair friendships.Pair
	for i := range edges {
		edge := edges[i]
		if edge.InitiatorID == userID {
			pair.Sent = &edge
		} else {
			pair.Received = &edge
		}
	}
	return pair, nil
}

func queryFriendships(ctx context.Context, q querier, query string, args ...any) ([]models.Friendship, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query friendships: %w", err)
	}
	defer rows.Close()

	edges := []models.Friendship{}
	for rows.Next() {
		var (
			edge   models.Friendship
			status int
		)
		if err := rows.Scan(&edge.ID, &edge.InitiatorID, &edge.TargetID, &status, &edge.CreatedAt, &edge.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan friendship: %w", err)
		}
		edge.Status = models.FriendshipStatus(status)
		if !edge.Status.Valid() {
			return nil, fmt.Errorf("friendship %s has unknown status %d", edge.ID, status)
		}
		edge.CreatedAt = edge.CreatedAt.UTC()
		edge.UpdatedAt = edge.UpdatedAt.UTC()
		edges = append(edges, edge)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friendships: %w", err)
	}
	return edges, nil
}

var _ friendships.Store = (*PostgresFriendshipStore)(nil)
var _ friendships.Tx = friendshipTx{}
