package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messenger-service/internal/models"
)

// RelationshipRepository drives the friend-request state machine and the
// friendship edge queries. Requests go Pending -> Completed(accepted|rejected)
// and are never deleted.
type RelationshipRepository interface {
	CreateRequest(ctx context.Context, creatorID, targetID int) (models.FriendRequest, error)
	GetRequest(ctx context.Context, requestID int) (models.FriendRequest, error)
	CompleteRequest(ctx context.Context, requestID, actingUserID int, accept bool) (models.FriendRequest, error)
	ListRequestsForTarget(ctx context.Context, targetID int) ([]models.FriendRequest, error)
	AreFriends(ctx context.Context, a, b int) (bool, error)
	RemoveFriend(ctx context.Context, userID, targetID int) error
}

// RelationshipRepo is a sqlx implementation of RelationshipRepository.
type RelationshipRepo struct {
	db *sqlx.DB
}

// NewRelationshipRepo constructs a RelationshipRepo.
func NewRelationshipRepo(db *sqlx.DB) *RelationshipRepo {
	return &RelationshipRepo{db: db}
}

const requestColumns = `id, creator_id, target_id, create_time, completed, accepted`

// CreateRequest persists a new pending request. The partial unique index on
// (creator_id, target_id) WHERE NOT completed closes the race between the
// pending pre-check and the insert.
func (r *RelationshipRepo) CreateRequest(ctx context.Context, creatorID, targetID int) (models.FriendRequest, error) {
	if creatorID == targetID {
		return models.FriendRequest{}, fmt.Errorf("cannot request yourself: %w", models.ErrInvalidInput)
	}

	friends, err := r.AreFriends(ctx, creatorID, targetID)
	if err != nil {
		return models.FriendRequest{}, err
	}
	if friends {
		return models.FriendRequest{}, fmt.Errorf("already friends: %w", models.ErrConflict)
	}

	var request models.FriendRequest
	err = r.db.QueryRowxContext(ctx, `INSERT INTO friend_requests (creator_id, target_id) VALUES ($1, $2) RETURNING `+requestColumns, creatorID, targetID).
		StructScan(&request)
	if isUniqueViolation(err) {
		return models.FriendRequest{}, fmt.Errorf("pending request already exists: %w", models.ErrConflict)
	}
	return request, err
}

// GetRequest fetches a request by id.
func (r *RelationshipRepo) GetRequest(ctx context.Context, requestID int) (models.FriendRequest, error) {
	var request models.FriendRequest
	err := r.db.GetContext(ctx, &request, `SELECT `+requestColumns+` FROM friend_requests WHERE id=$1`, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.FriendRequest{}, fmt.Errorf("request %d: %w", requestID, models.ErrNotFound)
	}
	return request, err
}

// CompleteRequest marks the request completed with the accept outcome and, on
// acceptance, creates the friendship edge in the same transaction.
func (r *RelationshipRepo) CompleteRequest(ctx context.Context, requestID, actingUserID int, accept bool) (models.FriendRequest, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.FriendRequest{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var request models.FriendRequest
	err = tx.QueryRowxContext(ctx, `SELECT `+requestColumns+` FROM friend_requests WHERE id=$1 FOR UPDATE`, requestID).
		StructScan(&request)
	if errors.Is(err, sql.ErrNoRows) {
		err = fmt.Errorf("request %d: %w", requestID, models.ErrNotFound)
		return models.FriendRequest{}, err
	}
	if err != nil {
		return models.FriendRequest{}, err
	}
	if request.TargetID != actingUserID {
		err = fmt.Errorf("request targets another user: %w", models.ErrUnauthorized)
		return models.FriendRequest{}, err
	}
	if request.Completed {
		err = fmt.Errorf("request already completed: %w", models.ErrConflict)
		return models.FriendRequest{}, err
	}

	if accept {
		user1, user2 := models.NormalizePair(request.CreatorID, request.TargetID)
		var exists bool
		if err = tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM friendships WHERE user1_id=$1 AND user2_id=$2)`, user1, user2); err != nil {
			return models.FriendRequest{}, err
		}
		if exists {
			err = fmt.Errorf("already friends: %w", models.ErrConflict)
			return models.FriendRequest{}, err
		}
		if _, err = tx.ExecContext(ctx, `INSERT INTO friendships (user1_id, user2_id) VALUES ($1, $2)`, user1, user2); err != nil {
			if isUniqueViolation(err) {
				err = fmt.Errorf("already friends: %w", models.ErrConflict)
			}
			return models.FriendRequest{}, err
		}
	}

	if _, err = tx.ExecContext(ctx, `UPDATE friend_requests SET completed=TRUE, accepted=$1 WHERE id=$2`, accept, requestID); err != nil {
		return models.FriendRequest{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.FriendRequest{}, err
	}

	request.Completed = true
	request.Accepted = accept
	return request, nil
}

// ListRequestsForTarget returns requests targeting the user, newest first.
func (r *RelationshipRepo) ListRequestsForTarget(ctx context.Context, targetID int) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	err := r.db.SelectContext(ctx, &requests, `SELECT `+requestColumns+` FROM friend_requests WHERE target_id=$1 ORDER BY create_time DESC`, targetID)
	return requests, err
}

// AreFriends is symmetric regardless of the original edge direction.
func (r *RelationshipRepo) AreFriends(ctx context.Context, a, b int) (bool, error) {
	user1, user2 := models.NormalizePair(a, b)
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM friendships WHERE user1_id=$1 AND user2_id=$2)`, user1, user2)
	return exists, err
}

// RemoveFriend deletes the edge. Prior messages stay untouched.
func (r *RelationshipRepo) RemoveFriend(ctx context.Context, userID, targetID int) error {
	user1, user2 := models.NormalizePair(userID, targetID)
	res, err := r.db.ExecContext(ctx, `DELETE FROM friendships WHERE user1_id=$1 AND user2_id=$2`, user1, user2)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("no friendship to remove: %w", models.ErrConflict)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
