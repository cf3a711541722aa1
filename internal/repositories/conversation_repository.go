package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

// ConversationRepository abstracts both conversation variants behind one
// persistence surface. Membership and read cursors for groups live in
// group_members; private membership is the pair columns themselves.
type ConversationRepository interface {
	FindOrCreatePrivate(ctx context.Context, userA, userB int) (models.Conversation, error)
	FindPrivate(ctx context.Context, userA, userB int) (models.Conversation, error)
	CreateGroup(ctx context.Context, ownerID int, name string, memberIDs []int) (models.Conversation, error)
	GetConversation(ctx context.Context, conversationID int) (models.Conversation, error)
	ListForUser(ctx context.Context, userID int) ([]models.Conversation, error)
	IsMember(ctx context.Context, conversationID, userID int) (bool, error)
	MemberIDs(ctx context.Context, conversationID int) ([]int, error)
	ReadCursor(ctx context.Context, conversationID, userID int) (time.Time, error)
	AdvanceReadCursor(ctx context.Context, conversationID, userID int, at time.Time) error
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

const conversationColumns = `id, discriminator, user1_id, user2_id, group_name, group_image, created_at`

// FindOrCreatePrivate is idempotent for an unordered user pair. The partial
// unique index on (user1_id, user2_id) WHERE discriminator='private' closes
// the read-then-create race: a loser of the insert race retries the select.
func (r *ConversationRepo) FindOrCreatePrivate(ctx context.Context, userA, userB int) (models.Conversation, error) {
	if userA == userB {
		return models.Conversation{}, fmt.Errorf("cannot converse with yourself: %w", models.ErrInvalidInput)
	}
	user1, user2 := models.NormalizePair(userA, userB)

	conversation, err := r.findPrivatePair(ctx, user1, user2)
	if err == nil {
		return conversation, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, err
	}

	err = r.db.QueryRowxContext(ctx, `INSERT INTO conversations (discriminator, user1_id, user2_id) VALUES ('private', $1, $2) RETURNING `+conversationColumns, user1, user2).
		StructScan(&conversation)
	if isUniqueViolation(err) {
		return r.findPrivatePair(ctx, user1, user2)
	}
	return conversation, err
}

// FindPrivate returns the private conversation for the pair if one exists.
func (r *ConversationRepo) FindPrivate(ctx context.Context, userA, userB int) (models.Conversation, error) {
	user1, user2 := models.NormalizePair(userA, userB)
	conversation, err := r.findPrivatePair(ctx, user1, user2)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, fmt.Errorf("private conversation: %w", models.ErrNotFound)
	}
	return conversation, err
}

func (r *ConversationRepo) findPrivatePair(ctx context.Context, user1, user2 int) (models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.GetContext(ctx, &conversation, `SELECT `+conversationColumns+` FROM conversations WHERE discriminator='private' AND user1_id=$1 AND user2_id=$2`, user1, user2)
	return conversation, err
}

// CreateGroup creates a group conversation and its membership atomically. The
// owner is always a member.
func (r *ConversationRepo) CreateGroup(ctx context.Context, ownerID int, name string, memberIDs []int) (models.Conversation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Conversation{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var conversation models.Conversation
	if err = tx.QueryRowxContext(ctx, `INSERT INTO conversations (discriminator, group_name, group_image) VALUES ('group', $1, '') RETURNING `+conversationColumns, name).
		StructScan(&conversation); err != nil {
		return models.Conversation{}, err
	}

	memberSet := map[int]struct{}{ownerID: {}}
	for _, id := range memberIDs {
		memberSet[id] = struct{}{}
	}
	for id := range memberSet {
		if _, err = tx.ExecContext(ctx, `INSERT INTO group_members (conversation_id, user_id) VALUES ($1, $2)`, conversation.ID, id); err != nil {
			return models.Conversation{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Conversation{}, err
	}
	return conversation, nil
}

// GetConversation fetches a conversation by id.
func (r *ConversationRepo) GetConversation(ctx context.Context, conversationID int) (models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.GetContext(ctx, &conversation, `SELECT `+conversationColumns+` FROM conversations WHERE id=$1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, fmt.Errorf("conversation %d: %w", conversationID, models.ErrNotFound)
	}
	return conversation, err
}

// ListForUser returns every conversation the user belongs to, both variants.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID int) ([]models.Conversation, error) {
	var conversations []models.Conversation
	err := r.db.SelectContext(ctx, &conversations, `
        SELECT `+conversationColumns+` FROM conversations WHERE discriminator='private' AND (user1_id=$1 OR user2_id=$1)
        UNION ALL
        SELECT c.id, c.discriminator, c.user1_id, c.user2_id, c.group_name, c.group_image, c.created_at
        FROM conversations c INNER JOIN group_members gm ON gm.conversation_id = c.id
        WHERE c.discriminator='group' AND gm.user_id=$1`, userID)
	return conversations, err
}

// IsMember checks membership for either variant.
func (r *ConversationRepo) IsMember(ctx context.Context, conversationID, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
        SELECT EXISTS(
            SELECT 1 FROM conversations WHERE id=$1 AND discriminator='private' AND (user1_id=$2 OR user2_id=$2)
            UNION ALL
            SELECT 1 FROM group_members WHERE conversation_id=$1 AND user_id=$2
        )`, conversationID, userID)
	return exists, err
}

// MemberIDs returns every member of the conversation, both variants.
func (r *ConversationRepo) MemberIDs(ctx context.Context, conversationID int) ([]int, error) {
	conversation, err := r.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conversation.IsPrivate() {
		if conversation.User1ID == nil || conversation.User2ID == nil {
			return nil, fmt.Errorf("private conversation %d has no member pair", conversationID)
		}
		return []int{*conversation.User1ID, *conversation.User2ID}, nil
	}
	var ids []int
	err = r.db.SelectContext(ctx, &ids, `SELECT user_id FROM group_members WHERE conversation_id=$1 ORDER BY user_id`, conversationID)
	return ids, err
}

// ReadCursor returns the viewer's group read cursor.
func (r *ConversationRepo) ReadCursor(ctx context.Context, conversationID, userID int) (time.Time, error) {
	var readAt time.Time
	err := r.db.GetContext(ctx, &readAt, `SELECT read_at FROM group_members WHERE conversation_id=$1 AND user_id=$2`, conversationID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("group membership: %w", models.ErrNotFound)
	}
	return readAt, err
}

// AdvanceReadCursor moves the viewer's group read cursor forward.
func (r *ConversationRepo) AdvanceReadCursor(ctx context.Context, conversationID, userID int, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE group_members SET read_at=$1 WHERE conversation_id=$2 AND user_id=$3 AND read_at < $1`, at, conversationID, userID)
	if err != nil {
		return err
	}
	_, err = res.RowsAffected()
	return err
}
