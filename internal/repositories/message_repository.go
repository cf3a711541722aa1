package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

// ErrNoMessages marks an empty conversation.
var ErrNoMessages = errors.New("no messages")

// MessageRepository is the append-only message log with per-variant
// read-state bookkeeping.
type MessageRepository interface {
	CreateMessage(ctx context.Context, conversationID, senderID int, content string) (models.Message, error)
	RecentMessages(ctx context.Context, conversationID, take int) ([]models.Message, error)
	MarkPrivateRead(ctx context.Context, conversationID, viewerID int) error
	UnreadCountPrivate(ctx context.Context, conversationID, viewerID int) (int, error)
	UnreadCountSince(ctx context.Context, conversationID int, since time.Time) (int, error)
	LatestMessage(ctx context.Context, conversationID int) (models.Message, error)
}

// MessageRepo is a sqlx implementation of MessageRepository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, conversation_id, sender_id, content, read, send_time`

// CreateMessage appends a message. Content must already be validated; the
// database stamps the send time so per-conversation ordering follows insert
// order.
func (r *MessageRepo) CreateMessage(ctx context.Context, conversationID, senderID int, content string) (models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return models.Message{}, fmt.Errorf("empty message content: %w", models.ErrInvalidInput)
	}
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (conversation_id, sender_id, content) VALUES ($1, $2, $3) RETURNING `+messageColumns, conversationID, senderID, content).
		StructScan(&msg)
	return msg, err
}

// RecentMessages returns at most take messages, newest first. Callers that
// need chronological order reverse the returned window.
func (r *MessageRepo) RecentMessages(ctx context.Context, conversationID, take int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages WHERE conversation_id=$1 ORDER BY send_time DESC, id DESC LIMIT $2`, conversationID, take)
	return msgs, err
}

// MarkPrivateRead flags every message from other senders as read.
func (r *MessageRepo) MarkPrivateRead(ctx context.Context, conversationID, viewerID int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE messages SET read=TRUE WHERE conversation_id=$1 AND sender_id<>$2 AND read=FALSE`, conversationID, viewerID)
	return err
}

// UnreadCountPrivate counts unread messages from the other member.
func (r *MessageRepo) UnreadCountPrivate(ctx context.Context, conversationID, viewerID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages WHERE conversation_id=$1 AND sender_id<>$2 AND read=FALSE`, conversationID, viewerID)
	return count, err
}

// UnreadCountSince counts messages sent after the viewer's group read cursor.
func (r *MessageRepo) UnreadCountSince(ctx context.Context, conversationID int, since time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages WHERE conversation_id=$1 AND send_time > $2`, conversationID, since)
	return count, err
}

// LatestMessage returns the newest message or ErrNoMessages.
func (r *MessageRepo) LatestMessage(ctx context.Context, conversationID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE conversation_id=$1 ORDER BY send_time DESC, id DESC LIMIT 1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrNoMessages
	}
	return msg, err
}
