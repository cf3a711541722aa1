package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

// UserRepository abstracts user persistence. Issuing credentials stays with
// the external auth flow; this side only resolves and updates user records.
type UserRepository interface {
	GetUser(ctx context.Context, userID int) (models.User, error)
	BulkUsers(ctx context.Context, ids []int) ([]models.User, error)
	SearchByNick(ctx context.Context, term string) ([]models.User, error)
	UserIDByCredential(ctx context.Context, credential string) (int, error)
	UpdateChannel(ctx context.Context, userID int, channelID int, connectKey string) error
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, nick_name, email, icon_path, bio, current_channel, connect_key, created_at`

// GetUser fetches a user by id.
func (r *UserRepo) GetUser(ctx context.Context, userID int) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("user %d: %w", userID, models.ErrNotFound)
	}
	return user, err
}

// BulkUsers fetches multiple users in one query.
func (r *UserRepo) BulkUsers(ctx context.Context, ids []int) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	query, args, err := sqlx.In(`SELECT `+userColumns+` FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var users []models.User
	err = r.db.SelectContext(ctx, &users, r.db.Rebind(query), args...)
	return users, err
}

// SearchByNick returns users whose nickname contains the term, case-insensitive.
func (r *UserRepo) SearchByNick(ctx context.Context, term string) ([]models.User, error) {
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users WHERE nick_name ILIKE '%' || $1 || '%' ORDER BY nick_name`, term)
	return users, err
}

// UserIDByCredential resolves a bearer credential to its user.
func (r *UserRepo) UserIDByCredential(ctx context.Context, credential string) (int, error) {
	var userID int
	err := r.db.GetContext(ctx, &userID, `SELECT user_id FROM credentials WHERE value=$1`, credential)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("credential: %w", models.ErrUnauthorized)
	}
	return userID, err
}

// UpdateChannel persists a freshly provisioned push channel on the user record.
func (r *UserRepo) UpdateChannel(ctx context.Context, userID int, channelID int, connectKey string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET current_channel=$1, connect_key=$2 WHERE id=$3`, channelID, connectKey, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("user %d: %w", userID, models.ErrNotFound)
	}
	return nil
}
