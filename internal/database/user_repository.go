package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/studybuddy/pkg/models"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db sqlx.ExtContext
}

// NewUserRepository creates a new repository instance
func NewUserRepository(db sqlx.ExtContext) *UserRepository {
	return &UserRepository{db: db}
}

// Create signs up a new user. A duplicate username yields ErrUsernameTaken.
func (r *UserRepository) Create(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, errors.New("username and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	id, err := insertReturningID(ctx, r.db,
		`INSERT INTO users (username, password_hash) VALUES (?, ?)`, username, string(hash))
	if isUniqueViolation(err) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return r.GetByID(ctx, id)
}

// GetByID returns a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getBy(ctx, "id", id)
}

// GetByUsername returns a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getBy(ctx, "username", username)
}

// GetByTelegramChatID returns the user linked to a Telegram chat
func (r *UserRepository) GetByTelegramChatID(ctx context.Context, chatID int64) (*models.User, error) {
	return r.getBy(ctx, "telegram_chat_id", chatID)
}

func (r *UserRepository) getBy(ctx context.Context, column string, value interface{}) (*models.User, error) {
	var user models.User
	query := r.db.Rebind(`
		SELECT id, username, password_hash, telegram_chat_id, created_at
		FROM users WHERE ` + column + ` = ?`)
	err := sqlx.GetContext(ctx, r.db, &user, query, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}
	return &user, nil
}

// Authenticate checks a username/password pair
func (r *UserRepository) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := r.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// SetTelegramChatID links a Telegram chat for review reminders. A chat belongs
// to one user at a time, so any other account linked to it is unlinked.
func (r *UserRepository) SetTelegramChatID(ctx context.Context, userID, chatID int64) error {
	if db, ok := r.db.(*sqlx.DB); ok {
		return WithTx(ctx, db, func(tx *sqlx.Tx) error {
			return setTelegramChatID(ctx, tx, userID, chatID)
		})
	}
	return setTelegramChatID(ctx, r.db, userID, chatID)
}

func setTelegramChatID(ctx context.Context, db sqlx.ExtContext, userID, chatID int64) error {
	unlink := db.Rebind(`UPDATE users SET telegram_chat_id = NULL WHERE telegram_chat_id = ? AND id <> ?`)
	if _, err := db.ExecContext(ctx, unlink, chatID, userID); err != nil {
		return fmt.Errorf("failed to unlink telegram chat: %w", err)
	}

	query := db.Rebind(`UPDATE users SET telegram_chat_id = ? WHERE id = ?`)
	result, err := db.ExecContext(ctx, query, chatID, userID)
	if err != nil {
		return fmt.Errorf("failed to set telegram chat: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
