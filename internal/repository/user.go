package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"parish-portal/internal/model"
)

const userColumns = `id, email, first_name, last_name, profile_image, role, active, points, telegram_chat_id, created_at, updated_at`

// UserRepository handles user persistence and the atomic points balance.
type UserRepository struct {
	db DBTX
}

// NewUser holds the fields required to register a member.
type NewUser struct {
	Email        string
	FirstName    string
	LastName     string
	ProfileImage *string
	Role         model.Role
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.ProfileImage,
		&u.Role,
		&u.Active,
		&u.Points,
		&u.TelegramChatID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create registers a user with a zero balance.
// Returns ErrDuplicate if the email is taken.
func (r *UserRepository) Create(ctx context.Context, nu NewUser) (*model.User, error) {
	role := nu.Role
	if role == "" {
		role = model.RoleUser
	}

	query := `
		INSERT INTO users (email, first_name, last_name, profile_image, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRow(ctx, query, nu.Email, nu.FirstName, nu.LastName, nu.ProfileImage, string(role)))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

// GetByID retrieves a user by id.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetForUpdate retrieves a user and locks the row until the transaction ends.
func (r *UserRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*model.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// AddPoints adds delta to the user's balance and returns the updated user.
// delta may be negative and the balance may go below zero.
func (r *UserRepository) AddPoints(ctx context.Context, id uuid.UUID, delta int64) (*model.User, error) {
	query := `
		UPDATE users
		SET points = points + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRow(ctx, query, id, delta))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update points: %w", err)
	}
	return u, nil
}

// AddPointsGuarded behaves like AddPoints but refuses to take the balance
// below zero, returning ErrInsufficientPoints instead.
func (r *UserRepository) AddPointsGuarded(ctx context.Context, id uuid.UUID, delta int64) (*model.User, error) {
	query := `
		UPDATE users
		SET points = points + $2, updated_at = NOW()
		WHERE id = $1 AND points + $2 >= 0
		RETURNING ` + userColumns

	u, err := scanUser(r.db.QueryRow(ctx, query, id, delta))
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update points: %w", err)
	}

	exists, err := r.Exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUserNotFound
	}
	return nil, ErrInsufficientPoints
}

// GetTopUsers retrieves the top active users by points.
// Ties are ordered by registration time, then id.
func (r *UserRepository) GetTopUsers(ctx context.Context, limit int) ([]*model.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE active
		ORDER BY points DESC, created_at ASC, id ASC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// SetTelegramChat links (or with nil, unlinks) a Telegram chat for push delivery.
func (r *UserRepository) SetTelegramChat(ctx context.Context, id uuid.UUID, chatID *int64) error {
	const query = `
		UPDATE users
		SET telegram_chat_id = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, id, chatID)
	if err != nil {
		return fmt.Errorf("failed to set telegram chat: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Exists checks if a user with the given id exists.
func (r *UserRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}
