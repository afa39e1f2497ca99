// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Common errors for repository operations.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate record")

	ErrUserNotFound         = fmt.Errorf("user %w", ErrNotFound)
	ErrSlotNotFound         = fmt.Errorf("duty slot %w", ErrNotFound)
	ErrVolunteerNotFound    = fmt.Errorf("volunteer %w", ErrNotFound)
	ErrBetNotFound          = fmt.Errorf("bet %w", ErrNotFound)
	ErrEntryNotFound        = fmt.Errorf("bet entry %w", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("notification %w", ErrNotFound)
	ErrIntentionNotFound    = fmt.Errorf("intention %w", ErrNotFound)

	// ErrInsufficientPoints is returned by guarded debits that would overdraw a balance.
	ErrInsufficientPoints = errors.New("insufficient points")
)

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store groups the repositories over one connection or transaction.
type Store struct {
	db DBTX

	Users         *UserRepository
	Transactions  *TransactionRepository
	Duties        *DutyRepository
	Bets          *BetRepository
	Spins         *WheelSpinRepository
	Notifications *NotificationRepository
	Intentions    *IntentionRepository
}

// NewStore creates a Store over db. Pass a *pgxpool.Pool for normal use.
func NewStore(db DBTX) *Store {
	return &Store{
		db:            db,
		Users:         &UserRepository{db: db},
		Transactions:  &TransactionRepository{db: db},
		Duties:        &DutyRepository{db: db},
		Bets:          &BetRepository{db: db},
		Spins:         &WheelSpinRepository{db: db},
		Notifications: &NotificationRepository{db: db},
		Intentions:    &IntentionRepository{db: db},
	}
}

// InTx runs fn inside a transaction. The transaction commits when fn returns
// nil and rolls back otherwise. Calling InTx on a transactional Store opens a
// savepoint.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return fn(NewStore(tx))
	})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
