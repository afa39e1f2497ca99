package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// Execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type migration struct {
	name string
	sql  string
}

// migrations are applied in order on every start; each statement is idempotent.
var migrations = []migration{
	{
		name: "users",
		sql: `
			CREATE TABLE IF NOT EXISTS users (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				email VARCHAR(255) NOT NULL UNIQUE,
				first_name VARCHAR(100) NOT NULL,
				last_name VARCHAR(100) NOT NULL,
				profile_image TEXT,
				role VARCHAR(16) NOT NULL DEFAULT 'USER',
				active BOOLEAN NOT NULL DEFAULT TRUE,
				points BIGINT NOT NULL DEFAULT 0,
				telegram_chat_id BIGINT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_users_points ON users(points DESC);
		`,
	},
	{
		name: "points_transactions",
		sql: `
			CREATE TABLE IF NOT EXISTS points_transactions (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				amount BIGINT NOT NULL,
				type VARCHAR(32) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				source_id UUID,
				created_by UUID,
				created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
			);
			CREATE INDEX IF NOT EXISTS idx_points_tx_user_time ON points_transactions(user_id, created_at DESC);
		`,
	},
	{
		name: "duty_slots",
		sql: `
			CREATE TABLE IF NOT EXISTS duty_slots (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				slot_date DATE NOT NULL,
				slot_time TIME NOT NULL,
				category VARCHAR(32) NOT NULL,
				title VARCHAR(255) NOT NULL,
				capacity INT NOT NULL CHECK (capacity >= 1),
				is_auto_approved BOOLEAN NOT NULL DEFAULT FALSE,
				points_value INT NOT NULL DEFAULT 0 CHECK (points_value >= 0),
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_duty_slots_category_date ON duty_slots(category, slot_date, slot_time);
		`,
	},
	{
		name: "duty_volunteers",
		sql: `
			CREATE TABLE IF NOT EXISTS duty_volunteers (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				slot_id UUID NOT NULL REFERENCES duty_slots(id) ON DELETE CASCADE,
				status VARCHAR(16) NOT NULL,
				is_anonymous BOOLEAN NOT NULL DEFAULT FALSE,
				was_present BOOLEAN NOT NULL DEFAULT FALSE,
				points_awarded BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp(),
				UNIQUE (user_id, slot_id)
			);
			CREATE INDEX IF NOT EXISTS idx_duty_volunteers_slot ON duty_volunteers(slot_id, status);
		`,
	},
	{
		name: "bets",
		sql: `
			CREATE TABLE IF NOT EXISTS bets (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				creator_id UUID NOT NULL REFERENCES users(id),
				topic VARCHAR(500) NOT NULL,
				options TEXT[] NOT NULL,
				status VARCHAR(16) NOT NULL DEFAULT 'OPEN',
				betting_deadline TIMESTAMPTZ NOT NULL,
				resolution_date TIMESTAMPTZ NOT NULL,
				winning_option TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp(),
				resolved_at TIMESTAMPTZ,
				CHECK (resolution_date >= betting_deadline)
			);
			CREATE INDEX IF NOT EXISTS idx_bets_status_deadline ON bets(status, betting_deadline);
		`,
	},
	{
		name: "bet_entries",
		sql: `
			CREATE TABLE IF NOT EXISTS bet_entries (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				bet_id UUID NOT NULL REFERENCES bets(id) ON DELETE CASCADE,
				amount BIGINT NOT NULL CHECK (amount > 0),
				selected_option TEXT NOT NULL,
				placed_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp(),
				winnings BIGINT,
				settled BOOLEAN NOT NULL DEFAULT FALSE,
				UNIQUE (user_id, bet_id)
			);
			CREATE INDEX IF NOT EXISTS idx_bet_entries_bet ON bet_entries(bet_id);
		`,
	},
	{
		name: "wheel_spins",
		sql: `
			CREATE TABLE IF NOT EXISTS wheel_spins (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				spin_date DATE NOT NULL,
				prize_amount BIGINT NOT NULL,
				spun_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				UNIQUE (user_id, spin_date)
			);
		`,
	},
	{
		name: "notifications",
		sql: `
			CREATE TABLE IF NOT EXISTS notifications (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				recipient_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				title VARCHAR(255) NOT NULL,
				message VARCHAR(1000) NOT NULL,
				type VARCHAR(16) NOT NULL,
				is_read BOOLEAN NOT NULL DEFAULT FALSE,
				related_entity_id UUID,
				created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
			);
			CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id, created_at DESC);
		`,
	},
	{
		name: "intentions",
		sql: `
			CREATE TABLE IF NOT EXISTS intentions (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				author_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				content VARCHAR(500) NOT NULL,
				type VARCHAR(32) NOT NULL,
				status VARCHAR(16) NOT NULL DEFAULT 'PENDING',
				target_date DATE NOT NULL,
				is_anonymous BOOLEAN NOT NULL DEFAULT FALSE,
				admin_response TEXT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
			);
			CREATE INDEX IF NOT EXISTS idx_intentions_status_date ON intentions(status, target_date);
		`,
	},
}

// Migrate applies the schema. It is safe to run on every start.
func Migrate(ctx context.Context, conn Execer) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := conn.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", i+1, m.name, err)
		}
		log.Debug().Int("step", i+1).Str("name", m.name).Msg("Migration applied")
	}

	log.Info().Int("steps", len(migrations)).Msg("All migrations completed successfully")
	return nil
}
