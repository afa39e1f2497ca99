package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"parish-portal/internal/model"
)

const slotColumns = `id, slot_date, to_char(slot_time, 'HH24:MI'), category, title, capacity, is_auto_approved, points_value, created_at`

const volunteerColumns = `v.id, v.user_id, v.slot_id, v.status, v.is_anonymous, v.was_present, v.points_awarded, v.created_at,
	u.first_name, u.last_name, u.profile_image`

// DutyRepository handles duty slots and their volunteer rosters.
type DutyRepository struct {
	db DBTX
}

func scanSlot(row pgx.Row) (*model.DutySlot, error) {
	var s model.DutySlot
	err := row.Scan(
		&s.ID,
		&s.Date,
		&s.Time,
		&s.Category,
		&s.Title,
		&s.Capacity,
		&s.IsAutoApproved,
		&s.PointsValue,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanVolunteer(row pgx.Row) (*model.DutyVolunteer, error) {
	var v model.DutyVolunteer
	err := row.Scan(
		&v.ID,
		&v.UserID,
		&v.SlotID,
		&v.Status,
		&v.IsAnonymous,
		&v.WasPresent,
		&v.PointsAwarded,
		&v.CreatedAt,
		&v.FirstName,
		&v.LastName,
		&v.ProfileImage,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// CreateSlot inserts a slot and returns it with its generated id.
func (r *DutyRepository) CreateSlot(ctx context.Context, s *model.DutySlot) (*model.DutySlot, error) {
	query := `
		INSERT INTO duty_slots (slot_date, slot_time, category, title, capacity, is_auto_approved, points_value)
		VALUES ($1, $2::text::time, $3, $4, $5, $6, $7)
		RETURNING ` + slotColumns

	created, err := scanSlot(r.db.QueryRow(ctx, query,
		model.DateOf(s.Date), s.Time, string(s.Category), s.Title, s.Capacity, s.IsAutoApproved, s.PointsValue,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create slot: %w", err)
	}
	return created, nil
}

// UpdateSlot overwrites the editable fields of a slot.
func (r *DutyRepository) UpdateSlot(ctx context.Context, s *model.DutySlot) (*model.DutySlot, error) {
	query := `
		UPDATE duty_slots
		SET slot_date = $2, slot_time = $3::text::time, category = $4, title = $5,
			capacity = $6, is_auto_approved = $7, points_value = $8
		WHERE id = $1
		RETURNING ` + slotColumns

	updated, err := scanSlot(r.db.QueryRow(ctx, query,
		s.ID, model.DateOf(s.Date), s.Time, string(s.Category), s.Title, s.Capacity, s.IsAutoApproved, s.PointsValue,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("failed to update slot: %w", err)
	}
	return updated, nil
}

// DeleteSlot removes a slot; its volunteers are removed by cascade.
func (r *DutyRepository) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM duty_slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

// GetSlot retrieves a slot by id.
func (r *DutyRepository) GetSlot(ctx context.Context, id uuid.UUID) (*model.DutySlot, error) {
	return r.getSlot(ctx, `SELECT `+slotColumns+` FROM duty_slots WHERE id = $1`, id)
}

// GetSlotForUpdate retrieves a slot and locks it, serializing sign-ups on it.
func (r *DutyRepository) GetSlotForUpdate(ctx context.Context, id uuid.UUID) (*model.DutySlot, error) {
	return r.getSlot(ctx, `SELECT `+slotColumns+` FROM duty_slots WHERE id = $1 FOR UPDATE`, id)
}

func (r *DutyRepository) getSlot(ctx context.Context, query string, id uuid.UUID) (*model.DutySlot, error) {
	s, err := scanSlot(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	return s, nil
}

// ListSlots returns slots of a category within [from, to], ordered by date then time.
func (r *DutyRepository) ListSlots(ctx context.Context, category model.DutyCategory, from, to time.Time) ([]*model.DutySlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM duty_slots
		WHERE category = $1 AND slot_date BETWEEN $2 AND $3
		ORDER BY slot_date ASC, slot_time ASC, title ASC
	`

	rows, err := r.db.Query(ctx, query, string(category), model.DateOf(from), model.DateOf(to))
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	defer rows.Close()

	var slots []*model.DutySlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating slots: %w", err)
	}
	return slots, nil
}

// ExistsSlotOn reports whether any slot of the category exists on date.
func (r *DutyRepository) ExistsSlotOn(ctx context.Context, category model.DutyCategory, date time.Time) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM duty_slots WHERE category = $1 AND slot_date = $2)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, string(category), model.DateOf(date)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check slot existence: %w", err)
	}
	return exists, nil
}

// CountApproved counts APPROVED volunteers on a slot.
func (r *DutyRepository) CountApproved(ctx context.Context, slotID uuid.UUID) (int, error) {
	const query = `SELECT COUNT(*) FROM duty_volunteers WHERE slot_id = $1 AND status = 'APPROVED'`

	var n int
	if err := r.db.QueryRow(ctx, query, slotID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count approved volunteers: %w", err)
	}
	return n, nil
}

// CreateVolunteer inserts a sign-up. Returns ErrDuplicate if the user is
// already on the slot.
func (r *DutyRepository) CreateVolunteer(ctx context.Context, slotID, userID uuid.UUID, status model.VolunteerStatus, anonymous bool) (*model.DutyVolunteer, error) {
	const insert = `
		INSERT INTO duty_volunteers (slot_id, user_id, status, is_anonymous)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, slot_id) DO NOTHING
		RETURNING id
	`

	var id uuid.UUID
	err := r.db.QueryRow(ctx, insert, slotID, userID, string(status), anonymous).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create volunteer: %w", err)
	}
	return r.GetVolunteer(ctx, id)
}

// GetVolunteer retrieves a volunteer with the user's profile.
func (r *DutyRepository) GetVolunteer(ctx context.Context, id uuid.UUID) (*model.DutyVolunteer, error) {
	query := `
		SELECT ` + volunteerColumns + `
		FROM duty_volunteers v JOIN users u ON u.id = v.user_id
		WHERE v.id = $1
	`
	return r.getVolunteer(ctx, query, id)
}

// GetVolunteerForUpdate retrieves a volunteer and locks its row.
func (r *DutyRepository) GetVolunteerForUpdate(ctx context.Context, id uuid.UUID) (*model.DutyVolunteer, error) {
	query := `
		SELECT ` + volunteerColumns + `
		FROM duty_volunteers v JOIN users u ON u.id = v.user_id
		WHERE v.id = $1
		FOR UPDATE OF v
	`
	return r.getVolunteer(ctx, query, id)
}

// GetVolunteerBySlotAndUser retrieves a user's sign-up on a slot.
func (r *DutyRepository) GetVolunteerBySlotAndUser(ctx context.Context, slotID, userID uuid.UUID) (*model.DutyVolunteer, error) {
	query := `
		SELECT ` + volunteerColumns + `
		FROM duty_volunteers v JOIN users u ON u.id = v.user_id
		WHERE v.slot_id = $1 AND v.user_id = $2
	`
	return r.getVolunteer(ctx, query, slotID, userID)
}

// GetVolunteerBySlotAndUserForUpdate retrieves a user's sign-up on a slot
// and locks its row.
func (r *DutyRepository) GetVolunteerBySlotAndUserForUpdate(ctx context.Context, slotID, userID uuid.UUID) (*model.DutyVolunteer, error) {
	query := `
		SELECT ` + volunteerColumns + `
		FROM duty_volunteers v JOIN users u ON u.id = v.user_id
		WHERE v.slot_id = $1 AND v.user_id = $2
		FOR UPDATE OF v
	`
	return r.getVolunteer(ctx, query, slotID, userID)
}

func (r *DutyRepository) getVolunteer(ctx context.Context, query string, args ...any) (*model.DutyVolunteer, error) {
	v, err := scanVolunteer(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVolunteerNotFound
		}
		return nil, fmt.Errorf("failed to get volunteer: %w", err)
	}
	return v, nil
}

// ListVolunteers returns the rosters of the given slots keyed by slot id,
// each ordered by sign-up time.
func (r *DutyRepository) ListVolunteers(ctx context.Context, slotIDs []uuid.UUID) (map[uuid.UUID][]*model.DutyVolunteer, error) {
	rosters := make(map[uuid.UUID][]*model.DutyVolunteer, len(slotIDs))
	if len(slotIDs) == 0 {
		return rosters, nil
	}

	query := `
		SELECT ` + volunteerColumns + `
		FROM duty_volunteers v JOIN users u ON u.id = v.user_id
		WHERE v.slot_id = ANY($1)
		ORDER BY v.created_at ASC, v.id ASC
	`

	rows, err := r.db.Query(ctx, query, slotIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list volunteers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		v, err := scanVolunteer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan volunteer: %w", err)
		}
		rosters[v.SlotID] = append(rosters[v.SlotID], v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating volunteers: %w", err)
	}
	return rosters, nil
}

// DeleteVolunteer removes a sign-up.
func (r *DutyRepository) DeleteVolunteer(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM duty_volunteers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete volunteer: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrVolunteerNotFound
	}
	return nil
}

// SetVolunteerStatus updates a volunteer's approval status.
func (r *DutyRepository) SetVolunteerStatus(ctx context.Context, id uuid.UUID, status model.VolunteerStatus) error {
	result, err := r.db.Exec(ctx, `UPDATE duty_volunteers SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("failed to update volunteer status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrVolunteerNotFound
	}
	return nil
}

// MarkPresent sets was_present and records whether points have been awarded.
func (r *DutyRepository) MarkPresent(ctx context.Context, id uuid.UUID, pointsAwarded bool) error {
	const query = `
		UPDATE duty_volunteers
		SET was_present = TRUE, points_awarded = $2
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, id, pointsAwarded)
	if err != nil {
		return fmt.Errorf("failed to mark volunteer present: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrVolunteerNotFound
	}
	return nil
}
