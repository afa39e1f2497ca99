package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"parish-portal/internal/model"
	"parish-portal/internal/repository"
)

// AnonymousVolunteerName replaces the name of an anonymous volunteer.
const AnonymousVolunteerName = "Anonymous Participant"

const (
	liturgyTime     = "18:00"
	kitchenTime     = "14:00"
	kitchenTitle    = "Przygotowanie kolacji"
	timeLayout      = "15:04"
	maxSlotTitle    = 255
	kitchenSeats    = 5
	kitchenPoints   = 1
	readingTitle    = "Czytanie 1"
	psalmTitle      = "Psalm"
	liturgyLength   = 7
	liturgyCapacity = 1
)

// DutyService schedules service slots and manages volunteer sign-ups.
type DutyService struct {
	store         *repository.Store
	points        *PointsService
	notifications *NotificationService
	loc           *time.Location
	now           Clock
}

// NewDutyService creates a new DutyService. Civil dates are evaluated in loc.
func NewDutyService(store *repository.Store, points *PointsService, notifications *NotificationService, loc *time.Location) *DutyService {
	return &DutyService{
		store:         store,
		points:        points,
		notifications: notifications,
		loc:           loc,
		now:           time.Now,
	}
}

// SlotQuery selects slots for listing.
type SlotQuery struct {
	Category    model.DutyCategory
	From        time.Time
	To          time.Time
	RequesterID uuid.UUID
	IsAdmin     bool
	IncludePast bool
}

// SlotInput holds the editable fields of a slot.
type SlotInput struct {
	Date           time.Time
	Time           string
	Category       model.DutyCategory
	Title          string
	Capacity       int
	IsAutoApproved bool
	PointsValue    int
}

// VolunteerView is a roster entry as shown to a particular requester.
type VolunteerView struct {
	ID           uuid.UUID             `json:"id"`
	DisplayName  string                `json:"displayName"`
	Status       model.VolunteerStatus `json:"status"`
	WasPresent   bool                  `json:"wasPresent"`
	ProfileImage *string               `json:"profileImage,omitempty"`
}

// SlotView is a slot with its roster and the requester's sign-up state.
type SlotView struct {
	ID                  uuid.UUID          `json:"id"`
	Date                string             `json:"date"`
	Time                string             `json:"time"`
	Category            model.DutyCategory `json:"category"`
	Title               string             `json:"title"`
	Capacity            int                `json:"capacity"`
	ApprovedCount       int                `json:"approvedCount"`
	IsAutoApproved      bool               `json:"isAutoApproved"`
	PointsValue         int                `json:"pointsValue"`
	Volunteers          []VolunteerView    `json:"volunteers"`
	CurrentUserSignedUp bool               `json:"currentUserSignedUp"`
}

// VolunteerDisplay renders v for requester. The real name and picture are
// shown unless the volunteer is anonymous and the requester is neither an
// admin nor the volunteer.
func VolunteerDisplay(v *model.DutyVolunteer, requesterID uuid.UUID, requesterIsAdmin bool) VolunteerView {
	view := VolunteerView{
		ID:         v.ID,
		Status:     v.Status,
		WasPresent: v.WasPresent,
	}
	if !v.IsAnonymous || requesterIsAdmin || v.UserID == requesterID {
		view.DisplayName = v.FirstName + " " + v.LastName
		view.ProfileImage = v.ProfileImage
	} else {
		view.DisplayName = AnonymousVolunteerName
	}
	return view
}

// LiturgyDay is one day of a generated liturgy week.
type LiturgyDay struct {
	Date   time.Time
	Titles []string
}

// WeekMonday returns the Monday on or before date.
func WeekMonday(date time.Time) time.Time {
	d := model.DateOf(date)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// LiturgyWeekPlan returns the readings to schedule for the week containing
// date. Saturday has none; Tuesday adds the psalm.
func LiturgyWeekPlan(date time.Time) []LiturgyDay {
	monday := WeekMonday(date)

	plan := make([]LiturgyDay, 0, liturgyLength-1)
	for i := 0; i < liturgyLength; i++ {
		day := monday.AddDate(0, 0, i)
		switch day.Weekday() {
		case time.Saturday:
			continue
		case time.Tuesday:
			plan = append(plan, LiturgyDay{Date: day, Titles: []string{readingTitle, psalmTitle}})
		default:
			plan = append(plan, LiturgyDay{Date: day, Titles: []string{readingTitle}})
		}
	}
	return plan
}

func validateSlot(in *SlotInput) error {
	in.Title = strings.TrimSpace(in.Title)
	switch {
	case in.Title == "":
		return invalid("title is required")
	case utf8.RuneCountInString(in.Title) > maxSlotTitle:
		return invalid("title exceeds %d characters", maxSlotTitle)
	case in.Date.IsZero():
		return invalid("date is required")
	case !in.Category.Valid():
		return invalid("unknown category %q", in.Category)
	case in.Capacity < 1:
		return invalid("capacity must be at least 1")
	case in.PointsValue < 0:
		return invalid("points value must not be negative")
	}
	if _, err := time.Parse(timeLayout, in.Time); err != nil {
		return invalid("time must be HH:MM")
	}
	return nil
}

func (in SlotInput) slot() *model.DutySlot {
	return &model.DutySlot{
		Date:           model.DateOf(in.Date),
		Time:           in.Time,
		Category:       in.Category,
		Title:          in.Title,
		Capacity:       in.Capacity,
		IsAutoApproved: in.IsAutoApproved,
		PointsValue:    in.PointsValue,
	}
}

// GetSlots lists the slots of a category in [From, To]. Unless IncludePast
// is set, slots before today are left out. An empty range yields no slots.
func (s *DutyService) GetSlots(ctx context.Context, q SlotQuery) ([]*SlotView, error) {
	if !q.Category.Valid() {
		return nil, invalid("unknown category %q", q.Category)
	}
	from, to := model.DateOf(q.From), model.DateOf(q.To)
	if !q.IncludePast {
		if today := civilToday(s.now, s.loc); from.Before(today) {
			from = today
		}
	}
	if from.After(to) {
		return []*SlotView{}, nil
	}

	slots, err := s.store.Duties.ListSlots(ctx, q.Category, from, to)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, s.store, slots, q.RequesterID, q.IsAdmin)
}

func (s *DutyService) views(ctx context.Context, store *repository.Store, slots []*model.DutySlot, requesterID uuid.UUID, isAdmin bool) ([]*SlotView, error) {
	ids := make([]uuid.UUID, len(slots))
	for i, slot := range slots {
		ids[i] = slot.ID
	}
	rosters, err := store.Duties.ListVolunteers(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]*SlotView, len(slots))
	for i, slot := range slots {
		views[i] = buildSlotView(slot, rosters[slot.ID], requesterID, isAdmin)
	}
	return views, nil
}

func (s *DutyService) view(ctx context.Context, store *repository.Store, slot *model.DutySlot, requesterID uuid.UUID, isAdmin bool) (*SlotView, error) {
	views, err := s.views(ctx, store, []*model.DutySlot{slot}, requesterID, isAdmin)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func buildSlotView(slot *model.DutySlot, roster []*model.DutyVolunteer, requesterID uuid.UUID, isAdmin bool) *SlotView {
	view := &SlotView{
		ID:             slot.ID,
		Date:           slot.Date.Format(model.DateLayout),
		Time:           slot.Time,
		Category:       slot.Category,
		Title:          slot.Title,
		Capacity:       slot.Capacity,
		IsAutoApproved: slot.IsAutoApproved,
		PointsValue:    slot.PointsValue,
		Volunteers:     make([]VolunteerView, 0, len(roster)),
	}
	for _, v := range roster {
		if v.Status == model.VolunteerApproved {
			view.ApprovedCount++
		}
		if requesterID != uuid.Nil && v.UserID == requesterID {
			view.CurrentUserSignedUp = true
		}
		view.Volunteers = append(view.Volunteers, VolunteerDisplay(v, requesterID, isAdmin))
	}
	return view
}

// SignUp adds the user to a slot. The sign-up is approved immediately when
// the slot is auto-approved and still has a free seat, and is pending
// otherwise.
func (s *DutyService) SignUp(ctx context.Context, slotID, userID uuid.UUID, isAnonymous bool) (*SlotView, error) {
	var view *SlotView
	err := s.store.InTx(ctx, func(store *repository.Store) error {
		slot, err := store.Duties.GetSlotForUpdate(ctx, slotID)
		if err != nil {
			return fromRepo(err)
		}
		exists, err := store.Users.Exists(ctx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return notFound("user not found")
		}

		approved, err := store.Duties.CountApproved(ctx, slotID)
		if err != nil {
			return err
		}
		status := model.VolunteerPending
		if slot.IsAutoApproved && approved < slot.Capacity {
			status = model.VolunteerApproved
		}

		if _, err := store.Duties.CreateVolunteer(ctx, slotID, userID, status, isAnonymous); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return conflict("already signed up for this slot")
			}
			return err
		}

		log.Info().
			Str("slot_id", slotID.String()).
			Str("user_id", userID.String()).
			Str("status", string(status)).
			Msg("Volunteer signed up")

		view, err = s.view(ctx, store, slot, userID, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// CancelSignUp removes the user's sign-up. A sign-up whose presence has
// been confirmed cannot be cancelled.
func (s *DutyService) CancelSignUp(ctx context.Context, slotID, userID uuid.UUID) error {
	return s.store.InTx(ctx, func(store *repository.Store) error {
		v, err := store.Duties.GetVolunteerBySlotAndUserForUpdate(ctx, slotID, userID)
		if err != nil {
			if errors.Is(err, repository.ErrVolunteerNotFound) {
				return notFound("not signed up for this slot")
			}
			return err
		}
		if v.WasPresent {
			return conflict("presence already confirmed; the sign-up cannot be cancelled")
		}
		if err := store.Duties.DeleteVolunteer(ctx, v.ID); err != nil {
			return fromRepo(err)
		}

		log.Info().
			Str("slot_id", slotID.String()).
			Str("user_id", userID.String()).
			Msg("Volunteer cancelled sign-up")
		return nil
	})
}

// ApproveVolunteer approves a pending sign-up and notifies the volunteer.
func (s *DutyService) ApproveVolunteer(ctx context.Context, volunteerID uuid.UUID) error {
	var sent *model.Notification
	err := s.store.InTx(ctx, func(store *repository.Store) error {
		v, err := store.Duties.GetVolunteerForUpdate(ctx, volunteerID)
		if err != nil {
			return fromRepo(err)
		}
		if v.Status == model.VolunteerApproved {
			return conflict("volunteer is already approved")
		}
		if err := store.Duties.SetVolunteerStatus(ctx, v.ID, model.VolunteerApproved); err != nil {
			return fromRepo(err)
		}

		slot, err := store.Duties.GetSlot(ctx, v.SlotID)
		if err != nil {
			return fromRepo(err)
		}

		sent, err = s.notifications.sendTx(ctx, store, Notice{
			RecipientID:     v.UserID,
			Title:           "Sign-up approved ✅",
			Message:         fmt.Sprintf("Your sign-up for %q (%s) has been approved.", slot.Title, slot.Date.Format(model.DateLayout)),
			Type:            model.NotifySuccess,
			RelatedEntityID: &slot.ID,
		})
		return err
	})
	if err != nil {
		return err
	}

	log.Info().Str("volunteer_id", volunteerID.String()).Msg("Volunteer approved")
	s.notifications.deliver(ctx, sent)
	return nil
}

// ConfirmPresence marks a volunteer present and credits the slot's points
// the first time. Repeated confirmations do not credit again.
func (s *DutyService) ConfirmPresence(ctx context.Context, volunteerID, adminID uuid.UUID) error {
	var sent *model.Notification
	err := s.store.InTx(ctx, func(store *repository.Store) error {
		v, err := store.Duties.GetVolunteerForUpdate(ctx, volunteerID)
		if err != nil {
			return fromRepo(err)
		}
		slot, err := store.Duties.GetSlot(ctx, v.SlotID)
		if err != nil {
			return fromRepo(err)
		}

		awarded := v.PointsAwarded
		if !awarded && slot.PointsValue > 0 {
			date := slot.Date.Format(model.DateLayout)
			_, err := s.points.awardTx(ctx, store, AwardRequest{
				UserID:      v.UserID,
				Amount:      int64(slot.PointsValue),
				Type:        model.TxTaskCompletion,
				Description: fmt.Sprintf("Duty: %s (%s)", slot.Title, date),
				SourceID:    &slot.ID,
				CreatedBy:   &adminID,
			})
			if err != nil {
				return err
			}
			awarded = true

			sent, err = s.notifications.sendTx(ctx, store, Notice{
				RecipientID:     v.UserID,
				Title:           "Points for service 🎉",
				Message:         fmt.Sprintf("You earned +%d points for %q (%s).", slot.PointsValue, slot.Title, date),
				Type:            model.NotifySuccess,
				RelatedEntityID: &slot.ID,
			})
			if err != nil {
				return err
			}
		}

		return fromRepo(store.Duties.MarkPresent(ctx, v.ID, awarded))
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("volunteer_id", volunteerID.String()).
		Str("admin_id", adminID.String()).
		Bool("credited", sent != nil).
		Msg("Volunteer presence confirmed")
	s.notifications.deliver(ctx, sent)
	return nil
}

// CreateSlot creates a slot.
func (s *DutyService) CreateSlot(ctx context.Context, in SlotInput) (*SlotView, error) {
	if err := validateSlot(&in); err != nil {
		return nil, err
	}
	slot, err := s.store.Duties.CreateSlot(ctx, in.slot())
	if err != nil {
		return nil, err
	}
	return buildSlotView(slot, nil, uuid.Nil, true), nil
}

// UpdateSlot overwrites a slot. Capacity cannot drop below the number of
// approved volunteers.
func (s *DutyService) UpdateSlot(ctx context.Context, slotID uuid.UUID, in SlotInput) (*SlotView, error) {
	if err := validateSlot(&in); err != nil {
		return nil, err
	}

	var view *SlotView
	err := s.store.InTx(ctx, func(store *repository.Store) error {
		if _, err := store.Duties.GetSlotForUpdate(ctx, slotID); err != nil {
			return fromRepo(err)
		}
		approved, err := store.Duties.CountApproved(ctx, slotID)
		if err != nil {
			return err
		}
		if in.Capacity < approved {
			return conflict("cannot reduce capacity below %d approved volunteers", approved)
		}

		slot := in.slot()
		slot.ID = slotID
		updated, err := store.Duties.UpdateSlot(ctx, slot)
		if err != nil {
			return fromRepo(err)
		}
		view, err = s.view(ctx, store, updated, uuid.Nil, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// DeleteSlot deletes a slot together with its roster.
func (s *DutyService) DeleteSlot(ctx context.Context, slotID uuid.UUID) error {
	if err := s.store.Duties.DeleteSlot(ctx, slotID); err != nil {
		return fromRepo(err)
	}
	log.Info().Str("slot_id", slotID.String()).Msg("Duty slot deleted")
	return nil
}

// GenerateLiturgyWeek creates the reading slots of the week containing
// date. Days that already have a liturgy slot are skipped, so running it
// twice creates nothing the second time.
func (s *DutyService) GenerateLiturgyWeek(ctx context.Context, date time.Time) ([]*SlotView, error) {
	views := []*SlotView{}
	err := s.store.InTx(ctx, func(store *repository.Store) error {
		for _, day := range LiturgyWeekPlan(date) {
			exists, err := store.Duties.ExistsSlotOn(ctx, model.DutyLiturgy, day.Date)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			for _, title := range day.Titles {
				slot, err := store.Duties.CreateSlot(ctx, &model.DutySlot{
					Date:     day.Date,
					Time:     liturgyTime,
					Category: model.DutyLiturgy,
					Title:    title,
					Capacity: liturgyCapacity,
				})
				if err != nil {
					return err
				}
				views = append(views, buildSlotView(slot, nil, uuid.Nil, true))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("week_of", WeekMonday(date).Format(model.DateLayout)).
		Int("created", len(views)).
		Msg("Liturgy week generated")
	return views, nil
}

// GenerateSundayKitchen creates the Sunday supper slot.
func (s *DutyService) GenerateSundayKitchen(ctx context.Context, sunday time.Time) (*SlotView, error) {
	sunday = model.DateOf(sunday)
	if sunday.Weekday() != time.Sunday {
		return nil, invalid("date must be a Sunday")
	}

	var view *SlotView
	err := s.store.InTx(ctx, func(store *repository.Store) error {
		exists, err := store.Duties.ExistsSlotOn(ctx, model.DutyKitchen, sunday)
		if err != nil {
			return err
		}
		if exists {
			return conflict("a kitchen slot already exists on %s", sunday.Format(model.DateLayout))
		}

		slot, err := store.Duties.CreateSlot(ctx, &model.DutySlot{
			Date:           sunday,
			Time:           kitchenTime,
			Category:       model.DutyKitchen,
			Title:          kitchenTitle,
			Capacity:       kitchenSeats,
			IsAutoApproved: true,
			PointsValue:    kitchenPoints,
		})
		if err != nil {
			return err
		}
		view = buildSlotView(slot, nil, uuid.Nil, true)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}
