package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"parish-portal/internal/model"
	"parish-portal/internal/repository"
)

const (
	maxIntentionLength = 500
	anonymousAuthor    = "Anonymous"
	noReasonGiven      = "No reason given"
)

// IntentionService collects prayer intentions and their review.
type IntentionService struct {
	store         *repository.Store
	notifications *NotificationService
	loc           *time.Location
	now           Clock
}

// NewIntentionService creates a new IntentionService.
func NewIntentionService(store *repository.Store, notifications *NotificationService, loc *time.Location) *IntentionService {
	return &IntentionService{
		store:         store,
		notifications: notifications,
		loc:           loc,
		now:           time.Now,
	}
}

// CreateIntentionRequest is a member's intention. Date is used for mass
// intentions only.
type CreateIntentionRequest struct {
	Content     string
	Type        model.IntentionType
	IsAnonymous bool
	Date        *time.Time
}

// IntentionView is an intention with its author's display name.
type IntentionView struct {
	ID            uuid.UUID             `json:"id"`
	Content       string                `json:"content"`
	Type          model.IntentionType   `json:"type"`
	Status        model.IntentionStatus `json:"status"`
	TargetDate    string                `json:"targetDate"`
	IsAnonymous   bool                  `json:"isAnonymous"`
	AdminResponse *string               `json:"adminResponse"`
	AuthorName    string                `json:"authorName"`
	CreatedAt     time.Time             `json:"createdAt"`
}

func intentionView(in *model.Intention) *IntentionView {
	name := anonymousAuthor
	if !in.IsAnonymous {
		name = in.AuthorFirstName + " " + in.AuthorLastName
	}
	return &IntentionView{
		ID:            in.ID,
		Content:       in.Content,
		Type:          in.Type,
		Status:        in.Status,
		TargetDate:    in.TargetDate.Format(model.DateLayout),
		IsAnonymous:   in.IsAnonymous,
		AdminResponse: in.AdminResponse,
		AuthorName:    name,
		CreatedAt:     in.CreatedAt,
	}
}

func intentionViews(list []*model.Intention) []*IntentionView {
	views := make([]*IntentionView, len(list))
	for i, in := range list {
		views[i] = intentionView(in)
	}
	return views
}

// NextBoxDate returns the first Wednesday or Sunday on or after today.
func NextBoxDate(today time.Time) time.Time {
	d := model.DateOf(today)
	for d.Weekday() != time.Wednesday && d.Weekday() != time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// Create submits an intention for review.
func (s *IntentionService) Create(ctx context.Context, authorID uuid.UUID, req CreateIntentionRequest) (*IntentionView, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, invalid("intention content is required")
	}
	if utf8.RuneCountInString(content) > maxIntentionLength {
		return nil, invalid("intention content exceeds %d characters", maxIntentionLength)
	}

	today := civilToday(s.now, s.loc)
	var target time.Time
	switch req.Type {
	case model.IntentionBox:
		target = NextBoxDate(today)
	case model.IntentionMass:
		if req.Date == nil {
			return nil, invalid("a mass intention needs a date")
		}
		target = model.DateOf(*req.Date)
		if target.Before(today) {
			return nil, invalid("cannot book an intention for a past date")
		}
	default:
		return nil, invalid("unknown intention type %q", req.Type)
	}

	exists, err := s.store.Users.Exists(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, notFound("user not found")
	}

	in, err := s.store.Intentions.Create(ctx, &model.Intention{
		AuthorID:    authorID,
		Content:     content,
		Type:        req.Type,
		Status:      model.IntentionPending,
		TargetDate:  target,
		IsAnonymous: req.IsAnonymous,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("intention_id", in.ID.String()).
		Str("type", string(in.Type)).
		Str("target_date", target.Format(model.DateLayout)).
		Msg("Intention submitted")
	return intentionView(in), nil
}

// MyIntentions lists the author's intentions, newest first.
func (s *IntentionService) MyIntentions(ctx context.Context, authorID uuid.UUID) ([]*IntentionView, error) {
	list, err := s.store.Intentions.ListByAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}
	return intentionViews(list), nil
}

// Pending lists intentions awaiting review by target date.
func (s *IntentionService) Pending(ctx context.Context) ([]*IntentionView, error) {
	list, err := s.store.Intentions.ListByStatus(ctx, model.IntentionPending)
	if err != nil {
		return nil, err
	}
	return intentionViews(list), nil
}

// ApprovedFor lists the approved intentions to be read on date.
func (s *IntentionService) ApprovedFor(ctx context.Context, date time.Time) ([]*IntentionView, error) {
	list, err := s.store.Intentions.ListApprovedOn(ctx, model.DateOf(date))
	if err != nil {
		return nil, err
	}
	return intentionViews(list), nil
}

// Review approves or rejects an intention and notifies its author.
func (s *IntentionService) Review(ctx context.Context, id uuid.UUID, approved bool, adminResponse string) (*IntentionView, error) {
	adminResponse = strings.TrimSpace(adminResponse)

	var (
		view *IntentionView
		sent *model.Notification
	)
	err := s.store.InTx(ctx, func(store *repository.Store) error {
		in, err := store.Intentions.Get(ctx, id)
		if err != nil {
			return fromRepo(err)
		}
		if in.Status == model.IntentionCompleted {
			return conflict("intention has already been read")
		}

		var response *string
		if adminResponse != "" {
			response = &adminResponse
		}

		notice := Notice{RecipientID: in.AuthorID, RelatedEntityID: &in.ID}
		status := model.IntentionRejected
		if approved {
			status = model.IntentionApproved
			notice.Title = "Intention accepted ✅"
			notice.Message = fmt.Sprintf("Your intention for %s has been accepted.", in.TargetDate.Format(model.DateLayout))
			notice.Type = model.NotifySuccess
		} else {
			reason := adminResponse
			if reason == "" {
				reason = noReasonGiven
			}
			notice.Title = "Intention rejected ⚠️"
			notice.Message = "Message from the parish office: " + reason
			notice.Type = model.NotifyWarning
		}

		if err := store.Intentions.Review(ctx, id, status, response); err != nil {
			return fromRepo(err)
		}
		if sent, err = s.notifications.sendTx(ctx, store, notice); err != nil {
			return err
		}

		in.Status = status
		if response != nil {
			in.AdminResponse = response
		}
		view = intentionView(in)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("intention_id", id.String()).
		Bool("approved", approved).
		Msg("Intention reviewed")
	s.notifications.deliver(ctx, sent)
	return view, nil
}

// ArchivePast marks approved intentions dated today or earlier as
// completed.
func (s *IntentionService) ArchivePast(ctx context.Context) (int, error) {
	n, err := s.store.Intentions.ArchiveUpTo(ctx, civilToday(s.now, s.loc))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Info().Int64("count", n).Msg("Archived past intentions")
	}
	return int(n), nil
}
