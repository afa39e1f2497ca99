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

	"parish-portal/internal/game/parimutuel"
	"parish-portal/internal/model"
	"parish-portal/internal/repository"
)

const (
	minTopicLength = 10
	maxTopicLength = 500
	minBetOptions  = 2
	maxBetOptions  = 10
)

// BettingService runs parimutuel bets between members.
type BettingService struct {
	store         *repository.Store
	points        *PointsService
	notifications *NotificationService
	now           Clock
}

// NewBettingService creates a new BettingService.
func NewBettingService(store *repository.Store, points *PointsService, notifications *NotificationService) *BettingService {
	return &BettingService{
		store:         store,
		points:        points,
		notifications: notifications,
		now:           time.Now,
	}
}

// CreateBetRequest holds the fields of a new bet.
type CreateBetRequest struct {
	Topic           string    `json:"topic"`
	Options         []string  `json:"options"`
	BettingDeadline time.Time `json:"bettingDeadline"`
	ResolutionDate  time.Time `json:"resolutionDate"`
}

// BetView is a bet with its pool aggregates and the viewer's own entry.
type BetView struct {
	ID              uuid.UUID       `json:"id"`
	CreatorID       uuid.UUID       `json:"creatorId"`
	Topic           string          `json:"topic"`
	Options         []string        `json:"options"`
	Status          model.BetStatus `json:"status"`
	BettingDeadline time.Time       `json:"bettingDeadline"`
	ResolutionDate  time.Time       `json:"resolutionDate"`
	WinningOption   *string         `json:"winningOption"`
	CreatedAt       time.Time       `json:"createdAt"`
	ResolvedAt      *time.Time      `json:"resolvedAt"`
	parimutuel.Summary
	UserEntry *model.BetEntry `json:"userEntry"`
}

func stakesOf(entries []*model.BetEntry) []parimutuel.Stake {
	stakes := make([]parimutuel.Stake, len(entries))
	for i, e := range entries {
		stakes[i] = parimutuel.Stake{ID: e.ID, Option: e.SelectedOption, Amount: e.Amount}
	}
	return stakes
}

func buildBetView(b *model.Bet, entries []*model.BetEntry, viewerID uuid.UUID) *BetView {
	view := &BetView{
		ID:              b.ID,
		CreatorID:       b.CreatorID,
		Topic:           b.Topic,
		Options:         b.Options,
		Status:          b.Status,
		BettingDeadline: b.BettingDeadline,
		ResolutionDate:  b.ResolutionDate,
		WinningOption:   b.WinningOption,
		CreatedAt:       b.CreatedAt,
		ResolvedAt:      b.ResolvedAt,
		Summary:         parimutuel.Summarize(b.Options, stakesOf(entries)),
	}
	if viewerID != uuid.Nil {
		for _, e := range entries {
			if e.UserID == viewerID {
				view.UserEntry = e
				break
			}
		}
	}
	return view
}

// normalizeOptions trims options and rejects blanks and duplicates.
func normalizeOptions(options []string) ([]string, error) {
	if len(options) < minBetOptions || len(options) > maxBetOptions {
		return nil, invalid("a bet needs between %d and %d options", minBetOptions, maxBetOptions)
	}

	seen := make(map[string]bool, len(options))
	out := make([]string, 0, len(options))
	for _, o := range options {
		o = strings.TrimSpace(o)
		if o == "" {
			return nil, invalid("options must not be blank")
		}
		if seen[o] {
			return nil, invalid("duplicate option %q", o)
		}
		seen[o] = true
		out = append(out, o)
	}
	return out, nil
}

// CreateBet opens a new bet.
func (s *BettingService) CreateBet(ctx context.Context, creatorID uuid.UUID, req CreateBetRequest) (*BetView, error) {
	topic := strings.TrimSpace(req.Topic)
	if n := utf8.RuneCountInString(topic); n < minTopicLength || n > maxTopicLength {
		return nil, invalid("topic must be between %d and %d characters", minTopicLength, maxTopicLength)
	}
	options, err := normalizeOptions(req.Options)
	if err != nil {
		return nil, err
	}
	if !req.BettingDeadline.After(s.now()) {
		return nil, invalid("betting deadline must be in the future")
	}
	if req.ResolutionDate.Before(req.BettingDeadline) {
		return nil, invalid("resolution date must not be before the betting deadline")
	}

	b, err := s.store.Bets.Create(ctx, repository.NewBet{
		CreatorID:       creatorID,
		Topic:           topic,
		Options:         options,
		BettingDeadline: req.BettingDeadline,
		ResolutionDate:  req.ResolutionDate,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("bet_id", b.ID.String()).
		Str("creator_id", creatorID.String()).
		Int("options", len(options)).
		Msg("Bet created")
	return buildBetView(b, nil, creatorID), nil
}

// PlaceBet stakes amount points of the user on option. The stake is
// debited in the same transaction and never overdraws the balance.
func (s *BettingService) PlaceBet(ctx context.Context, userID, betID uuid.UUID, option string, amount int64) (*model.BetEntry, error) {
	if amount <= 0 {
		return nil, invalid("amount must be positive")
	}

	var entry *model.BetEntry
	err := s.store.InTx(ctx, func(store *repository.Store) error {
		b, err := store.Bets.GetForUpdate(ctx, betID)
		if err != nil {
			return fromRepo(err)
		}
		if b.Status != model.BetOpen {
			return conflict("bet is not open for betting")
		}
		if !s.now().Before(b.BettingDeadline) {
			return conflict("betting deadline has passed")
		}
		if !b.HasOption(option) {
			return invalid("invalid option selected")
		}
		exists, err := store.Users.Exists(ctx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return notFound("user not found")
		}

		entry, err = store.Bets.CreateEntry(ctx, userID, betID, option, amount)
		if err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return conflict("you have already placed a bet on this")
			}
			return err
		}

		_, err = s.points.awardTx(ctx, store, AwardRequest{
			UserID:      userID,
			Amount:      -amount,
			Type:        model.TxBetEntry,
			Description: fmt.Sprintf("Bet: %s", b.Topic),
			SourceID:    &b.ID,
			Guarded:     true,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("bet_id", betID.String()).
		Str("user_id", userID.String()).
		Str("option", option).
		Int64("amount", amount).
		Msg("Bet placed")
	return entry, nil
}

// ResolveBet settles a bet on winningOption and credits the winners. Only
// the creator or an admin may resolve.
func (s *BettingService) ResolveBet(ctx context.Context, requesterID, betID uuid.UUID, winningOption string, isAdmin bool) (*BetView, error) {
	var (
		view *BetView
		sent []*model.Notification
	)
	err := s.store.InTx(ctx, func(store *repository.Store) error {
		b, err := store.Bets.GetForUpdate(ctx, betID)
		if err != nil {
			return fromRepo(err)
		}
		if !isAdmin && b.CreatorID != requesterID {
			return forbidden("only the bet creator or an admin can resolve this bet")
		}
		if b.Status.Terminal() {
			return conflict("bet is already %s", b.Status)
		}
		if !b.HasOption(winningOption) {
			return invalid("invalid winning option")
		}

		entries, err := store.Bets.ListEntries(ctx, betID)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]*model.BetEntry, len(entries))
		for _, e := range entries {
			byID[e.ID] = e
		}

		payouts := parimutuel.Distribute(stakesOf(entries), winningOption)
		if len(payouts) == 0 && len(entries) > 0 {
			log.Warn().Str("bet_id", betID.String()).Msg("No winners, pool forfeited")
		}
		for _, p := range payouts {
			e := byID[p.ID]
			if err := store.Bets.SettleEntry(ctx, e.ID, p.Winnings); err != nil {
				return fromRepo(err)
			}
			winnings := p.Winnings
			e.Winnings, e.Settled = &winnings, true

			if p.Winnings == 0 {
				continue
			}
			if _, err := s.points.awardTx(ctx, store, AwardRequest{
				UserID:      e.UserID,
				Amount:      p.Winnings,
				Type:        model.TxBetWin,
				Description: fmt.Sprintf("Bet won: %s", b.Topic),
				SourceID:    &b.ID,
			}); err != nil {
				return err
			}

			n, err := s.notifications.sendTx(ctx, store, Notice{
				RecipientID:     e.UserID,
				Title:           "Bet won 🎉",
				Message:         fmt.Sprintf("You won %d points on %q.", p.Winnings, b.Topic),
				Type:            model.NotifySuccess,
				RelatedEntityID: &b.ID,
			})
			if err != nil {
				return err
			}
			sent = append(sent, n)
		}

		resolved, err := store.Bets.Resolve(ctx, betID, winningOption, s.now())
		if err != nil {
			return fromRepo(err)
		}
		view = buildBetView(resolved, entries, requesterID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("bet_id", betID.String()).
		Str("winning_option", winningOption).
		Int("winners", len(sent)).
		Int64("pool", view.TotalPool).
		Msg("Bet resolved")
	s.notifications.deliver(ctx, sent...)
	return view, nil
}

// CancelBet cancels an unresolved bet and refunds every stake. Admin only.
func (s *BettingService) CancelBet(ctx context.Context, betID, requesterID uuid.UUID, isAdmin bool) error {
	if !isAdmin {
		return forbidden("only admins can cancel bets")
	}

	var sent []*model.Notification
	err := s.store.InTx(ctx, func(store *repository.Store) error {
		b, err := store.Bets.GetForUpdate(ctx, betID)
		if err != nil {
			return fromRepo(err)
		}
		if b.Status.Terminal() {
			return conflict("cannot cancel a bet that is already %s", b.Status)
		}

		entries, err := store.Bets.ListEntries(ctx, betID)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := store.Bets.SettleEntry(ctx, e.ID, e.Amount); err != nil {
				return fromRepo(err)
			}
			if _, err := s.points.awardTx(ctx, store, AwardRequest{
				UserID:      e.UserID,
				Amount:      e.Amount,
				Type:        model.TxBetRefund,
				Description: fmt.Sprintf("Bet cancelled: %s", b.Topic),
				SourceID:    &b.ID,
				CreatedBy:   &requesterID,
			}); err != nil {
				return err
			}

			n, err := s.notifications.sendTx(ctx, store, Notice{
				RecipientID:     e.UserID,
				Title:           "Bet cancelled",
				Message:         fmt.Sprintf("%q was cancelled. Your stake of %d points has been refunded.", b.Topic, e.Amount),
				Type:            model.NotifyInfo,
				RelatedEntityID: &b.ID,
			})
			if err != nil {
				return err
			}
			sent = append(sent, n)
		}

		return fromRepo(store.Bets.SetStatus(ctx, betID, model.BetCancelled))
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("bet_id", betID.String()).
		Str("admin_id", requesterID.String()).
		Int("refunds", len(sent)).
		Msg("Bet cancelled")
	s.notifications.deliver(ctx, sent...)
	return nil
}

// AutoLockExpiredBets locks every OPEN bet whose deadline has passed.
func (s *BettingService) AutoLockExpiredBets(ctx context.Context) (int, error) {
	n, err := s.store.Bets.LockExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Info().Int64("count", n).Msg("Auto-locked expired bets")
	}
	return int(n), nil
}

// ActiveBets lists OPEN and LOCKED bets, newest first.
func (s *BettingService) ActiveBets(ctx context.Context, userID uuid.UUID) ([]*BetView, error) {
	bets, err := s.store.Bets.ListByStatus(ctx, []model.BetStatus{model.BetOpen, model.BetLocked}, false)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, bets, userID)
}

// SettledBets lists RESOLVED and CANCELLED bets by resolution date, latest
// first.
func (s *BettingService) SettledBets(ctx context.Context) ([]*BetView, error) {
	bets, err := s.store.Bets.ListByStatus(ctx, []model.BetStatus{model.BetResolved, model.BetCancelled}, true)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, bets, uuid.Nil)
}

// GetBet returns one bet as seen by userID.
func (s *BettingService) GetBet(ctx context.Context, betID, userID uuid.UUID) (*BetView, error) {
	b, err := s.store.Bets.Get(ctx, betID)
	if err != nil {
		return nil, fromRepo(err)
	}
	entries, err := s.store.Bets.ListEntries(ctx, betID)
	if err != nil {
		return nil, err
	}
	return buildBetView(b, entries, userID), nil
}

// UserBets lists the bets the user has staked on.
func (s *BettingService) UserBets(ctx context.Context, userID uuid.UUID) ([]*BetView, error) {
	bets, err := s.store.Bets.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, bets, userID)
}

func (s *BettingService) views(ctx context.Context, bets []*model.Bet, viewerID uuid.UUID) ([]*BetView, error) {
	ids := make([]uuid.UUID, len(bets))
	for i, b := range bets {
		ids[i] = b.ID
	}
	entries, err := s.store.Bets.ListEntriesForBets(ctx, ids)
	if err != nil {
		return nil, err
	}

	byBet := make(map[uuid.UUID][]*model.BetEntry, len(bets))
	for _, e := range entries {
		byBet[e.BetID] = append(byBet[e.BetID], e)
	}

	views := make([]*BetView, len(bets))
	for i, b := range bets {
		views[i] = buildBetView(b, byBet[b.ID], viewerID)
	}
	return views, nil
}
