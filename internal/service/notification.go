package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"parish-portal/internal/model"
	"parish-portal/internal/notify"
	"parish-portal/internal/repository"
)

const (
	inboxLimit         = 100
	maxTitleLength     = 255
	maxMessageLength   = 1000
	defaultPushTimeout = 10 * time.Second
)

// Pusher mirrors a notification to an external chat.
type Pusher interface {
	Push(ctx context.Context, chatID int64, n *model.Notification) error
}

// Notice is a notification to be sent.
type Notice struct {
	RecipientID     uuid.UUID
	Title           string
	Message         string
	Type            model.NotificationType
	RelatedEntityID *uuid.UUID
}

// NotificationService persists notifications and fans them out to live
// channels once the surrounding transaction has committed.
type NotificationService struct {
	store       *repository.Store
	hub         *notify.Hub
	pusher      Pusher
	pushTimeout time.Duration
}

// NewNotificationService creates a new NotificationService. hub and
// pusher may be nil.
func NewNotificationService(store *repository.Store, hub *notify.Hub, pusher Pusher) *NotificationService {
	return &NotificationService{
		store:       store,
		hub:         hub,
		pusher:      pusher,
		pushTimeout: defaultPushTimeout,
	}
}

// Send stores a notification and delivers it live.
func (s *NotificationService) Send(ctx context.Context, notice Notice) (*model.Notification, error) {
	var n *model.Notification
	err := s.store.InTx(ctx, func(store *repository.Store) error {
		var err error
		n, err = s.sendTx(ctx, store, notice)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.deliver(ctx, n)
	return n, nil
}

// sendTx stores a notification inside the caller's transaction. The caller
// passes the result to deliver after commit.
func (s *NotificationService) sendTx(ctx context.Context, store *repository.Store, notice Notice) (*model.Notification, error) {
	title := strings.TrimSpace(notice.Title)
	if title == "" {
		return nil, invalid("notification title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return nil, invalid("notification title exceeds %d characters", maxTitleLength)
	}
	if utf8.RuneCountInString(notice.Message) > maxMessageLength {
		return nil, invalid("notification message exceeds %d characters", maxMessageLength)
	}
	if notice.Type == "" {
		notice.Type = model.NotifyInfo
	}

	n, err := store.Notifications.Create(ctx, &model.Notification{
		RecipientID:     notice.RecipientID,
		Title:           title,
		Message:         notice.Message,
		Type:            notice.Type,
		RelatedEntityID: notice.RelatedEntityID,
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// deliver publishes committed notifications to the hub and the Telegram
// pusher. Failures are logged and never returned.
func (s *NotificationService) deliver(ctx context.Context, list ...*model.Notification) {
	for _, n := range list {
		if n == nil {
			continue
		}
		if s.hub != nil {
			s.hub.Publish(n)
		}
		if s.pusher != nil {
			s.push(ctx, n)
		}
	}
}

func (s *NotificationService) push(ctx context.Context, n *model.Notification) {
	u, err := s.store.Users.GetByID(ctx, n.RecipientID)
	if err != nil {
		log.Warn().Err(err).Str("notification_id", n.ID.String()).Msg("Failed to load recipient for push")
		return
	}
	if u.TelegramChatID == nil {
		return
	}

	chatID := *u.TelegramChatID
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.pushTimeout)
	go func() {
		defer cancel()
		if err := s.pusher.Push(pushCtx, chatID, n); err != nil {
			log.Warn().Err(err).
				Str("notification_id", n.ID.String()).
				Int64("chat_id", chatID).
				Msg("Telegram push failed")
		}
	}()
}

// List returns the user's newest notifications.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID) ([]*model.Notification, error) {
	return s.store.Notifications.ListByRecipient(ctx, userID, inboxLimit)
}

// UnreadCount returns the number of unread notifications.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.store.Notifications.CountUnread(ctx, userID)
}

// MarkAsRead marks one of the user's notifications as read.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.store.InTx(ctx, func(store *repository.Store) error {
		n, err := store.Notifications.Get(ctx, id)
		if err != nil {
			return fromRepo(err)
		}
		if n.RecipientID != userID {
			return forbidden("notification belongs to another user")
		}
		return fromRepo(store.Notifications.MarkRead(ctx, id))
	})
}

// MarkAllAsRead marks every notification of the user as read.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.store.Notifications.MarkAllRead(ctx, userID)
}
