package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"
	"pgregory.net/rapid"

	"parish-portal/internal/config"
	"parish-portal/internal/model"
)

func newOfflineBot(t *testing.T) *Bot {
	t.Helper()
	b, err := New(config.TelegramConfig{Enabled: true, Token: "123:offline"}, true)
	require.NoError(t, err)
	return b
}

func TestNew_RequiresToken(t *testing.T) {
	_, err := New(config.TelegramConfig{Enabled: true}, true)
	assert.Error(t, err)
}

func TestFormatNotification(t *testing.T) {
	tests := []struct {
		name     string
		n        model.Notification
		expected string
	}{
		{
			name:     "success with message",
			n:        model.Notification{Title: "Points for service", Message: "You earned +3 points.", Type: model.NotifySuccess},
			expected: "✅ Points for service\n\nYou earned +3 points.",
		},
		{
			name:     "warning without message",
			n:        model.Notification{Title: "Intention rejected", Type: model.NotifyWarning},
			expected: "⚠️ Intention rejected",
		},
		{
			name:     "unknown type has no icon",
			n:        model.Notification{Title: "Hello", Type: "OTHER"},
			expected: "Hello",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatNotification(&tt.n))
		})
	}
}

func TestLinkInstructions(t *testing.T) {
	assert.Contains(t, LinkInstructions(987654), "987654")
}

// TestPrivateChatMiddlewareProperty checks that only private chats reach
// the handler.
func TestPrivateChatMiddlewareProperty(t *testing.T) {
	b := newOfflineBot(t)
	chatTypes := []tele.ChatType{tele.ChatPrivate, tele.ChatGroup, tele.ChatSuperGroup, tele.ChatChannel}

	rapid.Check(t, func(t *rapid.T) {
		chatType := rapid.SampledFrom(chatTypes).Draw(t, "chatType")
		chatID := rapid.Int64Range(-1000000000, 1000000000).Draw(t, "chatID")

		ctx := b.bot.NewContext(tele.Update{
			Message: &tele.Message{
				Chat:   &tele.Chat{ID: chatID, Type: chatType},
				Sender: &tele.User{ID: 1},
				Text:   "/start",
			},
		})

		called := false
		err := PrivateChatMiddleware()(func(tele.Context) error {
			called = true
			return nil
		})(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if called != (chatType == tele.ChatPrivate) {
			t.Fatalf("chat type %s: handler called=%v", chatType, called)
		}
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	b := newOfflineBot(t)
	ctx := b.bot.NewContext(tele.Update{Message: &tele.Message{Chat: &tele.Chat{ID: 1, Type: tele.ChatPrivate}}})

	err := RecoveryMiddleware()(func(tele.Context) error {
		panic("boom")
	})(ctx)
	assert.NoError(t, err)
}

func TestIsPrivateChat(t *testing.T) {
	assert.False(t, IsPrivateChat(nil))
	assert.True(t, IsPrivateChat(&tele.Chat{Type: tele.ChatPrivate}))
	assert.False(t, IsPrivateChat(&tele.Chat{Type: tele.ChatGroup}))
}
