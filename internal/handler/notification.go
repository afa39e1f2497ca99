package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"parish-portal/internal/notify"
	"parish-portal/internal/service"
)

// NotificationHandler serves the inbox and the live stream.
type NotificationHandler struct {
	notifications *service.NotificationService
	hub           *notify.Hub
	upgrader      websocket.Upgrader
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notifications *service.NotificationService, hub *notify.Hub) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		hub:           hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Bearer tokens, not cookies, authenticate the upgrade.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// List handles GET /notifications.
func (h *NotificationHandler) List(c *gin.Context) {
	list, err := h.notifications.List(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// UnreadCount handles GET /notifications/unread-count.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	n, err := h.notifications.UnreadCount(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// MarkRead handles PATCH /notifications/:id/read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.notifications.MarkAsRead(c.Request.Context(), id, currentUser(c).ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkAllRead handles PATCH /notifications/read-all.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.notifications.MarkAllAsRead(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

// Stream handles GET /notifications/stream by upgrading to a websocket
// that receives the member's new notifications.
func (h *NotificationHandler) Stream(c *gin.Context) {
	u := currentUser(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already written the error response.
		log.Warn().Err(err).Str("user_id", u.ID.String()).Msg("WebSocket upgrade failed")
		return
	}

	log.Debug().Str("user_id", u.ID.String()).Msg("Notification stream opened")
	notify.Stream(conn, h.hub.Subscribe(u.ID))
}
