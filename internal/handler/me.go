package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MeHandler serves the authenticated member's own profile.
type MeHandler struct {
	users UserStore
}

// NewMeHandler creates a new MeHandler.
func NewMeHandler(users UserStore) *MeHandler {
	return &MeHandler{users: users}
}

type telegramRequest struct {
	ChatID *int64 `json:"chatId"`
}

// Get handles GET /me. The response carries the points balance.
func (h *MeHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

// LinkTelegram handles PUT /me/telegram. A null chatId unlinks the chat.
func (h *MeHandler) LinkTelegram(c *gin.Context) {
	var req telegramRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.ChatID != nil && *req.ChatID == 0 {
		badRequest(c, "chatId must not be zero")
		return
	}

	u := currentUser(c)
	if err := h.users.SetTelegramChat(c.Request.Context(), u.ID, req.ChatID); err != nil {
		respondError(c, err)
		return
	}
	u.TelegramChatID = req.ChatID
	c.JSON(http.StatusOK, u)
}
