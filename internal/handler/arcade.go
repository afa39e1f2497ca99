package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parish-portal/internal/service"
)

// ArcadeHandler serves the wheel and coin flip.
type ArcadeHandler struct {
	arcade *service.ArcadeService
}

// NewArcadeHandler creates a new ArcadeHandler.
func NewArcadeHandler(arcade *service.ArcadeService) *ArcadeHandler {
	return &ArcadeHandler{arcade: arcade}
}

type coinFlipRequest struct {
	Amount int64 `json:"amount"`
}

// Catalogue handles GET /games/arcade.
func (h *ArcadeHandler) Catalogue(c *gin.Context) {
	c.JSON(http.StatusOK, h.arcade.Catalogue())
}

// Spin handles POST /games/arcade/wheel/spin.
func (h *ArcadeHandler) Spin(c *gin.Context) {
	result, err := h.arcade.SpinWheel(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// WheelStatus handles GET /games/arcade/wheel/status.
func (h *ArcadeHandler) WheelStatus(c *gin.Context) {
	result, err := h.arcade.WheelStatus(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CoinFlip handles POST /games/arcade/coinflip.
func (h *ArcadeHandler) CoinFlip(c *gin.Context) {
	var req coinFlipRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.arcade.FlipCoin(c.Request.Context(), currentUser(c).ID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
