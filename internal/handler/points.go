package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"parish-portal/internal/service"
)

// PointsHandler serves the ledger endpoints.
type PointsHandler struct {
	points *service.PointsService
}

// NewPointsHandler creates a new PointsHandler.
func NewPointsHandler(points *service.PointsService) *PointsHandler {
	return &PointsHandler{points: points}
}

type awardRequest struct {
	UserID uuid.UUID `json:"userId" binding:"required"`
	Amount int64     `json:"amount" binding:"required"`
	Reason string    `json:"reason" binding:"required"`
}

// History handles GET /points/history.
func (h *PointsHandler) History(c *gin.Context) {
	history, err := h.points.History(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// Leaderboard handles GET /points/leaderboard.
func (h *PointsHandler) Leaderboard(c *gin.Context) {
	board, err := h.points.Leaderboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, board)
}

// Award handles POST /points/award.
func (h *PointsHandler) Award(c *gin.Context) {
	var req awardRequest
	if !bindJSON(c, &req) {
		return
	}

	tx, err := h.points.AwardManually(c.Request.Context(), req.UserID, req.Amount, req.Reason, currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}
