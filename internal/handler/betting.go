package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"parish-portal/internal/service"
)

// BettingHandler serves the betting endpoints.
type BettingHandler struct {
	bets *service.BettingService
}

// NewBettingHandler creates a new BettingHandler.
func NewBettingHandler(bets *service.BettingService) *BettingHandler {
	return &BettingHandler{bets: bets}
}

type placeBetRequest struct {
	BetID          uuid.UUID `json:"betId" binding:"required"`
	SelectedOption string    `json:"selectedOption" binding:"required"`
	Amount         int64     `json:"amount"`
}

type resolveBetRequest struct {
	BetID         uuid.UUID `json:"betId" binding:"required"`
	WinningOption string    `json:"winningOption" binding:"required"`
}

// Create handles POST /games/bets.
func (h *BettingHandler) Create(c *gin.Context) {
	var req service.CreateBetRequest
	if !bindJSON(c, &req) {
		return
	}
	bet, err := h.bets.CreateBet(c.Request.Context(), currentUser(c).ID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bet)
}

// Active handles GET /games/bets/active.
func (h *BettingHandler) Active(c *gin.Context) {
	bets, err := h.bets.ActiveBets(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bets)
}

// Settled handles GET /games/bets/settled.
func (h *BettingHandler) Settled(c *gin.Context) {
	bets, err := h.bets.SettledBets(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bets)
}

// Mine handles GET /games/bets/my.
func (h *BettingHandler) Mine(c *gin.Context) {
	bets, err := h.bets.UserBets(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bets)
}

// Get handles GET /games/bets/:id.
func (h *BettingHandler) Get(c *gin.Context) {
	betID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	bet, err := h.bets.GetBet(c.Request.Context(), betID, currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bet)
}

// Place handles POST /games/bets/place.
func (h *BettingHandler) Place(c *gin.Context) {
	var req placeBetRequest
	if !bindJSON(c, &req) {
		return
	}
	entry, err := h.bets.PlaceBet(c.Request.Context(), currentUser(c).ID, req.BetID, req.SelectedOption, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// Resolve handles POST /games/bets/resolve.
func (h *BettingHandler) Resolve(c *gin.Context) {
	var req resolveBetRequest
	if !bindJSON(c, &req) {
		return
	}
	u := currentUser(c)
	bet, err := h.bets.ResolveBet(c.Request.Context(), u.ID, req.BetID, req.WinningOption, u.IsAdmin())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bet)
}

// Cancel handles DELETE /games/bets/:id.
func (h *BettingHandler) Cancel(c *gin.Context) {
	betID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	u := currentUser(c)
	if err := h.bets.CancelBet(c.Request.Context(), betID, u.ID, u.IsAdmin()); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
