package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"parish-portal/internal/model"
	"parish-portal/internal/service"
)

// IntentionHandler serves the prayer intention endpoints.
type IntentionHandler struct {
	intentions *service.IntentionService
}

// NewIntentionHandler creates a new IntentionHandler.
func NewIntentionHandler(intentions *service.IntentionService) *IntentionHandler {
	return &IntentionHandler{intentions: intentions}
}

type createIntentionRequest struct {
	Content     string              `json:"content" binding:"required"`
	Type        model.IntentionType `json:"type" binding:"required"`
	IsAnonymous bool                `json:"isAnonymous"`
	Date        string              `json:"date"`
}

type reviewIntentionRequest struct {
	Approved      bool   `json:"approved"`
	AdminResponse string `json:"adminResponse"`
}

// Create handles POST /intentions.
func (h *IntentionHandler) Create(c *gin.Context) {
	var req createIntentionRequest
	if !bindJSON(c, &req) {
		return
	}

	var date *time.Time
	if req.Date != "" {
		d, err := model.ParseDate(req.Date)
		if err != nil {
			badRequest(c, "date must be YYYY-MM-DD")
			return
		}
		date = &d
	}

	view, err := h.intentions.Create(c.Request.Context(), currentUser(c).ID, service.CreateIntentionRequest{
		Content:     req.Content,
		Type:        req.Type,
		IsAnonymous: req.IsAnonymous,
		Date:        date,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// Mine handles GET /intentions/my.
func (h *IntentionHandler) Mine(c *gin.Context) {
	list, err := h.intentions.MyIntentions(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Pending handles GET /intentions/pending.
func (h *IntentionHandler) Pending(c *gin.Context) {
	list, err := h.intentions.Pending(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Approved handles GET /intentions/approved?date=.
func (h *IntentionHandler) Approved(c *gin.Context) {
	date, ok := dateQuery(c, "date")
	if !ok {
		return
	}
	list, err := h.intentions.ApprovedFor(c.Request.Context(), date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Review handles PUT /intentions/:id/review.
func (h *IntentionHandler) Review(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req reviewIntentionRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := h.intentions.Review(c.Request.Context(), id, req.Approved, req.AdminResponse)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
