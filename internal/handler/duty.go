package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"parish-portal/internal/model"
	"parish-portal/internal/service"
)

// DutyHandler serves the duty scheduler endpoints.
type DutyHandler struct {
	duties *service.DutyService
}

// NewDutyHandler creates a new DutyHandler.
func NewDutyHandler(duties *service.DutyService) *DutyHandler {
	return &DutyHandler{duties: duties}
}

type signUpRequest struct {
	IsAnonymous bool `json:"isAnonymous"`
}

type slotRequest struct {
	Date           string             `json:"date" binding:"required"`
	Time           string             `json:"time" binding:"required"`
	Category       model.DutyCategory `json:"category" binding:"required"`
	Title          string             `json:"title" binding:"required"`
	Capacity       int                `json:"capacity"`
	IsAutoApproved bool               `json:"isAutoApproved"`
	PointsValue    int                `json:"pointsValue"`
}

func (r slotRequest) input() (service.SlotInput, error) {
	d, err := model.ParseDate(r.Date)
	if err != nil {
		return service.SlotInput{}, err
	}
	return service.SlotInput{
		Date:           d,
		Time:           r.Time,
		Category:       r.Category,
		Title:          r.Title,
		Capacity:       r.Capacity,
		IsAutoApproved: r.IsAutoApproved,
		PointsValue:    r.PointsValue,
	}, nil
}

// Slots handles GET /duties/slots.
func (h *DutyHandler) Slots(c *gin.Context) {
	from, ok := dateQuery(c, "dateFrom")
	if !ok {
		return
	}
	to, ok := dateQuery(c, "dateTo")
	if !ok {
		return
	}
	includePast := false
	if raw := c.Query("includePast"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "includePast must be true or false")
			return
		}
		includePast = v
	}

	u := currentUser(c)
	slots, err := h.duties.GetSlots(c.Request.Context(), service.SlotQuery{
		Category:    model.DutyCategory(c.Query("category")),
		From:        from,
		To:          to,
		RequesterID: u.ID,
		IsAdmin:     u.IsAdmin(),
		IncludePast: includePast,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}

// SignUp handles POST /duties/slots/:id/sign-up. The body is optional.
func (h *DutyHandler) SignUp(c *gin.Context) {
	slotID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req signUpRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	slot, err := h.duties.SignUp(c.Request.Context(), slotID, currentUser(c).ID, req.IsAnonymous)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, slot)
}

// CancelSignUp handles DELETE /duties/slots/:id/sign-up.
func (h *DutyHandler) CancelSignUp(c *gin.Context) {
	slotID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.duties.CancelSignUp(c.Request.Context(), slotID, currentUser(c).ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateSlot handles POST /duties/admin/slots.
func (h *DutyHandler) CreateSlot(c *gin.Context) {
	var req slotRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		badRequest(c, "date must be YYYY-MM-DD")
		return
	}

	slot, err := h.duties.CreateSlot(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, slot)
}

// UpdateSlot handles PUT /duties/admin/slots/:id.
func (h *DutyHandler) UpdateSlot(c *gin.Context) {
	slotID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req slotRequest
	if !bindJSON(c, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		badRequest(c, "date must be YYYY-MM-DD")
		return
	}

	slot, err := h.duties.UpdateSlot(c.Request.Context(), slotID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, slot)
}

// DeleteSlot handles DELETE /duties/admin/slots/:id.
func (h *DutyHandler) DeleteSlot(c *gin.Context) {
	slotID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.duties.DeleteSlot(c.Request.Context(), slotID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GenerateLiturgy handles POST /duties/admin/generate/liturgy.
func (h *DutyHandler) GenerateLiturgy(c *gin.Context) {
	monday, ok := dateQuery(c, "startMonday")
	if !ok {
		return
	}
	slots, err := h.duties.GenerateLiturgyWeek(c.Request.Context(), monday)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, slots)
}

// GenerateKitchen handles POST /duties/admin/generate/kitchen.
func (h *DutyHandler) GenerateKitchen(c *gin.Context) {
	sunday, ok := dateQuery(c, "sunday")
	if !ok {
		return
	}
	slot, err := h.duties.GenerateSundayKitchen(c.Request.Context(), sunday)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, slot)
}

// ConfirmPresence handles PATCH /duties/admin/volunteers/:id/confirm.
func (h *DutyHandler) ConfirmPresence(c *gin.Context) {
	volunteerID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.duties.ConfirmPresence(c.Request.Context(), volunteerID, currentUser(c).ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Approve handles PUT /duties/volunteers/:id/approve.
func (h *DutyHandler) Approve(c *gin.Context) {
	volunteerID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.duties.ApproveVolunteer(c.Request.Context(), volunteerID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
