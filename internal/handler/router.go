// Package handler exposes the portal's services over HTTP with gin.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parish-portal/internal/auth"
	"parish-portal/internal/model"
	"parish-portal/internal/notify"
	"parish-portal/internal/service"
)

// Services bundles what the router serves.
type Services struct {
	Points        *service.PointsService
	Duties        *service.DutyService
	Bets          *service.BettingService
	Arcade        *service.ArcadeService
	Notifications *service.NotificationService
	Intentions    *service.IntentionService
	Hub           *notify.Hub
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(tokens *auth.Tokens, users UserStore, svc Services) *gin.Engine {
	r := gin.New()
	r.Use(Recovery(), RequestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/", Authenticate(tokens, users))
	admin := RequireRole(model.RoleAdmin)

	me := NewMeHandler(users)
	api.GET("/me", me.Get)
	api.PUT("/me/telegram", me.LinkTelegram)

	points := NewPointsHandler(svc.Points)
	api.GET("/points/history", points.History)
	api.GET("/points/leaderboard", points.Leaderboard)
	api.POST("/points/award", RequireRole(model.RoleAdmin, model.RoleLeader), points.Award)

	duties := NewDutyHandler(svc.Duties)
	api.GET("/duties/slots", duties.Slots)
	api.POST("/duties/slots/:id/sign-up", duties.SignUp)
	api.DELETE("/duties/slots/:id/sign-up", duties.CancelSignUp)
	api.PUT("/duties/volunteers/:id/approve", admin, duties.Approve)
	dutyAdmin := api.Group("/duties/admin", admin)
	dutyAdmin.POST("/slots", duties.CreateSlot)
	dutyAdmin.PUT("/slots/:id", duties.UpdateSlot)
	dutyAdmin.DELETE("/slots/:id", duties.DeleteSlot)
	dutyAdmin.POST("/generate/liturgy", duties.GenerateLiturgy)
	dutyAdmin.POST("/generate/kitchen", duties.GenerateKitchen)
	dutyAdmin.PATCH("/volunteers/:id/confirm", duties.ConfirmPresence)

	bets := NewBettingHandler(svc.Bets)
	api.POST("/games/bets", bets.Create)
	api.GET("/games/bets/active", bets.Active)
	api.GET("/games/bets/settled", bets.Settled)
	api.GET("/games/bets/my", bets.Mine)
	api.GET("/games/bets/:id", bets.Get)
	api.POST("/games/bets/place", bets.Place)
	api.POST("/games/bets/resolve", bets.Resolve)
	api.DELETE("/games/bets/:id", admin, bets.Cancel)

	arcade := NewArcadeHandler(svc.Arcade)
	api.GET("/games/arcade", arcade.Catalogue)
	api.POST("/games/arcade/wheel/spin", arcade.Spin)
	api.GET("/games/arcade/wheel/status", arcade.WheelStatus)
	api.POST("/games/arcade/coinflip", arcade.CoinFlip)

	notifications := NewNotificationHandler(svc.Notifications, svc.Hub)
	api.GET("/notifications", notifications.List)
	api.GET("/notifications/unread-count", notifications.UnreadCount)
	api.GET("/notifications/stream", notifications.Stream)
	api.PATCH("/notifications/read-all", notifications.MarkAllRead)
	api.PATCH("/notifications/:id/read", notifications.MarkRead)

	intentions := NewIntentionHandler(svc.Intentions)
	api.POST("/intentions", intentions.Create)
	api.GET("/intentions/my", intentions.Mine)
	api.GET("/intentions/pending", admin, intentions.Pending)
	api.GET("/intentions/approved", admin, intentions.Approved)
	api.PUT("/intentions/:id/review", admin, intentions.Review)

	return r
}
