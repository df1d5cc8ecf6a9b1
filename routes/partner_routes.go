package routes

import (
	"github.com/goodsco/referidos_backend/middleware"
	"github.com/goodsco/referidos_backend/websocket"
	"github.com/labstack/echo/v4"
)

// RegisterPartnerRoutes registers the authenticated partner dashboard
func RegisterPartnerRoutes(api *echo.Group, h Handlers, authenticated echo.MiddlewareFunc) {
	me := api.Group("/partners/me", authenticated)
	me.GET("/leads", h.Leads.ListMyLeads)
	me.GET("/commissions", h.Commissions.ListMine)
	me.GET("/funds", h.Commissions.Funds)
	me.GET("/referral", h.Referrals.GetReferralData)
	me.GET("/documents", h.Documents.ListMine)
	me.POST("/documents", h.Documents.Submit)
	me.PUT("/fcm-token", h.Auth.SetFCMToken)
	me.GET("/discounts", h.Discounts.ListActive)

	if h.Hub != nil {
		api.GET("/ws", func(c echo.Context) error {
			return websocket.HandleWebSocket(c, h.Hub, middleware.ActorFromContext(c).ID)
		}, authenticated)
	}
}
