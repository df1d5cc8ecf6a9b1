package routes

import (
	"github.com/goodsco/referidos_backend/middleware"
	"github.com/labstack/echo/v4"
)

// RegisterLeadRoutes registers the public intake endpoints
func RegisterLeadRoutes(api *echo.Group, h Handlers) {
	api.POST("/webhooks/messaging-lead", h.Leads.MessagingWebhook, middleware.VerifyWebhookSignature(h.WebhookSecret))
	api.POST("/leads", h.Leads.CreateLead)
}
