package routes

import (
	"net/http"

	"github.com/goodsco/referidos_backend/controllers"
	"github.com/goodsco/referidos_backend/middleware"
	"github.com/goodsco/referidos_backend/services"
	"github.com/goodsco/referidos_backend/websocket"
	"github.com/labstack/echo/v4"
)

// Handlers bundles everything the routes need
type Handlers struct {
	Auth        *controllers.AuthController
	Leads       *controllers.LeadController
	Commissions *controllers.CommissionController
	Documents   *controllers.DocumentController
	Referrals   *controllers.ReferralController
	Admin       *controllers.AdminController
	Discounts   *controllers.DiscountController
	Hub         *websocket.Hub

	Authorizer    services.Authorizer
	RateLimiter   *middleware.RateLimiter
	JWTSecret     string
	WebhookSecret string
}

// SetupRoutes configures all API routes by calling individual route registration functions
func SetupRoutes(e *echo.Echo, h Handlers) {
	e.Match([]string{http.MethodGet, http.MethodHead}, "/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})

	api := e.Group("/api")
	if h.RateLimiter != nil {
		api.Use(h.RateLimiter.RateLimit())
	}

	authenticated := middleware.JWTMiddleware(h.JWTSecret)

	RegisterLeadRoutes(api, h)
	RegisterAuthRoutes(api, h, authenticated)
	RegisterPartnerRoutes(api, h, authenticated)
	RegisterAdminRoutes(api, h, authenticated)
}
