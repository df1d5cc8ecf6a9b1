package routes

import (
	"github.com/goodsco/referidos_backend/middleware"
	"github.com/labstack/echo/v4"
)

// RegisterAdminRoutes registers the administrative surface
func RegisterAdminRoutes(api *echo.Group, h Handlers, authenticated echo.MiddlewareFunc) {
	admin := api.Group("/admin", authenticated, middleware.RequireAdmin(h.Authorizer))

	admin.GET("/leads", h.Leads.ListLeads)
	admin.POST("/leads", h.Leads.CreateManualLead)
	admin.PUT("/leads/:id/status", h.Leads.SetLeadStatus)
	admin.PUT("/leads/:id/validity", h.Leads.ToggleValidity)
	admin.PUT("/leads/:id/commission/status", h.Commissions.SetLeadCommissionStatus)

	admin.GET("/commissions", h.Admin.ListCommissions)
	admin.PUT("/commissions/:id/status", h.Commissions.SetStatus)

	admin.PUT("/documents/:id/review", h.Documents.Review)

	admin.GET("/partners", h.Admin.ListPartners)
	admin.GET("/partners/:id/documents", h.Documents.PartnerDocuments)
	admin.PUT("/partners/:id/status", h.Documents.SetPartnerStatus)
	admin.GET("/partners/:id/eligibility", h.Documents.Eligibility)

	admin.GET("/discounts", h.Discounts.ListAll)
	admin.POST("/discounts", h.Discounts.Create)
	admin.PUT("/discounts/:id/active", h.Discounts.SetActive)
}
