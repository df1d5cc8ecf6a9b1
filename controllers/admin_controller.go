package controllers

import (
	"context"

	"github.com/goodsco/referidos_backend/middleware"
	"github.com/goodsco/referidos_backend/models"
	"github.com/goodsco/referidos_backend/services"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdminController serves the admin panel listings
type AdminController struct {
	directory *services.AdminDirectory
}

func NewAdminController(directory *services.AdminDirectory) *AdminController {
	return &AdminController{directory: directory}
}

// ListPartners lists partners with lead counts and current documents.
// ?role= selects another role.
func (ac *AdminController) ListPartners(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	partners, err := ac.directory.Partners(ctx, middleware.ActorFromContext(c), models.Role(c.QueryParam("role")))
	if err != nil {
		return errorResponse(c, err)
	}
	return ok(c, "Partners retrieved", partners)
}

// ListCommissions lists every commission, optionally by ?partnerId= and ?status=
func (ac *AdminController) ListCommissions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	var filter models.CommissionFilter
	if raw := c.QueryParam("partnerId"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return badRequest(c, "Invalid partner ID format", nil)
		}
		filter.PartnerID = &id
	}
	filter.Status = models.CommissionStatus(c.QueryParam("status"))

	commissions, err := ac.directory.Commissions(ctx, middleware.ActorFromContext(c), filter)
	if err != nil {
		return errorResponse(c, err)
	}
	return ok(c, "Commissions retrieved", commissions)
}
