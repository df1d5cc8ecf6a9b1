package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/goodsco/referidos_backend/middleware"
	"github.com/goodsco/referidos_backend/models"
	"github.com/goodsco/referidos_backend/services"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CommissionController struct {
	commissions *services.CommissionManager
}

func NewCommissionController(commissions *services.CommissionManager) *CommissionController {
	return &CommissionController{commissions: commissions}
}

// SetStatus advances a commission. A payout blocked by missing document
// approvals is reported as updated=false rather than as an error.
func (cc *CommissionController) SetStatus(c echo.Context) error {
	return cc.setStatus(c, "Invalid commission ID format", cc.commissions.SetCommissionStatus)
}

// SetLeadCommissionStatus advances the commission of the lead in the path
func (cc *CommissionController) SetLeadCommissionStatus(c echo.Context) error {
	return cc.setStatus(c, "Invalid lead ID format", cc.commissions.SetLeadCommissionStatus)
}

type commissionStatusFunc func(ctx context.Context, actor services.Actor, id primitive.ObjectID, status models.CommissionStatus) (*models.Commission, bool, error)

func (cc *CommissionController) setStatus(c echo.Context, invalidID string, apply commissionStatusFunc) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return badRequest(c, invalidID, nil)
	}
	var req models.CommissionStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body", nil)
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "Validation failed", err.Error())
	}

	commission, updated, err := apply(ctx, middleware.ActorFromContext(c), id, req.Status)
	if errors.Is(err, services.ErrDocumentsNotApproved) {
		return c.JSON(http.StatusOK, models.Response{
			Status:  http.StatusOK,
			Message: "Partner documents are not approved",
			Data:    map[string]interface{}{"updated": false, "reason": "DOCUMENTS_NOT_APPROVED", "commission": commission},
		})
	}
	if err != nil {
		return errorResponse(c, err)
	}
	return ok(c, "Commission status processed", map[string]interface{}{"updated": updated, "commission": commission})
}

// ListMine lists the authenticated partner's commissions
func (cc *CommissionController) ListMine(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	commissions, err := cc.commissions.PartnerCommissions(ctx, middleware.ActorFromContext(c).ID)
	if err != nil {
		return errorResponse(c, err)
	}
	return ok(c, "Commissions retrieved", commissions)
}

// Funds returns the authenticated partner's funds summary
func (cc *CommissionController) Funds(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	summary, err := cc.commissions.FundsSummary(ctx, middleware.ActorFromContext(c).ID)
	if err != nil {
		return errorResponse(c, err)
	}
	return ok(c, "Funds summary retrieved", summary)
}
