package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/goodsco/referidos_backend/middleware"
	"github.com/goodsco/referidos_backend/models"
	"github.com/goodsco/referidos_backend/services"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReferralCookie holds the referral code captured when a visitor lands on a
// partner's link; intake uses it when a submission carries no code
const ReferralCookie = "referralCode"

// DeliveryIDHeader identifies a webhook delivery across retries
const DeliveryIDHeader = "X-Delivery-Id"

type LeadController struct {
	intake      *services.LeadIntake
	commissions *services.CommissionManager
}

func NewLeadController(intake *services.LeadIntake, commissions *services.CommissionManager) *LeadController {
	return &LeadController{intake: intake, commissions: commissions}
}

// MessagingWebhook handles lead deliveries from the messaging channel. Every
// handled delivery answers {ok:true}, including duplicates and deliveries
// that could not be attributed; only a missing phone is rejected.
func (lc *LeadController) MessagingWebhook(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	var req models.MessagingLeadRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}

	sub := services.Submission{
		Channel:              models.ChannelMessaging,
		Phone:                req.Phone,
		FallbackReferralCode: referralCookie(c),
		CatalogItem:          catalogItem(req.CatalogItemID, req.CatalogItemTitle, req.CatalogItemSlug),
		DeliveryID:           req.DeliveryID,
	}
	if req.ReferralCode != nil {
		sub.ReferralCode = *req.ReferralCode
	}
	if sub.DeliveryID == "" {
		sub.DeliveryID = c.Request().Header.Get(DeliveryIDHeader)
	}

	if _, err := lc.intake.Submit(ctx, sub); err != nil {
		if errors.Is(err, services.ErrPhoneRequired) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "phone is required"})
		}
		logger.Error().Err(err).Msg("messaging lead delivery failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// CreateLead handles the public lead form
func (lc *LeadController) CreateLead(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	var req models.CreateLeadRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	result, err := lc.intake.Submit(ctx, services.Submission{
		Channel:              models.ChannelForm,
		Phone:                req.Phone,
		Name:                 req.Name,
		Email:                req.Email,
		City:                 req.City,
		ReferralCode:         req.ReferralCode,
		FallbackReferralCode: referralCookie(c),
		CatalogItem:          catalogItem(nil, req.CatalogItemTitle, ""),
	})
	switch {
	case errors.Is(err, services.ErrUnknownReferralCode):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid code"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case err != nil:
		logger.Error().Err(err).Msg("lead creation failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "creation failed"})
	case !result.Accepted:
		return c.JSON(http.StatusConflict, map[string]string{"error": "creation failed"})
	}

	resp := map[string]interface{}{"success": true}
	if !result.LeadID.IsZero() {
		resp["leadId"] = result.LeadID.Hex()
	}
	return c.JSON(http.StatusOK, resp)
}

// CreateManualLead lets an administrator register a lead on a partner's behalf
func (lc *LeadController) CreateManualLead(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	var req models.ManualLeadRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body", nil)
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "Validation failed", err.Error())
	}

	result, err := lc.intake.SubmitManual(ctx, middleware.ActorFromContext(c), services.Submission{
		Phone:        req.Phone,
		Name:         req.Name,
		Email:        req.Email,
		City:         req.City,
		ReferralCode: req.ReferralCode,
		CatalogItem:  catalogItem(nil, req.CatalogItemTitle, ""),
	})
	if err != nil {
		return errorResponse(c, err)
	}
	if result.Outcome == services.OutcomePhoneOwned {
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: "Phone is already registered by another partner",
			Data:    result,
		})
	}
	return ok(c, "Lead registered", result)
}

// SetLeadStatus moves a lead through the pipeline
func (lc *LeadController) SetLeadStatus(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	leadID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return badRequest(c, "Invalid lead ID format", nil)
	}
	var req models.LeadStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body", nil)
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "Validation failed", err.Error())
	}

	lead, err := lc.commissions.SetLeadStatus(ctx, middleware.ActorFromContext(c), leadID, req.Status, req.TransactionValue)
	if err != nil {
		return errorResponse(c, err)
	}
	return ok(c, "Lead status updated", lead)
}

// ToggleValidity flips the lead's validity flag
func (lc *LeadController) ToggleValidity(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	leadID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return badRequest(c, "Invalid lead ID format", nil)
	}
	lead, err := lc.commissions.ToggleLeadValidity(ctx, middleware.ActorFromContext(c), leadID)
	if err != nil {
		return errorResponse(c, err)
	}
	return ok(c, "Lead validity updated", lead)
}

// ListMyLeads lists the authenticated partner's leads
func (lc *LeadController) ListMyLeads(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	leads, err := lc.commissions.PartnerLeads(ctx, middleware.ActorFromContext(c).ID)
	if err != nil {
		return errorResponse(c, err)
	}
	return ok(c, "Leads retrieved", leads)
}

// ListLeads lists leads for administrators, filtered by referrerId, status and phone
func (lc *LeadController) ListLeads(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	filter := models.LeadFilter{
		Status: models.LeadStatus(c.QueryParam("status")),
		Phone:  c.QueryParam("phone"),
	}
	if ref := c.QueryParam("referrerId"); ref != "" {
		id, err := primitive.ObjectIDFromHex(ref)
		if err != nil {
			return badRequest(c, "Invalid referrerId format", nil)
		}
		filter.ReferrerID = &id
	}

	leads, err := lc.commissions.AdminLeads(ctx, middleware.ActorFromContext(c), filter)
	if err != nil {
		return errorResponse(c, err)
	}
	return ok(c, "Leads retrieved", leads)
}

func referralCookie(c echo.Context) string {
	cookie, err := c.Cookie(ReferralCookie)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

func catalogItem(id *int, title, slug string) *models.CatalogItemRef {
	title, slug = strings.TrimSpace(title), strings.TrimSpace(slug)
	if id == nil && title == "" && slug == "" {
		return nil
	}
	return &models.CatalogItemRef{ID: id, Title: title, Slug: slug}
}
