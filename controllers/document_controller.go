package controllers

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/goodsco/referidos_backend/middleware"
	"github.com/goodsco/referidos_backend/models"
	"github.com/goodsco/referidos_backend/services"
	"github.com/goodsco/referidos_backend/utils"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DocumentController struct {
	gate *services.DocumentGate
}

func NewDocumentController(gate *services.DocumentGate) *DocumentController {
	return &DocumentController{gate: gate}
}

// Submit accepts a document as a multipart "file" upload or as a link in "url"
func (dc *DocumentController) Submit(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	actor := middleware.ActorFromContext(c)

	var req models.DocumentSubmitRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body", nil)
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "Validation failed", err.Error())
	}

	content := strings.TrimSpace(req.URL)
	if file, err := c.FormFile("file"); err == nil {
		if err := utils.ValidateDocumentFile(file.Filename, file.Size); err != nil {
			return badRequest(c, err.Error(), nil)
		}
		src, err := file.Open()
		if err != nil {
			return badRequest(c, "Failed to read uploaded file", nil)
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return badRequest(c, "Failed to read uploaded file", nil)
		}
		content, err = utils.SaveDocumentFile(actor.ID.Hex(), file.Filename, data)
		if err != nil {
			return badRequest(c, err.Error(), nil)
		}
	}
	if content == "" {
		return badRequest(c, "A file or url is required", nil)
	}

	doc, err := dc.gate.Submit(ctx, actor.ID, req.Type, content)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Document submitted",
		Data:    doc,
	})
}

// ListMine lists the authenticated partner's submissions with the derived eligibility
func (dc *DocumentController) ListMine(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	partnerID := middleware.ActorFromContext(c).ID
	docs, err := dc.gate.ListDocuments(ctx, partnerID)
	if err != nil {
		return errorResponse(c, err)
	}
	eligibility := services.DeriveEligibility(partnerID, docs)
	return ok(c, "Documents retrieved", map[string]interface{}{
		"documents":   docs,
		"eligibility": eligibility,
	})
}

// Review approves or rejects a document
func (dc *DocumentController) Review(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	documentID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return badRequest(c, "Invalid document ID format", nil)
	}
	var req models.DocumentReviewRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body", nil)
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "Validation failed", err.Error())
	}

	doc, err := dc.gate.Review(ctx, middleware.ActorFromContext(c), documentID, req.Decision, req.Feedback)
	if err != nil {
		return errorResponse(c, err)
	}
	return ok(c, "Document reviewed", doc)
}

// SetPartnerStatus applies an administrative partner status
func (dc *DocumentController) SetPartnerStatus(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	partnerID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return badRequest(c, "Invalid partner ID format", nil)
	}
	var req models.PartnerStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body", nil)
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "Validation failed", err.Error())
	}

	partner, err := dc.gate.SetPartnerStatus(ctx, middleware.ActorFromContext(c), partnerID, req.Status, req.Reason)
	if err != nil {
		return errorResponse(c, err)
	}
	return ok(c, "Partner status updated", partner)
}

// Eligibility shows a partner's derived payout eligibility to administrators
func (dc *DocumentController) Eligibility(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	partnerID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return badRequest(c, "Invalid partner ID format", nil)
	}
	eligibility, err := dc.gate.AdminEligibility(ctx, middleware.ActorFromContext(c), partnerID)
	if err != nil {
		return errorResponse(c, err)
	}
	return ok(c, "Eligibility retrieved", eligibility)
}

// PartnerDocuments lists every submission of a partner for review
func (dc *DocumentController) PartnerDocuments(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	partnerID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return badRequest(c, "Invalid partner ID format", nil)
	}
	docs, err := dc.gate.PartnerDocuments(ctx, middleware.ActorFromContext(c), partnerID)
	if err != nil {
		return errorResponse(c, err)
	}
	return ok(c, "Documents retrieved", map[string]interface{}{
		"documents":   docs,
		"eligibility": services.DeriveEligibility(partnerID, docs),
	})
}
