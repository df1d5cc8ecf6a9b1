package controllers

import (
	"context"
	"net/http"

	"github.com/goodsco/referidos_backend/middleware"
	"github.com/goodsco/referidos_backend/models"
	"github.com/goodsco/referidos_backend/services"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DiscountController struct {
	discounts *services.DiscountService
}

func NewDiscountController(discounts *services.DiscountService) *DiscountController {
	return &DiscountController{discounts: discounts}
}

// Create publishes a discount for partners
func (dc *DiscountController) Create(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	var req models.CreateDiscountRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body", nil)
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "Validation failed", err.Error())
	}

	discount, err := dc.discounts.Create(ctx, middleware.ActorFromContext(c), req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Discount created",
		Data:    discount,
	})
}

// ListAll lists every discount for administrators
func (dc *DiscountController) ListAll(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	discounts, err := dc.discounts.All(ctx, middleware.ActorFromContext(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return ok(c, "Discounts retrieved", discounts)
}

// ListActive lists the benefits available to partners
func (dc *DiscountController) ListActive(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	discounts, err := dc.discounts.Active(ctx)
	if err != nil {
		return errorResponse(c, err)
	}
	return ok(c, "Discounts retrieved", discounts)
}

// SetActive publishes or hides a discount
func (dc *DiscountController) SetActive(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return badRequest(c, "Invalid discount ID format", nil)
	}
	var req models.DiscountActiveRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body", nil)
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "Validation failed", err.Error())
	}

	discount, err := dc.discounts.SetActive(ctx, middleware.ActorFromContext(c), id, *req.Active)
	if err != nil {
		return errorResponse(c, err)
	}
	return ok(c, "Discount updated", discount)
}
