package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/goodsco/referidos_backend/middleware"
	"github.com/goodsco/referidos_backend/models"
	"github.com/goodsco/referidos_backend/services"
	"github.com/labstack/echo/v4"
)

type AuthController struct {
	partners  *services.PartnerService
	jwtSecret string
	tokenTTL  time.Duration
}

func NewAuthController(partners *services.PartnerService, jwtSecret string, tokenTTL time.Duration) *AuthController {
	return &AuthController{partners: partners, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

// Register creates a partner account
func (ac *AuthController) Register(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body", nil)
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "Validation failed", err.Error())
	}

	partner, err := ac.partners.Register(ctx, req)
	if err != nil {
		return errorResponse(c, err)
	}
	token, err := middleware.GenerateJWT(ac.jwtSecret, partner, ac.tokenTTL)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Partner registered successfully",
		Data:    map[string]interface{}{"token": token, "partner": partner},
	})
}

// Login exchanges credentials for a token
func (ac *AuthController) Login(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body", nil)
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "Validation failed", err.Error())
	}

	partner, err := ac.partners.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return errorResponse(c, err)
	}
	token, err := middleware.GenerateJWT(ac.jwtSecret, partner, ac.tokenTTL)
	if err != nil {
		return errorResponse(c, err)
	}
	return ok(c, "Login successful", map[string]interface{}{"token": token, "partner": partner})
}

// Me returns the authenticated partner
func (ac *AuthController) Me(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	partner, err := ac.partners.Profile(ctx, middleware.ActorFromContext(c).ID)
	if err != nil {
		return errorResponse(c, err)
	}
	return ok(c, "Partner retrieved", partner)
}

// SetFCMToken registers the caller's device for push notifications
func (ac *AuthController) SetFCMToken(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	var req models.FCMTokenRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request body", nil)
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, "Validation failed", err.Error())
	}
	if err := ac.partners.SetFCMToken(ctx, middleware.ActorFromContext(c).ID, req.Token); err != nil {
		return errorResponse(c, err)
	}
	return ok(c, "FCM token updated", nil)
}
