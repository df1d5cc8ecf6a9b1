package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/goodsco/referidos_backend/models"
	"github.com/goodsco/referidos_backend/services"
	"github.com/goodsco/referidos_backend/utils"
	"github.com/labstack/echo/v4"
)

var logger = utils.PackageLogger("controllers")

const requestTimeout = 10 * time.Second

// errorResponse maps a domain error onto the response envelope
func errorResponse(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, services.ErrBadCredentials):
		status, message = http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, services.ErrUnauthorized):
		status, message = http.StatusForbidden, "Access denied"
	case errors.Is(err, services.ErrInvalidInput):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrUnknownReferralCode):
		status, message = http.StatusBadRequest, "Invalid referral code"
	case errors.Is(err, services.ErrNotFound):
		status, message = http.StatusNotFound, "Not found"
	case errors.Is(err, services.ErrDuplicate):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, services.ErrInvalidTransition):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, services.ErrDocumentsNotApproved):
		status, message = http.StatusConflict, err.Error()
	default:
		logger.Error().Err(err).Str("path", c.Request().URL.Path).Msg("request failed")
	}

	return c.JSON(status, models.Response{
		Status:  status,
		Message: message,
	})
}

func badRequest(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusBadRequest, models.Response{
		Status:  http.StatusBadRequest,
		Message: message,
		Data:    data,
	})
}

func ok(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: message,
		Data:    data,
	})
}
