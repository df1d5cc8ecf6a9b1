package routes

import (
	"github.com/labstack/echo/v4"
)

// RegisterAuthRoutes registers registration and login
func RegisterAuthRoutes(api *echo.Group, h Handlers, authenticated echo.MiddlewareFunc) {
	auth := api.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.GET("/me", h.Auth.Me, authenticated)
}
