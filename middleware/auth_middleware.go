// middleware/auth_middleware.go
package middleware

import (
	"net/http"

	"github.com/goodsco/referidos_backend/models"
	"github.com/goodsco/referidos_backend/services"
	"github.com/goodsco/referidos_backend/utils"
	"github.com/labstack/echo/v4"
)

var logger = utils.PackageLogger("middleware")

// RequireAdmin lets through only actors the authorizer allows to administer.
// Services check again; this rejects early at the routing layer.
func RequireAdmin(auth services.Authorizer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := ActorFromContext(c)
			if actor.ID.IsZero() {
				return c.JSON(http.StatusUnauthorized, models.Response{
					Status:  http.StatusUnauthorized,
					Message: "Authentication required",
				})
			}
			if !auth.CanAdminister(actor) {
				logger.Warn().
					Str("path", c.Request().URL.Path).
					Str("partner", actor.ID.Hex()).
					Str("role", string(actor.Role)).
					Msg("administrative access denied")
				return c.JSON(http.StatusForbidden, models.Response{
					Status:  http.StatusForbidden,
					Message: "Access denied for your role",
				})
			}
			return next(c)
		}
	}
}
