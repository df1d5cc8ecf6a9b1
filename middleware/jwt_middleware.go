// middleware/jwt_middleware.go
package middleware

import (
	"errors"
	"time"

	"github.com/goodsco/referidos_backend/models"
	"github.com/goodsco/referidos_backend/services"
	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultTokenTTL is the lifetime of issued access tokens
const DefaultTokenTTL = 72 * time.Hour

// JwtCustomClaims for JWT token
type JwtCustomClaims struct {
	PartnerID string      `json:"partnerId"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	jwt.StandardClaims
}

// Valid implements the Claims interface for Echo's JWT middleware
func (c JwtCustomClaims) Valid() error {
	if c.ExpiresAt > 0 && time.Now().Unix() > c.ExpiresAt {
		return errors.New("token is expired")
	}
	if c.NotBefore > 0 && time.Now().Unix() < c.NotBefore {
		return errors.New("token used before valid")
	}
	if _, err := primitive.ObjectIDFromHex(c.PartnerID); err != nil {
		return errors.New("token subject is invalid")
	}
	return nil
}

// JWTMiddleware returns a configured JWT middleware. The token is read from
// the Authorization header, or from the token query parameter for websocket
// upgrades that cannot set headers.
func JWTMiddleware(secret string) echo.MiddlewareFunc {
	if secret == "" {
		logger.Warn().Msg("JWT_SECRET is not set; authenticated routes are disabled")
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return echo.NewHTTPError(echo.ErrUnauthorized.Code, "JWT configuration error")
			}
		}
	}

	return middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey:  []byte(secret),
		Claims:      &JwtCustomClaims{},
		TokenLookup: "header:" + echo.HeaderAuthorization + ",query:token",
		SuccessHandler: func(c echo.Context) {
			claims := c.Get("user").(*jwt.Token).Claims.(*JwtCustomClaims)
			c.Set("partnerId", claims.PartnerID)
			c.Set("role", string(claims.Role))
			c.Set("email", claims.Email)
		},
		ErrorHandler: func(err error) error {
			return echo.NewHTTPError(echo.ErrUnauthorized.Code, "Invalid or expired token")
		},
	})
}

// GenerateJWT signs an access token for the partner
func GenerateJWT(secret string, partner *models.Partner, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("JWT_SECRET environment variable is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	now := time.Now()
	claims := &JwtCustomClaims{
		PartnerID: partner.ID.Hex(),
		Email:     partner.Email,
		Role:      partner.Role,
		StandardClaims: jwt.StandardClaims{
			Subject:   partner.ID.Hex(),
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// GetClaimsFromToken extracts the claims set by JWTMiddleware
func GetClaimsFromToken(c echo.Context) *JwtCustomClaims {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return nil
	}
	claims, ok := token.Claims.(*JwtCustomClaims)
	if !ok {
		return nil
	}
	return claims
}

// ActorFromContext returns the authenticated caller. The zero Actor means
// the request carried no valid token.
func ActorFromContext(c echo.Context) services.Actor {
	claims := GetClaimsFromToken(c)
	if claims == nil {
		return services.Actor{}
	}
	id, err := primitive.ObjectIDFromHex(claims.PartnerID)
	if err != nil {
		return services.Actor{}
	}
	return services.Actor{ID: id, Role: claims.Role}
}
