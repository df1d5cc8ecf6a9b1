package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/goodsco/referidos_backend/models"
	"github.com/labstack/echo/v4"
)

// SignatureHeader carries "sha256=<hex hmac of the raw body>"
const SignatureHeader = "X-Signature"

// maxWebhookBody caps how much of a webhook body is read for verification
const maxWebhookBody = 1 << 20

// SignWebhookBody computes the SignatureHeader value for body
func SignWebhookBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSignature rejects requests whose body does not match the
// SignatureHeader. An empty secret disables verification.
func VerifyWebhookSignature(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if secret == "" {
			return next
		}
		return func(c echo.Context) error {
			req := c.Request()
			body, err := io.ReadAll(io.LimitReader(req.Body, maxWebhookBody))
			if err != nil {
				return c.JSON(http.StatusBadRequest, models.Response{
					Status:  http.StatusBadRequest,
					Message: "Failed to read request body",
				})
			}
			req.Body = io.NopCloser(bytes.NewReader(body))

			provided := strings.TrimPrefix(strings.TrimSpace(req.Header.Get(SignatureHeader)), "sha256=")
			sig, err := hex.DecodeString(provided)
			if err != nil || provided == "" {
				return unauthorizedSignature(c)
			}
			mac := hmac.New(sha256.New, []byte(secret))
			_, _ = mac.Write(body)
			if !hmac.Equal(mac.Sum(nil), sig) {
				return unauthorizedSignature(c)
			}
			return next(c)
		}
	}
}

func unauthorizedSignature(c echo.Context) error {
	logger.Warn().Str("ip", c.RealIP()).Msg("webhook signature rejected")
	return c.JSON(http.StatusUnauthorized, models.Response{
		Status:  http.StatusUnauthorized,
		Message: "Invalid signature",
	})
}
