package controllers

import (
	"context"

	"github.com/goodsco/referidos_backend/middleware"
	"github.com/goodsco/referidos_backend/services"
	"github.com/goodsco/referidos_backend/utils"
	"github.com/labstack/echo/v4"
)

type ReferralController struct {
	partners      *services.PartnerService
	publicBaseURL string
}

func NewReferralController(partners *services.PartnerService, publicBaseURL string) *ReferralController {
	return &ReferralController{partners: partners, publicBaseURL: publicBaseURL}
}

// GetReferralData returns the partner's referral code, landing link and QR code
func (rc *ReferralController) GetReferralData(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	partner, err := rc.partners.Profile(ctx, middleware.ActorFromContext(c).ID)
	if err != nil {
		return errorResponse(c, err)
	}

	link := utils.ReferralLink(rc.publicBaseURL, partner.ReferralCode)
	qrCode, err := utils.ReferralQRCode(link)
	if err != nil {
		return errorResponse(c, err)
	}

	return ok(c, "Referral data retrieved", map[string]interface{}{
		"referralCode": partner.ReferralCode,
		"referralLink": link,
		"qrCode":       qrCode,
	})
}
