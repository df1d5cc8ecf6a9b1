package utils

import (
	"bytes"
	"crypto/rand"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"image/png"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

// GenerateReferralCode generates a referral code for a partner
// Format: {PREFIX}-{RANDOM} where PREFIX is the first 3 letters of the name
// and RANDOM is 6 base32 characters
// Example: JUA-ABC123
func GenerateReferralCode(name string) (string, error) {
	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}

	randomStr := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(randomBytes)
	randomStr = strings.ToUpper(randomStr[:6])

	return NamePrefix(name, 3) + "-" + randomStr, nil
}

// ReferralLink builds the public landing link for a referral code
func ReferralLink(baseURL, code string) string {
	return strings.TrimRight(baseURL, "/") + "/r/" + code
}

// ReferralQRCode renders content as a 300x300 PNG QR code, base64 encoded
func ReferralQRCode(content string) (string, error) {
	qrCode, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}

	qrCode, err = barcode.Scale(qrCode, 300, 300)
	if err != nil {
		return "", fmt.Errorf("failed to scale QR code: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qrCode); err != nil {
		return "", fmt.Errorf("failed to encode QR image: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
