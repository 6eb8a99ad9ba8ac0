package auth

import (
	"bytes"
	"crypto/rand"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"image/png"
	"strings"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const totpIssuer = "Raptor Panel"

// NewSecret mints a fresh base32 TOTP secret (spec.md §4.C4 "Setup").
func NewSecret() (string, error) {
	raw := make([]byte, 20)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw), nil
}

// ProvisioningURI builds the otpauth:// URL plus a data-URI QR code, per
// spec.md §4.C4 ("issuer: Raptor Panel, label: username", "appending
// image=<app-url>/favicon.png").
func ProvisioningURI(secret, username, appURL string) (otpauthURL, qrDataURI string, err error) {
	key, err := otp.NewKeyFromURL(fmt.Sprintf(
		"otpauth://totp/%s:%s?secret=%s&issuer=%s&image=%s",
		totpIssuer, username, secret, totpIssuer, appURL+"/favicon.png",
	))
	if err != nil {
		return "", "", err
	}
	otpauthURL = key.URL()

	qrCode, err := qr.Encode(otpauthURL, qr.M, qr.Auto)
	if err != nil {
		return "", "", err
	}
	qrCode, err = barcode.Scale(qrCode, 256, 256)
	if err != nil {
		return "", "", err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, qrCode); err != nil {
		return "", "", err
	}
	qrDataURI = "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	return otpauthURL, qrDataURI, nil
}

// VerifyCode checks a 6-digit code against the secret with ±3 steps (90s)
// of clock-drift tolerance, per spec.md §4.C4 "Verify" and §8 invariant 9.
func VerifyCode(code, secret string) (bool, error) {
	code = strings.ReplaceAll(strings.TrimSpace(code), "-", "")
	return totp.ValidateCustom(code, secret, time.Now(), totp.ValidateOpts{
		Period:    30,
		Skew:      3,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
}
