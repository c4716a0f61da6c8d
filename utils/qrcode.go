package utils

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// QR codes are deterministic: the same product id, edition number and slug always
// produce the same token, so a reprinted batch never invalidates existing stickers.
// The salt keeps codes unguessable without database access.

func qrSalt() string {
	salt := os.Getenv("QR_CODE_SALT")
	if salt == "" {
		return "ltdedn_qr_salt_2025"
	}
	return salt
}

func GenerateQRCode(productId int, editionNumber int, productSlug string) string {
	base := fmt.Sprintf("%d|%d|%s|%s", productId, editionNumber, productSlug, qrSalt())
	sum := sha256.Sum256([]byte(base))
	return hex.EncodeToString(sum[:])
}

// GenerateShortQRCode derives a shorter human-friendly code from the same inputs.
func GenerateShortQRCode(productId int, editionNumber int, productSlug string) string {
	base := fmt.Sprintf("%d|%d|%s|%s|short", productId, editionNumber, productSlug, qrSalt())
	sum := sha256.Sum256([]byte(base))
	return strings.ToUpper(hex.EncodeToString(sum[:])[:8])
}

func VerifyQRCode(productId int, editionNumber int, productSlug string, qrCode string) bool {
	expected := GenerateQRCode(productId, editionNumber, productSlug)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(qrCode)) == 1
}
