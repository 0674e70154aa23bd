package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"strings"
)

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomCode returns a random uppercase alphanumeric code of the given
// length, suitable for referral and promo codes.
func RandomCode(length int) string {
	if length <= 0 {
		return ""
	}

	max := big.NewInt(int64(len(codeCharset)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform source is
			// broken; fall back to the first charset byte rather
			// than returning a short code.
			out[i] = codeCharset[0]
			continue
		}
		out[i] = codeCharset[n.Int64()]
	}
	return string(out)
}

// GenerateInternalHMACToken derives the shared token internal service
// endpoints authenticate with.
func GenerateInternalHMACToken(serviceID, secret string) string {
	cleanServiceID := strings.TrimSpace(serviceID)
	cleanSecret := strings.TrimSpace(secret)
	if cleanServiceID == "" || cleanSecret == "" {
		return ""
	}

	mac := hmac.New(sha256.New, []byte(cleanSecret))
	_, _ = mac.Write([]byte(cleanServiceID))
	return hex.EncodeToString(mac.Sum(nil))
}

func VerifyInternalHMACToken(serviceID, token, secret string) bool {
	expected := GenerateInternalHMACToken(serviceID, secret)
	if expected == "" {
		return false
	}

	provided := strings.ToLower(strings.TrimSpace(token))
	if len(provided) != len(expected) {
		return false
	}

	return hmac.Equal([]byte(provided), []byte(expected))
}
