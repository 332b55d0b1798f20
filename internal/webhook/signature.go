package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Headers set on every delivery.
const (
	HeaderSignature = "X-HomeGuard-Signature"
	HeaderEvent     = "X-HomeGuard-Event"
	HeaderDelivery  = "X-HomeGuard-Delivery"
)

// Sign returns the "sha256=<hex>" HMAC of payload.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
