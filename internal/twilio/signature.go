// ABOUTME: Webhook signature computation and verification
// ABOUTME: Keyed HMAC over the exact raw request body, compared in constant time

package twilio

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// SignatureHeader carries the gateway's signature for an inbound webhook call.
const SignatureHeader = "X-Twilio-Signature"

// Sign computes the base64 HMAC-SHA256 signature of a raw request body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a webhook signature against the raw request bytes.
// It fails closed: a missing header, malformed base64, empty secret, or any
// mismatch returns false. Comparison is constant time.
func VerifySignature(body []byte, signatureHeader string, secret []byte) bool {
	if signatureHeader == "" || len(secret) == 0 {
		return false
	}

	supplied, err := base64.StdEncoding.DecodeString(signatureHeader)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), supplied)
}
