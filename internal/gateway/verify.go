package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// maxSignatureSkew is the replay window for the request timestamp.
const maxSignatureSkew = 300 * time.Second

// VerifySignature validates that body was signed by Slack with secret.
// The signature scheme is HMAC-SHA256 over "v0:<timestamp>:<body>", hex
// encoded with a "v0=" prefix. Fails closed on a stale timestamp regardless
// of signature validity.
func VerifySignature(body []byte, timestamp, signature, secret string, now time.Time) error {
	timestamp = strings.TrimSpace(timestamp)
	signature = strings.TrimSpace(signature)
	if timestamp == "" || signature == "" {
		return errors.New("missing signature headers")
	}
	tsNum, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return errors.New("invalid request timestamp")
	}
	if delta := now.Sub(time.Unix(tsNum, 0)); delta > maxSignatureSkew || delta < -maxSignatureSkew {
		return errors.New("request timestamp out of range")
	}
	base := "v0:" + timestamp + ":" + string(body)
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(base))
	expected := "v0=" + hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return errors.New("signature mismatch")
	}
	return nil
}
