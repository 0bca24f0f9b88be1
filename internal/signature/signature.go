// Package signature signs and verifies payment provider messages with HMAC-SHA256.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
)

// Header carries the hex-encoded HMAC of the raw body.
const Header = "Signature"

// Sign returns the lowercase hex HMAC-SHA256 of body under key.
func Sign(body []byte, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the MAC over the exact body bytes and compares it with the
// Signature header in constant time. An empty key or a missing header never verifies.
func Verify(h http.Header, body []byte, key string) bool {
	if key == "" || h == nil {
		return false
	}
	got := strings.TrimSpace(h.Get(Header))
	if got == "" {
		return false
	}
	want := Sign(body, key)
	return hmac.Equal([]byte(strings.ToLower(got)), []byte(want))
}
