package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// Sign returns the hex HMAC-SHA256 of prefix||body keyed by secret.
func Sign(secret, prefix string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(prefix))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Signer attaches the webhook signature header. The zero value signs nothing.
type Signer struct {
	Secret string
	Header string // default X-Signature-SHA256
	Prefix string
}

func (s Signer) Enabled() bool { return s.Secret != "" }

// Signature returns the header name and value for body.
func (s Signer) Signature(body []byte) (name, value string) {
	name = s.Header
	if name == "" {
		name = "X-Signature-SHA256"
	}
	return name, Sign(s.Secret, s.Prefix, body)
}

// BasicHeader is the Authorization value for HTTP Basic auth.
func BasicHeader(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}
