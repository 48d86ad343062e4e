package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

var ErrAuthentication = errors.New("webhook authentication failed")

const (
	HeaderSignature = "x-webhook-signature"
	HeaderTimestamp = "x-webhook-timestamp"
)

// Verifier checks Cashfree webhook signatures: base64(HMAC-SHA256(secret,
// timestamp + raw body)).
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify must see the body exactly as received.
func (v *Verifier) Verify(raw []byte, timestamp, signature string) error {
	if len(v.secret) == 0 {
		return fmt.Errorf("%w: no webhook secret configured", ErrAuthentication)
	}
	if signature == "" || timestamp == "" {
		return fmt.Errorf("%w: missing signature headers", ErrAuthentication)
	}
	got, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: signature is not base64", ErrAuthentication)
	}
	if !hmac.Equal(got, v.mac(raw, timestamp)) {
		return ErrAuthentication
	}
	return nil
}

// Sign produces the header value a provider would send for raw.
func (v *Verifier) Sign(raw []byte, timestamp string) string {
	return base64.StdEncoding.EncodeToString(v.mac(raw, timestamp))
}

func (v *Verifier) mac(raw []byte, timestamp string) []byte {
	m := hmac.New(sha256.New, v.secret)
	m.Write([]byte(timestamp))
	m.Write(raw)
	return m.Sum(nil)
}
