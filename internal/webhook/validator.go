// Package webhook receives and validates push notifications from the
// aggregator, triggering account syncs for referenced accounts.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/caixahub/caixahub/internal/common"
)

// SignatureHeader carries the hex-encoded HMAC-SHA256 of the raw payload.
const SignatureHeader = "X-Pluggy-Signature"

// Validator checks webhook payload signatures. It fails closed: any missing,
// malformed, or mismatching signature rejects the payload.
type Validator struct {
	secret []byte
}

// NewValidator creates a validator for the given shared secret.
func NewValidator(secret string) (*Validator, error) {
	if secret == "" {
		return nil, fmt.Errorf("webhook secret is required: %w", common.ErrMissingConfig)
	}
	return &Validator{secret: []byte(secret)}, nil
}

// Validate verifies the HMAC-SHA256 signature over the raw payload using a
// constant-time comparison. An optional "sha256=" prefix on the header is
// accepted.
func (v *Validator) Validate(payload []byte, signatureHeader string) error {
	header := strings.TrimSpace(signatureHeader)
	if header == "" {
		return fmt.Errorf("%w: missing signature header", common.ErrWebhookValidation)
	}
	header = strings.TrimPrefix(header, "sha256=")

	provided, err := hex.DecodeString(header)
	if err != nil {
		return fmt.Errorf("%w: malformed signature", common.ErrWebhookValidation)
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)
	expected := mac.Sum(nil)

	if !hmac.Equal(expected, provided) {
		return fmt.Errorf("%w: signature mismatch", common.ErrWebhookValidation)
	}

	return nil
}
