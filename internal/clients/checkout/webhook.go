package checkout

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/fastprodman/creatorledger/internal/apperr"
)

const SignatureHeader = "X-Checkout-Signature"

const (
	MetaHolderID = "holder_id"
	MetaActorID  = "actor_id"
	MetaAmount   = "amount"
)

const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
)

var ErrBadSignature = fmt.Errorf("webhook signature mismatch: %w", apperr.ErrUnauthorized)

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a signature header of the form "<hex>" or
// "sha256=<hex>" against body.
func VerifySignature(secret, header string, body []byte) error {
	if secret == "" {
		return fmt.Errorf("webhook secret not configured: %w", apperr.ErrUnauthorized)
	}

	got, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(header), "sha256="))
	if err != nil || len(got) == 0 {
		return ErrBadSignature
	}

	want, _ := hex.DecodeString(Sign(secret, body))
	if !hmac.Equal(got, want) {
		return ErrBadSignature
	}

	return nil
}

type Event struct {
	Type       string
	PaymentID  string
	CheckoutID string
	HolderID   string
	Amount     int64
}

type eventBody struct {
	Type string `json:"type"`
	Data struct {
		ID         string            `json:"id"`
		CheckoutID string            `json:"checkout_id"`
		Metadata   map[string]string `json:"metadata"`
	} `json:"data"`
}

// ParseEvent decodes a webhook body. Metadata fields are optional on
// events other than payment.succeeded.
func ParseEvent(body []byte) (Event, error) {
	var b eventBody
	if err := json.Unmarshal(body, &b); err != nil {
		return Event{}, apperr.Invalid("body", "malformed webhook: %v", err)
	}

	if b.Type == "" {
		return Event{}, apperr.Invalid("type", "is required")
	}

	ev := Event{
		Type:       b.Type,
		PaymentID:  b.Data.ID,
		CheckoutID: b.Data.CheckoutID,
		HolderID:   b.Data.Metadata[MetaHolderID],
	}

	if raw := b.Data.Metadata[MetaAmount]; raw != "" {
		amount, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Event{}, apperr.Invalid("metadata.amount", "not an integer: %q", raw)
		}

		ev.Amount = amount
	}

	if ev.Type == EventPaymentSucceeded && ev.PaymentID == "" {
		return Event{}, apperr.Invalid("data.id", "is required")
	}

	return ev, nil
}
