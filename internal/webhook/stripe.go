// Package webhook authenticates inbound processor callbacks and parses their
// envelopes. It has no knowledge of the ledger.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"marketplace/internal/domain"
)

const (
	SignatureHeader  = "Stripe-Signature"
	DefaultTolerance = 300 * time.Second
)

var (
	errMissingSecret    = errors.New("webhook secret is not configured")
	errMalformedHeader  = errors.New("malformed signature header")
	errSignatureMissing = errors.New("no matching v1 signature")
	errOutsideTolerance = errors.New("timestamp outside tolerance")
)

// Verifier checks the Stripe v1 scheme: HMAC-SHA256 of "<t>.<raw body>"
// keyed with the endpoint secret.
type Verifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	return &Verifier{
		secret:    []byte(secret),
		tolerance: tolerance,
		now:       time.Now,
	}
}

// Verify returns nil only for an authentic, fresh payload. Every failure
// wraps domain.ErrInvalidSignature.
func (v *Verifier) Verify(header string, body []byte) error {
	if len(v.secret) == 0 {
		return fmt.Errorf("%w: %v", domain.ErrInvalidSignature, errMissingSecret)
	}

	timestamp, signatures := parseSignatureHeader(header)
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil || ts <= 0 || len(signatures) == 0 {
		return fmt.Errorf("%w: %v", domain.ErrInvalidSignature, errMalformedHeader)
	}

	expected := computeSignature(v.secret, timestamp, body)
	matched := false
	for _, sig := range signatures {
		decoded, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(expected, decoded) {
			matched = true
			break
		}
	}
	if !matched {
		return fmt.Errorf("%w: %v", domain.ErrInvalidSignature, errSignatureMissing)
	}

	if v.tolerance > 0 {
		skew := v.now().Sub(time.Unix(ts, 0))
		if skew < 0 {
			skew = -skew
		}
		if skew > v.tolerance {
			return fmt.Errorf("%w: %v", domain.ErrInvalidSignature, errOutsideTolerance)
		}
	}
	return nil
}

// SignatureHeaderValue builds a header the way the processor does. Used by
// tests and local tooling that replays events.
func SignatureHeaderValue(secret string, at time.Time, body []byte) string {
	timestamp := strconv.FormatInt(at.Unix(), 10)
	return "t=" + timestamp + ",v1=" + hex.EncodeToString(computeSignature([]byte(secret), timestamp, body))
}

func computeSignature(secret []byte, timestamp string, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte{'.'})
	mac.Write(body)
	return mac.Sum(nil)
}

func parseSignatureHeader(header string) (string, []string) {
	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		key, val := strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1])
		switch key {
		case "t":
			if timestamp == "" {
				timestamp = val
			}
		case "v1":
			signatures = append(signatures, val)
		}
	}
	return timestamp, signatures
}

// Event is the processor envelope. Object is decoded lazily by the
// dispatcher once it knows the event type.
type Event struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

func ParseEvent(body []byte) (*Event, error) {
	var evt Event
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, fmt.Errorf("decode webhook event: %w", err)
	}
	if evt.Type == "" {
		return nil, errors.New("webhook event has no type")
	}
	return &evt, nil
}

// CheckoutSession is the subset of a checkout.session object the ledger
// needs.
type CheckoutSession struct {
	ID                string            `json:"id"`
	ClientReferenceID string            `json:"client_reference_id"`
	PaymentIntent     string            `json:"payment_intent"`
	PaymentStatus     string            `json:"payment_status"`
	Metadata          map[string]string `json:"metadata"`
}

type PaymentIntent struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata"`
}

type Charge struct {
	ID             string            `json:"id"`
	PaymentIntent  string            `json:"payment_intent"`
	Amount         int64             `json:"amount"`
	AmountRefunded int64             `json:"amount_refunded"`
	Refunded       bool              `json:"refunded"`
	Metadata       map[string]string `json:"metadata"`
}

// FullyRefunded reports whether the whole captured amount went back to the
// buyer. Partial refunds leave the charge open.
func (c Charge) FullyRefunded() bool {
	if c.Refunded {
		return true
	}
	return c.Amount > 0 && c.AmountRefunded >= c.Amount
}
