package agentpay

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	canonicaljson "github.com/gibson042/canonicaljson-go"

	"github.com/agentpay/agentpay-go/secret"
)

// WebhookNotification is the payload the gateway delivers to the merchant
// endpoint on a payment status change. The secret authenticates the delivery:
// it must match the one minted for the payment during the handshake.
type WebhookNotification struct {
	PaymentID string        `json:"payment_id"`
	Status    PaymentStatus `json:"status"`
	Secret    string        `json:"secret"`
}

type webhookConfig struct {
	signingKey   []byte
	maxClockSkew time.Duration
	clock        func() time.Time
}

// WebhookOption customizes the webhook handler.
type WebhookOption func(*webhookConfig)

// WithWebhookSigningKey enforces an HMAC-SHA256 signature on every delivery.
// The gateway signs RFC3339(timestamp) + "." + canonical JSON body with this
// key and sends the base64url digest in the Signature header alongside a
// Timestamp header.
func WithWebhookSigningKey(key []byte) WebhookOption {
	if len(key) == 0 {
		panic("agentpay: webhook signing key must not be empty")
	}
	return func(cfg *webhookConfig) {
		cfg.signingKey = key
	}
}

// WithWebhookMaxClockSkew sets the tolerated absolute difference between the
// Timestamp header and the server clock when verifying signed deliveries.
func WithWebhookMaxClockSkew(skew time.Duration) WebhookOption {
	if skew <= 0 {
		panic("agentpay: webhook max clock skew must be positive")
	}
	return func(cfg *webhookConfig) {
		cfg.maxClockSkew = skew
	}
}

// webhookWithClock provides deterministic time in tests.
func webhookWithClock(fn func() time.Time) WebhookOption {
	return func(cfg *webhookConfig) {
		cfg.clock = fn
	}
}

// WebhookHandler is the merchant-hosted receiving end of the gateway's
// webhook contract. Authenticated deliveries are reconciled into the client's
// pending-payment table and fanned out as payment events.
type WebhookHandler struct {
	client *Client
	cfg    webhookConfig
}

// NewWebhookHandler wires webhook deliveries to the given client.
func NewWebhookHandler(client *Client, opts ...WebhookOption) *WebhookHandler {
	if client == nil {
		panic("agentpay: webhook handler requires a client")
	}
	cfg := webhookConfig{
		maxClockSkew: 5 * time.Minute,
		clock:        time.Now,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	return &WebhookHandler{client: client, cfg: cfg}
}

// ServeHTTP satisfies http.Handler.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, kindInvalidRequest, "method not allowed")
		return
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, kindInvalidRequest, "unable to read request body")
		return
	}
	defer func() { _ = r.Body.Close() }()

	if len(h.cfg.signingKey) > 0 {
		if !h.verifySignature(w, r, raw) {
			return
		}
	}

	var notification WebhookNotification
	if err := json.Unmarshal(raw, &notification); err != nil {
		writeJSONError(w, http.StatusBadRequest, kindInvalidRequest, "request body must be valid JSON")
		return
	}
	if notification.PaymentID == "" || notification.Status == "" || notification.Secret == "" {
		writeJSONError(w, http.StatusBadRequest, kindInvalidRequest, "payment_id, status, and secret are required")
		return
	}
	pending, ok := h.client.PendingPayment(notification.PaymentID)
	if !ok {
		writeJSONError(w, http.StatusNotFound, kindUnknownPayment, "unknown payment identifier")
		return
	}
	if !secret.Equal(pending.Secret, notification.Secret) {
		writeJSONError(w, http.StatusUnauthorized, kindInvalidSecret, "secret does not match")
		return
	}

	h.client.store.setStatus(notification.PaymentID, notification.Status)

	var event PaymentEvent
	if err := json.Unmarshal(raw, &event); err == nil {
		delete(event.Extra, "secret")
		h.client.DispatchPaymentEvent(event)
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"payment_id": notification.PaymentID,
		"status":     string(notification.Status),
	})
}

// verifySignature enforces the Signature and Timestamp headers. It writes the
// failure response itself and reports whether the delivery may proceed.
func (h *WebhookHandler) verifySignature(w http.ResponseWriter, r *http.Request, raw []byte) bool {
	sig := strings.TrimSpace(r.Header.Get("Signature"))
	timestampHeader := strings.TrimSpace(r.Header.Get("Timestamp"))
	if sig == "" || timestampHeader == "" {
		writeJSONError(w, http.StatusUnauthorized, kindInvalidSignature, "Signature and Timestamp headers are required")
		return false
	}
	ts, err := parseWebhookTimestamp(timestampHeader)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, kindInvalidSignature, "Timestamp must be RFC3339")
		return false
	}
	if skew := h.cfg.clock().Sub(ts.UTC()); skew > h.cfg.maxClockSkew || skew < -h.cfg.maxClockSkew {
		writeJSONError(w, http.StatusUnauthorized, kindStaleTimestamp, "timestamp skew exceeds the allowed window")
		return false
	}
	canonicalBody, err := canonicalizeWebhookBody(raw)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, kindInvalidRequest, "request body must be valid JSON")
		return false
	}
	decoded, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		writeJSONError(w, http.StatusUnauthorized, kindInvalidSignature, "signature is not valid base64url")
		return false
	}
	mac := hmac.New(sha256.New, h.cfg.signingKey)
	mac.Write(webhookSigningPayload(ts, canonicalBody))
	if !hmac.Equal(decoded, mac.Sum(nil)) {
		writeJSONError(w, http.StatusUnauthorized, kindInvalidSignature, "signature verification failed")
		return false
	}
	return true
}

// SignWebhookPayload computes the delivery signature the way the gateway
// does. Exposed so integration tests and gateway simulators can produce
// verifiable deliveries.
func SignWebhookPayload(key []byte, ts time.Time, body []byte) (string, error) {
	canonicalBody, err := canonicalizeWebhookBody(body)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(webhookSigningPayload(ts, canonicalBody))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)), nil
}

func webhookSigningPayload(ts time.Time, canonicalBody []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(ts.UTC().Format(time.RFC3339Nano))
	buf.WriteByte('.')
	buf.Write(canonicalBody)
	return buf.Bytes()
}

// canonicalizeWebhookBody normalizes the delivery body so signing is
// insensitive to key order and whitespace.
func canonicalizeWebhookBody(raw []byte) ([]byte, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return []byte("null"), nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("agentpay: multiple JSON documents in webhook body")
	}
	return canonicaljson.Marshal(payload)
}

// parseWebhookTimestamp accepts RFC3339 or RFC3339Nano timestamp headers.
func parseWebhookTimestamp(value string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, value)
}
