package agentpay

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// handshakeForWebhook runs a handshake against a stub gateway so the client
// tracks a payment the webhook can reference.
func handshakeForWebhook(t *testing.T) (*Client, *PaymentInitResult) {
	t.Helper()
	_, agentPEM := testAgentKey(t)
	gateway := &stubGateway{
		initialize: func(ctx context.Context, req PaymentInitRequest) (*PaymentInitResponse, error) {
			return &PaymentInitResponse{PaymentID: "pay_wh"}, nil
		},
	}
	client := initializedClient(t, gateway)
	result, err := client.HandlePaymentRequest(context.Background(), "agent_1", agentPEM, "", sampleAdvice())
	if err != nil {
		t.Fatalf("HandlePaymentRequest() error = %v", err)
	}
	return client, result
}

func postWebhook(t *testing.T, handler http.Handler, payload any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal webhook payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/webhooks/agentpay", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestWebhookHandler(t *testing.T) {
	t.Parallel()

	t.Run("matching secret updates status and dispatches", func(t *testing.T) {
		t.Parallel()

		client, result := handshakeForWebhook(t)
		handler := NewWebhookHandler(client)

		var events []PaymentEvent
		client.OnPaymentEvent(func(ev PaymentEvent) { events = append(events, ev) })

		rec := postWebhook(t, handler, map[string]any{
			"payment_id": result.PaymentID,
			"status":     "completed",
			"secret":     result.Secret,
			"reason":     "",
			"receipt":    "rcpt_9",
		}, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
		}
		pending, ok := client.PendingPayment(result.PaymentID)
		if !ok || pending.Status != PaymentStatusCompleted {
			t.Fatalf("pending payment = %+v, ok=%v, want completed", pending, ok)
		}
		if len(events) != 1 {
			t.Fatalf("dispatched %d events, want 1", len(events))
		}
		if events[0].PaymentID != result.PaymentID || events[0].Status != PaymentStatusCompleted {
			t.Fatalf("unexpected event %+v", events[0])
		}
		if _, leaked := events[0].Extra["secret"]; leaked {
			t.Fatal("secret leaked into the dispatched event")
		}
		if string(events[0].Extra["receipt"]) != `"rcpt_9"` {
			t.Fatalf("extra fields = %v, want receipt preserved", events[0].Extra)
		}
	})

	t.Run("wrong secret is rejected without mutation", func(t *testing.T) {
		t.Parallel()

		client, result := handshakeForWebhook(t)
		handler := NewWebhookHandler(client)

		var dispatched int
		client.OnPaymentEvent(func(PaymentEvent) { dispatched++ })

		rec := postWebhook(t, handler, WebhookNotification{
			PaymentID: result.PaymentID,
			Status:    PaymentStatusCompleted,
			Secret:    "0000000000000000000000000000000000000000000000000000000000000000",
		}, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		pending, _ := client.PendingPayment(result.PaymentID)
		if pending.Status != PaymentStatusInitialized {
			t.Fatalf("status mutated to %q on rejected delivery", pending.Status)
		}
		if dispatched != 0 {
			t.Fatalf("dispatched %d events for rejected delivery, want 0", dispatched)
		}
	})

	t.Run("unknown payment", func(t *testing.T) {
		t.Parallel()

		client, result := handshakeForWebhook(t)
		handler := NewWebhookHandler(client)

		rec := postWebhook(t, handler, WebhookNotification{
			PaymentID: "pay_other",
			Status:    PaymentStatusCompleted,
			Secret:    result.Secret,
		}, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		t.Parallel()

		client, _ := handshakeForWebhook(t)
		handler := NewWebhookHandler(client)

		rec := postWebhook(t, handler, map[string]any{"payment_id": "pay_wh"}, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestWebhookHandlerSignedDeliveries(t *testing.T) {
	t.Parallel()

	key := []byte("webhook-signing-key")
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	newSignedHandler := func(t *testing.T) (*Client, *PaymentInitResult, http.Handler) {
		client, result := handshakeForWebhook(t)
		handler := NewWebhookHandler(client,
			WithWebhookSigningKey(key),
			webhookWithClock(func() time.Time { return now }))
		return client, result, handler
	}

	t.Run("valid signature", func(t *testing.T) {
		t.Parallel()

		client, result, handler := newSignedHandler(t)
		payload := WebhookNotification{PaymentID: result.PaymentID, Status: PaymentStatusCompleted, Secret: result.Secret}
		body, _ := json.Marshal(payload)
		ts := now.Add(-time.Minute)
		sig, err := SignWebhookPayload(key, ts, body)
		if err != nil {
			t.Fatalf("SignWebhookPayload() error = %v", err)
		}
		rec := postWebhook(t, handler, payload, map[string]string{
			"Signature": sig,
			"Timestamp": ts.Format(time.RFC3339),
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
		}
		pending, _ := client.PendingPayment(result.PaymentID)
		if pending.Status != PaymentStatusCompleted {
			t.Fatalf("status = %q, want completed", pending.Status)
		}
	})

	t.Run("missing headers", func(t *testing.T) {
		t.Parallel()

		_, result, handler := newSignedHandler(t)
		rec := postWebhook(t, handler, WebhookNotification{
			PaymentID: result.PaymentID, Status: PaymentStatusCompleted, Secret: result.Secret,
		}, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("stale timestamp", func(t *testing.T) {
		t.Parallel()

		_, result, handler := newSignedHandler(t)
		payload := WebhookNotification{PaymentID: result.PaymentID, Status: PaymentStatusCompleted, Secret: result.Secret}
		body, _ := json.Marshal(payload)
		ts := now.Add(-time.Hour)
		sig, _ := SignWebhookPayload(key, ts, body)
		rec := postWebhook(t, handler, payload, map[string]string{
			"Signature": sig,
			"Timestamp": ts.Format(time.RFC3339),
		})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("tampered body", func(t *testing.T) {
		t.Parallel()

		_, result, handler := newSignedHandler(t)
		original, _ := json.Marshal(WebhookNotification{
			PaymentID: result.PaymentID, Status: PaymentStatusCompleted, Secret: result.Secret,
		})
		ts := now
		sig, _ := SignWebhookPayload(key, ts, original)
		rec := postWebhook(t, handler, WebhookNotification{
			PaymentID: result.PaymentID, Status: PaymentStatusFailed, Secret: result.Secret,
		}, map[string]string{
			"Signature": sig,
			"Timestamp": ts.Format(time.RFC3339),
		})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})
}
