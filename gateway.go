package agentpay

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// Gateway is the HTTP surface of the payment gateway consumed by the client.
// Implementations must be safe for concurrent use.
type Gateway interface {
	// InitializePayment registers a new payment and returns the
	// gateway-assigned payment identifier.
	InitializePayment(ctx context.Context, req PaymentInitRequest) (*PaymentInitResponse, error)
	// VerifyPayment fetches the authoritative status of a payment.
	VerifyPayment(ctx context.Context, paymentID string) (*VerificationResult, error)
}

// HTTPGateway talks to the gateway's REST endpoints. The merchant public key
// doubles as the API credential: initialize requests carry it as a Bearer
// token, verification requests as an X-API-Key header.
type HTTPGateway struct {
	client    *resty.Client
	publicKey string
}

// NewHTTPGateway builds a gateway client for the given base URL. Pass a nil
// httpClient to use the default transport.
func NewHTTPGateway(baseURL, publicKey string, httpClient *http.Client) *HTTPGateway {
	var rc *resty.Client
	if httpClient != nil {
		rc = resty.NewWithClient(httpClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(strings.TrimRight(baseURL, "/"))
	rc.SetHeader("Accept", "application/json")
	return &HTTPGateway{client: rc, publicKey: publicKey}
}

// InitializePayment implements [Gateway]. Each call carries a fresh
// Idempotency-Key so gateway-side retries cannot double-register a payment.
func (g *HTTPGateway) InitializePayment(ctx context.Context, req PaymentInitRequest) (*PaymentInitResponse, error) {
	var out PaymentInitResponse
	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+g.publicKey).
		SetHeader("Request-Id", uuid.NewString()).
		SetHeader("Idempotency-Key", uuid.NewString()).
		SetBody(req).
		SetResult(&out).
		Post("/api/payments/initialize")
	if err != nil {
		return nil, fmt.Errorf("gateway: initialize payment: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("gateway: initialize payment returned %s: %s", resp.Status(), snippet(resp.String()))
	}
	if out.PaymentID == "" {
		return nil, fmt.Errorf("gateway: initialize payment response missing payment_id")
	}
	return &out, nil
}

// VerifyPayment implements [Gateway].
func (g *HTTPGateway) VerifyPayment(ctx context.Context, paymentID string) (*VerificationResult, error) {
	var out VerificationResult
	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("X-API-Key", g.publicKey).
		SetHeader("Request-Id", uuid.NewString()).
		SetPathParam("paymentId", paymentID).
		SetResult(&out).
		Get("/verify/{paymentId}")
	if err != nil {
		return nil, fmt.Errorf("gateway: verify payment %s: %w", paymentID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("gateway: verify payment %s returned %s: %s", paymentID, resp.Status(), snippet(resp.String()))
	}
	return &out, nil
}

// snippet bounds gateway response bodies quoted in error messages.
func snippet(body string) string {
	body = strings.TrimSpace(body)
	if len(body) > 512 {
		return body[:512]
	}
	return body
}
