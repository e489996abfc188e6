package agentpay

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/agentpay/agentpay-go/secret"
)

type lifecycleState int

const (
	stateUninitialized lifecycleState = iota
	stateInitialized
	stateDestroyed
)

// DefaultReconnectDelay is the fixed wait before the push subscription is
// reopened after a channel error.
const DefaultReconnectDelay = 5 * time.Second

type clientConfig struct {
	httpClient     *http.Client
	gateway        Gateway
	push           PushChannel
	logger         *slog.Logger
	reconnectDelay time.Duration
	timer          func(time.Duration) <-chan time.Time
}

// Option customizes the client behavior.
type Option func(*clientConfig)

// WithHTTPClient sets the http.Client used for gateway calls.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(cfg *clientConfig) {
		cfg.httpClient = httpClient
	}
}

// WithGateway replaces the default HTTP gateway client, for example with a
// stub in tests or a custom transport.
func WithGateway(gateway Gateway) Option {
	return func(cfg *clientConfig) {
		cfg.gateway = gateway
	}
}

// WithPushChannel sets the push-notification transport the listener
// subscribes to. Without one the client never receives pushed payment
// requests and applications drive [Client.HandlePaymentRequest] themselves.
func WithPushChannel(push PushChannel) Option {
	return func(cfg *clientConfig) {
		cfg.push = push
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *clientConfig) {
		cfg.logger = logger
	}
}

// WithReconnectDelay overrides the fixed delay between push-channel failure
// and the reconnect attempt.
func WithReconnectDelay(d time.Duration) Option {
	if d <= 0 {
		panic("agentpay: reconnect delay must be positive")
	}
	return func(cfg *clientConfig) {
		cfg.reconnectDelay = d
	}
}

// withReconnectTimer provides deterministic reconnect timing in tests.
func withReconnectTimer(fn func(time.Duration) <-chan time.Time) Option {
	return func(cfg *clientConfig) {
		cfg.timer = fn
	}
}

// Client accepts agent-initiated payments for a single merchant. Each Client
// owns its pending-payment table and push subscription; multiple independent
// clients may coexist in one process.
type Client struct {
	merchantID string
	publicKey  string
	gatewayURL string

	gateway        Gateway
	push           PushChannel
	logger         *slog.Logger
	reconnectDelay time.Duration
	timer          func(time.Duration) <-chan time.Time

	store  *pendingStore
	events *notifier

	mu    sync.Mutex
	state lifecycleState
	sub   Subscription
	done  chan struct{}
}

// New builds a client for the given merchant. The public key authenticates
// the merchant against the gateway at gatewayURL.
func New(merchantID, publicKey, gatewayURL string, opts ...Option) *Client {
	if merchantID == "" {
		panic("agentpay: merchant id is required")
	}
	if publicKey == "" {
		panic("agentpay: public key is required")
	}
	cfg := clientConfig{
		reconnectDelay: DefaultReconnectDelay,
		timer:          time.After,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.gateway == nil {
		cfg.gateway = NewHTTPGateway(gatewayURL, publicKey, cfg.httpClient)
	}
	return &Client{
		merchantID:     merchantID,
		publicKey:      publicKey,
		gatewayURL:     gatewayURL,
		gateway:        cfg.gateway,
		push:           cfg.push,
		logger:         cfg.logger,
		reconnectDelay: cfg.reconnectDelay,
		timer:          cfg.timer,
		store:          newPendingStore(),
		events:         &notifier{},
		done:           make(chan struct{}),
	}
}

// Init transitions the client to its initialized state, announces the
// discoverability marker, and opens the push subscription when a channel is
// configured. A subscription that cannot be opened immediately is retried on
// the reconnect schedule rather than failing Init.
func (c *Client) Init(ctx context.Context) error {
	c.mu.Lock()
	if c.state != stateUninitialized {
		c.mu.Unlock()
		return NewNotInitializedError("init: client is not in its uninitialized state")
	}
	c.state = stateInitialized
	c.mu.Unlock()

	c.logger.Info("agent payments enabled",
		"merchant_id", c.merchantID,
		"marker", c.Marker().HTMLAttributes())

	if c.push == nil {
		return nil
	}
	sub, err := c.push.Subscribe(ctx, c.merchantID, c.publicKey)
	if err != nil {
		c.logger.Warn("push subscription failed, scheduling reconnect",
			"error", err, "delay", c.reconnectDelay)
		go c.listen(nil)
		return nil
	}
	if !c.setSubscription(sub) {
		_ = sub.Close()
		return nil
	}
	go c.listen(sub)
	return nil
}

// HandlePaymentRequest runs the payment-request handshake: validate the
// advice, encrypt it for the agent, mint the shared secret, register the
// payment with the gateway, and record the pending entry. Validation and
// cryptographic failures abort before any network call; nothing is stored
// until the gateway has assigned a payment identifier.
func (c *Client) HandlePaymentRequest(ctx context.Context, agentID, agentPublicKeyPEM, agentPaymentReference string, advice PaymentAdvice) (*PaymentInitResult, error) {
	if c.lifecycle() != stateInitialized {
		return nil, NewNotInitializedError("handle payment request: client is not initialized")
	}
	if err := advice.Validate(); err != nil {
		return nil, err
	}
	agentKey, err := parseAgentPublicKey(agentPublicKeyPEM)
	if err != nil {
		return nil, NewInvalidAgentKeyError("agent public key is not a valid RSA PEM", WithCause(err))
	}
	encrypted, err := encryptAdvice(agentKey, advice)
	if err != nil {
		return nil, NewEncryptionFailedError("encrypt payment advice", WithCause(err))
	}
	paymentSecret, err := secret.New()
	if err != nil {
		return nil, NewEncryptionFailedError("mint payment secret", WithCause(err))
	}
	resp, err := c.gateway.InitializePayment(ctx, PaymentInitRequest{
		PaymentAdvice:          advice,
		EncryptedPaymentAdvice: encrypted,
		AgentID:                agentID,
		MerchantID:             c.merchantID,
		Secret:                 paymentSecret,
		AgentPaymentReference:  agentPaymentReference,
	})
	if err != nil {
		return nil, NewGatewayError("initialize payment", WithCause(err))
	}
	c.store.put(resp.PaymentID, PendingPayment{
		AgentID: agentID,
		Secret:  paymentSecret,
		Status:  PaymentStatusInitialized,
	})
	c.logger.Info("payment initialized", "payment_id", resp.PaymentID, "agent_id", agentID)
	return &PaymentInitResult{
		PaymentID:       resp.PaymentID,
		EncryptedAdvice: encrypted,
		Secret:          paymentSecret,
	}, nil
}

// VerifyPayment asks the gateway for the authoritative status of a payment
// and, when the payment is tracked locally, reconciles the reported status
// into the pending-payment table. The table is untouched on failure.
func (c *Client) VerifyPayment(ctx context.Context, paymentID string) (*VerificationResult, error) {
	if c.lifecycle() != stateInitialized {
		return nil, NewNotInitializedError("verify payment: client is not initialized")
	}
	result, err := c.gateway.VerifyPayment(ctx, paymentID)
	if err != nil {
		return nil, NewVerificationFailedError("verify payment", WithCause(err))
	}
	if result.Status != "" {
		c.store.setStatus(paymentID, result.Status)
	}
	return result, nil
}

// PaymentStatus returns the cached status when the payment is tracked
// locally, saving the network round trip, and otherwise delegates to
// [Client.VerifyPayment]. Callers needing guaranteed freshness should verify
// directly.
func (c *Client) PaymentStatus(ctx context.Context, paymentID string) (PaymentStatus, error) {
	if p, ok := c.store.get(paymentID); ok {
		return p.Status, nil
	}
	result, err := c.VerifyPayment(ctx, paymentID)
	if err != nil {
		return "", err
	}
	return result.Status, nil
}

// PendingPayment returns the locally tracked entry for a payment identifier.
func (c *Client) PendingPayment(paymentID string) (PendingPayment, bool) {
	return c.store.get(paymentID)
}

// OnPaymentEvent registers cb for every dispatched payment event and returns
// a handle that unregisters it.
func (c *Client) OnPaymentEvent(cb PaymentCallback) (unsubscribe func()) {
	return c.events.subscribe(cb)
}

// DispatchPaymentEvent delivers ev synchronously to all registered callbacks
// in registration order.
func (c *Client) DispatchPaymentEvent(ev PaymentEvent) {
	c.events.dispatch(ev)
}

// Marker is the discoverability announcement for this merchant.
func (c *Client) Marker() DiscoveryMarker {
	return DiscoveryMarker{MerchantID: c.merchantID}
}

// Destroy closes the push subscription and clears the pending-payment table.
// The transition is terminal: later handshake and verification calls fail
// with [NotInitialized]. Requests already in flight complete independently;
// their results landing in a cleared table is tolerated. Destroying twice is
// a no-op.
func (c *Client) Destroy() {
	c.mu.Lock()
	if c.state == stateDestroyed {
		c.mu.Unlock()
		return
	}
	c.state = stateDestroyed
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()

	close(c.done)
	if sub != nil {
		_ = sub.Close()
	}
	c.store.clear()
	c.logger.Info("client destroyed", "merchant_id", c.merchantID)
}

func (c *Client) lifecycle() lifecycleState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// setSubscription records the active subscription handle unless the client
// was destroyed in the meantime.
func (c *Client) setSubscription(sub Subscription) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == stateDestroyed {
		return false
	}
	c.sub = sub
	return true
}
