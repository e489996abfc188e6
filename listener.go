package agentpay

import "context"

// PushMessageTypePaymentRequest is the only push message type acted on by the
// listener; everything else is ignored.
const PushMessageTypePaymentRequest = "payment_request"

// PushMessage is a notification delivered over the gateway's push channel.
type PushMessage struct {
	Type                  string        `json:"type"`
	AgentID               string        `json:"agentId"`
	PublicKey             string        `json:"publicKey"`
	AgentPaymentReference string        `json:"agentPaymentReference,omitempty"`
	PaymentAdvice         PaymentAdvice `json:"paymentAdvice"`
}

// Subscription is a live push-channel subscription. Messages and Errors stay
// open until the subscription fails or is closed.
type Subscription interface {
	Messages() <-chan PushMessage
	Errors() <-chan error
	Close() error
}

// PushChannel opens long-lived subscriptions keyed by merchant identifier and
// public key. The transport behind it (server-sent events, long polling) is
// up to the implementation.
type PushChannel interface {
	Subscribe(ctx context.Context, merchantID, publicKey string) (Subscription, error)
}

// listen is the notification loop. It consumes one subscription at a time;
// whenever the subscription fails it waits the fixed reconnect delay and
// opens a fresh one, indefinitely. A nil sub starts directly in the
// reconnect path. Returns when the client is destroyed.
func (c *Client) listen(sub Subscription) {
	for {
		if sub == nil {
			select {
			case <-c.done:
				return
			case <-c.timer(c.reconnectDelay):
			}
			next, err := c.push.Subscribe(context.Background(), c.merchantID, c.publicKey)
			if err != nil {
				c.logger.Warn("push channel reconnect failed",
					"error", err, "delay", c.reconnectDelay)
				continue
			}
			if !c.setSubscription(next) {
				_ = next.Close()
				return
			}
			c.logger.Info("push channel reconnected", "merchant_id", c.merchantID)
			sub = next
			continue
		}
		select {
		case <-c.done:
			return
		case msg, ok := <-sub.Messages():
			if !ok {
				_ = sub.Close()
				sub = nil
				continue
			}
			c.handlePushMessage(msg)
		case err, ok := <-sub.Errors():
			if ok {
				c.logger.Warn("push channel error, scheduling reconnect",
					"error", err, "delay", c.reconnectDelay)
			}
			_ = sub.Close()
			sub = nil
		}
	}
}

// handlePushMessage runs the handshake for a pushed payment request. A failed
// handshake must not stop the subscription, so errors are logged and
// swallowed here.
func (c *Client) handlePushMessage(msg PushMessage) {
	if msg.Type != PushMessageTypePaymentRequest {
		return
	}
	if _, err := c.HandlePaymentRequest(context.Background(), msg.AgentID, msg.PublicKey, msg.AgentPaymentReference, msg.PaymentAdvice); err != nil {
		c.logger.Error("payment request handling failed",
			"agent_id", msg.AgentID, "error", err)
	}
}
