// Package agentpay is the merchant-side Go client for accepting payments
// initiated by autonomous agents.
//
// A [Client] owns the full payment-request handshake: it listens for
// payment_request notifications pushed by the gateway, encrypts the proposed
// payment terms for the requesting agent under the agent's RSA public key
// (OAEP with SHA-256), mints a per-payment shared secret, submits the
// initialization request, and tracks the pending payment locally until the
// gateway or an out-of-band webhook reports a final status.
//
// # Handshake
//
// Construct a client with [New], call [Client.Init] to open the push
// subscription, and the client drives [Client.HandlePaymentRequest] for every
// incoming payment_request message. Applications embedding their own
// transport can call HandlePaymentRequest directly.
//
// # Status and verification
//
// [Client.PaymentStatus] answers from the local pending-payment table when it
// can and falls back to [Client.VerifyPayment], which asks the gateway for
// the authoritative status and reconciles it into the table.
//
// # Webhooks
//
// [NewWebhookHandler] exposes the merchant-hosted receiving end of the
// gateway's webhook contract over net/http. Deliveries are authenticated by
// comparing the carried secret against the one minted during the handshake;
// [WithWebhookSigningKey] additionally enforces an HMAC signature and a
// timestamp skew window on each delivery.
package agentpay
