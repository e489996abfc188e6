package agentpay

import (
	"encoding/json"

	"github.com/oapi-codegen/runtime"
)

// PaymentStatus labels the lifecycle of a pending payment. The gateway may
// report statuses beyond the constants below; unknown values flow through
// unchanged.
type PaymentStatus string

const (
	PaymentStatusInitialized PaymentStatus = "initialized"
	PaymentStatusPending     PaymentStatus = "pending"
	PaymentStatusCompleted   PaymentStatus = "completed"
	PaymentStatusFailed      PaymentStatus = "failed"
)

// PendingPayment is the locally tracked state of an in-flight payment,
// keyed by the gateway-assigned payment identifier.
type PendingPayment struct {
	// AgentID identifies the agent that initiated the payment.
	AgentID string `json:"agent_id"`
	// Secret is the 32-byte shared secret, hex encoded. Out-of-band status
	// notifications are only trusted when they carry the matching value.
	Secret string `json:"secret"`
	// Status is the most recent status known locally.
	Status PaymentStatus `json:"status"`
}

// PaymentInitResult is returned to the caller after a successful handshake.
type PaymentInitResult struct {
	PaymentID       string `json:"payment_id"`
	EncryptedAdvice string `json:"encrypted_advice"`
	Secret          string `json:"secret"`
}

// PaymentInitRequest is the body posted to the gateway's initialize endpoint.
//
// Note the payload carries the advice both in plaintext (for the gateway's
// own bookkeeping) and encrypted for the agent. The gateway can therefore
// read the terms; the end-to-end confidentiality of the ciphertext only holds
// between merchant and agent.
type PaymentInitRequest struct {
	PaymentAdvice          PaymentAdvice `json:"payment_advice"`
	EncryptedPaymentAdvice string        `json:"encrypted_payment_advice"`
	AgentID                string        `json:"agent_id"`
	MerchantID             string        `json:"merchant_id"`
	Secret                 string        `json:"secret"`
	AgentPaymentReference  string        `json:"agent_payment_reference,omitempty"`
}

// PaymentInitResponse is the gateway's answer to an initialize request.
type PaymentInitResponse struct {
	PaymentID string `json:"payment_id"`
}

type verificationResultKnown struct {
	PaymentID string        `json:"payment_id"`
	Status    PaymentStatus `json:"status"`
}

// VerificationResult is the gateway's authoritative view of a payment,
// preserving any gateway-defined fields beyond the known ones.
type VerificationResult struct {
	PaymentID string
	Status    PaymentStatus
	// Extra holds gateway-defined fields that accompany the known ones.
	Extra map[string]json.RawMessage
}

// MarshalJSON merges the known fields over any extra gateway fields.
func (r VerificationResult) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(verificationResultKnown{PaymentID: r.PaymentID, Status: r.Status})
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return known, nil
	}
	extra, err := json.Marshal(r.Extra)
	if err != nil {
		return nil, err
	}
	return runtime.JSONMerge(extra, known)
}

// UnmarshalJSON splits the payload into known fields and gateway extras.
func (r *VerificationResult) UnmarshalJSON(b []byte) error {
	var known verificationResultKnown
	if err := json.Unmarshal(b, &known); err != nil {
		return err
	}
	var extra map[string]json.RawMessage
	if err := json.Unmarshal(b, &extra); err != nil {
		return err
	}
	delete(extra, "payment_id")
	delete(extra, "status")
	if len(extra) == 0 {
		extra = nil
	}
	r.PaymentID, r.Status, r.Extra = known.PaymentID, known.Status, extra
	return nil
}

type paymentEventKnown struct {
	PaymentID string        `json:"payment_id"`
	Status    PaymentStatus `json:"status"`
	Reason    string        `json:"reason,omitempty"`
}

// PaymentEvent is a transient status-change notification delivered to
// registered callbacks. It is never persisted.
type PaymentEvent struct {
	PaymentID string
	Status    PaymentStatus
	// Reason optionally explains the status, for example a failure cause.
	Reason string
	// Extra holds free-form fields carried alongside the known ones.
	Extra map[string]json.RawMessage
}

// MarshalJSON merges the known fields over any free-form extras.
func (e PaymentEvent) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(paymentEventKnown{PaymentID: e.PaymentID, Status: e.Status, Reason: e.Reason})
	if err != nil {
		return nil, err
	}
	if len(e.Extra) == 0 {
		return known, nil
	}
	extra, err := json.Marshal(e.Extra)
	if err != nil {
		return nil, err
	}
	return runtime.JSONMerge(extra, known)
}

// UnmarshalJSON splits the payload into known fields and free-form extras.
func (e *PaymentEvent) UnmarshalJSON(b []byte) error {
	var known paymentEventKnown
	if err := json.Unmarshal(b, &known); err != nil {
		return err
	}
	var extra map[string]json.RawMessage
	if err := json.Unmarshal(b, &extra); err != nil {
		return err
	}
	delete(extra, "payment_id")
	delete(extra, "status")
	delete(extra, "reason")
	if len(extra) == 0 {
		extra = nil
	}
	e.PaymentID, e.Status, e.Reason, e.Extra = known.PaymentID, known.Status, known.Reason, extra
	return nil
}
