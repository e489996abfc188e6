package agentpay

import (
	"encoding/json"
	"net/http"
)

// Error kinds used only on the merchant-hosted HTTP surface (webhook and
// discovery handlers). They complement the client-side taxonomy.
const (
	kindInvalidRequest   ErrorKind = "invalid_request"
	kindUnknownPayment   ErrorKind = "unknown_payment"
	kindInvalidSecret    ErrorKind = "invalid_secret"
	kindInvalidSignature ErrorKind = "invalid_signature"
	kindStaleTimestamp   ErrorKind = "stale_timestamp"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, kind ErrorKind, message string) {
	writeJSON(w, status, &Error{Kind: kind, Message: message})
}
