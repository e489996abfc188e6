package agentpay

import (
	"html"
	"net/http"
)

// DiscoveryMarker is the document-level announcement that a site accepts
// agent payments. Agents scan for the data-ai-payments attribute and read the
// merchant identifier next to it.
type DiscoveryMarker struct {
	MerchantID string
}

// HTMLAttributes renders the marker attributes for embedding into an
// existing element.
func (m DiscoveryMarker) HTMLAttributes() string {
	return `data-ai-payments="enabled" data-merchant-id="` + html.EscapeString(m.MerchantID) + `"`
}

// HTML renders a complete hidden marker element.
func (m DiscoveryMarker) HTML() string {
	return "<div " + m.HTMLAttributes() + " hidden></div>"
}

// NewDiscoveryHandler serves the capability announcement as JSON, for agents
// probing the merchant over HTTP instead of scanning the document.
func NewDiscoveryHandler(merchantID string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeJSONError(w, http.StatusMethodNotAllowed, kindInvalidRequest, "method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"ai_payments": "enabled",
			"merchant_id": merchantID,
		})
	})
}
