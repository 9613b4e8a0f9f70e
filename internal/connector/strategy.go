package connector

import (
	"net/http"

	"github.com/yourorg/payment-router/internal/domain"
)

// RequestSpec is what a Strategy produces for one flow: the route and the
// JSON-marshalable body. A nil spec marks the flow as a no-op for this
// connector (e.g. no separate session step).
type RequestSpec struct {
	Method      string
	Path        string
	Body        any
	ContentType string // defaults to application/json
}

// WireOutcome is what a Strategy extracts from a connector success
// response before the descriptor's status tables normalize it.
type WireOutcome struct {
	// Status is the connector's own status vocabulary; fed through the
	// descriptor's payment or refund table depending on the flow.
	Status string

	ResourceID        domain.ResponseID
	ConnectorRefundID string
	Redirect          *domain.RedirectionData
	Mandate           *domain.MandateReference
	ResponseRef       string
	Metadata          map[string]string

	// AccessToken and SessionToken are only set by the respective flows.
	AccessToken  *domain.AccessToken
	SessionToken string
}

// Strategy holds the bespoke, per-connector request and response shaping.
// Implementations are pure: no I/O, no clock, no hidden state.
type Strategy interface {
	// BuildRequest shapes the wire request for rd's flow. Returning
	// (nil, nil) marks the flow as a no-op.
	BuildRequest(rd *domain.RouterData) (*RequestSpec, error)

	// ParseResponse extracts the wire outcome from a 2xx response body.
	ParseResponse(flow domain.Flow, body []byte) (WireOutcome, error)

	// ParseError normalizes a 4xx response body.
	ParseError(statusCode int, body []byte) (domain.ErrorResponse, error)
}

// RequestSigner is implemented by strategies for connectors that sign
// requests over the encoded body (SignatureKey auth shape).
type RequestSigner interface {
	SignRequest(auth domain.ConnectorAuthType, spec *RequestSpec, body []byte) (map[string]string, error)
}

// WebhookStrategy is implemented by strategies that support inbound
// webhook ingestion. Absence means the generic adapter answers every
// webhook capability with WebhooksNotImplemented.
type WebhookStrategy interface {
	VerifyWebhookSource(auth domain.ConnectorAuthType, payload []byte, headers http.Header) error
	WebhookResourceObject(payload []byte) (domain.ResponseID, error)
	WebhookEventType(payload []byte) (string, error)
}

// Factory binds a connector's descriptor to its strategy constructor. Each
// connector package exports one; the registry is assembled from them at
// process start.
type Factory interface {
	Descriptor() Descriptor
	NewStrategy() Strategy
}
