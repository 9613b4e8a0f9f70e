package connector

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/yourorg/payment-router/internal/domain"
)

// WireRequest is the fully assembled outbound request handed to the
// execution gateway's transport.
type WireRequest struct {
	Method      string
	URL         string
	Headers     map[string]string
	ContentType string
	Body        []byte
}

// Adapter implements the connector capability set generically on top of a
// Descriptor and a Strategy. One adapter instance is built per request by
// the registry, carrying the merchant credential it was validated with.
type Adapter struct {
	desc     Descriptor
	strategy Strategy
	auth     domain.ConnectorAuthType
	metadata map[string]string
}

// NewAdapter validates the merchant credential and connector metadata
// against the descriptor and returns a ready adapter. A credential shape
// mismatch is FailedToObtainAuthType here, never deep inside request
// building.
func NewAdapter(desc Descriptor, strategy Strategy, auth domain.ConnectorAuthType, metadata map[string]string) (*Adapter, error) {
	if auth.Shape != desc.AuthShape {
		return nil, domain.NewConnectorError(domain.ErrFailedToObtainAuthType,
			fmt.Sprintf("connector %s requires %s auth, got %s", desc.Name, desc.AuthShape, auth.Shape))
	}
	for _, key := range desc.RequiredMetadata {
		if _, ok := metadata[key]; !ok {
			return nil, domain.NewConnectorError(domain.ErrNoConnectorMetaData,
				fmt.Sprintf("connector %s requires metadata %q", desc.Name, key))
		}
	}
	return &Adapter{desc: desc, strategy: strategy, auth: auth, metadata: metadata}, nil
}

// Name returns the connector name.
func (a *Adapter) Name() string { return a.desc.Name }

// Descriptor exposes the connector's table-driven behavior.
func (a *Adapter) Descriptor() Descriptor { return a.desc }

// Metadata returns the merchant connector account metadata.
func (a *Adapter) Metadata() map[string]string { return a.metadata }

// GetContentType returns the connector's default request content type.
func (a *Adapter) GetContentType() string { return "application/json" }

// GetURL resolves the absolute URL for rd's flow.
func (a *Adapter) GetURL(rd *domain.RouterData) (string, error) {
	spec, err := a.strategy.BuildRequest(rd)
	if err != nil {
		return "", err
	}
	if spec == nil {
		return "", nil
	}
	return a.desc.BaseURL + spec.Path, nil
}

// GetRequestBody encodes the flow-specific body.
func (a *Adapter) GetRequestBody(rd *domain.RouterData) ([]byte, error) {
	spec, err := a.strategy.BuildRequest(rd)
	if err != nil {
		return nil, err
	}
	if spec == nil || spec.Body == nil {
		return nil, nil
	}
	return a.encodeBody(spec)
}

// GetHeaders assembles auth and content-type headers for a built request.
func (a *Adapter) GetHeaders(spec *RequestSpec, body []byte) (map[string]string, error) {
	headers := map[string]string{}
	ct := spec.ContentType
	if ct == "" {
		ct = a.GetContentType()
	}
	if body != nil {
		headers["Content-Type"] = ct
	}

	switch a.auth.Shape {
	case domain.AuthHeaderKey:
		headers["Authorization"] = "Bearer " + a.auth.APIKey.Expose()
	case domain.AuthBodyKey:
		// Credentials travel in the body; the strategy embeds them.
	case domain.AuthSignatureKey:
		signer, ok := a.strategy.(RequestSigner)
		if !ok {
			return nil, domain.NewConnectorError(domain.ErrInvalidConnectorConfig,
				fmt.Sprintf("connector %s declares signature auth but has no signer", a.desc.Name))
		}
		signed, err := signer.SignRequest(a.auth, spec, body)
		if err != nil {
			return nil, domain.WrapConnectorError(domain.ErrRequestEncodingFailed, "request signing", err)
		}
		for k, v := range signed {
			headers[k] = v
		}
	case domain.AuthNoKey:
	}
	return headers, nil
}

// BuildRequest assembles the complete wire request for rd's flow. It
// returns (nil, nil) when the flow is a no-op for this connector, and
// NotImplemented when the connector does not support the flow or the
// payment method at all.
func (a *Adapter) BuildRequest(rd *domain.RouterData) (*WireRequest, error) {
	if !a.desc.SupportsFlow(rd.FlowType) {
		return nil, domain.NotImplemented(fmt.Sprintf("flow %s for connector %s", rd.FlowType, a.desc.Name))
	}
	if auth, ok := rd.Request.(domain.AuthorizeRequest); ok {
		if !a.desc.SupportsMethod(auth.PaymentMethod.Kind) {
			return nil, domain.NotImplemented("Payment methods")
		}
	}

	spec, err := a.strategy.BuildRequest(rd)
	if err != nil {
		return nil, err
	}
	if spec == nil {
		return nil, nil
	}

	var body []byte
	if spec.Body != nil {
		body, err = a.encodeBody(spec)
		if err != nil {
			return nil, err
		}
	}
	headers, err := a.GetHeaders(spec, body)
	if err != nil {
		return nil, err
	}

	ct := spec.ContentType
	if ct == "" {
		ct = a.GetContentType()
	}
	return &WireRequest{
		Method:      spec.Method,
		URL:         a.desc.BaseURL + spec.Path,
		Headers:     headers,
		ContentType: ct,
		Body:        body,
	}, nil
}

func (a *Adapter) encodeBody(spec *RequestSpec) ([]byte, error) {
	body, err := json.Marshal(spec.Body)
	if err != nil {
		return nil, domain.WrapConnectorError(domain.ErrRequestEncodingFailed, a.desc.Name, err)
	}
	return body, nil
}

// HandleResponse consumes a 2xx response body and produces the patch to
// apply onto the RouterData. Pure: parsing and table lookups only.
func (a *Adapter) HandleResponse(rd *domain.RouterData, httpCode int, body []byte) (domain.ResponsePatch, error) {
	outcome, err := a.strategy.ParseResponse(rd.FlowType, body)
	if err != nil {
		return domain.ResponsePatch{}, err
	}

	patch := domain.ResponsePatch{
		HTTPCode:          httpCode,
		ConnectorMetadata: outcome.Metadata,
	}

	switch rd.FlowType {
	case domain.FlowRefund, domain.FlowRSync:
		status, err := a.desc.MapRefundStatus(outcome.Status)
		if err != nil {
			return domain.ResponsePatch{}, err
		}
		patch.Response = domain.ResultOf(domain.OkResult(&domain.RefundResponse{
			ConnectorRefundID: outcome.ConnectorRefundID,
			Status:            status,
		}))

	case domain.FlowAccessToken:
		if outcome.AccessToken == nil {
			return domain.ResponsePatch{}, domain.NewConnectorError(domain.ErrResponseHandlingFailed, "access token missing from response")
		}
		patch.AccessToken = outcome.AccessToken
		patch.Response = domain.ResultOf(domain.OkResult(outcome.AccessToken))

	case domain.FlowSession:
		patch.SessionToken = outcome.SessionToken
		patch.Response = domain.ResultOf(domain.OkResult(&domain.SessionTokenResponse{
			SessionToken: outcome.SessionToken,
		}))

	default:
		status, err := a.desc.MapPaymentStatus(outcome.Status)
		if err != nil {
			return domain.ResponsePatch{}, err
		}
		patch.Status = domain.StatusOf(status)
		patch.Response = domain.ResultOf(domain.OkResult(&domain.TransactionResponse{
			ResourceID:           outcome.ResourceID,
			Redirection:          outcome.Redirect,
			Mandate:              outcome.Mandate,
			ConnectorResponseRef: outcome.ResponseRef,
		}))
	}
	return patch, nil
}

// GetErrorResponse normalizes a 4xx connector response. Missing code or
// message fields are filled with the shared placeholders so downstream
// consumers never see empty strings.
func (a *Adapter) GetErrorResponse(httpCode int, body []byte) (domain.ErrorResponse, error) {
	er, err := a.strategy.ParseError(httpCode, body)
	if err != nil {
		return domain.ErrorResponse{}, err
	}
	er.StatusCode = httpCode
	if er.Code == "" {
		er.Code = domain.CodeNoErrorCode
	}
	if er.Message == "" {
		er.Message = domain.CodeNoErrorMessage
	}
	return er, nil
}

// VerifyWebhookSource checks a webhook signature when the strategy
// supports ingestion.
func (a *Adapter) VerifyWebhookSource(payload []byte, headers http.Header) error {
	ws, ok := a.strategy.(WebhookStrategy)
	if !ok {
		return domain.NewConnectorError(domain.ErrWebhooksNotImplemented, a.desc.Name)
	}
	if err := ws.VerifyWebhookSource(a.auth, payload, headers); err != nil {
		return domain.WrapConnectorError(domain.ErrWebhookSourceVerificationFailed, a.desc.Name, err)
	}
	return nil
}

// WebhookResourceObject extracts the transaction reference from a webhook
// payload.
func (a *Adapter) WebhookResourceObject(payload []byte) (domain.ResponseID, error) {
	ws, ok := a.strategy.(WebhookStrategy)
	if !ok {
		return domain.NoResponseID(), domain.NewConnectorError(domain.ErrWebhooksNotImplemented, a.desc.Name)
	}
	return ws.WebhookResourceObject(payload)
}

// WebhookEventType extracts the event type from a webhook payload.
func (a *Adapter) WebhookEventType(payload []byte) (string, error) {
	ws, ok := a.strategy.(WebhookStrategy)
	if !ok {
		return "", domain.NewConnectorError(domain.ErrWebhooksNotImplemented, a.desc.Name)
	}
	return ws.WebhookEventType(payload)
}

// fiveXXReasons is the connector-agnostic 5xx vocabulary shared by every
// adapter.
var fiveXXReasons = map[int]string{
	http.StatusInternalServerError:           "internal_server_error",
	http.StatusNotImplemented:                "not_implemented",
	http.StatusBadGateway:                    "bad_gateway",
	http.StatusServiceUnavailable:            "service_unavailable",
	http.StatusGatewayTimeout:                "gateway_timeout",
	http.StatusHTTPVersionNotSupported:       "http_version_not_supported",
	http.StatusVariantAlsoNegotiates:         "variant_also_negotiates",
	http.StatusInsufficientStorage:           "insufficient_storage",
	http.StatusLoopDetected:                  "loop_detected",
	http.StatusNotExtended:                   "not_extended",
	http.StatusNetworkAuthenticationRequired: "network_authentication_required",
}

// Get5xxErrorResponse maps standard HTTP 5xx codes to the fixed reason
// vocabulary. Unlisted codes become unknown_error.
func Get5xxErrorResponse(statusCode int, body []byte) domain.ErrorResponse {
	reason, ok := fiveXXReasons[statusCode]
	if !ok {
		reason = "unknown_error"
	}
	return domain.ErrorResponse{
		StatusCode: statusCode,
		Code:       reason,
		Message:    reason,
		Reason:     string(body),
	}
}
