// Package mockpay is the scriptable test connector. Every strategy hook
// can be overridden per test through the factory's function fields.
package mockpay

import (
	"encoding/json"
	"net/http"

	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/domain"
)

// Factory exposes the mockpay connector. The zero value uses a plain JSON
// echo strategy; set the function fields to script behavior.
type Factory struct {
	AuthShape        domain.AuthShape
	NeedsAccessToken bool
	Methods          []domain.PaymentMethodKind

	BuildFunc func(rd *domain.RouterData) (*connector.RequestSpec, error)
	ParseFunc func(flow domain.Flow, body []byte) (connector.WireOutcome, error)
	ErrorFunc func(statusCode int, body []byte) (domain.ErrorResponse, error)
}

// NewFactory returns a mockpay factory with HeaderKey auth and card-only
// support.
func NewFactory() *Factory {
	return &Factory{AuthShape: domain.AuthHeaderKey, Methods: []domain.PaymentMethodKind{domain.MethodCard}}
}

// Descriptor declares mockpay's behavior tables.
func (f *Factory) Descriptor() connector.Descriptor {
	methods := make(map[domain.PaymentMethodKind]bool, len(f.Methods))
	for _, m := range f.Methods {
		methods[m] = true
	}
	return connector.Descriptor{
		Name:      "mockpay",
		BaseURL:   "https://mockpay.invalid",
		AuthShape: f.AuthShape,
		SupportedFlows: map[domain.Flow]bool{
			domain.FlowAuthorize:   true,
			domain.FlowCapture:     true,
			domain.FlowVoid:        true,
			domain.FlowPSync:       true,
			domain.FlowRefund:      true,
			domain.FlowRSync:       true,
			domain.FlowAccessToken: f.NeedsAccessToken,
		},
		SupportedMethods: methods,
		PaymentStatuses: map[string]domain.AttemptStatus{
			"paid":       domain.AttemptCharged,
			"authorized": domain.AttemptAuthorized,
			"pending":    domain.AttemptPending,
			"failed":     domain.AttemptFailure,
			"voided":     domain.AttemptVoided,
		},
		RefundStatuses: map[string]domain.RefundStatus{
			"succeeded": domain.RefundSuccess,
			"pending":   domain.RefundPending,
			"failed":    domain.RefundFailure,
		},
		NeedsAccessToken: f.NeedsAccessToken,
	}
}

// NewStrategy returns the scripted strategy.
func (f *Factory) NewStrategy() connector.Strategy {
	return &strategy{factory: f}
}

type strategy struct {
	factory *Factory
}

type wirePayment struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type wireError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *strategy) BuildRequest(rd *domain.RouterData) (*connector.RequestSpec, error) {
	if s.factory.BuildFunc != nil {
		return s.factory.BuildFunc(rd)
	}
	return &connector.RequestSpec{
		Method: http.MethodPost,
		Path:   "/payments",
		Body:   map[string]any{"flow": string(rd.FlowType)},
	}, nil
}

func (s *strategy) ParseResponse(flow domain.Flow, body []byte) (connector.WireOutcome, error) {
	if s.factory.ParseFunc != nil {
		return s.factory.ParseFunc(flow, body)
	}
	var resp wirePayment
	if err := json.Unmarshal(body, &resp); err != nil {
		return connector.WireOutcome{}, domain.WrapConnectorError(domain.ErrResponseDeserializationFailed, "mockpay", err)
	}
	outcome := connector.WireOutcome{Status: resp.Status}
	if flow == domain.FlowRefund || flow == domain.FlowRSync {
		outcome.ConnectorRefundID = resp.ID
	} else {
		outcome.ResourceID = domain.ConnectorTransactionID(resp.ID)
	}
	return outcome, nil
}

func (s *strategy) ParseError(statusCode int, body []byte) (domain.ErrorResponse, error) {
	if s.factory.ErrorFunc != nil {
		return s.factory.ErrorFunc(statusCode, body)
	}
	var resp wireError
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.ErrorResponse{}, domain.WrapConnectorError(domain.ErrResponseDeserializationFailed, "mockpay", err)
	}
	return domain.ErrorResponse{Code: resp.Code, Message: resp.Message}, nil
}
