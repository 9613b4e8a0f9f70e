package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/yourorg/payment-router/internal/domain"
)

// UCSClient delegates a whole flow to the unified connector service over a
// JSON RPC. The request and response shapes are derived from RouterData so
// that the orchestrator cannot tell a UCS execution apart from a Direct
// one.
type UCSClient struct {
	baseURL   string
	transport Transport
	timeout   time.Duration
}

// NewUCSClient builds a client against the UCS endpoint.
func NewUCSClient(baseURL string, transport Transport, timeout time.Duration) *UCSClient {
	return &UCSClient{baseURL: baseURL, transport: transport, timeout: timeout}
}

type ucsPaymentMethod struct {
	Kind           string `json:"kind"`
	CardNumber     string `json:"card_number,omitempty"`
	CardExpMonth   string `json:"card_exp_month,omitempty"`
	CardExpYear    string `json:"card_exp_year,omitempty"`
	CardCVC        string `json:"card_cvc,omitempty"`
	WalletType     string `json:"wallet_type,omitempty"`
	WalletToken    string `json:"wallet_token,omitempty"`
	RedirectIssuer string `json:"redirect_issuer,omitempty"`
	RedirectScheme string `json:"redirect_scheme,omitempty"`
}

type ucsFlowRequest struct {
	Amount                 int64             `json:"amount,omitempty"`
	Currency               string            `json:"currency,omitempty"`
	CaptureMethod          string            `json:"capture_method,omitempty"`
	PaymentMethod          *ucsPaymentMethod `json:"payment_method,omitempty"`
	ConnectorTransactionID string            `json:"connector_transaction_id,omitempty"`
	ConnectorRefundID      string            `json:"connector_refund_id,omitempty"`
	RefundID               string            `json:"refund_id,omitempty"`
	Reason                 string            `json:"reason,omitempty"`
}

type ucsRequest struct {
	Flow                string         `json:"flow"`
	MerchantID          string         `json:"merchant_id"`
	Connector           string         `json:"connector"`
	MerchantConnectorID string         `json:"merchant_connector_id"`
	PaymentID           string         `json:"payment_id,omitempty"`
	AttemptID           string         `json:"attempt_id,omitempty"`
	RefundID            string         `json:"refund_id,omitempty"`
	Request             ucsFlowRequest `json:"request"`
}

type ucsResourceID struct {
	Kind  string `json:"kind"`
	Value string `json:"value,omitempty"`
}

type ucsError struct {
	StatusCode             int    `json:"status_code"`
	Code                   string `json:"code"`
	Message                string `json:"message"`
	Reason                 string `json:"reason,omitempty"`
	AttemptStatus          string `json:"attempt_status,omitempty"`
	ConnectorTransactionID string `json:"connector_transaction_id,omitempty"`
}

type ucsResponse struct {
	Status            string         `json:"status,omitempty"`
	ResourceID        *ucsResourceID `json:"resource_id,omitempty"`
	RedirectURL       string         `json:"redirect_url,omitempty"`
	ConnectorRefundID string         `json:"connector_refund_id,omitempty"`
	RefundStatus      string         `json:"refund_status,omitempty"`
	Error             *ucsError      `json:"error,omitempty"`
	HTTPCode          int            `json:"http_code,omitempty"`
	LatencyMs         int64          `json:"latency_ms,omitempty"`
}

// Execute runs rd's flow through the UCS. The returned RouterData carries
// the same shape Direct execution produces.
func (c *UCSClient) Execute(ctx context.Context, rd domain.RouterData) (domain.RouterData, error) {
	body, err := json.Marshal(encodeUCSRequest(rd))
	if err != nil {
		return rd, domain.WrapConnectorError(domain.ErrRequestEncodingFailed, "ucs request", err)
	}

	resp, err := c.transport.Send(ctx, Request{
		Method:  http.MethodPost,
		URL:     c.baseURL + "/v1/execute",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
		Timeout: c.timeout,
	})
	if err != nil {
		return rd, err
	}
	if resp.StatusCode != http.StatusOK {
		return rd, fmt.Errorf("ucs: unexpected status %d", resp.StatusCode)
	}

	var out ucsResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return rd, domain.WrapConnectorError(domain.ErrResponseDeserializationFailed, "ucs response", err)
	}
	return decodeUCSResponse(rd, out), nil
}

func encodeUCSRequest(rd domain.RouterData) ucsRequest {
	out := ucsRequest{
		Flow:                string(rd.FlowType),
		MerchantID:          rd.MerchantID,
		Connector:           rd.ConnectorName,
		MerchantConnectorID: rd.MerchantConnectorID,
		PaymentID:           rd.PaymentID,
		AttemptID:           rd.AttemptID,
		RefundID:            rd.RefundID,
	}
	switch req := rd.Request.(type) {
	case domain.AuthorizeRequest:
		out.Request = ucsFlowRequest{
			Amount:        req.Amount,
			Currency:      req.Currency,
			CaptureMethod: req.CaptureMethod,
			PaymentMethod: encodeUCSPaymentMethod(req.PaymentMethod),
		}
	case domain.CaptureRequest:
		out.Request = ucsFlowRequest{
			Amount:                 req.AmountToCapture,
			Currency:               req.Currency,
			ConnectorTransactionID: req.ConnectorTransactionID,
		}
	case domain.VoidRequest:
		out.Request = ucsFlowRequest{
			ConnectorTransactionID: req.ConnectorTransactionID,
			Reason:                 req.CancellationReason,
		}
	case domain.SyncRequest:
		out.Request = ucsFlowRequest{ConnectorTransactionID: req.ConnectorTransactionID}
	case domain.RefundRequest:
		out.Request = ucsFlowRequest{
			Amount:                 req.RefundAmount,
			Currency:               req.Currency,
			ConnectorTransactionID: req.ConnectorTransactionID,
			RefundID:               req.RefundID,
			Reason:                 req.Reason,
		}
	case domain.RefundSyncRequest:
		out.Request = ucsFlowRequest{
			ConnectorTransactionID: req.ConnectorTransactionID,
			ConnectorRefundID:      req.ConnectorRefundID,
		}
	}
	return out
}

func encodeUCSPaymentMethod(pm domain.PaymentMethodData) *ucsPaymentMethod {
	out := &ucsPaymentMethod{Kind: string(pm.Kind)}
	switch pm.Kind {
	case domain.MethodCard:
		if pm.Card != nil {
			out.CardNumber = pm.Card.Number.Expose()
			out.CardExpMonth = pm.Card.ExpiryMonth
			out.CardExpYear = pm.Card.ExpiryYear
			out.CardCVC = pm.Card.CVC.Expose()
		}
	case domain.MethodWallet:
		if pm.Wallet != nil {
			out.WalletType = pm.Wallet.WalletType
			out.WalletToken = pm.Wallet.Token.Expose()
		}
	case domain.MethodBankRedirect:
		if pm.BankRedirect != nil {
			out.RedirectIssuer = pm.BankRedirect.Issuer
			out.RedirectScheme = pm.BankRedirect.Scheme
		}
	}
	return out
}

func decodeUCSResponse(rd domain.RouterData, out ucsResponse) domain.RouterData {
	patch := domain.ResponsePatch{
		HTTPCode:  out.HTTPCode,
		LatencyMs: out.LatencyMs,
	}
	if out.Error != nil {
		er := domain.ErrorResponse{
			StatusCode:             out.Error.StatusCode,
			Code:                   out.Error.Code,
			Message:                out.Error.Message,
			Reason:                 out.Error.Reason,
			ConnectorTransactionID: out.Error.ConnectorTransactionID,
		}
		if out.Error.AttemptStatus != "" {
			er.AttemptStatus = domain.StatusOf(domain.AttemptStatus(out.Error.AttemptStatus))
			patch.Status = er.AttemptStatus
		}
		patch.Response = domain.ResultOf(domain.ErrResult(er))
		return patch.Apply(rd)
	}

	switch rd.FlowType {
	case domain.FlowRefund, domain.FlowRSync:
		patch.Response = domain.ResultOf(domain.OkResult(&domain.RefundResponse{
			ConnectorRefundID: out.ConnectorRefundID,
			Status:            domain.RefundStatus(out.RefundStatus),
		}))
	default:
		tr := &domain.TransactionResponse{ResourceID: domain.NoResponseID()}
		if out.ResourceID != nil {
			tr.ResourceID = domain.ResponseID{
				Kind:  domain.ResponseIDKind(out.ResourceID.Kind),
				Value: out.ResourceID.Value,
			}
		}
		if out.RedirectURL != "" {
			tr.Redirection = &domain.RedirectionData{URL: out.RedirectURL, Method: http.MethodGet}
		}
		if out.Status != "" {
			patch.Status = domain.StatusOf(domain.AttemptStatus(out.Status))
		}
		patch.Response = domain.ResultOf(domain.OkResult(tr))
	}
	return patch.Apply(rd)
}
