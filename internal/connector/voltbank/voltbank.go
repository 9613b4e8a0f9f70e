// Package voltbank integrates the Voltbank processor: cards and European
// bank redirects behind an HMAC-signed JSON API. Requests are signed over
// the encoded body with the merchant's API secret (SignatureKey shape);
// webhooks carry the same HMAC in the Volt-Signature header.
package voltbank

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/domain"
)

const defaultBaseURL = "https://api.voltbank.example.com"

// Factory exposes the voltbank connector to the registry.
type Factory struct{}

// NewFactory returns the voltbank factory.
func NewFactory() *Factory { return &Factory{} }

// Descriptor declares voltbank's table-driven behavior.
func (f *Factory) Descriptor() connector.Descriptor {
	return connector.Descriptor{
		Name:      "voltbank",
		BaseURL:   defaultBaseURL,
		AuthShape: domain.AuthSignatureKey,
		SupportedFlows: map[domain.Flow]bool{
			domain.FlowAuthorize: true,
			domain.FlowCapture:   true,
			domain.FlowVoid:      true,
			domain.FlowPSync:     true,
			domain.FlowRefund:    true,
			domain.FlowRSync:     true,
			domain.FlowSession:   true,
		},
		SupportedMethods: map[domain.PaymentMethodKind]bool{
			domain.MethodCard:         true,
			domain.MethodBankRedirect: true,
		},
		PaymentStatuses: map[string]domain.AttemptStatus{
			"succeeded":       domain.AttemptCharged,
			"authorized":      domain.AttemptAuthorized,
			"processing":      domain.AttemptPending,
			"requires_action": domain.AttemptAuthenticationPending,
			"declined":        domain.AttemptFailure,
			"cancelled":       domain.AttemptVoided,
		},
		RefundStatuses: map[string]domain.RefundStatus{
			"completed": domain.RefundSuccess,
			"pending":   domain.RefundPending,
			"failed":    domain.RefundFailure,
			"review":    domain.RefundManualReview,
		},
	}
}

// NewStrategy returns a fresh stateless strategy.
func (f *Factory) NewStrategy() connector.Strategy { return &strategy{} }

type strategy struct{}

type amount struct {
	Value    int64  `json:"value"`
	Currency string `json:"currency"`
}

type cardDetails struct {
	Number      string `json:"number"`
	ExpiryMonth string `json:"expiry_month"`
	ExpiryYear  string `json:"expiry_year"`
	CVC         string `json:"cvc"`
}

type redirectDetails struct {
	Issuer  string `json:"issuer,omitempty"`
	Scheme  string `json:"scheme"`
	Country string `json:"country,omitempty"`
}

type paymentRequest struct {
	Amount        amount           `json:"amount"`
	CaptureMode   string           `json:"capture_mode"`
	Card          *cardDetails     `json:"card,omitempty"`
	BankRedirect  *redirectDetails `json:"bank_redirect,omitempty"`
	ReturnURL     string           `json:"return_url,omitempty"`
	CustomerEmail string           `json:"customer_email,omitempty"`
}

type captureBody struct {
	Amount amount `json:"amount"`
}

type refundBody struct {
	Amount amount `json:"amount"`
	Reason string `json:"reason,omitempty"`
}

type sessionBody struct {
	Amount amount `json:"amount"`
}

type paymentResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Reference   string `json:"reference"`
	RedirectURL string `json:"redirect_url"`
	MandateID   string `json:"mandate_id"`
}

type refundResponseBody struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	PaymentID string `json:"payment_id"`
}

type sessionResponse struct {
	SessionToken string `json:"session_token"`
}

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Detail    string `json:"detail"`
	PaymentID string `json:"payment_id"`
}

func (s *strategy) BuildRequest(rd *domain.RouterData) (*connector.RequestSpec, error) {
	switch req := rd.Request.(type) {
	case domain.AuthorizeRequest:
		body := paymentRequest{
			Amount:        amount{Value: req.Amount, Currency: req.Currency},
			CaptureMode:   "automatic",
			ReturnURL:     req.ReturnURL,
			CustomerEmail: req.Email,
		}
		if req.CaptureMethod == "manual" {
			body.CaptureMode = "manual"
		}
		switch req.PaymentMethod.Kind {
		case domain.MethodCard:
			card := req.PaymentMethod.Card
			if card == nil {
				return nil, domain.NewConnectorError(domain.ErrMissingRequiredField, "payment_method.card")
			}
			body.Card = &cardDetails{
				Number:      card.Number.Expose(),
				ExpiryMonth: card.ExpiryMonth,
				ExpiryYear:  card.ExpiryYear,
				CVC:         card.CVC.Expose(),
			}
		case domain.MethodBankRedirect:
			br := req.PaymentMethod.BankRedirect
			if br == nil {
				return nil, domain.NewConnectorError(domain.ErrMissingRequiredField, "payment_method.bank_redirect")
			}
			body.BankRedirect = &redirectDetails{
				Issuer:  br.Issuer,
				Scheme:  br.Scheme,
				Country: br.Country,
			}
		default:
			return nil, domain.NotImplemented("Payment methods")
		}
		return &connector.RequestSpec{Method: http.MethodPost, Path: "/api/payments", Body: body}, nil

	case domain.CaptureRequest:
		return &connector.RequestSpec{
			Method: http.MethodPost,
			Path:   fmt.Sprintf("/api/payments/%s/capture", req.ConnectorTransactionID),
			Body:   captureBody{Amount: amount{Value: req.AmountToCapture, Currency: req.Currency}},
		}, nil

	case domain.VoidRequest:
		return &connector.RequestSpec{
			Method: http.MethodPost,
			Path:   fmt.Sprintf("/api/payments/%s/cancel", req.ConnectorTransactionID),
		}, nil

	case domain.SyncRequest:
		return &connector.RequestSpec{
			Method: http.MethodGet,
			Path:   "/api/payments/" + req.ConnectorTransactionID,
		}, nil

	case domain.RefundRequest:
		return &connector.RequestSpec{
			Method: http.MethodPost,
			Path:   fmt.Sprintf("/api/payments/%s/refunds", req.ConnectorTransactionID),
			Body: refundBody{
				Amount: amount{Value: req.RefundAmount, Currency: req.Currency},
				Reason: req.Reason,
			},
		}, nil

	case domain.RefundSyncRequest:
		return &connector.RequestSpec{
			Method: http.MethodGet,
			Path:   fmt.Sprintf("/api/payments/%s/refunds/%s", req.ConnectorTransactionID, req.ConnectorRefundID),
		}, nil

	case domain.SessionRequest:
		return &connector.RequestSpec{
			Method: http.MethodPost,
			Path:   "/api/sessions",
			Body:   sessionBody{Amount: amount{Value: req.Amount, Currency: req.Currency}},
		}, nil

	default:
		return nil, domain.NotImplemented(fmt.Sprintf("flow %s for connector voltbank", rd.FlowType))
	}
}

func (s *strategy) ParseResponse(flow domain.Flow, body []byte) (connector.WireOutcome, error) {
	switch flow {
	case domain.FlowRefund, domain.FlowRSync:
		var resp refundResponseBody
		if err := json.Unmarshal(body, &resp); err != nil {
			return connector.WireOutcome{}, domain.WrapConnectorError(domain.ErrResponseDeserializationFailed, "voltbank refund", err)
		}
		return connector.WireOutcome{Status: resp.Status, ConnectorRefundID: resp.ID}, nil

	case domain.FlowSession:
		var resp sessionResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return connector.WireOutcome{}, domain.WrapConnectorError(domain.ErrResponseDeserializationFailed, "voltbank session", err)
		}
		return connector.WireOutcome{SessionToken: resp.SessionToken}, nil

	default:
		var resp paymentResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return connector.WireOutcome{}, domain.WrapConnectorError(domain.ErrResponseDeserializationFailed, "voltbank payment", err)
		}
		outcome := connector.WireOutcome{
			Status:      resp.Status,
			ResourceID:  domain.ConnectorTransactionID(resp.ID),
			ResponseRef: resp.Reference,
		}
		if resp.RedirectURL != "" {
			outcome.Redirect = &domain.RedirectionData{URL: resp.RedirectURL, Method: http.MethodGet}
		}
		if resp.MandateID != "" {
			outcome.Mandate = &domain.MandateReference{ConnectorMandateID: resp.MandateID}
		}
		return outcome, nil
	}
}

func (s *strategy) ParseError(statusCode int, body []byte) (domain.ErrorResponse, error) {
	var resp errorBody
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.ErrorResponse{}, domain.WrapConnectorError(domain.ErrResponseDeserializationFailed, "voltbank error", err)
	}
	er := domain.ErrorResponse{
		Code:                   resp.Code,
		Message:                resp.Message,
		Reason:                 resp.Detail,
		ConnectorTransactionID: resp.PaymentID,
	}
	if resp.Code == "payment_declined" {
		er.AttemptStatus = domain.StatusOf(domain.AttemptFailure)
	}
	return er, nil
}

// SignRequest implements SignatureKey auth: the API key identifies the
// merchant and the HMAC covers key1 plus the encoded body.
func (s *strategy) SignRequest(auth domain.ConnectorAuthType, spec *connector.RequestSpec, body []byte) (map[string]string, error) {
	mac := hmac.New(sha256.New, []byte(auth.APISecret.Expose()))
	mac.Write([]byte(auth.Key1.Expose()))
	mac.Write([]byte("."))
	mac.Write(body)
	return map[string]string{
		"X-Api-Key":   auth.APIKey.Expose(),
		"X-Signature": hex.EncodeToString(mac.Sum(nil)),
	}, nil
}

type webhookEvent struct {
	Type string `json:"type"`
	Data struct {
		PaymentID string `json:"payment_id"`
	} `json:"data"`
}

// VerifyWebhookSource checks the Volt-Signature HMAC over the raw payload.
func (s *strategy) VerifyWebhookSource(auth domain.ConnectorAuthType, payload []byte, headers http.Header) error {
	sig := headers.Get("Volt-Signature")
	if sig == "" {
		return errors.New("missing Volt-Signature header")
	}
	mac := hmac.New(sha256.New, []byte(auth.APISecret.Expose()))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return errors.New("signature mismatch")
	}
	return nil
}

// WebhookResourceObject extracts the payment reference from a webhook.
func (s *strategy) WebhookResourceObject(payload []byte) (domain.ResponseID, error) {
	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return domain.NoResponseID(), domain.WrapConnectorError(domain.ErrResponseDeserializationFailed, "voltbank webhook", err)
	}
	if event.Data.PaymentID == "" {
		return domain.NoResponseID(), nil
	}
	return domain.ConnectorTransactionID(event.Data.PaymentID), nil
}

// WebhookEventType extracts the event type from a webhook.
func (s *strategy) WebhookEventType(payload []byte) (string, error) {
	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return "", domain.WrapConnectorError(domain.ErrResponseDeserializationFailed, "voltbank webhook", err)
	}
	return event.Type, nil
}
