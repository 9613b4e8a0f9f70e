// Package checkly integrates the Checkly card processor: a JSON API with
// bearer-key auth, card payments only, automatic or manual capture and a
// separate refund object.
package checkly

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/domain"
)

const defaultBaseURL = "https://api.checkly.example.com"

// Factory exposes the checkly connector to the registry.
type Factory struct{}

// NewFactory returns the checkly factory.
func NewFactory() *Factory { return &Factory{} }

// Descriptor declares checkly's table-driven behavior.
func (f *Factory) Descriptor() connector.Descriptor {
	return connector.Descriptor{
		Name:      "checkly",
		BaseURL:   defaultBaseURL,
		AuthShape: domain.AuthHeaderKey,
		SupportedFlows: map[domain.Flow]bool{
			domain.FlowAuthorize: true,
			domain.FlowCapture:   true,
			domain.FlowVoid:      true,
			domain.FlowPSync:     true,
			domain.FlowRefund:    true,
			domain.FlowRSync:     true,
		},
		SupportedMethods: map[domain.PaymentMethodKind]bool{
			domain.MethodCard: true,
		},
		PaymentStatuses: map[string]domain.AttemptStatus{
			"paid":            domain.AttemptCharged,
			"authorized":      domain.AttemptAuthorized,
			"pending":         domain.AttemptPending,
			"processing":      domain.AttemptPending,
			"requires_action": domain.AttemptAuthenticationPending,
			"failed":          domain.AttemptFailure,
			"voided":          domain.AttemptVoided,
		},
		RefundStatuses: map[string]domain.RefundStatus{
			"succeeded": domain.RefundSuccess,
			"pending":   domain.RefundPending,
			// TODO: review mapping once checkly documents the terminal
			// semantics of "processing"; kept as Pending for now.
			"processing": domain.RefundPending,
			"failed":     domain.RefundFailure,
		},
	}
}

// NewStrategy returns a fresh stateless strategy.
func (f *Factory) NewStrategy() connector.Strategy { return &strategy{} }

type strategy struct{}

type chargeCard struct {
	Number   string `json:"number"`
	ExpMonth string `json:"exp_month"`
	ExpYear  string `json:"exp_year"`
	CVC      string `json:"cvc"`
	Name     string `json:"name,omitempty"`
}

type chargeRequest struct {
	Amount      int64      `json:"amount"`
	Currency    string     `json:"currency"`
	Capture     bool       `json:"capture"`
	Card        chargeCard `json:"card"`
	Description string     `json:"description,omitempty"`
}

type captureRequest struct {
	Amount int64 `json:"amount"`
}

type refundRequest struct {
	Charge string `json:"charge"`
	Amount int64  `json:"amount"`
	Reason string `json:"reason,omitempty"`
}

type chargeResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Reference string `json:"reference"`
	NextAction *struct {
		RedirectURL string `json:"redirect_url"`
	} `json:"next_action"`
}

type refundResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type errorResponse struct {
	Error struct {
		Code          string `json:"code"`
		Message       string `json:"message"`
		DeclineReason string `json:"decline_reason"`
		ChargeID      string `json:"charge_id"`
	} `json:"error"`
}

func (s *strategy) BuildRequest(rd *domain.RouterData) (*connector.RequestSpec, error) {
	switch req := rd.Request.(type) {
	case domain.AuthorizeRequest:
		card := req.PaymentMethod.Card
		if card == nil {
			return nil, domain.NotImplemented("Payment methods")
		}
		return &connector.RequestSpec{
			Method: http.MethodPost,
			Path:   "/v1/charges",
			Body: chargeRequest{
				Amount:   req.Amount,
				Currency: req.Currency,
				Capture:  req.CaptureMethod != "manual",
				Card: chargeCard{
					Number:   card.Number.Expose(),
					ExpMonth: card.ExpiryMonth,
					ExpYear:  card.ExpiryYear,
					CVC:      card.CVC.Expose(),
					Name:     card.HolderName,
				},
			},
		}, nil

	case domain.CaptureRequest:
		return &connector.RequestSpec{
			Method: http.MethodPost,
			Path:   fmt.Sprintf("/v1/charges/%s/capture", req.ConnectorTransactionID),
			Body:   captureRequest{Amount: req.AmountToCapture},
		}, nil

	case domain.VoidRequest:
		return &connector.RequestSpec{
			Method: http.MethodPost,
			Path:   fmt.Sprintf("/v1/charges/%s/void", req.ConnectorTransactionID),
		}, nil

	case domain.SyncRequest:
		return &connector.RequestSpec{
			Method: http.MethodGet,
			Path:   "/v1/charges/" + req.ConnectorTransactionID,
		}, nil

	case domain.RefundRequest:
		return &connector.RequestSpec{
			Method: http.MethodPost,
			Path:   "/v1/refunds",
			Body: refundRequest{
				Charge: req.ConnectorTransactionID,
				Amount: req.RefundAmount,
				Reason: req.Reason,
			},
		}, nil

	case domain.RefundSyncRequest:
		return &connector.RequestSpec{
			Method: http.MethodGet,
			Path:   "/v1/refunds/" + req.ConnectorRefundID,
		}, nil

	default:
		return nil, domain.NotImplemented(fmt.Sprintf("flow %s for connector checkly", rd.FlowType))
	}
}

func (s *strategy) ParseResponse(flow domain.Flow, body []byte) (connector.WireOutcome, error) {
	switch flow {
	case domain.FlowRefund, domain.FlowRSync:
		var resp refundResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return connector.WireOutcome{}, domain.WrapConnectorError(domain.ErrResponseDeserializationFailed, "checkly refund", err)
		}
		return connector.WireOutcome{
			Status:            resp.Status,
			ConnectorRefundID: resp.ID,
		}, nil

	default:
		var resp chargeResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return connector.WireOutcome{}, domain.WrapConnectorError(domain.ErrResponseDeserializationFailed, "checkly charge", err)
		}
		outcome := connector.WireOutcome{
			Status:      resp.Status,
			ResourceID:  domain.ConnectorTransactionID(resp.ID),
			ResponseRef: resp.Reference,
		}
		if resp.NextAction != nil && resp.NextAction.RedirectURL != "" {
			outcome.Redirect = &domain.RedirectionData{
				URL:    resp.NextAction.RedirectURL,
				Method: http.MethodGet,
			}
		}
		return outcome, nil
	}
}

func (s *strategy) ParseError(statusCode int, body []byte) (domain.ErrorResponse, error) {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.ErrorResponse{}, domain.WrapConnectorError(domain.ErrResponseDeserializationFailed, "checkly error", err)
	}
	er := domain.ErrorResponse{
		Code:                   resp.Error.Code,
		Message:                resp.Error.Message,
		Reason:                 resp.Error.DeclineReason,
		ConnectorTransactionID: resp.Error.ChargeID,
	}
	// A decline is terminal; other 4xx leave the attempt recoverable.
	if resp.Error.Code == "card_declined" {
		er.AttemptStatus = domain.StatusOf(domain.AttemptFailure)
	}
	return er, nil
}
