package orchestrator

import (
	"context"

	"github.com/yourorg/payment-router/internal/domain"
	"github.com/yourorg/payment-router/internal/routing"
)

// SessionTokensRequest asks for wallet session tokens for an open intent.
type SessionTokensRequest struct {
	MerchantID string
	PaymentID  string
}

// SessionTokensAPIResponse maps each connector that produced a session
// token to that token.
type SessionTokensAPIResponse struct {
	PaymentID     string            `json:"payment_id"`
	SessionTokens map[string]string `json:"session_tokens"`
}

// PaymentsSessionTokens fans a session flow across every connector the
// routing rules can reach and collects the tokens that came back.
func (o *Orchestrator) PaymentsSessionTokens(ctx context.Context, req SessionTokensRequest) (*SessionTokensAPIResponse, *ApiError) {
	op := &sessionTokensOp{o: o, req: req}
	octx, apiErr := o.RunOperation(ctx, op, req.MerchantID)
	if apiErr != nil {
		return nil, apiErr
	}
	tokens := octx.SessionTokens
	if tokens == nil {
		tokens = map[string]string{}
	}
	return &SessionTokensAPIResponse{
		PaymentID:     octx.Intent.ID,
		SessionTokens: tokens,
	}, nil
}

// sessionTokensOp runs the session flow against the routing fan-out set.
// It never writes trackers: session tokens are ephemeral client material.
type sessionTokensOp struct {
	o   *Orchestrator
	req SessionTokensRequest
}

func (op *sessionTokensOp) Name() string { return "PaymentsSessionTokens" }

func (op *sessionTokensOp) Validate(_ *OpContext) *ApiError {
	if op.req.MerchantID == "" {
		return apiBadRequest("missing_merchant_id", "merchant_id is required")
	}
	if op.req.PaymentID == "" {
		return apiBadRequest("missing_payment_id", "payment_id is required")
	}
	return nil
}

func (op *sessionTokensOp) GetTrackers(ctx context.Context, octx *OpContext) *ApiError {
	intent, err := op.o.store.FindPaymentIntent(ctx, op.req.MerchantID, op.req.PaymentID)
	if err != nil {
		return storageApiError(err, "payment")
	}
	if intent.Status != domain.IntentRequiresConfirmation && intent.Status != domain.IntentProcessing {
		return apiBadRequest("payment_not_open", "session tokens are only available for open payments")
	}
	octx.Intent = &intent
	return nil
}

func (op *sessionTokensOp) Customer(_ context.Context, octx *OpContext) *ApiError {
	resolveCustomer(octx, octx.Intent.CustomerID, "")
	return nil
}

func (op *sessionTokensOp) PaymentMethodData(octx *OpContext) *ApiError {
	octx.PaymentCtx.Amount = octx.Intent.Amount
	octx.PaymentCtx.Currency = octx.Intent.Currency
	return nil
}

func (op *sessionTokensOp) ReadOnly() bool { return false }

func (op *sessionTokensOp) Route(_ *OpContext) (routing.ConnectorCallType, *ApiError) {
	return routing.SessionMultiple(op.o.routing.SessionConnectors()), nil
}

func (op *sessionTokensOp) BuildFlowRequest(octx *OpContext) (domain.RouterData, *ApiError) {
	rd := domain.NewRouterData(domain.FlowSession, domain.SessionRequest{
		Amount:   octx.Intent.Amount,
		Currency: octx.Intent.Currency,
	})
	rd.PaymentID = octx.Intent.ID
	return rd, nil
}

func (op *sessionTokensOp) UpdateTrackers(_ context.Context, _ *OpContext, _ domain.RouterData, _ error) *ApiError {
	return nil
}
