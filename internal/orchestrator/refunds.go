package orchestrator

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/yourorg/payment-router/internal/domain"
	"github.com/yourorg/payment-router/internal/routing"
)

// CreateRefundRequest refunds a charged attempt, fully or partially.
type CreateRefundRequest struct {
	MerchantID string
	PaymentID  string
	Amount     int64
	Reason     string
}

// SyncRefundRequest refreshes a refund from the connector.
type SyncRefundRequest struct {
	MerchantID string
	RefundID   string
}

// RefundAPIResponse is the API view of a refund.
type RefundAPIResponse struct {
	RefundID          string              `json:"refund_id"`
	PaymentID         string              `json:"payment_id"`
	Status            domain.RefundStatus `json:"status"`
	Amount            int64               `json:"amount"`
	Currency          string              `json:"currency"`
	Connector         string              `json:"connector,omitempty"`
	ConnectorRefundID string              `json:"connector_refund_id,omitempty"`
	Reason            string              `json:"reason,omitempty"`
	ErrorCode         string              `json:"error_code,omitempty"`
	ErrorMessage      string              `json:"error_message,omitempty"`
}

func newRefundID() string { return "ref_" + uuid.NewString() }

// RefundsCreate issues a refund against the charged active attempt.
func (o *Orchestrator) RefundsCreate(ctx context.Context, req CreateRefundRequest) (*RefundAPIResponse, *ApiError) {
	op := &refundCreateOp{o: o, req: req}
	octx, apiErr := o.RunOperation(ctx, op, req.MerchantID)
	if apiErr != nil {
		return nil, apiErr
	}
	return refundResponseFrom(octx), nil
}

// RefundsSync refreshes a pending refund from the connector.
func (o *Orchestrator) RefundsSync(ctx context.Context, req SyncRefundRequest) (*RefundAPIResponse, *ApiError) {
	op := &refundSyncOp{o: o, req: req}
	octx, apiErr := o.RunOperation(ctx, op, req.MerchantID)
	if apiErr != nil {
		return nil, apiErr
	}
	return refundResponseFrom(octx), nil
}

func refundResponseFrom(octx *OpContext) *RefundAPIResponse {
	r := octx.Refund
	return &RefundAPIResponse{
		RefundID:          r.ID,
		PaymentID:         r.PaymentID,
		Status:            r.Status,
		Amount:            r.Amount,
		Currency:          r.Currency,
		Connector:         r.ConnectorName,
		ConnectorRefundID: r.ConnectorRefundID,
		Reason:            r.Reason,
		ErrorCode:         r.ErrorCode,
		ErrorMessage:      r.ErrorMessage,
	}
}

// persistRefundOutcome applies one executed refund flow to the refund
// tracker. Timeouts leave the refund pending for a later sync.
func (o *Orchestrator) persistRefundOutcome(ctx context.Context, octx *OpContext, rd domain.RouterData, execErr error) *ApiError {
	patch := domain.RefundPatch{}
	switch {
	case execErr != nil:
		status := domain.RefundFailure
		patch.Status = &status
		code := string(domain.ConnectorErrorKindOf(execErr))
		if code == "" {
			code = "processing_error"
		}
		patch.ErrorCode = domain.StrPtr(code)
		patch.ErrorMessage = domain.StrPtr(execErr.Error())
	case rd.Response.IsErr():
		e := rd.Response.Err
		if e.Code != domain.CodeRequestTimeout {
			status := domain.RefundFailure
			patch.Status = &status
		}
		patch.ErrorCode = domain.StrPtr(e.Code)
		patch.ErrorMessage = domain.StrPtr(e.Message)
	default:
		if rr := rd.Response.Refund(); rr != nil {
			patch.Status = &rr.Status
			if rr.ConnectorRefundID != "" {
				patch.ConnectorRefundID = domain.StrPtr(rr.ConnectorRefundID)
			}
		}
	}

	refund, err := o.store.UpdateRefund(ctx, octx.MerchantID, octx.Refund.ID, patch)
	switch {
	case errors.Is(err, domain.ErrNoFieldsToUpdate):
		refund = *octx.Refund
	case err != nil:
		return storageApiError(err, "refund")
	}
	octx.Refund = &refund
	return nil
}

// refundCreateOp inserts the refund tracker, then runs the refund flow
// against the connector that charged the payment.
type refundCreateOp struct {
	o   *Orchestrator
	req CreateRefundRequest
}

func (op *refundCreateOp) Name() string { return "RefundsCreate" }

func (op *refundCreateOp) Validate(octx *OpContext) *ApiError {
	if op.req.MerchantID == "" {
		return apiBadRequest("missing_merchant_id", "merchant_id is required")
	}
	if op.req.PaymentID == "" {
		return apiBadRequest("missing_payment_id", "payment_id is required")
	}
	if op.req.Amount < 0 {
		return apiBadRequest("invalid_amount", "amount cannot be negative")
	}
	return nil
}

func (op *refundCreateOp) GetTrackers(ctx context.Context, octx *OpContext) *ApiError {
	intent, attempt, apiErr := loadIntentWithActiveAttempt(ctx, op.o, op.req.MerchantID, op.req.PaymentID)
	if apiErr != nil {
		return apiErr
	}
	if attempt == nil || attempt.Status != domain.AttemptCharged {
		return apiBadRequest("payment_not_refundable", "payment has no charged attempt to refund")
	}
	if attempt.ConnectorTransactionID == "" {
		return apiUnprocessable("missing_connector_transaction", "attempt has no connector transaction to refund")
	}
	amount := op.req.Amount
	if amount == 0 {
		amount = attempt.Amount
	}
	if amount > attempt.Amount {
		return apiBadRequest("invalid_amount", "refund amount exceeds the charged amount")
	}
	refund := domain.Refund{
		ID:                     newRefundID(),
		PaymentID:              intent.ID,
		AttemptID:              attempt.ID,
		MerchantID:             intent.MerchantID,
		Status:                 domain.RefundPending,
		Amount:                 amount,
		Currency:               attempt.Currency,
		ConnectorName:          attempt.ConnectorName,
		ConnectorTransactionID: attempt.ConnectorTransactionID,
		Reason:                 op.req.Reason,
	}
	refund, err := op.o.store.InsertRefund(ctx, refund)
	if err != nil {
		return storageApiError(err, "refund")
	}
	octx.Intent = intent
	octx.Attempt = attempt
	octx.Refund = &refund
	return nil
}

func (op *refundCreateOp) Customer(_ context.Context, octx *OpContext) *ApiError {
	resolveCustomer(octx, octx.Intent.CustomerID, "")
	return nil
}

func (op *refundCreateOp) PaymentMethodData(octx *OpContext) *ApiError {
	octx.PaymentCtx.Amount = octx.Refund.Amount
	octx.PaymentCtx.Currency = octx.Refund.Currency
	octx.PaymentCtx.PaymentMethod = octx.Attempt.PaymentMethodKind
	return nil
}

func (op *refundCreateOp) ReadOnly() bool { return false }

func (op *refundCreateOp) Route(octx *OpContext) (routing.ConnectorCallType, *ApiError) {
	// Refunds always go back through the charging connector.
	return routing.Single(octx.Refund.ConnectorName), nil
}

func (op *refundCreateOp) BuildFlowRequest(octx *OpContext) (domain.RouterData, *ApiError) {
	rd := domain.NewRouterData(domain.FlowRefund, domain.RefundRequest{
		RefundID:               octx.Refund.ID,
		ConnectorTransactionID: octx.Refund.ConnectorTransactionID,
		RefundAmount:           octx.Refund.Amount,
		Currency:               octx.Refund.Currency,
		Reason:                 octx.Refund.Reason,
	})
	rd.PaymentID = octx.Intent.ID
	rd.AttemptID = octx.Attempt.ID
	rd.RefundID = octx.Refund.ID
	rd.Status = octx.Attempt.Status
	return rd, nil
}

func (op *refundCreateOp) UpdateTrackers(ctx context.Context, octx *OpContext, rd domain.RouterData, execErr error) *ApiError {
	return op.o.persistRefundOutcome(ctx, octx, rd, execErr)
}

// refundSyncOp refreshes a refund. Refunds that never got a connector
// refund id are served from storage.
type refundSyncOp struct {
	o       *Orchestrator
	req     SyncRefundRequest
	noFetch bool
}

func (op *refundSyncOp) Name() string { return "RefundsSync" }

func (op *refundSyncOp) Validate(octx *OpContext) *ApiError {
	if op.req.MerchantID == "" {
		return apiBadRequest("missing_merchant_id", "merchant_id is required")
	}
	if op.req.RefundID == "" {
		return apiBadRequest("missing_refund_id", "refund_id is required")
	}
	return nil
}

func (op *refundSyncOp) GetTrackers(ctx context.Context, octx *OpContext) *ApiError {
	refund, err := op.o.store.FindRefund(ctx, op.req.MerchantID, op.req.RefundID)
	if err != nil {
		return storageApiError(err, "refund")
	}
	octx.Refund = &refund
	op.noFetch = refund.ConnectorRefundID == "" || refund.Status != domain.RefundPending
	return nil
}

func (op *refundSyncOp) Customer(_ context.Context, _ *OpContext) *ApiError { return nil }

func (op *refundSyncOp) PaymentMethodData(octx *OpContext) *ApiError {
	octx.PaymentCtx.Amount = octx.Refund.Amount
	octx.PaymentCtx.Currency = octx.Refund.Currency
	return nil
}

func (op *refundSyncOp) ReadOnly() bool { return op.noFetch }

func (op *refundSyncOp) Route(octx *OpContext) (routing.ConnectorCallType, *ApiError) {
	return routing.Single(octx.Refund.ConnectorName), nil
}

func (op *refundSyncOp) BuildFlowRequest(octx *OpContext) (domain.RouterData, *ApiError) {
	rd := domain.NewRouterData(domain.FlowRSync, domain.RefundSyncRequest{
		ConnectorRefundID:      octx.Refund.ConnectorRefundID,
		ConnectorTransactionID: octx.Refund.ConnectorTransactionID,
	})
	rd.PaymentID = octx.Refund.PaymentID
	rd.AttemptID = octx.Refund.AttemptID
	rd.RefundID = octx.Refund.ID
	return rd, nil
}

func (op *refundSyncOp) UpdateTrackers(ctx context.Context, octx *OpContext, rd domain.RouterData, execErr error) *ApiError {
	return op.o.persistRefundOutcome(ctx, octx, rd, execErr)
}
