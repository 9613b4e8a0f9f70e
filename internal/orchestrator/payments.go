package orchestrator

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/yourorg/payment-router/internal/domain"
	"github.com/yourorg/payment-router/internal/routing"
)

// CreatePaymentRequest opens a payment intent. With Confirm set the
// first attempt is executed in the same call.
type CreatePaymentRequest struct {
	MerchantID    string
	Amount        int64
	Currency      string
	Confirm       bool
	CaptureMethod string
	CustomerID    string
	Email         string
	Description   string
	ReturnURL     string
	PaymentMethod *domain.PaymentMethodData
}

// ConfirmPaymentRequest executes a new attempt against an open intent.
type ConfirmPaymentRequest struct {
	MerchantID    string
	PaymentID     string
	Email         string
	ReturnURL     string
	PaymentMethod *domain.PaymentMethodData
}

// CapturePaymentRequest captures a previously authorized attempt. A zero
// AmountToCapture captures the full intent amount.
type CapturePaymentRequest struct {
	MerchantID      string
	PaymentID       string
	AmountToCapture int64
}

// SyncPaymentRequest refreshes the attempt from the connector.
type SyncPaymentRequest struct {
	MerchantID string
	PaymentID  string
}

// PaymentResponse is the API view of an intent and its active attempt.
type PaymentResponse struct {
	PaymentID              string               `json:"payment_id"`
	Status                 domain.IntentStatus  `json:"status"`
	Amount                 int64                `json:"amount"`
	Currency               string               `json:"currency"`
	AttemptID              string               `json:"attempt_id,omitempty"`
	AttemptStatus          domain.AttemptStatus `json:"attempt_status,omitempty"`
	Connector              string               `json:"connector,omitempty"`
	ConnectorTransactionID string               `json:"connector_transaction_id,omitempty"`
	RedirectURL            string               `json:"redirect_url,omitempty"`
	ErrorCode              string               `json:"error_code,omitempty"`
	ErrorMessage           string               `json:"error_message,omitempty"`
}

// AttemptResponse is the API view of one attempt in a list.
type AttemptResponse struct {
	AttemptID              string               `json:"attempt_id"`
	Status                 domain.AttemptStatus `json:"status"`
	Connector              string               `json:"connector,omitempty"`
	ConnectorTransactionID string               `json:"connector_transaction_id,omitempty"`
	ErrorCode              string               `json:"error_code,omitempty"`
	ErrorMessage           string               `json:"error_message,omitempty"`
}

func newPaymentID() string { return "pay_" + uuid.NewString() }
func newAttemptID() string { return "att_" + uuid.NewString() }

// PaymentsCreate opens an intent and, when Confirm is set, runs the
// first authorize attempt.
func (o *Orchestrator) PaymentsCreate(ctx context.Context, req CreatePaymentRequest) (*PaymentResponse, *ApiError) {
	op := &paymentCreateOp{o: o, req: req}
	octx, apiErr := o.RunOperation(ctx, op, req.MerchantID)
	if apiErr != nil {
		return nil, apiErr
	}
	return paymentResponseFrom(octx), nil
}

// PaymentsConfirm runs a new authorize attempt against an open intent.
func (o *Orchestrator) PaymentsConfirm(ctx context.Context, req ConfirmPaymentRequest) (*PaymentResponse, *ApiError) {
	op := &paymentConfirmOp{o: o, req: req}
	octx, apiErr := o.RunOperation(ctx, op, req.MerchantID)
	if apiErr != nil {
		return nil, apiErr
	}
	return paymentResponseFrom(octx), nil
}

// PaymentsCapture captures an authorized attempt.
func (o *Orchestrator) PaymentsCapture(ctx context.Context, req CapturePaymentRequest) (*PaymentResponse, *ApiError) {
	op := &paymentCaptureOp{o: o, req: req}
	octx, apiErr := o.RunOperation(ctx, op, req.MerchantID)
	if apiErr != nil {
		return nil, apiErr
	}
	return paymentResponseFrom(octx), nil
}

// PaymentsSync refreshes the active attempt from the connector.
func (o *Orchestrator) PaymentsSync(ctx context.Context, req SyncPaymentRequest) (*PaymentResponse, *ApiError) {
	op := &paymentSyncOp{o: o, req: req}
	octx, apiErr := o.RunOperation(ctx, op, req.MerchantID)
	if apiErr != nil {
		return nil, apiErr
	}
	return paymentResponseFrom(octx), nil
}

// PaymentsGet returns the stored state of an intent without touching any
// connector.
func (o *Orchestrator) PaymentsGet(ctx context.Context, merchantID, paymentID string) (*PaymentResponse, *ApiError) {
	op := &paymentGetOp{o: o, paymentID: paymentID}
	octx, apiErr := o.RunOperation(ctx, op, merchantID)
	if apiErr != nil {
		return nil, apiErr
	}
	return paymentResponseFrom(octx), nil
}

// PaymentsListAttempts lists every attempt recorded for an intent.
func (o *Orchestrator) PaymentsListAttempts(ctx context.Context, merchantID, paymentID string) ([]AttemptResponse, *ApiError) {
	op := &paymentGetOp{o: o, paymentID: paymentID, withAttempts: true}
	octx, apiErr := o.RunOperation(ctx, op, merchantID)
	if apiErr != nil {
		return nil, apiErr
	}
	out := make([]AttemptResponse, 0, len(octx.Attempts))
	for _, a := range octx.Attempts {
		out = append(out, AttemptResponse{
			AttemptID:              a.ID,
			Status:                 a.Status,
			Connector:              a.ConnectorName,
			ConnectorTransactionID: a.ConnectorTransactionID,
			ErrorCode:              a.ErrorCode,
			ErrorMessage:           a.ErrorMessage,
		})
	}
	return out, nil
}

func paymentResponseFrom(octx *OpContext) *PaymentResponse {
	resp := &PaymentResponse{
		PaymentID: octx.Intent.ID,
		Status:    octx.Intent.Status,
		Amount:    octx.Intent.Amount,
		Currency:  octx.Intent.Currency,
	}
	if a := octx.Attempt; a != nil {
		resp.AttemptID = a.ID
		resp.AttemptStatus = a.Status
		resp.Connector = a.ConnectorName
		resp.ConnectorTransactionID = a.ConnectorTransactionID
		resp.ErrorCode = a.ErrorCode
		resp.ErrorMessage = a.ErrorMessage
	}
	if octx.Executed {
		if tr := octx.RouterData.Response.Transaction(); tr != nil && tr.Redirection != nil {
			resp.RedirectURL = tr.Redirection.URL
		}
	}
	return resp
}

// validatePaymentBasics covers the fields every write operation needs.
func validatePaymentBasics(merchantID, currency string, amount int64) *ApiError {
	if merchantID == "" {
		return apiBadRequest("missing_merchant_id", "merchant_id is required")
	}
	if amount <= 0 {
		return apiBadRequest("invalid_amount", "amount must be a positive minor-unit integer")
	}
	if len(currency) != 3 {
		return apiBadRequest("invalid_currency", "currency must be a three-letter code")
	}
	return nil
}

// fillPaymentContext projects the payment onto the rule-engine input.
func fillPaymentContext(octx *OpContext, amount int64, currency string, pm *domain.PaymentMethodData) {
	octx.PaymentCtx.Amount = amount
	octx.PaymentCtx.Currency = strings.ToUpper(currency)
	if pm != nil {
		octx.PaymentCtx.PaymentMethod = pm.Kind
		if pm.Kind == domain.MethodCard && pm.Card != nil {
			octx.PaymentCtx.CardBin = pm.Card.Bin()
		}
	}
}

// resolveCustomer is the shared customer stage: it attaches whatever
// customer identity the intent or request carries.
func resolveCustomer(octx *OpContext, customerID, email string) {
	if customerID == "" && email == "" {
		return
	}
	octx.Customer = &domain.Customer{
		ID:         customerID,
		MerchantID: octx.MerchantID,
		Email:      email,
	}
}

// persistPaymentOutcome applies one executed flow to the attempt and
// intent trackers. It runs for declines and timeouts too so the stored
// state always reflects the last connector interaction.
func (o *Orchestrator) persistPaymentOutcome(ctx context.Context, octx *OpContext, rd domain.RouterData, execErr error) *ApiError {
	status := rd.Status
	patch := domain.AttemptPatch{Status: &status}
	if rd.ConnectorName != "" {
		patch.ConnectorName = domain.StrPtr(rd.ConnectorName)
	}
	if rd.MerchantConnectorID != "" {
		patch.MerchantConnectorID = domain.StrPtr(rd.MerchantConnectorID)
	}

	switch {
	case execErr != nil:
		// The call never produced a connector verdict; the attempt is a
		// local failure.
		status = domain.AttemptFailure
		code := string(domain.ConnectorErrorKindOf(execErr))
		if code == "" {
			code = "processing_error"
		}
		patch.ErrorCode = domain.StrPtr(code)
		patch.ErrorMessage = domain.StrPtr(execErr.Error())
	case rd.Response.IsErr():
		e := rd.Response.Err
		if e.AttemptStatus != nil {
			status = *e.AttemptStatus
		}
		patch.ErrorCode = domain.StrPtr(e.Code)
		patch.ErrorMessage = domain.StrPtr(e.Message)
		if e.Reason != "" {
			patch.ErrorReason = domain.StrPtr(e.Reason)
		}
		if e.ConnectorTransactionID != "" {
			patch.ConnectorTransactionID = domain.StrPtr(e.ConnectorTransactionID)
		}
	default:
		if tr := rd.Response.Transaction(); tr != nil && tr.ResourceID.Kind == domain.ResponseIDConnectorTransaction {
			patch.ConnectorTransactionID = domain.StrPtr(tr.ResourceID.Value)
		}
	}

	attempt, err := o.store.UpdatePaymentAttempt(ctx, octx.Attempt.ID, patch)
	switch {
	case errors.Is(err, domain.ErrNoFieldsToUpdate):
		attempt = *octx.Attempt
	case err != nil:
		return storageApiError(err, "attempt")
	}
	octx.Attempt = &attempt

	intentStatus := domain.IntentStatusForAttempt(attempt.Status)
	intent, err := o.store.UpdatePaymentIntent(ctx, octx.MerchantID, octx.Intent.ID, domain.IntentPatch{
		Status:          &intentStatus,
		ActiveAttemptID: domain.StrPtr(attempt.ID),
	})
	switch {
	case errors.Is(err, domain.ErrNoFieldsToUpdate):
		intent = *octx.Intent
	case err != nil:
		return storageApiError(err, "payment")
	}
	octx.Intent = &intent
	return nil
}

func storageApiError(err error, entity string) *ApiError {
	if errors.Is(err, domain.ErrTrackerNotFound) {
		return apiNotFound(entity+"_not_found", entity+" not found")
	}
	if errors.Is(err, domain.ErrDuplicateValue) {
		return apiBadRequest("duplicate_"+entity, entity+" already exists")
	}
	return apiInternal("storage failure while persisting " + entity)
}

// paymentCreateOp opens the intent and optionally confirms it in the
// same pipeline run.
type paymentCreateOp struct {
	o   *Orchestrator
	req CreatePaymentRequest
}

func (op *paymentCreateOp) Name() string { return "PaymentsCreate" }

func (op *paymentCreateOp) Validate(octx *OpContext) *ApiError {
	if apiErr := validatePaymentBasics(op.req.MerchantID, op.req.Currency, op.req.Amount); apiErr != nil {
		return apiErr
	}
	switch op.req.CaptureMethod {
	case "", "automatic", "manual":
	default:
		return apiBadRequest("invalid_capture_method", "capture_method must be automatic or manual")
	}
	if op.req.Confirm && op.req.PaymentMethod == nil {
		return apiBadRequest("missing_payment_method", "payment_method is required when confirm is set")
	}
	return nil
}

func (op *paymentCreateOp) GetTrackers(ctx context.Context, octx *OpContext) *ApiError {
	intent := domain.PaymentIntent{
		ID:          newPaymentID(),
		MerchantID:  op.req.MerchantID,
		Status:      domain.IntentRequiresConfirmation,
		Amount:      op.req.Amount,
		Currency:    strings.ToUpper(op.req.Currency),
		CustomerID:  op.req.CustomerID,
		Description: op.req.Description,
	}
	if op.req.Confirm {
		intent.Status = domain.IntentProcessing
	}
	intent, err := op.o.store.InsertPaymentIntent(ctx, intent)
	if err != nil {
		return storageApiError(err, "payment")
	}
	octx.Intent = &intent

	if !op.req.Confirm {
		return nil
	}
	attempt := domain.PaymentAttempt{
		ID:         newAttemptID(),
		PaymentID:  intent.ID,
		MerchantID: intent.MerchantID,
		Status:     domain.AttemptStarted,
		Amount:     intent.Amount,
		Currency:   intent.Currency,
	}
	if op.req.PaymentMethod != nil {
		attempt.PaymentMethodKind = op.req.PaymentMethod.Kind
	}
	attempt, err = op.o.store.InsertPaymentAttempt(ctx, attempt)
	if err != nil {
		return storageApiError(err, "attempt")
	}
	octx.Attempt = &attempt
	return nil
}

func (op *paymentCreateOp) Customer(_ context.Context, octx *OpContext) *ApiError {
	resolveCustomer(octx, op.req.CustomerID, op.req.Email)
	return nil
}

func (op *paymentCreateOp) PaymentMethodData(octx *OpContext) *ApiError {
	if op.req.Confirm {
		fillPaymentContext(octx, op.req.Amount, op.req.Currency, op.req.PaymentMethod)
	}
	return nil
}

func (op *paymentCreateOp) ReadOnly() bool { return false }

func (op *paymentCreateOp) Route(octx *OpContext) (routing.ConnectorCallType, *ApiError) {
	if !op.req.Confirm {
		return routing.Skip(), nil
	}
	return routeForAuthorize(op.o, octx)
}

func (op *paymentCreateOp) BuildFlowRequest(octx *OpContext) (domain.RouterData, *ApiError) {
	return buildAuthorizeRouterData(octx, *op.req.PaymentMethod, op.req.CaptureMethod, op.req.Email, op.req.ReturnURL), nil
}

func (op *paymentCreateOp) UpdateTrackers(ctx context.Context, octx *OpContext, rd domain.RouterData, execErr error) *ApiError {
	return op.o.persistPaymentOutcome(ctx, octx, rd, execErr)
}

// routeForAuthorize asks the rule engine for a connector. An authorize
// flow cannot be skipped, so an empty decision is a hard error.
func routeForAuthorize(o *Orchestrator, octx *OpContext) (routing.ConnectorCallType, *ApiError) {
	call, err := o.routing.PerformRouting(octx.PaymentCtx)
	if err != nil {
		return routing.ConnectorCallType{}, apiInternal("routing evaluation failed")
	}
	if call.Kind == routing.CallSkip {
		return routing.ConnectorCallType{}, apiUnprocessable("no_routable_connector", "no connector is eligible for this payment")
	}
	return call, nil
}

func buildAuthorizeRouterData(octx *OpContext, pm domain.PaymentMethodData, captureMethod, email, returnURL string) domain.RouterData {
	if captureMethod == "" {
		captureMethod = "automatic"
	}
	rd := domain.NewRouterData(domain.FlowAuthorize, domain.AuthorizeRequest{
		Amount:        octx.Intent.Amount,
		Currency:      octx.Intent.Currency,
		PaymentMethod: pm,
		CaptureMethod: captureMethod,
		Email:         email,
		ReturnURL:     returnURL,
	})
	rd.PaymentID = octx.Intent.ID
	rd.AttemptID = octx.Attempt.ID
	rd.Status = domain.AttemptStarted
	return rd
}

// paymentConfirmOp runs a fresh attempt against an existing intent.
type paymentConfirmOp struct {
	o   *Orchestrator
	req ConfirmPaymentRequest
}

func (op *paymentConfirmOp) Name() string { return "PaymentsConfirm" }

func (op *paymentConfirmOp) Validate(octx *OpContext) *ApiError {
	if op.req.MerchantID == "" {
		return apiBadRequest("missing_merchant_id", "merchant_id is required")
	}
	if op.req.PaymentID == "" {
		return apiBadRequest("missing_payment_id", "payment_id is required")
	}
	if op.req.PaymentMethod == nil {
		return apiBadRequest("missing_payment_method", "payment_method is required")
	}
	return nil
}

func (op *paymentConfirmOp) GetTrackers(ctx context.Context, octx *OpContext) *ApiError {
	intent, err := op.o.store.FindPaymentIntent(ctx, op.req.MerchantID, op.req.PaymentID)
	if err != nil {
		return storageApiError(err, "payment")
	}
	switch intent.Status {
	case domain.IntentRequiresConfirmation, domain.IntentFailed:
	case domain.IntentSucceeded, domain.IntentCancelled:
		return apiBadRequest("payment_already_final", "payment is already in a terminal state")
	default:
		return apiBadRequest("payment_not_confirmable", "payment cannot be confirmed in status "+string(intent.Status))
	}
	octx.Intent = &intent

	attempt := domain.PaymentAttempt{
		ID:                newAttemptID(),
		PaymentID:         intent.ID,
		MerchantID:        intent.MerchantID,
		Status:            domain.AttemptStarted,
		Amount:            intent.Amount,
		Currency:          intent.Currency,
		PaymentMethodKind: op.req.PaymentMethod.Kind,
	}
	attempt, err = op.o.store.InsertPaymentAttempt(ctx, attempt)
	if err != nil {
		return storageApiError(err, "attempt")
	}
	octx.Attempt = &attempt
	return nil
}

func (op *paymentConfirmOp) Customer(_ context.Context, octx *OpContext) *ApiError {
	resolveCustomer(octx, octx.Intent.CustomerID, op.req.Email)
	return nil
}

func (op *paymentConfirmOp) PaymentMethodData(octx *OpContext) *ApiError {
	fillPaymentContext(octx, octx.Intent.Amount, octx.Intent.Currency, op.req.PaymentMethod)
	return nil
}

func (op *paymentConfirmOp) ReadOnly() bool { return false }

func (op *paymentConfirmOp) Route(octx *OpContext) (routing.ConnectorCallType, *ApiError) {
	return routeForAuthorize(op.o, octx)
}

func (op *paymentConfirmOp) BuildFlowRequest(octx *OpContext) (domain.RouterData, *ApiError) {
	return buildAuthorizeRouterData(octx, *op.req.PaymentMethod, "", op.req.Email, op.req.ReturnURL), nil
}

func (op *paymentConfirmOp) UpdateTrackers(ctx context.Context, octx *OpContext, rd domain.RouterData, execErr error) *ApiError {
	return op.o.persistPaymentOutcome(ctx, octx, rd, execErr)
}

// paymentCaptureOp captures an authorized attempt with the connector
// that authorized it.
type paymentCaptureOp struct {
	o   *Orchestrator
	req CapturePaymentRequest
}

func (op *paymentCaptureOp) Name() string { return "PaymentsCapture" }

func (op *paymentCaptureOp) Validate(octx *OpContext) *ApiError {
	if op.req.MerchantID == "" {
		return apiBadRequest("missing_merchant_id", "merchant_id is required")
	}
	if op.req.PaymentID == "" {
		return apiBadRequest("missing_payment_id", "payment_id is required")
	}
	if op.req.AmountToCapture < 0 {
		return apiBadRequest("invalid_amount", "amount_to_capture cannot be negative")
	}
	return nil
}

func (op *paymentCaptureOp) GetTrackers(ctx context.Context, octx *OpContext) *ApiError {
	intent, attempt, apiErr := loadIntentWithActiveAttempt(ctx, op.o, op.req.MerchantID, op.req.PaymentID)
	if apiErr != nil {
		return apiErr
	}
	if attempt == nil || attempt.Status != domain.AttemptAuthorized {
		return apiBadRequest("payment_not_capturable", "payment has no authorized attempt to capture")
	}
	if op.req.AmountToCapture > intent.Amount {
		return apiBadRequest("invalid_amount", "amount_to_capture exceeds the authorized amount")
	}
	if attempt.ConnectorTransactionID == "" {
		return apiUnprocessable("missing_connector_transaction", "attempt has no connector transaction to capture")
	}
	octx.Intent = intent
	octx.Attempt = attempt
	return nil
}

func (op *paymentCaptureOp) Customer(_ context.Context, octx *OpContext) *ApiError {
	resolveCustomer(octx, octx.Intent.CustomerID, "")
	return nil
}

func (op *paymentCaptureOp) PaymentMethodData(octx *OpContext) *ApiError {
	octx.PaymentCtx.Amount = octx.Intent.Amount
	octx.PaymentCtx.Currency = octx.Intent.Currency
	octx.PaymentCtx.PaymentMethod = octx.Attempt.PaymentMethodKind
	return nil
}

func (op *paymentCaptureOp) ReadOnly() bool { return false }

func (op *paymentCaptureOp) Route(octx *OpContext) (routing.ConnectorCallType, *ApiError) {
	// A capture must land on the connector that holds the authorization.
	return routing.Single(octx.Attempt.ConnectorName), nil
}

func (op *paymentCaptureOp) BuildFlowRequest(octx *OpContext) (domain.RouterData, *ApiError) {
	amount := op.req.AmountToCapture
	if amount == 0 {
		amount = octx.Intent.Amount
	}
	rd := domain.NewRouterData(domain.FlowCapture, domain.CaptureRequest{
		AmountToCapture:        amount,
		Currency:               octx.Intent.Currency,
		ConnectorTransactionID: octx.Attempt.ConnectorTransactionID,
	})
	rd.PaymentID = octx.Intent.ID
	rd.AttemptID = octx.Attempt.ID
	rd.Status = octx.Attempt.Status
	return rd, nil
}

func (op *paymentCaptureOp) UpdateTrackers(ctx context.Context, octx *OpContext, rd domain.RouterData, execErr error) *ApiError {
	return op.o.persistPaymentOutcome(ctx, octx, rd, execErr)
}

// paymentSyncOp pulls the connector's view of the active attempt. When
// the attempt never reached a connector the stored state is returned
// as-is.
type paymentSyncOp struct {
	o       *Orchestrator
	req     SyncPaymentRequest
	noFetch bool
}

func (op *paymentSyncOp) Name() string { return "PaymentsSync" }

func (op *paymentSyncOp) Validate(octx *OpContext) *ApiError {
	if op.req.MerchantID == "" {
		return apiBadRequest("missing_merchant_id", "merchant_id is required")
	}
	if op.req.PaymentID == "" {
		return apiBadRequest("missing_payment_id", "payment_id is required")
	}
	return nil
}

func (op *paymentSyncOp) GetTrackers(ctx context.Context, octx *OpContext) *ApiError {
	intent, attempt, apiErr := loadIntentWithActiveAttempt(ctx, op.o, op.req.MerchantID, op.req.PaymentID)
	if apiErr != nil {
		return apiErr
	}
	octx.Intent = intent
	octx.Attempt = attempt
	op.noFetch = attempt == nil || attempt.ConnectorTransactionID == ""
	return nil
}

func (op *paymentSyncOp) Customer(_ context.Context, octx *OpContext) *ApiError {
	resolveCustomer(octx, octx.Intent.CustomerID, "")
	return nil
}

func (op *paymentSyncOp) PaymentMethodData(octx *OpContext) *ApiError {
	if octx.Attempt != nil {
		octx.PaymentCtx.Amount = octx.Attempt.Amount
		octx.PaymentCtx.Currency = octx.Attempt.Currency
		octx.PaymentCtx.PaymentMethod = octx.Attempt.PaymentMethodKind
	}
	return nil
}

func (op *paymentSyncOp) ReadOnly() bool { return op.noFetch }

func (op *paymentSyncOp) Route(octx *OpContext) (routing.ConnectorCallType, *ApiError) {
	return routing.Single(octx.Attempt.ConnectorName), nil
}

func (op *paymentSyncOp) BuildFlowRequest(octx *OpContext) (domain.RouterData, *ApiError) {
	rd := domain.NewRouterData(domain.FlowPSync, domain.SyncRequest{
		ConnectorTransactionID: octx.Attempt.ConnectorTransactionID,
	})
	rd.PaymentID = octx.Intent.ID
	rd.AttemptID = octx.Attempt.ID
	rd.Status = octx.Attempt.Status
	return rd, nil
}

func (op *paymentSyncOp) UpdateTrackers(ctx context.Context, octx *OpContext, rd domain.RouterData, execErr error) *ApiError {
	return op.o.persistPaymentOutcome(ctx, octx, rd, execErr)
}

// paymentGetOp serves reads from storage only.
type paymentGetOp struct {
	o            *Orchestrator
	paymentID    string
	withAttempts bool
}

func (op *paymentGetOp) Name() string { return "PaymentsGet" }

func (op *paymentGetOp) Validate(octx *OpContext) *ApiError {
	if octx.MerchantID == "" {
		return apiBadRequest("missing_merchant_id", "merchant_id is required")
	}
	if op.paymentID == "" {
		return apiBadRequest("missing_payment_id", "payment_id is required")
	}
	return nil
}

func (op *paymentGetOp) GetTrackers(ctx context.Context, octx *OpContext) *ApiError {
	intent, attempt, apiErr := loadIntentWithActiveAttempt(ctx, op.o, octx.MerchantID, op.paymentID)
	if apiErr != nil {
		return apiErr
	}
	octx.Intent = intent
	octx.Attempt = attempt
	if op.withAttempts {
		attempts, err := op.o.store.ListPaymentAttempts(ctx, octx.MerchantID, op.paymentID)
		if err != nil {
			return storageApiError(err, "attempt")
		}
		octx.Attempts = attempts
	}
	return nil
}

func (op *paymentGetOp) Customer(_ context.Context, octx *OpContext) *ApiError {
	resolveCustomer(octx, octx.Intent.CustomerID, "")
	return nil
}

func (op *paymentGetOp) PaymentMethodData(_ *OpContext) *ApiError { return nil }

func (op *paymentGetOp) ReadOnly() bool { return true }

func (op *paymentGetOp) Route(_ *OpContext) (routing.ConnectorCallType, *ApiError) {
	return routing.Skip(), nil
}

func (op *paymentGetOp) BuildFlowRequest(_ *OpContext) (domain.RouterData, *ApiError) {
	return domain.RouterData{}, apiInternal("read-only operation cannot build a connector request")
}

func (op *paymentGetOp) UpdateTrackers(_ context.Context, _ *OpContext, _ domain.RouterData, _ error) *ApiError {
	return nil
}

// loadIntentWithActiveAttempt fetches the intent and, when one exists,
// its active attempt.
func loadIntentWithActiveAttempt(ctx context.Context, o *Orchestrator, merchantID, paymentID string) (*domain.PaymentIntent, *domain.PaymentAttempt, *ApiError) {
	intent, err := o.store.FindPaymentIntent(ctx, merchantID, paymentID)
	if err != nil {
		return nil, nil, storageApiError(err, "payment")
	}
	if intent.ActiveAttemptID == "" {
		return &intent, nil, nil
	}
	attempt, err := o.store.FindPaymentAttempt(ctx, intent.ActiveAttemptID)
	if err != nil {
		return nil, nil, storageApiError(err, "attempt")
	}
	return &intent, &attempt, nil
}
