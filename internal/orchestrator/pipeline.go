package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/domain"
	"github.com/yourorg/payment-router/internal/routing"
	"github.com/yourorg/payment-router/internal/tokens"
)

// ApiError is the user-facing error shape every pipeline failure is
// translated into before it leaves the orchestrator.
type ApiError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func apiBadRequest(code, message string) *ApiError {
	return &ApiError{StatusCode: http.StatusBadRequest, Code: code, Message: message}
}

func apiNotFound(code, message string) *ApiError {
	return &ApiError{StatusCode: http.StatusNotFound, Code: code, Message: message}
}

func apiUnprocessable(code, message string) *ApiError {
	return &ApiError{StatusCode: http.StatusUnprocessableEntity, Code: code, Message: message}
}

func apiInternal(message string) *ApiError {
	return &ApiError{StatusCode: http.StatusInternalServerError, Code: "internal_error", Message: message}
}

// OpContext is the per-invocation state shared by the pipeline stages of
// one operation.
type OpContext struct {
	MerchantID string

	Intent   *domain.PaymentIntent
	Attempt  *domain.PaymentAttempt
	Attempts []domain.PaymentAttempt
	Refund   *domain.Refund
	Customer *domain.Customer

	// PaymentCtx feeds the routing and blocklist rule engines.
	PaymentCtx routing.PaymentContext

	// Call is the routing decision, set after the routing stage.
	Call routing.ConnectorCallType

	// RouterData is the carrier after connector execution. Executed is
	// false for read-only operations and skipped calls.
	RouterData domain.RouterData
	Executed   bool

	// SessionTokens collects per-connector tokens from session fan-outs.
	SessionTokens map[string]string
}

// Operation is one payment or refund operation expressed as pipeline
// hooks. RunOperation drives the hooks in a fixed order; an operation
// only decides what each stage does, never when it runs.
type Operation interface {
	Name() string

	// Validate checks the inbound request shape.
	Validate(octx *OpContext) *ApiError
	// GetTrackers loads or creates the intent, attempt and refund rows.
	GetTrackers(ctx context.Context, octx *OpContext) *ApiError
	// Customer resolves the customer attached to the payment.
	Customer(ctx context.Context, octx *OpContext) *ApiError
	// PaymentMethodData resolves payment-method details and fills the
	// routing context.
	PaymentMethodData(octx *OpContext) *ApiError
	// ReadOnly reports that the operation stops after tracker reads and
	// never contacts a connector.
	ReadOnly() bool
	// Route picks the connector call for this operation.
	Route(octx *OpContext) (routing.ConnectorCallType, *ApiError)
	// BuildFlowRequest assembles the RouterData for the connector call.
	BuildFlowRequest(octx *OpContext) (domain.RouterData, *ApiError)
	// UpdateTrackers persists the outcome. It runs for every executed
	// call, including failed and timed-out ones.
	UpdateTrackers(ctx context.Context, octx *OpContext, rd domain.RouterData, execErr error) *ApiError
}

// RunOperation drives an operation through the pipeline stages in order:
// validate, tracker load, customer, payment-method data, routing,
// blocklist, request build, connector execution, tracker update.
func (o *Orchestrator) RunOperation(ctx context.Context, op Operation, merchantID string) (*OpContext, *ApiError) {
	ctx, span := o.tracer.Start(ctx, "Orchestrator."+op.Name())
	defer span.End()

	octx := &OpContext{MerchantID: merchantID}
	octx.PaymentCtx.MerchantID = merchantID

	if apiErr := op.Validate(octx); apiErr != nil {
		return nil, apiErr
	}
	if apiErr := op.GetTrackers(ctx, octx); apiErr != nil {
		return nil, apiErr
	}
	if apiErr := op.Customer(ctx, octx); apiErr != nil {
		return nil, apiErr
	}
	if apiErr := op.PaymentMethodData(octx); apiErr != nil {
		return nil, apiErr
	}
	if op.ReadOnly() {
		return octx, nil
	}

	call, apiErr := op.Route(octx)
	if apiErr != nil {
		return nil, apiErr
	}
	octx.Call = call
	if call.Kind == routing.CallSkip {
		return octx, nil
	}

	if blockedBy, err := o.blocklist.Check(octx.PaymentCtx); err != nil {
		o.logger.Error("blocklist evaluation failed", zap.Error(err), zap.String("operation", op.Name()))
		return nil, apiInternal("blocklist evaluation failed")
	} else if blockedBy != "" {
		// A blocked payment is a terminal decline recorded without any
		// connector traffic.
		rd, buildErr := op.BuildFlowRequest(octx)
		if buildErr != nil {
			return nil, buildErr
		}
		rd.Status = domain.AttemptFailure
		rd.Response = domain.ErrResult(domain.ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Code:       "payment_blocked",
			Message:    "payment blocked by merchant blocklist rule " + blockedBy,
		})
		octx.RouterData = rd
		if apiErr := op.UpdateTrackers(ctx, octx, rd, nil); apiErr != nil {
			return nil, apiErr
		}
		return nil, apiBadRequest("payment_blocked", "payment blocked by merchant rules")
	}

	rd, apiErr := op.BuildFlowRequest(octx)
	if apiErr != nil {
		return nil, apiErr
	}
	rd.MerchantID = merchantID

	out, execErr := o.executeCall(ctx, octx, rd)
	octx.RouterData = out
	octx.Executed = true

	if apiErr := op.UpdateTrackers(ctx, octx, out, execErr); apiErr != nil {
		return nil, apiErr
	}
	if execErr != nil {
		return nil, classifyExecError(execErr)
	}
	return octx, nil
}

// executeCall resolves the connector, pre-fetches an access token when
// the connector needs one, and hands the carrier to the gateway.
// Session-multiple decisions fan the call out instead.
func (o *Orchestrator) executeCall(ctx context.Context, octx *OpContext, rd domain.RouterData) (domain.RouterData, error) {
	if octx.Call.Kind == routing.CallSessionMultiple {
		return o.executeSessionFanout(ctx, octx, rd)
	}

	account, mcaID, err := o.accounts.Resolve(octx.MerchantID, octx.Call.Connector)
	if err != nil {
		return rd, err
	}
	cd, err := o.registry.GetConnectorByName(octx.Call.Connector, account, mcaID)
	if err != nil {
		return rd, err
	}
	rd.ConnectorName = cd.Name
	rd.MerchantConnectorID = cd.MerchantConnectorID
	rd.AuthType = account.Auth

	if cd.Adapter.Descriptor().NeedsAccessToken {
		token, err := o.fetchAccessToken(ctx, cd, rd)
		if err != nil {
			return rd, err
		}
		rd.AccessToken = token
	}

	return o.gateway.Execute(ctx, cd, rd)
}

// executeSessionFanout runs the session flow once per routed connector.
// Session tokens are best effort: connectors the merchant has no account
// for, connectors without a session flow and individual failures are
// skipped rather than failing the whole call.
func (o *Orchestrator) executeSessionFanout(ctx context.Context, octx *OpContext, rd domain.RouterData) (domain.RouterData, error) {
	octx.SessionTokens = make(map[string]string, len(octx.Call.Connectors))
	for _, name := range octx.Call.Connectors {
		account, mcaID, err := o.accounts.Resolve(octx.MerchantID, name)
		if err != nil {
			continue
		}
		cd, err := o.registry.GetConnectorByName(name, account, mcaID)
		if err != nil {
			continue
		}
		callRD := rd
		callRD.ConnectorName = cd.Name
		callRD.MerchantConnectorID = cd.MerchantConnectorID
		callRD.AuthType = account.Auth

		out, err := o.gateway.Execute(ctx, cd, callRD)
		if err != nil || out.SessionToken == "" {
			if err != nil {
				o.logger.Warn("session flow failed", zap.Error(err), zap.String("connector", name))
			}
			continue
		}
		octx.SessionTokens[name] = out.SessionToken
	}
	return rd, nil
}

// fetchAccessToken serves the token from cache when possible and runs the
// access-token flow on a miss. Concurrent misses may fetch twice; the
// cache keeps whichever lands last.
func (o *Orchestrator) fetchAccessToken(ctx context.Context, cd connector.ConnectorData, rd domain.RouterData) (*domain.AccessToken, error) {
	if o.tokens != nil {
		token, err := o.tokens.Get(ctx, rd.MerchantID, cd.Name)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, tokens.ErrTokenNotFound) {
			o.logger.Warn("access token cache read failed", zap.Error(err), zap.String("connector", cd.Name))
		}
	}

	tokenRD := domain.NewRouterData(domain.FlowAccessToken, domain.AccessTokenRequest{})
	tokenRD.MerchantID = rd.MerchantID
	tokenRD.ConnectorName = cd.Name
	tokenRD.MerchantConnectorID = cd.MerchantConnectorID
	tokenRD.AuthType = rd.AuthType

	out, err := o.gateway.Execute(ctx, cd, tokenRD)
	if err != nil {
		return nil, err
	}
	token, ok := out.Response.Ok.(*domain.AccessToken)
	if !ok {
		return nil, domain.NewConnectorError(domain.ErrResponseHandlingFailed, "access token flow returned no token")
	}
	if o.tokens != nil {
		if err := o.tokens.Set(ctx, rd.MerchantID, cd.Name, token); err != nil {
			o.logger.Warn("access token cache write failed", zap.Error(err), zap.String("connector", cd.Name))
		}
	}
	return token, nil
}

// classifyExecError maps connector and transport level errors onto API
// errors. Timeouts never reach here; the gateway downgrades them to a
// recoverable ErrorResponse.
func classifyExecError(err error) *ApiError {
	switch domain.ConnectorErrorKindOf(err) {
	case domain.ErrNotImplemented:
		return apiBadRequest("flow_not_supported", err.Error())
	case domain.ErrConnectorNotFound:
		return apiBadRequest("invalid_connector", err.Error())
	case domain.ErrFailedToObtainAuthType, domain.ErrInvalidConnectorConfig, domain.ErrNoConnectorMetaData:
		return apiInternal("connector account is misconfigured")
	case domain.ErrRequestEncodingFailed, domain.ErrResponseDeserializationFailed, domain.ErrResponseHandlingFailed:
		return apiInternal("connector processing error")
	}
	return apiInternal("payment processing error")
}
