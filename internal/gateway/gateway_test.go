package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/connector/mockpay"
	"github.com/yourorg/payment-router/internal/domain"
)

type fakeTransport struct {
	mu      sync.Mutex
	calls   []Request
	respond func(req Request) (Response, error)
}

func (f *fakeTransport) Send(ctx context.Context, req Request) (Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	return f.respond(req)
}

func (f *fakeTransport) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeTransport) lastCall() Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func testConnectorData(t *testing.T) connector.ConnectorData {
	t.Helper()
	reg := connector.NewRegistry(mockpay.NewFactory())
	cd, err := reg.GetConnectorByName("mockpay", connector.AccountConfig{
		Auth: domain.HeaderKeyAuth("sk_test"),
	}, "mca_1")
	require.NoError(t, err)
	return cd
}

func authorizeRouterData() domain.RouterData {
	rd := domain.NewRouterData(domain.FlowAuthorize, domain.AuthorizeRequest{
		Amount:   1500,
		Currency: "USD",
		PaymentMethod: domain.NewCardPaymentMethod(domain.CardData{
			Number:      domain.NewSecret("4242424242424242"),
			ExpiryMonth: "12",
			ExpiryYear:  "2030",
			CVC:         domain.NewSecret("123"),
		}),
		CaptureMethod: "automatic",
	})
	rd.MerchantID = "m1"
	rd.ConnectorName = "mockpay"
	rd.MerchantConnectorID = "mca_1"
	rd.PaymentID = "pay_1"
	rd.AttemptID = "att_1"
	return rd
}

func newTestGateway(cfg Config, transport Transport) *Gateway {
	return New(cfg, transport, NewCircuitBreaker(), NewMetrics(prometheus.NewRegistry()), zap.NewNop())
}

func TestExecuteDirectSuccess(t *testing.T) {
	ft := &fakeTransport{respond: func(req Request) (Response, error) {
		return Response{StatusCode: 200, Body: []byte(`{"id":"txn_1","status":"paid"}`)}, nil
	}}
	g := newTestGateway(Config{RequestTimeout: time.Second}, ft)

	out, err := g.Execute(context.Background(), testConnectorData(t), authorizeRouterData())
	require.NoError(t, err)

	assert.Equal(t, domain.AttemptCharged, out.Status)
	require.False(t, out.Response.IsErr())
	assert.Equal(t, domain.ConnectorTransactionID("txn_1"), out.Response.Transaction().ResourceID)
	assert.Equal(t, 200, out.HTTPCode)

	sent := ft.lastCall()
	assert.Equal(t, http.MethodPost, sent.Method)
	assert.Equal(t, "https://mockpay.invalid/payments", sent.URL)
	assert.Equal(t, "Bearer sk_test", sent.Headers["Authorization"])
}

func TestExecuteDirectTimeoutIsRecoverable(t *testing.T) {
	ft := &fakeTransport{respond: func(req Request) (Response, error) {
		return Response{}, &domain.TransportError{Timeout: true, Err: context.DeadlineExceeded}
	}}
	g := newTestGateway(Config{RequestTimeout: time.Second}, ft)

	out, err := g.Execute(context.Background(), testConnectorData(t), authorizeRouterData())

	// A timeout is an error response on the carrier, not a Go error, and
	// the attempt status moves to pending so a later sync can resolve it.
	require.NoError(t, err)
	require.True(t, out.Response.IsErr())
	assert.Equal(t, http.StatusGatewayTimeout, out.Response.Err.StatusCode)
	assert.Equal(t, domain.CodeRequestTimeout, out.Response.Err.Code)
	require.NotNil(t, out.Response.Err.AttemptStatus)
	assert.Equal(t, domain.AttemptPending, *out.Response.Err.AttemptStatus)
	assert.Equal(t, domain.AttemptPending, out.Status)
}

func TestExecuteDirectTransportFaultPropagates(t *testing.T) {
	ft := &fakeTransport{respond: func(req Request) (Response, error) {
		return Response{}, &domain.TransportError{Err: errors.New("connection refused")}
	}}
	g := newTestGateway(Config{RequestTimeout: time.Second}, ft)

	_, err := g.Execute(context.Background(), testConnectorData(t), authorizeRouterData())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "direct call to mockpay")
}

func TestExecuteDirect5xx(t *testing.T) {
	ft := &fakeTransport{respond: func(req Request) (Response, error) {
		return Response{StatusCode: 502, Body: []byte("upstream exploded")}, nil
	}}
	g := newTestGateway(Config{RequestTimeout: time.Second}, ft)

	out, err := g.Execute(context.Background(), testConnectorData(t), authorizeRouterData())
	require.NoError(t, err)

	require.True(t, out.Response.IsErr())
	assert.Equal(t, "bad_gateway", out.Response.Err.Code)
	assert.Equal(t, "upstream exploded", out.Response.Err.Reason)
	assert.Equal(t, 502, out.HTTPCode)
}

func TestExecuteDirect4xxDecline(t *testing.T) {
	declined := domain.StatusOf(domain.AttemptFailure)
	ft := &fakeTransport{respond: func(req Request) (Response, error) {
		return Response{StatusCode: 402, Body: []byte(`{"code":"card_declined","message":"do not honor"}`)}, nil
	}}

	factory := mockpay.NewFactory()
	factory.ErrorFunc = func(statusCode int, body []byte) (domain.ErrorResponse, error) {
		return domain.ErrorResponse{Code: "card_declined", Message: "do not honor", AttemptStatus: declined}, nil
	}
	reg := connector.NewRegistry(factory)
	cd, err := reg.GetConnectorByName("mockpay", connector.AccountConfig{Auth: domain.HeaderKeyAuth("sk_test")}, "mca_1")
	require.NoError(t, err)

	g := newTestGateway(Config{RequestTimeout: time.Second}, ft)
	out, err := g.Execute(context.Background(), cd, authorizeRouterData())
	require.NoError(t, err)

	require.True(t, out.Response.IsErr())
	assert.Equal(t, "card_declined", out.Response.Err.Code)
	assert.Equal(t, domain.AttemptFailure, out.Status, "decline hint must move the attempt status")

	// Declines keep the circuit closed.
	assert.Equal(t, BreakerClosed, g.breaker.State("mockpay"))
}

func TestExecuteDirectCircuitOpenShortCircuits(t *testing.T) {
	ft := &fakeTransport{respond: func(req Request) (Response, error) {
		return Response{StatusCode: 200, Body: []byte(`{"id":"txn_1","status":"paid"}`)}, nil
	}}
	g := newTestGateway(Config{RequestTimeout: time.Second}, ft)
	for i := 0; i < defaultFailureThreshold; i++ {
		g.breaker.RecordFailure("mockpay")
	}

	out, err := g.Execute(context.Background(), testConnectorData(t), authorizeRouterData())
	require.NoError(t, err)

	require.True(t, out.Response.IsErr())
	assert.Equal(t, http.StatusServiceUnavailable, out.Response.Err.StatusCode)
	assert.Equal(t, "connector_circuit_open", out.Response.Err.Code)
	assert.Zero(t, ft.callCount(), "open circuit must not reach the transport")
}

func TestExecuteDirect5xxOpensCircuit(t *testing.T) {
	ft := &fakeTransport{respond: func(req Request) (Response, error) {
		return Response{StatusCode: 500, Body: []byte("boom")}, nil
	}}
	g := newTestGateway(Config{RequestTimeout: time.Second}, ft)

	for i := 0; i < defaultFailureThreshold; i++ {
		_, err := g.Execute(context.Background(), testConnectorData(t), authorizeRouterData())
		require.NoError(t, err)
	}
	assert.Equal(t, BreakerOpen, g.breaker.State("mockpay"))
}

func TestExecuteUCSPath(t *testing.T) {
	ft := &fakeTransport{respond: func(req Request) (Response, error) {
		body, _ := json.Marshal(ucsResponse{
			Status:     "charged",
			ResourceID: &ucsResourceID{Kind: "connector_transaction_id", Value: "txn_ucs"},
			HTTPCode:   200,
		})
		return Response{StatusCode: 200, Body: body}, nil
	}}
	g := newTestGateway(Config{
		RequestTimeout: time.Second,
		UCS: UCSConfig{
			Enabled:           true,
			URL:               "http://ucs.internal",
			MerchantAllowlist: []string{"m1"},
		},
	}, ft)

	out, err := g.Execute(context.Background(), testConnectorData(t), authorizeRouterData())
	require.NoError(t, err)

	sent := ft.lastCall()
	assert.Equal(t, "http://ucs.internal/v1/execute", sent.URL)

	var ucsReq ucsRequest
	require.NoError(t, json.Unmarshal(sent.Body, &ucsReq))
	assert.Equal(t, "authorize", ucsReq.Flow)
	assert.Equal(t, "m1", ucsReq.MerchantID)
	assert.Equal(t, "mockpay", ucsReq.Connector)

	assert.Equal(t, domain.AttemptCharged, out.Status)
	require.False(t, out.Response.IsErr())
	assert.Equal(t, domain.ConnectorTransactionID("txn_ucs"), out.Response.Transaction().ResourceID)
}

func TestExecuteUCSTimeoutIsRecoverable(t *testing.T) {
	ft := &fakeTransport{respond: func(req Request) (Response, error) {
		return Response{}, &domain.TransportError{Timeout: true, Err: context.DeadlineExceeded}
	}}
	g := newTestGateway(Config{
		RequestTimeout: time.Second,
		UCS:            UCSConfig{Enabled: true, URL: "http://ucs.internal", MerchantAllowlist: []string{"m1"}},
	}, ft)

	out, err := g.Execute(context.Background(), testConnectorData(t), authorizeRouterData())
	require.NoError(t, err)
	require.True(t, out.Response.IsErr())
	assert.Equal(t, domain.CodeRequestTimeout, out.Response.Err.Code)
	assert.Equal(t, domain.AttemptPending, out.Status)
}

func TestExecuteShadowReturnsDirectResult(t *testing.T) {
	shadowCalled := make(chan struct{})
	ft := &fakeTransport{respond: func(req Request) (Response, error) {
		if strings.Contains(req.URL, "/v1/execute") {
			close(shadowCalled)
			body, _ := json.Marshal(ucsResponse{Status: "charged"})
			return Response{StatusCode: 200, Body: body}, nil
		}
		return Response{StatusCode: 200, Body: []byte(`{"id":"txn_direct","status":"paid"}`)}, nil
	}}
	g := newTestGateway(Config{
		RequestTimeout: time.Second,
		UCS:            UCSConfig{Enabled: true, URL: "http://ucs.internal", ShadowEnabled: true},
	}, ft)

	out, err := g.Execute(context.Background(), testConnectorData(t), authorizeRouterData())
	require.NoError(t, err)

	// The caller always sees Direct's result on the shadow path.
	assert.Equal(t, domain.ConnectorTransactionID("txn_direct"), out.Response.Transaction().ResourceID)

	select {
	case <-shadowCalled:
	case <-time.After(2 * time.Second):
		t.Fatal("shadow dispatch never reached the ucs endpoint")
	}
}
