package orchestrator

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/connector/mockpay"
	"github.com/yourorg/payment-router/internal/connector/voltbank"
	"github.com/yourorg/payment-router/internal/domain"
	"github.com/yourorg/payment-router/internal/routing"
	"github.com/yourorg/payment-router/internal/storage"
)

func sessionResult(token string) func(connector.ConnectorData, domain.RouterData) (domain.RouterData, error) {
	return func(_ connector.ConnectorData, rd domain.RouterData) (domain.RouterData, error) {
		patch := domain.ResponsePatch{
			SessionToken: token,
			Response: domain.ResultOf(domain.OkResult(&domain.SessionTokenResponse{
				SessionToken: token,
			})),
		}
		return patch.Apply(rd), nil
	}
}

func newSessionHarness(t *testing.T, gw *fakeGateway, accounts StaticAccounts) *testHarness {
	t.Helper()
	engine, err := routing.NewEngine([]routing.Rule{
		{Name: "eur to volt", Expression: `currency == "EUR"`, Connector: "voltbank"},
	}, "mockpay")
	require.NoError(t, err)
	store := storage.NewMemoryStore()
	orch := New(Deps{
		Store:    store,
		Registry: connector.NewRegistry(mockpay.NewFactory(), voltbank.NewFactory()),
		Gateway:  gw,
		Routing:  engine,
		Accounts: accounts,
	})
	return &testHarness{orch: orch, store: store, gateway: gw}
}

func bothAccounts() StaticAccounts {
	return StaticAccounts{
		"m1": {
			"mockpay": {
				Account:             connector.AccountConfig{Auth: domain.HeaderKeyAuth("sk_test")},
				MerchantConnectorID: "mca_mock",
			},
			"voltbank": {
				Account:             connector.AccountConfig{Auth: domain.SignatureKeyAuth("vk_live", "merchant_42", "whsec")},
				MerchantConnectorID: "mca_volt",
			},
		},
	}
}

func openIntent(t *testing.T, h *testHarness) string {
	t.Helper()
	resp, apiErr := h.orch.PaymentsCreate(context.Background(), createRequest(false))
	require.Nil(t, apiErr)
	return resp.PaymentID
}

func TestPaymentsSessionTokensFanOut(t *testing.T) {
	gw := &fakeGateway{execute: func(cd connector.ConnectorData, rd domain.RouterData) (domain.RouterData, error) {
		return sessionResult("tok_" + cd.Name)(cd, rd)
	}}
	h := newSessionHarness(t, gw, bothAccounts())
	ctx := context.Background()
	paymentID := openIntent(t, h)

	resp, apiErr := h.orch.PaymentsSessionTokens(ctx, SessionTokensRequest{MerchantID: "m1", PaymentID: paymentID})
	require.Nil(t, apiErr)

	assert.Equal(t, paymentID, resp.PaymentID)
	assert.Equal(t, map[string]string{
		"voltbank": "tok_voltbank",
		"mockpay":  "tok_mockpay",
	}, resp.SessionTokens)

	// Every call carried the session flow with the intent's amount.
	require.Equal(t, 2, gw.callCount())
	for _, rd := range gw.calls {
		assert.Equal(t, domain.FlowSession, rd.FlowType)
		req, ok := rd.Request.(domain.SessionRequest)
		require.True(t, ok)
		assert.Equal(t, int64(5000), req.Amount)
	}
}

func TestPaymentsSessionTokensSkipsUnconfiguredConnectors(t *testing.T) {
	gw := &fakeGateway{execute: func(cd connector.ConnectorData, rd domain.RouterData) (domain.RouterData, error) {
		return sessionResult("tok_" + cd.Name)(cd, rd)
	}}
	accounts := bothAccounts()
	delete(accounts["m1"], "voltbank")
	h := newSessionHarness(t, gw, accounts)
	paymentID := openIntent(t, h)

	resp, apiErr := h.orch.PaymentsSessionTokens(context.Background(), SessionTokensRequest{MerchantID: "m1", PaymentID: paymentID})
	require.Nil(t, apiErr)

	assert.Equal(t, map[string]string{"mockpay": "tok_mockpay"}, resp.SessionTokens)
	assert.Equal(t, 1, gw.callCount())
}

func TestPaymentsSessionTokensToleratesConnectorFailure(t *testing.T) {
	gw := &fakeGateway{execute: func(cd connector.ConnectorData, rd domain.RouterData) (domain.RouterData, error) {
		if cd.Name == "voltbank" {
			return rd, domain.NewConnectorError(domain.ErrResponseHandlingFailed, "boom")
		}
		return sessionResult("tok_mockpay")(cd, rd)
	}}
	h := newSessionHarness(t, gw, bothAccounts())
	paymentID := openIntent(t, h)

	resp, apiErr := h.orch.PaymentsSessionTokens(context.Background(), SessionTokensRequest{MerchantID: "m1", PaymentID: paymentID})
	require.Nil(t, apiErr)
	assert.Equal(t, map[string]string{"mockpay": "tok_mockpay"}, resp.SessionTokens)
}

func TestPaymentsSessionTokensGuards(t *testing.T) {
	gw := &fakeGateway{execute: chargedResult("txn_1")}
	h := newSessionHarness(t, gw, bothAccounts())
	ctx := context.Background()

	t.Run("unknown payment", func(t *testing.T) {
		_, apiErr := h.orch.PaymentsSessionTokens(ctx, SessionTokensRequest{MerchantID: "m1", PaymentID: "pay_missing"})
		require.NotNil(t, apiErr)
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	})

	t.Run("settled payment is not open", func(t *testing.T) {
		resp, apiErr := h.orch.PaymentsCreate(ctx, createRequest(true))
		require.Nil(t, apiErr)
		require.Equal(t, domain.IntentSucceeded, resp.Status)

		_, apiErr = h.orch.PaymentsSessionTokens(ctx, SessionTokensRequest{MerchantID: "m1", PaymentID: resp.PaymentID})
		require.NotNil(t, apiErr)
		assert.Equal(t, "payment_not_open", apiErr.Code)
	})
}
