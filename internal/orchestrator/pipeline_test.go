package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/connector/mockpay"
	"github.com/yourorg/payment-router/internal/domain"
	"github.com/yourorg/payment-router/internal/routing"
	"github.com/yourorg/payment-router/internal/storage"
	"github.com/yourorg/payment-router/internal/tokens"
)

type fakeTokenCache struct {
	entries map[string]*domain.AccessToken
	sets    int
}

func newFakeTokenCache() *fakeTokenCache {
	return &fakeTokenCache{entries: make(map[string]*domain.AccessToken)}
}

func (f *fakeTokenCache) Get(_ context.Context, merchantID, connectorName string) (*domain.AccessToken, error) {
	token, ok := f.entries[merchantID+"/"+connectorName]
	if !ok {
		return nil, tokens.ErrTokenNotFound
	}
	return token, nil
}

func (f *fakeTokenCache) Set(_ context.Context, merchantID, connectorName string, token *domain.AccessToken) error {
	f.entries[merchantID+"/"+connectorName] = token
	f.sets++
	return nil
}

func TestAccessTokenPrefetch(t *testing.T) {
	gw := &fakeGateway{execute: func(cd connector.ConnectorData, rd domain.RouterData) (domain.RouterData, error) {
		if rd.FlowType == domain.FlowAccessToken {
			token := &domain.AccessToken{Token: domain.NewSecret("tok_live"), ExpiresIn: 3600}
			patch := domain.ResponsePatch{
				AccessToken: token,
				Response:    domain.ResultOf(domain.OkResult(token)),
			}
			return patch.Apply(rd), nil
		}
		return chargedResult("txn_1")(cd, rd)
	}}

	factory := mockpay.NewFactory()
	factory.NeedsAccessToken = true
	cache := newFakeTokenCache()
	engine, err := routing.NewEngine(nil, "mockpay")
	require.NoError(t, err)
	orch := New(Deps{
		Store:    storage.NewMemoryStore(),
		Registry: connector.NewRegistry(factory),
		Gateway:  gw,
		Routing:  engine,
		Tokens:   cache,
		Accounts: StaticAccounts{
			"m1": {"mockpay": {Account: connector.AccountConfig{Auth: domain.HeaderKeyAuth("sk")}, MerchantConnectorID: "mca_1"}},
		},
	})
	ctx := context.Background()

	t.Run("cache miss runs the token flow first", func(t *testing.T) {
		resp, apiErr := orch.PaymentsCreate(ctx, createRequest(true))
		require.Nil(t, apiErr)
		assert.Equal(t, domain.IntentSucceeded, resp.Status)

		require.Equal(t, 2, gw.callCount())
		assert.Equal(t, domain.FlowAccessToken, gw.calls[0].FlowType)
		assert.Equal(t, domain.FlowAuthorize, gw.calls[1].FlowType)
		require.NotNil(t, gw.calls[1].AccessToken)
		assert.Equal(t, "tok_live", gw.calls[1].AccessToken.Token.Expose())
		assert.Equal(t, 1, cache.sets)
	})

	t.Run("cache hit skips the token flow", func(t *testing.T) {
		before := gw.callCount()
		_, apiErr := orch.PaymentsCreate(ctx, createRequest(true))
		require.Nil(t, apiErr)

		require.Equal(t, before+1, gw.callCount())
		last := gw.calls[len(gw.calls)-1]
		assert.Equal(t, domain.FlowAuthorize, last.FlowType)
		require.NotNil(t, last.AccessToken)
	})
}

func TestNewPanicsOnMissingDeps(t *testing.T) {
	assert.Panics(t, func() { New(Deps{}) })
}

// recordingOp is a stub operation that logs every hook invocation so the
// pipeline's stage ordering can be asserted directly.
type recordingOp struct {
	stages *[]string

	validateErr *ApiError
	readOnly    bool
	route       routing.ConnectorCallType
	cardBin     string
}

func (op *recordingOp) record(stage string) { *op.stages = append(*op.stages, stage) }

func (op *recordingOp) Name() string { return "Recording" }

func (op *recordingOp) Validate(_ *OpContext) *ApiError {
	op.record("validate")
	return op.validateErr
}

func (op *recordingOp) GetTrackers(_ context.Context, octx *OpContext) *ApiError {
	op.record("get_trackers")
	octx.Attempt = &domain.PaymentAttempt{ID: "att_rec", PaymentID: "pay_rec", MerchantID: octx.MerchantID}
	octx.Intent = &domain.PaymentIntent{ID: "pay_rec", MerchantID: octx.MerchantID}
	return nil
}

func (op *recordingOp) Customer(_ context.Context, _ *OpContext) *ApiError {
	op.record("customer")
	return nil
}

func (op *recordingOp) PaymentMethodData(octx *OpContext) *ApiError {
	op.record("pm_data")
	octx.PaymentCtx.CardBin = op.cardBin
	return nil
}

func (op *recordingOp) ReadOnly() bool { return op.readOnly }

func (op *recordingOp) Route(_ *OpContext) (routing.ConnectorCallType, *ApiError) {
	op.record("route")
	return op.route, nil
}

func (op *recordingOp) BuildFlowRequest(_ *OpContext) (domain.RouterData, *ApiError) {
	op.record("build_request")
	return domain.NewRouterData(domain.FlowAuthorize, domain.AuthorizeRequest{}), nil
}

func (op *recordingOp) UpdateTrackers(_ context.Context, _ *OpContext, _ domain.RouterData, _ error) *ApiError {
	op.record("update_trackers")
	return nil
}

func TestRunOperationStageOrder(t *testing.T) {
	newRecordingOrch := func(stages *[]string, deny []routing.BlocklistRule) *Orchestrator {
		engine, err := routing.NewEngine(nil, "mockpay")
		require.NoError(t, err)
		var blocklist *routing.Blocklist
		if deny != nil {
			blocklist, err = routing.NewBlocklist(deny)
			require.NoError(t, err)
		}
		return New(Deps{
			Store:    storage.NewMemoryStore(),
			Registry: connector.NewRegistry(mockpay.NewFactory()),
			Gateway: &fakeGateway{execute: func(cd connector.ConnectorData, rd domain.RouterData) (domain.RouterData, error) {
				*stages = append(*stages, "execute")
				return rd, nil
			}},
			Routing:   engine,
			Blocklist: blocklist,
			Accounts: StaticAccounts{
				"m1": {"mockpay": {Account: connector.AccountConfig{Auth: domain.HeaderKeyAuth("sk")}, MerchantConnectorID: "mca_1"}},
			},
		})
	}

	t.Run("full pipeline runs every stage in order", func(t *testing.T) {
		var stages []string
		orch := newRecordingOrch(&stages, nil)
		op := &recordingOp{stages: &stages, route: routing.Single("mockpay")}

		_, apiErr := orch.RunOperation(context.Background(), op, "m1")
		require.Nil(t, apiErr)
		assert.Equal(t, []string{
			"validate", "get_trackers", "customer", "pm_data",
			"route", "build_request", "execute", "update_trackers",
		}, stages)
	})

	t.Run("read-only operations stop before routing", func(t *testing.T) {
		var stages []string
		orch := newRecordingOrch(&stages, nil)
		op := &recordingOp{stages: &stages, readOnly: true, route: routing.Single("mockpay")}

		_, apiErr := orch.RunOperation(context.Background(), op, "m1")
		require.Nil(t, apiErr)
		assert.Equal(t, []string{"validate", "get_trackers", "customer", "pm_data"}, stages)
	})

	t.Run("skip decisions stop after routing", func(t *testing.T) {
		var stages []string
		orch := newRecordingOrch(&stages, nil)
		op := &recordingOp{stages: &stages, route: routing.Skip()}

		_, apiErr := orch.RunOperation(context.Background(), op, "m1")
		require.Nil(t, apiErr)
		assert.Equal(t, []string{"validate", "get_trackers", "customer", "pm_data", "route"}, stages)
	})

	t.Run("blocked payments persist without an execute stage", func(t *testing.T) {
		var stages []string
		orch := newRecordingOrch(&stages, []routing.BlocklistRule{
			{Name: "bad bin", Expression: `card_bin == "424242"`},
		})
		op := &recordingOp{stages: &stages, route: routing.Single("mockpay"), cardBin: "424242"}

		_, apiErr := orch.RunOperation(context.Background(), op, "m1")
		require.NotNil(t, apiErr)
		assert.Equal(t, "payment_blocked", apiErr.Code)
		assert.Equal(t, []string{
			"validate", "get_trackers", "customer", "pm_data",
			"route", "build_request", "update_trackers",
		}, stages)
	})

	t.Run("a validation error stops the pipeline", func(t *testing.T) {
		var stages []string
		orch := newRecordingOrch(&stages, nil)
		op := &recordingOp{
			stages:      &stages,
			validateErr: apiBadRequest("bad", "bad request"),
			route:       routing.Single("mockpay"),
		}

		_, apiErr := orch.RunOperation(context.Background(), op, "m1")
		require.NotNil(t, apiErr)
		assert.Equal(t, []string{"validate"}, stages)
	})
}

func TestPaymentsSyncIsIdempotent(t *testing.T) {
	h := newHarness(t, &fakeGateway{execute: chargedResult("txn_1")})
	ctx := context.Background()

	created, apiErr := h.orch.PaymentsCreate(ctx, createRequest(true))
	require.Nil(t, apiErr)

	sync := SyncPaymentRequest{MerchantID: "m1", PaymentID: created.PaymentID}
	first, apiErr := h.orch.PaymentsSync(ctx, sync)
	require.Nil(t, apiErr)
	second, apiErr := h.orch.PaymentsSync(ctx, sync)
	require.Nil(t, apiErr)

	assert.Equal(t, first, second)

	attempt, err := h.store.FindPaymentAttempt(ctx, created.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, domain.AttemptCharged, attempt.Status)
	assert.Equal(t, "txn_1", attempt.ConnectorTransactionID)

	intent, err := h.store.FindPaymentIntent(ctx, "m1", created.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentSucceeded, intent.Status)
	assert.Equal(t, created.AttemptID, intent.ActiveAttemptID)
}
