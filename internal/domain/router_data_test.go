package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRouterDataCarriesPendingSentinel(t *testing.T) {
	rd := NewRouterData(FlowAuthorize, AuthorizeRequest{Amount: 1000, Currency: "USD"})

	assert.Equal(t, FlowAuthorize, rd.FlowType)
	assert.Equal(t, AttemptPending, rd.Status)
	require.True(t, rd.Response.IsErr())
	assert.True(t, rd.Response.IsPending())
	assert.Equal(t, CodePending, rd.Response.Err.Code)
}

func TestResponsePatchApply(t *testing.T) {
	rd := NewRouterData(FlowAuthorize, AuthorizeRequest{Amount: 1000, Currency: "USD"})
	rd.ConnectorMetadata = map[string]string{"region": "eu"}

	t.Run("set fields merge", func(t *testing.T) {
		patch := ResponsePatch{
			Status: StatusOf(AttemptCharged),
			Response: ResultOf(OkResult(&TransactionResponse{
				ResourceID: ConnectorTransactionID("txn_123"),
			})),
			SessionToken:      "sess_1",
			ConnectorMetadata: map[string]string{"mode": "test"},
			HTTPCode:          200,
			LatencyMs:         42,
		}
		out := patch.Apply(rd)

		assert.Equal(t, AttemptCharged, out.Status)
		require.NotNil(t, out.Response.Transaction())
		assert.Equal(t, "txn_123", out.Response.Transaction().ResourceID.Value)
		assert.Equal(t, "sess_1", out.SessionToken)
		assert.Equal(t, 200, out.HTTPCode)
		assert.Equal(t, int64(42), out.LatencyMs)
		assert.Equal(t, "eu", out.ConnectorMetadata["region"], "existing metadata survives the merge")
		assert.Equal(t, "test", out.ConnectorMetadata["mode"])
	})

	t.Run("unset fields leave the carrier untouched", func(t *testing.T) {
		out := ResponsePatch{}.Apply(rd)
		assert.Equal(t, AttemptPending, out.Status)
		assert.True(t, out.Response.IsPending())
		assert.Empty(t, out.SessionToken)
	})

	t.Run("apply does not mutate the input", func(t *testing.T) {
		_ = ResponsePatch{Status: StatusOf(AttemptFailure)}.Apply(rd)
		assert.Equal(t, AttemptPending, rd.Status)
	})

	t.Run("apply does not mutate the input's metadata map", func(t *testing.T) {
		in := rd
		in.ConnectorMetadata = map[string]string{"existing": "kept"}

		out := ResponsePatch{ConnectorMetadata: map[string]string{"added": "new"}}.Apply(in)

		assert.Equal(t, map[string]string{"existing": "kept"}, in.ConnectorMetadata)
		assert.Equal(t, map[string]string{"existing": "kept", "added": "new"}, out.ConnectorMetadata)
	})
}

func TestResultVariants(t *testing.T) {
	ok := OkResult(&RefundResponse{ConnectorRefundID: "re_1", Status: RefundSuccess})
	assert.False(t, ok.IsErr())
	assert.False(t, ok.IsPending())
	require.NotNil(t, ok.Refund())
	assert.Nil(t, ok.Transaction())

	errRes := ErrResult(ErrorResponse{Code: "card_declined", Message: "declined"})
	assert.True(t, errRes.IsErr())
	assert.False(t, errRes.IsPending())
}

func TestIntentStatusForAttempt(t *testing.T) {
	cases := map[AttemptStatus]IntentStatus{
		AttemptCharged:    IntentSucceeded,
		AttemptAuthorized: IntentRequiresCapture,
		AttemptFailure:    IntentFailed,
		AttemptVoided:     IntentCancelled,
		AttemptPending:    IntentProcessing,
		AttemptStarted:    IntentProcessing,
	}
	for attempt, intent := range cases {
		assert.Equal(t, intent, IntentStatusForAttempt(attempt), "attempt status %s", attempt)
	}
}

func TestSecretNeverLeaks(t *testing.T) {
	s := NewSecret("4242424242424242")

	assert.Equal(t, "***", s.String())
	raw, err := json.Marshal(struct{ Number Secret }{Number: s})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "4242")
	assert.Equal(t, "4242424242424242", s.Expose())
}

func TestCardBin(t *testing.T) {
	assert.Equal(t, "424242", CardData{Number: NewSecret("4242424242424242")}.Bin())
	assert.Empty(t, CardData{Number: NewSecret("42")}.Bin())
}
