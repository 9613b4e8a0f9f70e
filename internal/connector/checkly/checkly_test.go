package checkly

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/domain"
)

func testCard() domain.PaymentMethodData {
	return domain.NewCardPaymentMethod(domain.CardData{
		Number:      domain.NewSecret("4242424242424242"),
		ExpiryMonth: "12",
		ExpiryYear:  "2030",
		CVC:         domain.NewSecret("123"),
		HolderName:  "Jordan Li",
	})
}

func TestDescriptorStatusTablesAreTotal(t *testing.T) {
	desc := NewFactory().Descriptor()

	for wire := range desc.PaymentStatuses {
		_, err := desc.MapPaymentStatus(wire)
		assert.NoError(t, err, "payment status %q", wire)
	}
	for wire := range desc.RefundStatuses {
		_, err := desc.MapRefundStatus(wire)
		assert.NoError(t, err, "refund status %q", wire)
	}

	_, err := desc.MapPaymentStatus("definitely_not_a_status")
	assert.True(t, domain.IsConnectorError(err, domain.ErrResponseHandlingFailed))
}

func TestBuildRequestAuthorize(t *testing.T) {
	s := NewFactory().NewStrategy()
	rd := domain.NewRouterData(domain.FlowAuthorize, domain.AuthorizeRequest{
		Amount:        2500,
		Currency:      "EUR",
		PaymentMethod: testCard(),
		CaptureMethod: "manual",
	})

	spec, err := s.BuildRequest(&rd)
	require.NoError(t, err)
	assert.Equal(t, "POST", spec.Method)
	assert.Equal(t, "/v1/charges", spec.Path)

	body := spec.Body.(chargeRequest)
	assert.Equal(t, int64(2500), body.Amount)
	assert.Equal(t, "EUR", body.Currency)
	assert.False(t, body.Capture, "manual capture must not auto-capture")
	assert.Equal(t, "4242424242424242", body.Card.Number)
}

func TestBuildRequestCaptureAndRefundPaths(t *testing.T) {
	s := NewFactory().NewStrategy()

	capRD := domain.NewRouterData(domain.FlowCapture, domain.CaptureRequest{
		AmountToCapture:        2500,
		Currency:               "EUR",
		ConnectorTransactionID: "ch_42",
	})
	spec, err := s.BuildRequest(&capRD)
	require.NoError(t, err)
	assert.Equal(t, "/v1/charges/ch_42/capture", spec.Path)

	refRD := domain.NewRouterData(domain.FlowRefund, domain.RefundRequest{
		RefundID:               "ref_1",
		ConnectorTransactionID: "ch_42",
		RefundAmount:           1000,
		Currency:               "EUR",
	})
	spec, err = s.BuildRequest(&refRD)
	require.NoError(t, err)
	assert.Equal(t, "/v1/refunds", spec.Path)
	assert.Equal(t, "ch_42", spec.Body.(refundRequest).Charge)

	syncRD := domain.NewRouterData(domain.FlowPSync, domain.SyncRequest{ConnectorTransactionID: "ch_42"})
	spec, err = s.BuildRequest(&syncRD)
	require.NoError(t, err)
	assert.Equal(t, "GET", spec.Method)
	assert.Equal(t, "/v1/charges/ch_42", spec.Path)
}

func TestParseResponseCharge(t *testing.T) {
	s := NewFactory().NewStrategy()

	outcome, err := s.ParseResponse(domain.FlowAuthorize, []byte(`{"id":"ch_42","status":"paid","reference":"order-9"}`))
	require.NoError(t, err)
	assert.Equal(t, "paid", outcome.Status)
	assert.Equal(t, "ch_42", outcome.ResourceID.Value)
	assert.Equal(t, "order-9", outcome.ResponseRef)
	assert.Nil(t, outcome.Redirect)
}

func TestParseResponseRedirect(t *testing.T) {
	s := NewFactory().NewStrategy()

	outcome, err := s.ParseResponse(domain.FlowAuthorize,
		[]byte(`{"id":"ch_43","status":"requires_action","next_action":{"redirect_url":"https://3ds.checkly.example.com/a"}}`))
	require.NoError(t, err)
	require.NotNil(t, outcome.Redirect)
	assert.Equal(t, "https://3ds.checkly.example.com/a", outcome.Redirect.URL)
}

func TestParseResponseRefund(t *testing.T) {
	s := NewFactory().NewStrategy()

	outcome, err := s.ParseResponse(domain.FlowRefund, []byte(`{"id":"re_7","status":"succeeded"}`))
	require.NoError(t, err)
	assert.Equal(t, "re_7", outcome.ConnectorRefundID)
	assert.Equal(t, "succeeded", outcome.Status)
}

func TestParseErrorDecline(t *testing.T) {
	s := NewFactory().NewStrategy()
	payload, _ := json.Marshal(map[string]any{
		"error": map[string]any{
			"code":           "card_declined",
			"message":        "Your card was declined.",
			"decline_reason": "insufficient_funds",
			"charge_id":      "ch_44",
		},
	})

	er, err := s.ParseError(402, payload)
	require.NoError(t, err)
	assert.Equal(t, "card_declined", er.Code)
	assert.Equal(t, "insufficient_funds", er.Reason)
	assert.Equal(t, "ch_44", er.ConnectorTransactionID)
	require.NotNil(t, er.AttemptStatus)
	assert.Equal(t, domain.AttemptFailure, *er.AttemptStatus)
}

func TestParseErrorGarbageBody(t *testing.T) {
	s := NewFactory().NewStrategy()

	_, err := s.ParseError(400, []byte("<html>nope</html>"))
	require.Error(t, err)
	assert.True(t, domain.IsConnectorError(err, domain.ErrResponseDeserializationFailed))
}

var _ connector.Strategy = (*strategy)(nil)
