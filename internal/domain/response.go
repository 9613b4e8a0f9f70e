package domain

// Error codes shared across the core. Only the orchestrator turns these
// into user-facing API errors.
const (
	CodePending        = "IR_00"
	CodeRequestTimeout = "request_timeout"
	CodeNoErrorCode    = "no_error_code"
	CodeNoErrorMessage = "no_error_message"
)

// ResponseIDKind discriminates ResponseID.
type ResponseIDKind string

const (
	ResponseIDConnectorTransaction ResponseIDKind = "connector_transaction_id"
	ResponseIDEncodedData          ResponseIDKind = "encoded_data"
	ResponseIDNone                 ResponseIDKind = "none"
)

// ResponseID is the canonical identifier a connector returned for a
// transaction, or an explicit absence marker.
type ResponseID struct {
	Kind  ResponseIDKind
	Value string
}

// ConnectorTransactionID tags a plain connector transaction id.
func ConnectorTransactionID(id string) ResponseID {
	return ResponseID{Kind: ResponseIDConnectorTransaction, Value: id}
}

// EncodedDataID tags an opaque encoded resource reference.
func EncodedDataID(data string) ResponseID {
	return ResponseID{Kind: ResponseIDEncodedData, Value: data}
}

// NoResponseID marks a response that carried no usable identifier.
func NoResponseID() ResponseID {
	return ResponseID{Kind: ResponseIDNone}
}

// RedirectionData instructs the caller to redirect the customer, typically
// for 3DS or bank-redirect methods.
type RedirectionData struct {
	URL    string
	Method string
	Params map[string]string
}

// MandateReference is the connector-side handle for a stored mandate.
type MandateReference struct {
	ConnectorMandateID string
	PaymentMethodID    string
}

// TransactionResponse is the normalized success payload of a payment flow.
type TransactionResponse struct {
	ResourceID               ResponseID
	Redirection              *RedirectionData
	Mandate                  *MandateReference
	NetworkTxnID             string
	ConnectorResponseRef     string
	IncrementalAuthorization bool
}

// RefundResponse is the normalized success payload of a refund flow.
type RefundResponse struct {
	ConnectorRefundID string
	Status            RefundStatus
}

// AccessToken is a connector bearer credential with an expiry, cached and
// shared across attempts for the same merchant connector account.
type AccessToken struct {
	Token     Secret
	ExpiresIn int64
}

// SessionTokenResponse is the normalized success payload of a session flow.
type SessionTokenResponse struct {
	SessionToken string
}

// ErrorResponse is the single normalized error shape every connector error
// is translated into before it leaves the transformation layer.
type ErrorResponse struct {
	StatusCode int
	Code       string
	Message    string
	Reason     string
	// AttemptStatus optionally hints the recovery state the attempt should
	// take (e.g. a declined card is a terminal Failure, a timeout is
	// Pending).
	AttemptStatus *AttemptStatus
	// ConnectorTransactionID is set when the connector rejected the call
	// but still minted a transaction.
	ConnectorTransactionID string
}

// ResponseData is the union of success payloads a flow may produce.
type ResponseData interface {
	isResponseData()
}

func (*TransactionResponse) isResponseData()  {}
func (*RefundResponse) isResponseData()       {}
func (*AccessToken) isResponseData()          {}
func (*SessionTokenResponse) isResponseData() {}

// Result holds the outcome of one connector call: exactly one of Ok or Err
// is populated after execution. Before execution it carries the pending
// sentinel error.
type Result struct {
	Ok  ResponseData
	Err *ErrorResponse
}

// PendingResult is the pre-execution sentinel. It satisfies the invariant
// that Result always has exactly one populated variant.
func PendingResult() Result {
	return Result{Err: &ErrorResponse{
		Code:    CodePending,
		Message: "response not received from connector",
	}}
}

// OkResult wraps a success payload.
func OkResult(data ResponseData) Result {
	return Result{Ok: data}
}

// ErrResult wraps a normalized error.
func ErrResult(err ErrorResponse) Result {
	return Result{Err: &err}
}

// IsErr reports whether the result holds an error variant.
func (r Result) IsErr() bool {
	return r.Err != nil
}

// IsPending reports whether the result still carries the pre-execution
// sentinel.
func (r Result) IsPending() bool {
	return r.Err != nil && r.Err.Code == CodePending
}

// Transaction returns the success payload as a TransactionResponse, or nil.
func (r Result) Transaction() *TransactionResponse {
	tr, _ := r.Ok.(*TransactionResponse)
	return tr
}

// Refund returns the success payload as a RefundResponse, or nil.
func (r Result) Refund() *RefundResponse {
	rr, _ := r.Ok.(*RefundResponse)
	return rr
}
