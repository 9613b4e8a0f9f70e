package domain

// Flow names one connector interaction within a payment lifecycle.
type Flow string

const (
	FlowAuthorize   Flow = "authorize"
	FlowCapture     Flow = "capture"
	FlowVoid        Flow = "void"
	FlowPSync       Flow = "psync"
	FlowRefund      Flow = "refund"
	FlowRSync       Flow = "rsync"
	FlowSession     Flow = "session"
	FlowAccessToken Flow = "access_token"
)

// FlowRequest is the union of flow-specific connector inputs carried by
// RouterData.Request.
type FlowRequest interface {
	Flow() Flow
}

// AuthorizeRequest is the input of the Authorize flow.
type AuthorizeRequest struct {
	Amount          int64
	Currency        string
	PaymentMethod   PaymentMethodData
	CaptureMethod   string // "automatic" or "manual"
	Email           string
	ReturnURL       string
	SetupFutureUse  bool
	StatementSuffix string
}

func (AuthorizeRequest) Flow() Flow { return FlowAuthorize }

// CaptureRequest is the input of the Capture flow.
type CaptureRequest struct {
	AmountToCapture        int64
	Currency               string
	ConnectorTransactionID string
}

func (CaptureRequest) Flow() Flow { return FlowCapture }

// VoidRequest is the input of the Void flow.
type VoidRequest struct {
	ConnectorTransactionID string
	CancellationReason     string
}

func (VoidRequest) Flow() Flow { return FlowVoid }

// SyncRequest is the input of the payment Sync flow.
type SyncRequest struct {
	ConnectorTransactionID string
}

func (SyncRequest) Flow() Flow { return FlowPSync }

// RefundRequest is the input of the Refund flow.
type RefundRequest struct {
	RefundID               string
	ConnectorTransactionID string
	RefundAmount           int64
	Currency               string
	Reason                 string
}

func (RefundRequest) Flow() Flow { return FlowRefund }

// RefundSyncRequest is the input of the refund Sync flow.
type RefundSyncRequest struct {
	ConnectorRefundID      string
	ConnectorTransactionID string
}

func (RefundSyncRequest) Flow() Flow { return FlowRSync }

// SessionRequest is the input of the Session flow.
type SessionRequest struct {
	Amount   int64
	Currency string
}

func (SessionRequest) Flow() Flow { return FlowSession }

// AccessTokenRequest is the input of the AccessToken pre-fetch flow.
type AccessTokenRequest struct{}

func (AccessTokenRequest) Flow() Flow { return FlowAccessToken }

// RouterData is the mutable carrier threaded through one flow execution.
// It is exclusively owned by the flow orchestrator for the duration of one
// invocation; adapter calls receive it by value and return patches.
type RouterData struct {
	FlowType Flow

	MerchantID          string
	ConnectorName       string
	MerchantConnectorID string
	PaymentID           string
	AttemptID           string
	RefundID            string

	Status   AttemptStatus
	AuthType ConnectorAuthType
	Request  FlowRequest
	Response Result

	// Fields accumulated across sub-steps.
	AccessToken        *AccessToken
	SessionToken       string
	PaymentMethodToken string
	ConnectorMetadata  map[string]string
	HTTPCode           int
	LatencyMs          int64
}

// NewRouterData builds a carrier with the pending sentinel response.
func NewRouterData(flow Flow, req FlowRequest) RouterData {
	return RouterData{
		FlowType: flow,
		Request:  req,
		Status:   AttemptPending,
		Response: PendingResult(),
	}
}

// ResponsePatch lists the only fields a transformation stage may change on
// a RouterData. Applying an explicit patch instead of whole-struct update
// prevents stale carry-over of fields across flows.
type ResponsePatch struct {
	Status      *AttemptStatus
	Response    *Result
	AccessToken *AccessToken
	// SessionToken and PaymentMethodToken are set when non-empty.
	SessionToken       string
	PaymentMethodToken string
	ConnectorMetadata  map[string]string
	HTTPCode           int
	LatencyMs          int64
}

// Apply merges the patch into a copy of rd and returns it. Unset patch
// fields leave rd untouched.
func (p ResponsePatch) Apply(rd RouterData) RouterData {
	if p.Status != nil {
		rd.Status = *p.Status
	}
	if p.Response != nil {
		rd.Response = *p.Response
	}
	if p.AccessToken != nil {
		rd.AccessToken = p.AccessToken
	}
	if p.SessionToken != "" {
		rd.SessionToken = p.SessionToken
	}
	if p.PaymentMethodToken != "" {
		rd.PaymentMethodToken = p.PaymentMethodToken
	}
	if len(p.ConnectorMetadata) > 0 {
		merged := make(map[string]string, len(rd.ConnectorMetadata)+len(p.ConnectorMetadata))
		for k, v := range rd.ConnectorMetadata {
			merged[k] = v
		}
		for k, v := range p.ConnectorMetadata {
			merged[k] = v
		}
		rd.ConnectorMetadata = merged
	}
	if p.HTTPCode != 0 {
		rd.HTTPCode = p.HTTPCode
	}
	if p.LatencyMs != 0 {
		rd.LatencyMs = p.LatencyMs
	}
	return rd
}

// StatusOf is a convenience for building status patches.
func StatusOf(s AttemptStatus) *AttemptStatus { return &s }

// ResultOf is a convenience for building response patches.
func ResultOf(r Result) *Result { return &r }
