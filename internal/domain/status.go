// Package domain holds the canonical shapes shared by every layer of the
// routing core: lifecycle status enums, the payment-method and auth-type
// tagged unions, the normalized connector response types and the RouterData
// carrier threaded through one flow execution.
package domain

// AttemptStatus is the canonical lifecycle state of a payment attempt.
// Every connector's wire status must map onto exactly one of these values
// through its descriptor status table.
type AttemptStatus string

const (
	AttemptStarted               AttemptStatus = "started"
	AttemptAuthenticationPending AttemptStatus = "authentication_pending"
	AttemptAuthorized            AttemptStatus = "authorized"
	AttemptAuthorizing           AttemptStatus = "authorizing"
	AttemptCharged               AttemptStatus = "charged"
	AttemptCaptureInitiated      AttemptStatus = "capture_initiated"
	AttemptPending               AttemptStatus = "pending"
	AttemptFailure               AttemptStatus = "failure"
	AttemptVoided                AttemptStatus = "voided"
	AttemptVoidInitiated         AttemptStatus = "void_initiated"
	AttemptUnresolved            AttemptStatus = "unresolved"
)

// IsTerminal reports whether the attempt can no longer transition.
func (s AttemptStatus) IsTerminal() bool {
	switch s {
	case AttemptCharged, AttemptFailure, AttemptVoided:
		return true
	}
	return false
}

// RefundStatus is the canonical lifecycle state of a refund.
type RefundStatus string

const (
	RefundPending            RefundStatus = "pending"
	RefundSuccess            RefundStatus = "success"
	RefundFailure            RefundStatus = "failure"
	RefundManualReview       RefundStatus = "manual_review"
	RefundTransactionFailure RefundStatus = "transaction_failure"
)

// PayoutStatus is the canonical lifecycle state of a payout.
type PayoutStatus string

const (
	PayoutInitiated PayoutStatus = "initiated"
	PayoutPending   PayoutStatus = "pending"
	PayoutSuccess   PayoutStatus = "success"
	PayoutFailed    PayoutStatus = "failed"
	PayoutCancelled PayoutStatus = "cancelled"
)

// IntentStatus is the aggregate status of a payment intent, derived from
// its latest attempt.
type IntentStatus string

const (
	IntentRequiresConfirmation IntentStatus = "requires_confirmation"
	IntentRequiresCapture      IntentStatus = "requires_capture"
	IntentProcessing           IntentStatus = "processing"
	IntentSucceeded            IntentStatus = "succeeded"
	IntentFailed               IntentStatus = "failed"
	IntentCancelled            IntentStatus = "cancelled"
)

// IntentStatusForAttempt derives the intent status implied by an attempt
// status transition.
func IntentStatusForAttempt(s AttemptStatus) IntentStatus {
	switch s {
	case AttemptCharged:
		return IntentSucceeded
	case AttemptAuthorized:
		return IntentRequiresCapture
	case AttemptFailure:
		return IntentFailed
	case AttemptVoided:
		return IntentCancelled
	default:
		return IntentProcessing
	}
}
