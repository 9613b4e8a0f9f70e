package domain

import "time"

// PaymentIntent is the merchant-visible payment tracker. One intent owns
// one or more attempts.
type PaymentIntent struct {
	ID              string
	MerchantID      string
	ProfileID       string
	Status          IntentStatus
	Amount          int64
	Currency        string
	CustomerID      string
	Description     string
	ActiveAttemptID string
	CreatedAt       time.Time
	ModifiedAt      time.Time
}

// PaymentAttempt is one connector-facing execution of an intent.
type PaymentAttempt struct {
	ID                     string
	PaymentID              string
	MerchantID             string
	Status                 AttemptStatus
	Amount                 int64
	Currency               string
	ConnectorName          string
	MerchantConnectorID    string
	ConnectorTransactionID string
	PaymentMethodKind      PaymentMethodKind
	ErrorCode              string
	ErrorMessage           string
	ErrorReason            string
	CreatedAt              time.Time
	ModifiedAt             time.Time
}

// Refund tracks one refund against a charged attempt.
type Refund struct {
	ID                     string
	PaymentID              string
	AttemptID              string
	MerchantID             string
	Status                 RefundStatus
	Amount                 int64
	Currency               string
	ConnectorName          string
	ConnectorRefundID      string
	ConnectorTransactionID string
	Reason                 string
	ErrorCode              string
	ErrorMessage           string
	CreatedAt              time.Time
	ModifiedAt             time.Time
}

// Customer is the resolved customer record attached during the pipeline's
// customer hook.
type Customer struct {
	ID         string
	MerchantID string
	Email      string
	Name       string
}

// IntentPatch lists the updatable fields of a PaymentIntent. Nil fields
// are left unchanged by the store.
type IntentPatch struct {
	Status          *IntentStatus
	ActiveAttemptID *string
}

// IsEmpty reports whether the patch changes nothing.
func (p IntentPatch) IsEmpty() bool {
	return p.Status == nil && p.ActiveAttemptID == nil
}

// AttemptPatch lists the updatable fields of a PaymentAttempt.
type AttemptPatch struct {
	Status                 *AttemptStatus
	ConnectorName          *string
	MerchantConnectorID    *string
	ConnectorTransactionID *string
	ErrorCode              *string
	ErrorMessage           *string
	ErrorReason            *string
}

// IsEmpty reports whether the patch changes nothing.
func (p AttemptPatch) IsEmpty() bool {
	return p.Status == nil && p.ConnectorName == nil && p.MerchantConnectorID == nil &&
		p.ConnectorTransactionID == nil &&
		p.ErrorCode == nil && p.ErrorMessage == nil && p.ErrorReason == nil
}

// RefundPatch lists the updatable fields of a Refund.
type RefundPatch struct {
	Status            *RefundStatus
	ConnectorRefundID *string
	ErrorCode         *string
	ErrorMessage      *string
}

// IsEmpty reports whether the patch changes nothing.
func (p RefundPatch) IsEmpty() bool {
	return p.Status == nil && p.ConnectorRefundID == nil &&
		p.ErrorCode == nil && p.ErrorMessage == nil
}

// StrPtr is a small helper for building patches.
func StrPtr(s string) *string { return &s }
