// Package connector defines the adapter contract every payment connector
// implements: a data-driven Descriptor (status tables, auth shape, flow
// support), a Strategy for the genuinely bespoke wire shapes, and the
// generic Adapter that implements the full capability set on top of both.
// Connectors are resolved through a Registry assembled from per-connector
// factories at process start.
package connector

import (
	"github.com/yourorg/payment-router/internal/domain"
)

// Descriptor captures the table-driven part of a connector's behavior.
// Everything listed here is data, not code: the generic Adapter consults
// it so that only genuinely bespoke request/response shaping lives in the
// per-connector Strategy.
type Descriptor struct {
	Name    string
	BaseURL string

	// AuthShape is the credential variant this connector requires. The
	// registry validates the merchant credential against it before an
	// adapter is handed out.
	AuthShape domain.AuthShape

	SupportedFlows   map[domain.Flow]bool
	SupportedMethods map[domain.PaymentMethodKind]bool

	// PaymentStatuses maps every wire status the connector can emit onto
	// the canonical attempt status. The mapping must be total; an unknown
	// wire status is a ResponseHandlingFailed error, never a default.
	PaymentStatuses map[string]domain.AttemptStatus
	RefundStatuses  map[string]domain.RefundStatus

	// RequiredMetadata names connector-metadata keys that must be present
	// on the merchant connector account (e.g. a site id).
	RequiredMetadata []string

	// NeedsAccessToken marks connectors whose flows require a pre-fetched
	// bearer token.
	NeedsAccessToken bool
}

// MapPaymentStatus translates a wire status through the descriptor table.
func (d Descriptor) MapPaymentStatus(wire string) (domain.AttemptStatus, error) {
	s, ok := d.PaymentStatuses[wire]
	if !ok {
		return "", domain.NewConnectorError(domain.ErrResponseHandlingFailed, "unknown payment status "+wire)
	}
	return s, nil
}

// MapRefundStatus translates a wire refund status through the descriptor
// table.
func (d Descriptor) MapRefundStatus(wire string) (domain.RefundStatus, error) {
	s, ok := d.RefundStatuses[wire]
	if !ok {
		return "", domain.NewConnectorError(domain.ErrResponseHandlingFailed, "unknown refund status "+wire)
	}
	return s, nil
}

// SupportsFlow reports whether the connector implements the flow at all.
func (d Descriptor) SupportsFlow(f domain.Flow) bool {
	return d.SupportedFlows[f]
}

// SupportsMethod reports whether the connector accepts the payment-method
// kind.
func (d Descriptor) SupportsMethod(k domain.PaymentMethodKind) bool {
	return d.SupportedMethods[k]
}
