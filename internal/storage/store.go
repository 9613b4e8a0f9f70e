// Package storage is the persistence gateway of the routing core. The
// orchestrator only ever talks to the Store interface: typed finds,
// inserts and patch-updates over the payment trackers. Updates distinguish
// "nothing to change" (ErrNoFieldsToUpdate, a no-op success for callers)
// from "tracker missing" (ErrTrackerNotFound, a hard failure).
package storage

import (
	"context"

	"github.com/yourorg/payment-router/internal/domain"
)

// Store is the typed persistence surface. The core never issues raw
// queries.
type Store interface {
	FindPaymentIntent(ctx context.Context, merchantID, paymentID string) (domain.PaymentIntent, error)
	InsertPaymentIntent(ctx context.Context, intent domain.PaymentIntent) (domain.PaymentIntent, error)
	UpdatePaymentIntent(ctx context.Context, merchantID, paymentID string, patch domain.IntentPatch) (domain.PaymentIntent, error)

	FindPaymentAttempt(ctx context.Context, attemptID string) (domain.PaymentAttempt, error)
	InsertPaymentAttempt(ctx context.Context, attempt domain.PaymentAttempt) (domain.PaymentAttempt, error)
	UpdatePaymentAttempt(ctx context.Context, attemptID string, patch domain.AttemptPatch) (domain.PaymentAttempt, error)
	ListPaymentAttempts(ctx context.Context, merchantID, paymentID string) ([]domain.PaymentAttempt, error)
	ListMerchantAttempts(ctx context.Context, merchantID string) ([]domain.PaymentAttempt, error)

	FindRefund(ctx context.Context, merchantID, refundID string) (domain.Refund, error)
	InsertRefund(ctx context.Context, refund domain.Refund) (domain.Refund, error)
	UpdateRefund(ctx context.Context, merchantID, refundID string, patch domain.RefundPatch) (domain.Refund, error)
}
