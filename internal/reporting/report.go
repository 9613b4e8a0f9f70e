// Package reporting aggregates stored payment attempts into merchant
// activity reports.
package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/yourorg/payment-router/internal/domain"
	"github.com/yourorg/payment-router/internal/storage"
)

// ActivityReport summarizes a merchant's attempts over the stored window.
type ActivityReport struct {
	MerchantID           string           `json:"merchant_id"`
	TotalAttempts        int              `json:"total_attempts"`
	SuccessfulPayments   int              `json:"successful_payments"`
	FailedPayments       int              `json:"failed_payments"`
	PendingPayments      int              `json:"pending_payments"`
	TotalAmountProcessed int64            `json:"total_amount_processed"`
	AmountByCurrency     map[string]int64 `json:"amount_by_currency"`
	ErrorBreakdown       map[string]int   `json:"error_breakdown"`
	ConnectorUsage       map[string]int   `json:"connector_usage"`
	DateFrom             time.Time        `json:"date_from"`
	DateTo               time.Time        `json:"date_to"`
}

// Reporter builds activity reports from the attempt store.
type Reporter struct {
	store storage.Store
}

func NewReporter(store storage.Store) *Reporter {
	return &Reporter{store: store}
}

// MerchantActivity aggregates every stored attempt for the merchant.
// Charged and authorized attempts count as successful; authorized ones
// contribute to the processed total since the funds are reserved.
func (r *Reporter) MerchantActivity(ctx context.Context, merchantID string) (*ActivityReport, error) {
	attempts, err := r.store.ListMerchantAttempts(ctx, merchantID)
	if err != nil {
		return nil, fmt.Errorf("listing attempts for %s: %w", merchantID, err)
	}

	report := &ActivityReport{
		MerchantID:       merchantID,
		AmountByCurrency: make(map[string]int64),
		ErrorBreakdown:   make(map[string]int),
		ConnectorUsage:   make(map[string]int),
	}

	for _, a := range attempts {
		report.TotalAttempts++
		if report.DateFrom.IsZero() || a.CreatedAt.Before(report.DateFrom) {
			report.DateFrom = a.CreatedAt
		}
		if a.ModifiedAt.After(report.DateTo) {
			report.DateTo = a.ModifiedAt
		}
		if a.ConnectorName != "" {
			report.ConnectorUsage[a.ConnectorName]++
		}

		switch a.Status {
		case domain.AttemptCharged, domain.AttemptAuthorized:
			report.SuccessfulPayments++
			report.TotalAmountProcessed += a.Amount
			report.AmountByCurrency[a.Currency] += a.Amount
		case domain.AttemptFailure:
			report.FailedPayments++
			if a.ErrorCode != "" {
				report.ErrorBreakdown[a.ErrorCode]++
			}
		default:
			report.PendingPayments++
		}
	}
	return report, nil
}
