package storage

import (
	"context"
	"sync"
	"time"

	"github.com/yourorg/payment-router/internal/domain"
)

// MemoryStore is the in-process Store used in tests and dev mode.
type MemoryStore struct {
	mu       sync.RWMutex
	intents  map[string]domain.PaymentIntent // keyed by merchantID + "/" + paymentID
	attempts map[string]domain.PaymentAttempt
	refunds  map[string]domain.Refund // keyed by merchantID + "/" + refundID
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		intents:  make(map[string]domain.PaymentIntent),
		attempts: make(map[string]domain.PaymentAttempt),
		refunds:  make(map[string]domain.Refund),
	}
}

func intentKey(merchantID, paymentID string) string { return merchantID + "/" + paymentID }

func (s *MemoryStore) FindPaymentIntent(_ context.Context, merchantID, paymentID string) (domain.PaymentIntent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	intent, ok := s.intents[intentKey(merchantID, paymentID)]
	if !ok {
		return domain.PaymentIntent{}, domain.ErrTrackerNotFound
	}
	return intent, nil
}

func (s *MemoryStore) InsertPaymentIntent(_ context.Context, intent domain.PaymentIntent) (domain.PaymentIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := intentKey(intent.MerchantID, intent.ID)
	if _, exists := s.intents[key]; exists {
		return domain.PaymentIntent{}, domain.ErrDuplicateValue
	}
	now := time.Now().UTC()
	intent.CreatedAt = now
	intent.ModifiedAt = now
	s.intents[key] = intent
	return intent, nil
}

func (s *MemoryStore) UpdatePaymentIntent(_ context.Context, merchantID, paymentID string, patch domain.IntentPatch) (domain.PaymentIntent, error) {
	if patch.IsEmpty() {
		return domain.PaymentIntent{}, domain.ErrNoFieldsToUpdate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := intentKey(merchantID, paymentID)
	intent, ok := s.intents[key]
	if !ok {
		return domain.PaymentIntent{}, domain.ErrTrackerNotFound
	}
	if patch.Status != nil {
		intent.Status = *patch.Status
	}
	if patch.ActiveAttemptID != nil {
		intent.ActiveAttemptID = *patch.ActiveAttemptID
	}
	intent.ModifiedAt = time.Now().UTC()
	s.intents[key] = intent
	return intent, nil
}

func (s *MemoryStore) FindPaymentAttempt(_ context.Context, attemptID string) (domain.PaymentAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return domain.PaymentAttempt{}, domain.ErrTrackerNotFound
	}
	return attempt, nil
}

func (s *MemoryStore) InsertPaymentAttempt(_ context.Context, attempt domain.PaymentAttempt) (domain.PaymentAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.attempts[attempt.ID]; exists {
		return domain.PaymentAttempt{}, domain.ErrDuplicateValue
	}
	now := time.Now().UTC()
	attempt.CreatedAt = now
	attempt.ModifiedAt = now
	s.attempts[attempt.ID] = attempt
	return attempt, nil
}

func (s *MemoryStore) UpdatePaymentAttempt(_ context.Context, attemptID string, patch domain.AttemptPatch) (domain.PaymentAttempt, error) {
	if patch.IsEmpty() {
		return domain.PaymentAttempt{}, domain.ErrNoFieldsToUpdate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return domain.PaymentAttempt{}, domain.ErrTrackerNotFound
	}
	if patch.Status != nil {
		attempt.Status = *patch.Status
	}
	if patch.ConnectorName != nil {
		attempt.ConnectorName = *patch.ConnectorName
	}
	if patch.MerchantConnectorID != nil {
		attempt.MerchantConnectorID = *patch.MerchantConnectorID
	}
	if patch.ConnectorTransactionID != nil {
		attempt.ConnectorTransactionID = *patch.ConnectorTransactionID
	}
	if patch.ErrorCode != nil {
		attempt.ErrorCode = *patch.ErrorCode
	}
	if patch.ErrorMessage != nil {
		attempt.ErrorMessage = *patch.ErrorMessage
	}
	if patch.ErrorReason != nil {
		attempt.ErrorReason = *patch.ErrorReason
	}
	attempt.ModifiedAt = time.Now().UTC()
	s.attempts[attemptID] = attempt
	return attempt, nil
}

func (s *MemoryStore) ListPaymentAttempts(_ context.Context, merchantID, paymentID string) ([]domain.PaymentAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.PaymentAttempt
	for _, attempt := range s.attempts {
		if attempt.MerchantID == merchantID && attempt.PaymentID == paymentID {
			out = append(out, attempt)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListMerchantAttempts(_ context.Context, merchantID string) ([]domain.PaymentAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.PaymentAttempt
	for _, attempt := range s.attempts {
		if attempt.MerchantID == merchantID {
			out = append(out, attempt)
		}
	}
	return out, nil
}

func refundKey(merchantID, refundID string) string { return merchantID + "/" + refundID }

func (s *MemoryStore) FindRefund(_ context.Context, merchantID, refundID string) (domain.Refund, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	refund, ok := s.refunds[refundKey(merchantID, refundID)]
	if !ok {
		return domain.Refund{}, domain.ErrTrackerNotFound
	}
	return refund, nil
}

func (s *MemoryStore) InsertRefund(_ context.Context, refund domain.Refund) (domain.Refund, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := refundKey(refund.MerchantID, refund.ID)
	if _, exists := s.refunds[key]; exists {
		return domain.Refund{}, domain.ErrDuplicateValue
	}
	now := time.Now().UTC()
	refund.CreatedAt = now
	refund.ModifiedAt = now
	s.refunds[key] = refund
	return refund, nil
}

func (s *MemoryStore) UpdateRefund(_ context.Context, merchantID, refundID string, patch domain.RefundPatch) (domain.Refund, error) {
	if patch.IsEmpty() {
		return domain.Refund{}, domain.ErrNoFieldsToUpdate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := refundKey(merchantID, refundID)
	refund, ok := s.refunds[key]
	if !ok {
		return domain.Refund{}, domain.ErrTrackerNotFound
	}
	if patch.Status != nil {
		refund.Status = *patch.Status
	}
	if patch.ConnectorRefundID != nil {
		refund.ConnectorRefundID = *patch.ConnectorRefundID
	}
	if patch.ErrorCode != nil {
		refund.ErrorCode = *patch.ErrorCode
	}
	if patch.ErrorMessage != nil {
		refund.ErrorMessage = *patch.ErrorMessage
	}
	refund.ModifiedAt = time.Now().UTC()
	s.refunds[key] = refund
	return refund, nil
}
