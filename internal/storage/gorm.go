package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yourorg/payment-router/internal/domain"
)

type intentRow struct {
	ID              string `gorm:"primaryKey"`
	MerchantID      string `gorm:"primaryKey;index"`
	ProfileID       string
	Status          string
	Amount          int64
	Currency        string
	CustomerID      string
	Description     string
	ActiveAttemptID string
	CreatedAt       time.Time
	ModifiedAt      time.Time
}

func (intentRow) TableName() string { return "payment_intents" }

type attemptRow struct {
	ID                     string `gorm:"primaryKey"`
	PaymentID              string `gorm:"index"`
	MerchantID             string `gorm:"index"`
	Status                 string
	Amount                 int64
	Currency               string
	ConnectorName          string
	MerchantConnectorID    string
	ConnectorTransactionID string
	PaymentMethodKind      string
	ErrorCode              string
	ErrorMessage           string
	ErrorReason            string
	CreatedAt              time.Time
	ModifiedAt             time.Time
}

func (attemptRow) TableName() string { return "payment_attempts" }

type refundRow struct {
	ID                     string `gorm:"primaryKey"`
	MerchantID             string `gorm:"primaryKey;index"`
	PaymentID              string `gorm:"index"`
	AttemptID              string
	Status                 string
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

func (refundRow) TableName() string { return "refunds" }

// GormStore is the durable Store over gorm. The sqlite dialector backs
// tests and dev mode; any gorm dialector works in production.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore migrates the tracker tables and returns the store.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&intentRow{}, &attemptRow{}, &refundRow{}); err != nil {
		return nil, fmt.Errorf("storage: migrate tracker tables: %w", err)
	}
	return &GormStore{db: db}, nil
}

// OpenSQLite opens a sqlite-backed store at path (":memory:" for tests).
func OpenSQLite(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}
	return NewGormStore(db)
}

func translateGormError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrTrackerNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.ErrDuplicateValue
	default:
		return fmt.Errorf("%w: %v", domain.ErrDatabaseConnection, err)
	}
}

func (s *GormStore) FindPaymentIntent(ctx context.Context, merchantID, paymentID string) (domain.PaymentIntent, error) {
	var row intentRow
	err := s.db.WithContext(ctx).
		Where("merchant_id = ? AND id = ?", merchantID, paymentID).
		First(&row).Error
	if err != nil {
		return domain.PaymentIntent{}, translateGormError(err)
	}
	return intentFromRow(row), nil
}

func (s *GormStore) InsertPaymentIntent(ctx context.Context, intent domain.PaymentIntent) (domain.PaymentIntent, error) {
	now := time.Now().UTC()
	intent.CreatedAt = now
	intent.ModifiedAt = now
	row := intentToRow(intent)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.PaymentIntent{}, translateGormError(err)
	}
	return intent, nil
}

func (s *GormStore) UpdatePaymentIntent(ctx context.Context, merchantID, paymentID string, patch domain.IntentPatch) (domain.PaymentIntent, error) {
	if patch.IsEmpty() {
		return domain.PaymentIntent{}, domain.ErrNoFieldsToUpdate
	}
	fields := map[string]any{"modified_at": time.Now().UTC()}
	if patch.Status != nil {
		fields["status"] = string(*patch.Status)
	}
	if patch.ActiveAttemptID != nil {
		fields["active_attempt_id"] = *patch.ActiveAttemptID
	}
	res := s.db.WithContext(ctx).Model(&intentRow{}).
		Where("merchant_id = ? AND id = ?", merchantID, paymentID).
		Updates(fields)
	if res.Error != nil {
		return domain.PaymentIntent{}, translateGormError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.PaymentIntent{}, domain.ErrTrackerNotFound
	}
	return s.FindPaymentIntent(ctx, merchantID, paymentID)
}

func (s *GormStore) FindPaymentAttempt(ctx context.Context, attemptID string) (domain.PaymentAttempt, error) {
	var row attemptRow
	if err := s.db.WithContext(ctx).Where("id = ?", attemptID).First(&row).Error; err != nil {
		return domain.PaymentAttempt{}, translateGormError(err)
	}
	return attemptFromRow(row), nil
}

func (s *GormStore) InsertPaymentAttempt(ctx context.Context, attempt domain.PaymentAttempt) (domain.PaymentAttempt, error) {
	now := time.Now().UTC()
	attempt.CreatedAt = now
	attempt.ModifiedAt = now
	row := attemptToRow(attempt)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.PaymentAttempt{}, translateGormError(err)
	}
	return attempt, nil
}

func (s *GormStore) UpdatePaymentAttempt(ctx context.Context, attemptID string, patch domain.AttemptPatch) (domain.PaymentAttempt, error) {
	if patch.IsEmpty() {
		return domain.PaymentAttempt{}, domain.ErrNoFieldsToUpdate
	}
	fields := map[string]any{"modified_at": time.Now().UTC()}
	if patch.Status != nil {
		fields["status"] = string(*patch.Status)
	}
	if patch.ConnectorName != nil {
		fields["connector_name"] = *patch.ConnectorName
	}
	if patch.MerchantConnectorID != nil {
		fields["merchant_connector_id"] = *patch.MerchantConnectorID
	}
	if patch.ConnectorTransactionID != nil {
		fields["connector_transaction_id"] = *patch.ConnectorTransactionID
	}
	if patch.ErrorCode != nil {
		fields["error_code"] = *patch.ErrorCode
	}
	if patch.ErrorMessage != nil {
		fields["error_message"] = *patch.ErrorMessage
	}
	if patch.ErrorReason != nil {
		fields["error_reason"] = *patch.ErrorReason
	}
	res := s.db.WithContext(ctx).Model(&attemptRow{}).
		Where("id = ?", attemptID).
		Updates(fields)
	if res.Error != nil {
		return domain.PaymentAttempt{}, translateGormError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.PaymentAttempt{}, domain.ErrTrackerNotFound
	}
	return s.FindPaymentAttempt(ctx, attemptID)
}

func (s *GormStore) ListPaymentAttempts(ctx context.Context, merchantID, paymentID string) ([]domain.PaymentAttempt, error) {
	var rows []attemptRow
	err := s.db.WithContext(ctx).
		Where("merchant_id = ? AND payment_id = ?", merchantID, paymentID).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, translateGormError(err)
	}
	out := make([]domain.PaymentAttempt, 0, len(rows))
	for _, row := range rows {
		out = append(out, attemptFromRow(row))
	}
	return out, nil
}

func (s *GormStore) ListMerchantAttempts(ctx context.Context, merchantID string) ([]domain.PaymentAttempt, error) {
	var rows []attemptRow
	err := s.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, translateGormError(err)
	}
	out := make([]domain.PaymentAttempt, 0, len(rows))
	for _, row := range rows {
		out = append(out, attemptFromRow(row))
	}
	return out, nil
}

func (s *GormStore) FindRefund(ctx context.Context, merchantID, refundID string) (domain.Refund, error) {
	var row refundRow
	err := s.db.WithContext(ctx).
		Where("merchant_id = ? AND id = ?", merchantID, refundID).
		First(&row).Error
	if err != nil {
		return domain.Refund{}, translateGormError(err)
	}
	return refundFromRow(row), nil
}

func (s *GormStore) InsertRefund(ctx context.Context, refund domain.Refund) (domain.Refund, error) {
	now := time.Now().UTC()
	refund.CreatedAt = now
	refund.ModifiedAt = now
	row := refundToRow(refund)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.Refund{}, translateGormError(err)
	}
	return refund, nil
}

func (s *GormStore) UpdateRefund(ctx context.Context, merchantID, refundID string, patch domain.RefundPatch) (domain.Refund, error) {
	if patch.IsEmpty() {
		return domain.Refund{}, domain.ErrNoFieldsToUpdate
	}
	fields := map[string]any{"modified_at": time.Now().UTC()}
	if patch.Status != nil {
		fields["status"] = string(*patch.Status)
	}
	if patch.ConnectorRefundID != nil {
		fields["connector_refund_id"] = *patch.ConnectorRefundID
	}
	if patch.ErrorCode != nil {
		fields["error_code"] = *patch.ErrorCode
	}
	if patch.ErrorMessage != nil {
		fields["error_message"] = *patch.ErrorMessage
	}
	res := s.db.WithContext(ctx).Model(&refundRow{}).
		Where("merchant_id = ? AND id = ?", merchantID, refundID).
		Updates(fields)
	if res.Error != nil {
		return domain.Refund{}, translateGormError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.Refund{}, domain.ErrTrackerNotFound
	}
	return s.FindRefund(ctx, merchantID, refundID)
}

func intentToRow(i domain.PaymentIntent) intentRow {
	return intentRow{
		ID: i.ID, MerchantID: i.MerchantID, ProfileID: i.ProfileID,
		Status: string(i.Status), Amount: i.Amount, Currency: i.Currency,
		CustomerID: i.CustomerID, Description: i.Description,
		ActiveAttemptID: i.ActiveAttemptID,
		CreatedAt:       i.CreatedAt, ModifiedAt: i.ModifiedAt,
	}
}

func intentFromRow(r intentRow) domain.PaymentIntent {
	return domain.PaymentIntent{
		ID: r.ID, MerchantID: r.MerchantID, ProfileID: r.ProfileID,
		Status: domain.IntentStatus(r.Status), Amount: r.Amount, Currency: r.Currency,
		CustomerID: r.CustomerID, Description: r.Description,
		ActiveAttemptID: r.ActiveAttemptID,
		CreatedAt:       r.CreatedAt, ModifiedAt: r.ModifiedAt,
	}
}

func attemptToRow(a domain.PaymentAttempt) attemptRow {
	return attemptRow{
		ID: a.ID, PaymentID: a.PaymentID, MerchantID: a.MerchantID,
		Status: string(a.Status), Amount: a.Amount, Currency: a.Currency,
		ConnectorName: a.ConnectorName, MerchantConnectorID: a.MerchantConnectorID,
		ConnectorTransactionID: a.ConnectorTransactionID,
		PaymentMethodKind:      string(a.PaymentMethodKind),
		ErrorCode:              a.ErrorCode, ErrorMessage: a.ErrorMessage, ErrorReason: a.ErrorReason,
		CreatedAt:              a.CreatedAt, ModifiedAt: a.ModifiedAt,
	}
}

func attemptFromRow(r attemptRow) domain.PaymentAttempt {
	return domain.PaymentAttempt{
		ID: r.ID, PaymentID: r.PaymentID, MerchantID: r.MerchantID,
		Status: domain.AttemptStatus(r.Status), Amount: r.Amount, Currency: r.Currency,
		ConnectorName: r.ConnectorName, MerchantConnectorID: r.MerchantConnectorID,
		ConnectorTransactionID: r.ConnectorTransactionID,
		PaymentMethodKind:      domain.PaymentMethodKind(r.PaymentMethodKind),
		ErrorCode:              r.ErrorCode, ErrorMessage: r.ErrorMessage, ErrorReason: r.ErrorReason,
		CreatedAt:              r.CreatedAt, ModifiedAt: r.ModifiedAt,
	}
}

func refundToRow(r domain.Refund) refundRow {
	return refundRow{
		ID: r.ID, MerchantID: r.MerchantID, PaymentID: r.PaymentID, AttemptID: r.AttemptID,
		Status: string(r.Status), Amount: r.Amount, Currency: r.Currency,
		ConnectorName: r.ConnectorName, ConnectorRefundID: r.ConnectorRefundID,
		ConnectorTransactionID: r.ConnectorTransactionID, Reason: r.Reason,
		ErrorCode:              r.ErrorCode, ErrorMessage: r.ErrorMessage,
		CreatedAt:              r.CreatedAt, ModifiedAt: r.ModifiedAt,
	}
}

func refundFromRow(r refundRow) domain.Refund {
	return domain.Refund{
		ID: r.ID, MerchantID: r.MerchantID, PaymentID: r.PaymentID, AttemptID: r.AttemptID,
		Status: domain.RefundStatus(r.Status), Amount: r.Amount, Currency: r.Currency,
		ConnectorName: r.ConnectorName, ConnectorRefundID: r.ConnectorRefundID,
		ConnectorTransactionID: r.ConnectorTransactionID, Reason: r.Reason,
		ErrorCode:              r.ErrorCode, ErrorMessage: r.ErrorMessage,
		CreatedAt:              r.CreatedAt, ModifiedAt: r.ModifiedAt,
	}
}
