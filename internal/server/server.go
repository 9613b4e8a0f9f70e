// Package server exposes the payment router over HTTP.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/yourorg/payment-router/internal/domain"
	"github.com/yourorg/payment-router/internal/orchestrator"
	"github.com/yourorg/payment-router/internal/reporting"
)

const merchantHeader = "X-Merchant-Id"

// Server wires the orchestrator and reporter behind a gin engine.
type Server struct {
	orch      *orchestrator.Orchestrator
	reporter  *reporting.Reporter
	validator *ContractValidator
	metrics   *prometheus.Registry
	logger    *zap.Logger
}

func New(orch *orchestrator.Orchestrator, reporter *reporting.Reporter, metrics *prometheus.Registry, logger *zap.Logger) (*Server, error) {
	validator, err := NewContractValidator(paymentCreateSchema)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		orch:      orch,
		reporter:  reporter,
		validator: validator,
		metrics:   metrics,
		logger:    logger,
	}, nil
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("payment-router"))

	r.GET("/health", s.handleHealth)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{})))
	}

	payments := r.Group("/payments")
	{
		payments.POST("", s.handlePaymentsCreate)
		payments.GET("/:id", s.handlePaymentsGet)
		payments.GET("/:id/attempts", s.handlePaymentsListAttempts)
		payments.POST("/:id/confirm", s.handlePaymentsConfirm)
		payments.POST("/:id/capture", s.handlePaymentsCapture)
		payments.POST("/:id/sync", s.handlePaymentsSync)
		payments.POST("/:id/session_tokens", s.handlePaymentsSessionTokens)
	}

	refunds := r.Group("/refunds")
	{
		refunds.POST("", s.handleRefundsCreate)
		refunds.POST("/:id/sync", s.handleRefundsSync)
	}

	r.GET("/reports/attempts", s.handleActivityReport)
	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func merchantID(c *gin.Context) (string, bool) {
	id := c.GetHeader(merchantHeader)
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "missing_merchant_id", "message": merchantHeader + " header is required"},
		})
		return "", false
	}
	return id, true
}

func writeApiError(c *gin.Context, apiErr *orchestrator.ApiError) {
	c.JSON(apiErr.StatusCode, gin.H{"error": apiErr})
}

func bindJSON(raw []byte, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

type cardBody struct {
	Number      string `json:"number"`
	ExpiryMonth string `json:"expiry_month"`
	ExpiryYear  string `json:"expiry_year"`
	CVC         string `json:"cvc"`
	HolderName  string `json:"holder_name"`
	Network     string `json:"network"`
}

type walletBody struct {
	WalletType string `json:"wallet_type"`
	Token      string `json:"token"`
}

type bankRedirectBody struct {
	Issuer  string `json:"issuer"`
	Country string `json:"country"`
}

type paymentMethodBody struct {
	Type         string            `json:"type"`
	Card         *cardBody         `json:"card,omitempty"`
	Wallet       *walletBody       `json:"wallet,omitempty"`
	BankRedirect *bankRedirectBody `json:"bank_redirect,omitempty"`
}

func (b *paymentMethodBody) toDomain() (*domain.PaymentMethodData, *orchestrator.ApiError) {
	if b == nil {
		return nil, nil
	}
	kind := domain.PaymentMethodKind(b.Type)
	pm := &domain.PaymentMethodData{Kind: kind}
	switch kind {
	case domain.MethodCard:
		if b.Card == nil {
			return nil, &orchestrator.ApiError{StatusCode: http.StatusBadRequest, Code: "missing_card", Message: "card details are required for card payments"}
		}
		pm.Card = &domain.CardData{
			Number:      domain.NewSecret(b.Card.Number),
			ExpiryMonth: b.Card.ExpiryMonth,
			ExpiryYear:  b.Card.ExpiryYear,
			CVC:         domain.NewSecret(b.Card.CVC),
			HolderName:  b.Card.HolderName,
			Network:     b.Card.Network,
		}
	case domain.MethodWallet:
		if b.Wallet == nil {
			return nil, &orchestrator.ApiError{StatusCode: http.StatusBadRequest, Code: "missing_wallet", Message: "wallet details are required for wallet payments"}
		}
		pm.Wallet = &domain.WalletData{
			WalletType: b.Wallet.WalletType,
			Token:      domain.NewSecret(b.Wallet.Token),
		}
	case domain.MethodBankRedirect:
		if b.BankRedirect == nil {
			return nil, &orchestrator.ApiError{StatusCode: http.StatusBadRequest, Code: "missing_bank_redirect", Message: "bank_redirect details are required"}
		}
		pm.BankRedirect = &domain.BankRedirectData{
			Issuer:  b.BankRedirect.Issuer,
			Country: b.BankRedirect.Country,
		}
	default:
		return nil, &orchestrator.ApiError{StatusCode: http.StatusBadRequest, Code: "unsupported_payment_method", Message: "unsupported payment method type " + b.Type}
	}
	return pm, nil
}

type createPaymentBody struct {
	Amount        int64              `json:"amount"`
	Currency      string             `json:"currency"`
	Confirm       bool               `json:"confirm"`
	CaptureMethod string             `json:"capture_method"`
	CustomerID    string             `json:"customer_id"`
	Email         string             `json:"email"`
	Description   string             `json:"description"`
	ReturnURL     string             `json:"return_url"`
	PaymentMethod *paymentMethodBody `json:"payment_method"`
}

func (s *Server) handlePaymentsCreate(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "invalid_body", "message": "failed to read request body"}})
		return
	}
	violations, err := s.validator.Validate(raw)
	if err != nil {
		s.logger.Error("schema validation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "internal_error", "message": "request validation error"}})
		return
	}
	if len(violations) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "invalid_request", "message": FormatViolations(violations)}})
		return
	}

	var body createPaymentBody
	if err := bindJSON(raw, &body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "invalid_request", "message": err.Error()}})
		return
	}
	pm, apiErr := body.PaymentMethod.toDomain()
	if apiErr != nil {
		writeApiError(c, apiErr)
		return
	}

	resp, apiErr := s.orch.PaymentsCreate(c.Request.Context(), orchestrator.CreatePaymentRequest{
		MerchantID:    mid,
		Amount:        body.Amount,
		Currency:      body.Currency,
		Confirm:       body.Confirm,
		CaptureMethod: body.CaptureMethod,
		CustomerID:    body.CustomerID,
		Email:         body.Email,
		Description:   body.Description,
		ReturnURL:     body.ReturnURL,
		PaymentMethod: pm,
	})
	if apiErr != nil {
		writeApiError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type confirmPaymentBody struct {
	Email         string             `json:"email"`
	ReturnURL     string             `json:"return_url"`
	PaymentMethod *paymentMethodBody `json:"payment_method"`
}

func (s *Server) handlePaymentsConfirm(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}
	var body confirmPaymentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "invalid_request", "message": err.Error()}})
		return
	}
	pm, apiErr := body.PaymentMethod.toDomain()
	if apiErr != nil {
		writeApiError(c, apiErr)
		return
	}
	resp, apiErr := s.orch.PaymentsConfirm(c.Request.Context(), orchestrator.ConfirmPaymentRequest{
		MerchantID:    mid,
		PaymentID:     c.Param("id"),
		Email:         body.Email,
		ReturnURL:     body.ReturnURL,
		PaymentMethod: pm,
	})
	if apiErr != nil {
		writeApiError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type capturePaymentBody struct {
	AmountToCapture int64 `json:"amount_to_capture"`
}

func (s *Server) handlePaymentsCapture(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}
	var body capturePaymentBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "invalid_request", "message": err.Error()}})
			return
		}
	}
	resp, apiErr := s.orch.PaymentsCapture(c.Request.Context(), orchestrator.CapturePaymentRequest{
		MerchantID:      mid,
		PaymentID:       c.Param("id"),
		AmountToCapture: body.AmountToCapture,
	})
	if apiErr != nil {
		writeApiError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handlePaymentsSync(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}
	resp, apiErr := s.orch.PaymentsSync(c.Request.Context(), orchestrator.SyncPaymentRequest{
		MerchantID: mid,
		PaymentID:  c.Param("id"),
	})
	if apiErr != nil {
		writeApiError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handlePaymentsSessionTokens(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}
	resp, apiErr := s.orch.PaymentsSessionTokens(c.Request.Context(), orchestrator.SessionTokensRequest{
		MerchantID: mid,
		PaymentID:  c.Param("id"),
	})
	if apiErr != nil {
		writeApiError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handlePaymentsGet(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}
	resp, apiErr := s.orch.PaymentsGet(c.Request.Context(), mid, c.Param("id"))
	if apiErr != nil {
		writeApiError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handlePaymentsListAttempts(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}
	attempts, apiErr := s.orch.PaymentsListAttempts(c.Request.Context(), mid, c.Param("id"))
	if apiErr != nil {
		writeApiError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempts": attempts})
}

type createRefundBody struct {
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Reason    string `json:"reason"`
}

func (s *Server) handleRefundsCreate(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}
	var body createRefundBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "invalid_request", "message": err.Error()}})
		return
	}
	resp, apiErr := s.orch.RefundsCreate(c.Request.Context(), orchestrator.CreateRefundRequest{
		MerchantID: mid,
		PaymentID:  body.PaymentID,
		Amount:     body.Amount,
		Reason:     body.Reason,
	})
	if apiErr != nil {
		writeApiError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleRefundsSync(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}
	resp, apiErr := s.orch.RefundsSync(c.Request.Context(), orchestrator.SyncRefundRequest{
		MerchantID: mid,
		RefundID:   c.Param("id"),
	})
	if apiErr != nil {
		writeApiError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleActivityReport(c *gin.Context) {
	mid, ok := merchantID(c)
	if !ok {
		return
	}
	report, err := s.reporter.MerchantActivity(c.Request.Context(), mid)
	if err != nil {
		s.logger.Error("activity report failed", zap.Error(err), zap.String("merchant_id", mid))
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "internal_error", "message": "failed to build activity report"}})
		return
	}
	c.JSON(http.StatusOK, report)
}
