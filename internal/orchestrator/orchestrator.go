// Package orchestrator drives payment and refund operations through a
// fixed pipeline: request validation, tracker loading, routing, blocklist
// guarding, connector execution through the gateway, and tracker updates.
package orchestrator

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/domain"
	"github.com/yourorg/payment-router/internal/routing"
	"github.com/yourorg/payment-router/internal/storage"
)

// Executor abstracts the execution gateway so tests can substitute a
// scripted connector call.
type Executor interface {
	Execute(ctx context.Context, cd connector.ConnectorData, rd domain.RouterData) (domain.RouterData, error)
}

// TokenCache abstracts the access-token cache. A nil cache disables
// caching; the token flow then runs on every call.
type TokenCache interface {
	Get(ctx context.Context, merchantID, connectorName string) (*domain.AccessToken, error)
	Set(ctx context.Context, merchantID, connectorName string, token *domain.AccessToken) error
}

// AccountResolver looks up the merchant's credentials for a connector.
type AccountResolver interface {
	Resolve(merchantID, connectorName string) (connector.AccountConfig, string, error)
}

// MerchantAccount pairs connector credentials with the merchant connector
// account id used for rollout bucketing.
type MerchantAccount struct {
	Account             connector.AccountConfig
	MerchantConnectorID string
}

// StaticAccounts resolves accounts from an in-memory table keyed by
// merchant id, then connector name.
type StaticAccounts map[string]map[string]MerchantAccount

func (s StaticAccounts) Resolve(merchantID, connectorName string) (connector.AccountConfig, string, error) {
	account, ok := s[merchantID][connectorName]
	if !ok {
		return connector.AccountConfig{}, "", domain.NewConnectorError(
			domain.ErrInvalidConnectorConfig,
			"no account configured for connector "+connectorName,
		)
	}
	return account.Account, account.MerchantConnectorID, nil
}

// Deps are the collaborators an Orchestrator is wired with at startup.
// Blocklist and Tokens are optional.
type Deps struct {
	Store     storage.Store
	Registry  *connector.Registry
	Gateway   Executor
	Routing   *routing.Engine
	Blocklist *routing.Blocklist
	Accounts  AccountResolver
	Tokens    TokenCache
	Logger    *zap.Logger
}

// Orchestrator owns the operation pipeline. It holds no per-request
// state; one instance serves all requests.
type Orchestrator struct {
	store     storage.Store
	registry  *connector.Registry
	gateway   Executor
	routing   *routing.Engine
	blocklist *routing.Blocklist
	accounts  AccountResolver
	tokens    TokenCache
	logger    *zap.Logger
	tracer    trace.Tracer
}

func New(d Deps) *Orchestrator {
	if d.Store == nil {
		panic("orchestrator: Store is required")
	}
	if d.Registry == nil {
		panic("orchestrator: Registry is required")
	}
	if d.Gateway == nil {
		panic("orchestrator: Gateway is required")
	}
	if d.Routing == nil {
		panic("orchestrator: Routing engine is required")
	}
	if d.Accounts == nil {
		panic("orchestrator: Accounts resolver is required")
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		store:     d.Store,
		registry:  d.Registry,
		gateway:   d.Gateway,
		routing:   d.Routing,
		blocklist: d.Blocklist,
		accounts:  d.Accounts,
		tokens:    d.Tokens,
		logger:    logger,
		tracer:    otel.Tracer("orchestrator"),
	}
}
