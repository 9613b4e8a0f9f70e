package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yourorg/payment-router/internal/config"
	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/connector/checkly"
	"github.com/yourorg/payment-router/internal/connector/mockpay"
	"github.com/yourorg/payment-router/internal/connector/voltbank"
	"github.com/yourorg/payment-router/internal/domain"
	"github.com/yourorg/payment-router/internal/gateway"
	"github.com/yourorg/payment-router/internal/orchestrator"
	"github.com/yourorg/payment-router/internal/reporting"
	"github.com/yourorg/payment-router/internal/routing"
	"github.com/yourorg/payment-router/internal/server"
	"github.com/yourorg/payment-router/internal/storage"
	"github.com/yourorg/payment-router/internal/tokens"
)

// buildApp wires every component from config at process start. All
// dependencies are passed explicitly; nothing reads global state after
// this returns.
func buildApp(cfg *config.Config, logger *zap.Logger) (*server.Server, func(), error) {
	cleanups := []func(){}
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	store, err := openStore(cfg.Storage)
	if err != nil {
		return nil, cleanup, err
	}

	registry := connector.NewRegistry(
		checkly.NewFactory(),
		voltbank.NewFactory(),
		mockpay.NewFactory(),
	)

	engine, err := routing.NewEngine(routingRules(cfg.Routing), cfg.Routing.DefaultConnector)
	if err != nil {
		return nil, cleanup, err
	}
	blocklist, err := routing.NewBlocklist(blocklistRules(cfg.Routing))
	if err != nil {
		return nil, cleanup, err
	}

	promReg := prometheus.NewRegistry()
	gw := gateway.New(
		gateway.Config{
			RequestTimeout: cfg.Gateway.RequestTimeout,
			UCS: gateway.UCSConfig{
				Enabled:           cfg.Gateway.UCS.Enabled,
				URL:               cfg.Gateway.UCS.URL,
				RolloutPercent:    cfg.Gateway.UCS.RolloutPercent,
				MerchantAllowlist: cfg.Gateway.UCS.MerchantAllowlist,
				ShadowEnabled:     cfg.Gateway.UCS.ShadowEnabled,
			},
		},
		gateway.NewHTTPTransport(nil),
		gateway.NewCircuitBreaker(),
		gateway.NewMetrics(promReg),
		logger.Named("gateway"),
	)

	var tokenCache orchestrator.TokenCache
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cleanups = append(cleanups, func() { client.Close() }) //nolint:errcheck
		tokenCache = tokens.NewCache(client)
	}

	orch := orchestrator.New(orchestrator.Deps{
		Store:     store,
		Registry:  registry,
		Gateway:   gw,
		Routing:   engine,
		Blocklist: blocklist,
		Accounts:  staticAccounts(cfg.Accounts),
		Tokens:    tokenCache,
		Logger:    logger.Named("orchestrator"),
	})

	srv, err := server.New(orch, reporting.NewReporter(store), promReg, logger.Named("server"))
	if err != nil {
		return nil, cleanup, err
	}
	return srv, cleanup, nil
}

func openStore(cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Driver {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "sqlite":
		return storage.OpenSQLite(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func routingRules(cfg config.RoutingConfig) []routing.Rule {
	rules := make([]routing.Rule, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		rules = append(rules, routing.Rule{Name: r.Name, Expression: r.Expression, Connector: r.Connector})
	}
	return rules
}

func blocklistRules(cfg config.RoutingConfig) []routing.BlocklistRule {
	rules := make([]routing.BlocklistRule, 0, len(cfg.Blocklist))
	for _, r := range cfg.Blocklist {
		rules = append(rules, routing.BlocklistRule{Name: r.Name, Expression: r.Expression})
	}
	return rules
}

func staticAccounts(accounts map[string]map[string]config.AccountConfig) orchestrator.StaticAccounts {
	out := make(orchestrator.StaticAccounts, len(accounts))
	for merchantID, byConnector := range accounts {
		out[merchantID] = make(map[string]orchestrator.MerchantAccount, len(byConnector))
		for name, ac := range byConnector {
			out[merchantID][name] = orchestrator.MerchantAccount{
				MerchantConnectorID: ac.MerchantConnectorID,
				Account: connector.AccountConfig{
					Auth:     authFromConfig(ac),
					Metadata: ac.Metadata,
					BaseURL:  ac.BaseURL,
				},
			}
		}
	}
	return out
}

func authFromConfig(ac config.AccountConfig) domain.ConnectorAuthType {
	switch ac.AuthType {
	case "header_key":
		return domain.HeaderKeyAuth(ac.APIKey)
	case "body_key":
		return domain.BodyKeyAuth(ac.APIKey, ac.Key1)
	case "signature_key":
		return domain.SignatureKeyAuth(ac.APIKey, ac.Key1, ac.APISecret)
	default:
		return domain.NoKeyAuth()
	}
}
