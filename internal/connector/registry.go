package connector

import (
	"fmt"

	"github.com/yourorg/payment-router/internal/domain"
)

// AccountConfig is the merchant connector account slice the registry needs
// to hand out an adapter: the credential, optional metadata and an
// optional base-URL override (sandbox endpoints, test servers).
type AccountConfig struct {
	Auth     domain.ConnectorAuthType
	Metadata map[string]string
	BaseURL  string
}

// ConnectorData binds a resolved adapter to the merchant connector account
// it was built for. Created per request, never persisted.
type ConnectorData struct {
	Name                string
	Adapter             *Adapter
	MerchantConnectorID string
}

// Registry resolves connector names to adapters. Contents are fixed at
// process start; lookups are read-only and safe for concurrent use.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry assembles a registry from per-connector factories.
func NewRegistry(factories ...Factory) *Registry {
	entries := make(map[string]Factory, len(factories))
	for _, f := range factories {
		entries[f.Descriptor().Name] = f
	}
	return &Registry{factories: entries}
}

// Names lists the registered connector names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

// GetConnectorByName resolves a connector and validates the merchant
// credential against its descriptor. Unregistered names fail with
// ConnectorNotFound.
func (r *Registry) GetConnectorByName(name string, account AccountConfig, merchantConnectorID string) (ConnectorData, error) {
	factory, ok := r.factories[name]
	if !ok {
		return ConnectorData{}, domain.NewConnectorError(domain.ErrConnectorNotFound, name)
	}

	desc := factory.Descriptor()
	if account.BaseURL != "" {
		desc.BaseURL = account.BaseURL
	}
	if desc.BaseURL == "" {
		return ConnectorData{}, domain.NewConnectorError(domain.ErrInvalidConnectorConfig,
			fmt.Sprintf("connector %s has no base URL configured", name))
	}

	adapter, err := NewAdapter(desc, factory.NewStrategy(), account.Auth, account.Metadata)
	if err != nil {
		return ConnectorData{}, err
	}
	return ConnectorData{
		Name:                name,
		Adapter:             adapter,
		MerchantConnectorID: merchantConnectorID,
	}, nil
}
