package domain

// AuthShape discriminates the ConnectorAuthType union. Each connector
// descriptor declares exactly one required shape; the registry rejects
// merchant credentials that do not match it.
type AuthShape string

const (
	AuthHeaderKey    AuthShape = "header_key"
	AuthBodyKey      AuthShape = "body_key"
	AuthSignatureKey AuthShape = "signature_key"
	AuthNoKey        AuthShape = "no_key"
)

// ConnectorAuthType is the shape of merchant-supplied connector
// credentials, immutable once loaded from the merchant connector account.
type ConnectorAuthType struct {
	Shape AuthShape

	// APIKey is set for HeaderKey, BodyKey and SignatureKey.
	APIKey Secret
	// Key1 is the secondary key for BodyKey and SignatureKey.
	Key1 Secret
	// APISecret is the signing secret for SignatureKey.
	APISecret Secret
}

// HeaderKeyAuth builds a HeaderKey credential.
func HeaderKeyAuth(apiKey string) ConnectorAuthType {
	return ConnectorAuthType{Shape: AuthHeaderKey, APIKey: NewSecret(apiKey)}
}

// BodyKeyAuth builds a BodyKey credential.
func BodyKeyAuth(apiKey, key1 string) ConnectorAuthType {
	return ConnectorAuthType{Shape: AuthBodyKey, APIKey: NewSecret(apiKey), Key1: NewSecret(key1)}
}

// SignatureKeyAuth builds a SignatureKey credential.
func SignatureKeyAuth(apiKey, key1, apiSecret string) ConnectorAuthType {
	return ConnectorAuthType{
		Shape:     AuthSignatureKey,
		APIKey:    NewSecret(apiKey),
		Key1:      NewSecret(key1),
		APISecret: NewSecret(apiSecret),
	}
}

// NoKeyAuth builds the credential for connectors that take none.
func NoKeyAuth() ConnectorAuthType {
	return ConnectorAuthType{Shape: AuthNoKey}
}
