package domain

import (
	"errors"
	"fmt"
)

// ConnectorErrorKind enumerates the locally recoverable failures an
// adapter or transformation can raise. The orchestrator decides whether a
// kind surfaces as a failed payment or a server fault.
type ConnectorErrorKind string

const (
	ErrNotImplemented                  ConnectorErrorKind = "not_implemented"
	ErrFailedToObtainAuthType          ConnectorErrorKind = "failed_to_obtain_auth_type"
	ErrRequestEncodingFailed           ConnectorErrorKind = "request_encoding_failed"
	ErrResponseDeserializationFailed   ConnectorErrorKind = "response_deserialization_failed"
	ErrResponseHandlingFailed          ConnectorErrorKind = "response_handling_failed"
	ErrNoConnectorMetaData             ConnectorErrorKind = "no_connector_meta_data"
	ErrInvalidConnectorConfig          ConnectorErrorKind = "invalid_connector_config"
	ErrWebhooksNotImplemented          ConnectorErrorKind = "webhooks_not_implemented"
	ErrWebhookSourceVerificationFailed ConnectorErrorKind = "webhook_source_verification_failed"
	ErrConnectorNotFound               ConnectorErrorKind = "connector_not_found"
	ErrMissingRequiredField            ConnectorErrorKind = "missing_required_field"
)

// ConnectorError is the error type of the transformation layer and the
// connector adapters.
type ConnectorError struct {
	Kind    ConnectorErrorKind
	Subject string // what was not implemented / which config field is bad
	Err     error
}

func (e *ConnectorError) Error() string {
	switch {
	case e.Subject != "" && e.Err != nil:
		return fmt.Sprintf("connector error %s (%s): %v", e.Kind, e.Subject, e.Err)
	case e.Subject != "":
		return fmt.Sprintf("connector error %s (%s)", e.Kind, e.Subject)
	case e.Err != nil:
		return fmt.Sprintf("connector error %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("connector error %s", e.Kind)
	}
}

func (e *ConnectorError) Unwrap() error { return e.Err }

// NewConnectorError builds a ConnectorError for the given kind.
func NewConnectorError(kind ConnectorErrorKind, subject string) *ConnectorError {
	return &ConnectorError{Kind: kind, Subject: subject}
}

// WrapConnectorError attaches a cause to a ConnectorError.
func WrapConnectorError(kind ConnectorErrorKind, subject string, cause error) *ConnectorError {
	return &ConnectorError{Kind: kind, Subject: subject, Err: cause}
}

// NotImplemented is the expected, first-class rejection for payment
// methods or flows a connector does not support.
func NotImplemented(subject string) *ConnectorError {
	return &ConnectorError{Kind: ErrNotImplemented, Subject: subject}
}

// ConnectorErrorKindOf extracts the kind from an error chain, or "".
func ConnectorErrorKindOf(err error) ConnectorErrorKind {
	var ce *ConnectorError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// IsConnectorError reports whether err carries the given kind.
func IsConnectorError(err error, kind ConnectorErrorKind) bool {
	return ConnectorErrorKindOf(err) == kind
}

// Storage sentinels, surfaced by the persistence gateway. The core treats
// ErrNoFieldsToUpdate as a no-op success and ErrTrackerNotFound as a hard
// failure.
var (
	ErrTrackerNotFound     = errors.New("tracker not found")
	ErrNoFieldsToUpdate    = errors.New("no fields to update")
	ErrDuplicateValue      = errors.New("duplicate value")
	ErrDatabaseConnection  = errors.New("database connection error")
	ErrSerializationFailed = errors.New("serialization failed")
)

// TransportError is raised by the execution gateway's transport. Timeouts
// are downgraded to a typed ErrorResponse; everything else propagates as a
// server fault.
type TransportError struct {
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("transport timeout: %v", e.Err)
	}
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransportTimeout reports whether err is a transport-level timeout.
func IsTransportTimeout(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Timeout
}
