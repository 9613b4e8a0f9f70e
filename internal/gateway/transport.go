package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yourorg/payment-router/internal/domain"
)

// Request is the transport-level outbound request.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
	Timeout time.Duration
}

// Response is the raw transport-level response.
type Response struct {
	StatusCode int
	Body       []byte
}

// Transport sends a wire request to a connector or to the unified
// connector service. Implementations must surface timeouts as
// *domain.TransportError with Timeout set.
type Transport interface {
	Send(ctx context.Context, req Request) (Response, error)
}

// HTTPTransport is the production Transport over net/http.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport wraps an http.Client; a nil client gets a default.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPTransport{client: client}
}

// Send performs the HTTP call with the per-request timeout applied through
// the context.
func (t *HTTPTransport) Send(ctx context.Context, req Request) (Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bodyReader)
	if err != nil {
		return Response{}, &domain.TransportError{Err: fmt.Errorf("build request: %w", err)}
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return Response{}, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, &domain.TransportError{Err: fmt.Errorf("read response body: %w", err)}
	}
	return Response{StatusCode: resp.StatusCode, Body: body}, nil
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.TransportError{Timeout: true, Err: err}
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &domain.TransportError{Timeout: true, Err: err}
	}
	return &domain.TransportError{Err: err}
}
