// Package gateway executes one connector flow invocation over one of
// three paths: Direct HTTP to the connector, delegation to the unified
// connector service, or Direct with a shadow UCS dispatch. Path choice is
// transparent to the orchestrator: every path yields the same RouterData
// shape.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/yourorg/payment-router/internal/connector"
	"github.com/yourorg/payment-router/internal/domain"
)

// Config carries the gateway's runtime knobs.
type Config struct {
	// RequestTimeout bounds each outbound connector call.
	RequestTimeout time.Duration
	UCS            UCSConfig
}

// Gateway is the execution gateway of the routing core.
type Gateway struct {
	cfg       Config
	transport Transport
	breaker   *CircuitBreaker
	ucs       *UCSClient
	metrics   *Metrics
	logger    *zap.Logger
}

// New assembles a gateway. The UCS client is only built when the config
// names an endpoint.
func New(cfg Config, transport Transport, breaker *CircuitBreaker, metrics *Metrics, logger *zap.Logger) *Gateway {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	g := &Gateway{
		cfg:       cfg,
		transport: transport,
		breaker:   breaker,
		metrics:   metrics,
		logger:    logger,
	}
	if cfg.UCS.URL != "" {
		g.ucs = NewUCSClient(cfg.UCS.URL, transport, cfg.RequestTimeout)
	}
	return g
}

// Execute runs rd's flow against the resolved connector. ConnectorError
// values from request building propagate to the orchestrator, which
// converts them into a failed attempt; transport timeouts come back as a
// normal 504 error response on the RouterData.
func (g *Gateway) Execute(ctx context.Context, cd connector.ConnectorData, rd domain.RouterData) (domain.RouterData, error) {
	tracer := otel.Tracer("gateway")
	ctx, span := tracer.Start(ctx, "Gateway.Execute")
	defer span.End()

	path := DetermineExecutionPath(g.cfg.UCS, rd.MerchantID, cd.MerchantConnectorID)
	span.SetAttributes(
		attribute.String("connector", cd.Name),
		attribute.String("flow", string(rd.FlowType)),
		attribute.String("execution_path", string(path)),
	)

	switch path {
	case PathUnifiedConnectorService:
		out, err := g.executeUCS(ctx, rd)
		g.observe(cd.Name, rd.FlowType, path, out, err)
		return out, err
	case PathShadowUnifiedConnectorService:
		out, err := g.executeDirect(ctx, cd, rd)
		g.dispatchShadow(ctx, cd.Name, rd, out, err)
		g.observe(cd.Name, rd.FlowType, path, out, err)
		return out, err
	default:
		out, err := g.executeDirect(ctx, cd, rd)
		g.observe(cd.Name, rd.FlowType, path, out, err)
		return out, err
	}
}

func (g *Gateway) executeDirect(ctx context.Context, cd connector.ConnectorData, rd domain.RouterData) (domain.RouterData, error) {
	if !g.breaker.IsHealthy(cd.Name) {
		g.metrics.CircuitRejected.WithLabelValues(cd.Name).Inc()
		patch := domain.ResponsePatch{
			Response: domain.ResultOf(domain.ErrResult(domain.ErrorResponse{
				StatusCode: http.StatusServiceUnavailable,
				Code:       "connector_circuit_open",
				Message:    fmt.Sprintf("circuit open for connector %s", cd.Name),
			})),
		}
		return patch.Apply(rd), nil
	}

	wireReq, err := cd.Adapter.BuildRequest(&rd)
	if err != nil {
		return rd, err
	}
	if wireReq == nil {
		// The flow is a no-op for this connector.
		return rd, nil
	}

	start := time.Now()
	resp, err := g.transport.Send(ctx, Request{
		Method:  wireReq.Method,
		URL:     wireReq.URL,
		Headers: wireReq.Headers,
		Body:    wireReq.Body,
		Timeout: g.cfg.RequestTimeout,
	})
	latencyMs := time.Since(start).Milliseconds()

	if err != nil {
		g.breaker.RecordFailure(cd.Name)
		if domain.IsTransportTimeout(err) {
			// A timeout is a normal error outcome, not a server fault. The
			// attempt moves to pending so it stays recoverable via sync.
			patch := domain.ResponsePatch{
				Status:    domain.StatusOf(domain.AttemptPending),
				LatencyMs: latencyMs,
				Response: domain.ResultOf(domain.ErrResult(domain.ErrorResponse{
					StatusCode:    http.StatusGatewayTimeout,
					Code:          domain.CodeRequestTimeout,
					Message:       "connector call timed out",
					AttemptStatus: domain.StatusOf(domain.AttemptPending),
				})),
			}
			return patch.Apply(rd), nil
		}
		return rd, fmt.Errorf("gateway: direct call to %s failed: %w", cd.Name, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		patch, err := cd.Adapter.HandleResponse(&rd, resp.StatusCode, resp.Body)
		if err != nil {
			g.breaker.RecordFailure(cd.Name)
			return rd, err
		}
		g.breaker.RecordSuccess(cd.Name)
		patch.LatencyMs = latencyMs
		return patch.Apply(rd), nil

	case resp.StatusCode >= 500:
		g.breaker.RecordFailure(cd.Name)
		er := connector.Get5xxErrorResponse(resp.StatusCode, resp.Body)
		patch := domain.ResponsePatch{
			HTTPCode:  resp.StatusCode,
			LatencyMs: latencyMs,
			Response:  domain.ResultOf(domain.ErrResult(er)),
		}
		return patch.Apply(rd), nil

	default:
		// A 4xx is a structured decline; the connector itself is healthy.
		g.breaker.RecordSuccess(cd.Name)
		er, err := cd.Adapter.GetErrorResponse(resp.StatusCode, resp.Body)
		if err != nil {
			return rd, err
		}
		patch := domain.ResponsePatch{
			HTTPCode:  resp.StatusCode,
			LatencyMs: latencyMs,
			Response:  domain.ResultOf(domain.ErrResult(er)),
		}
		if er.AttemptStatus != nil {
			patch.Status = er.AttemptStatus
		}
		return patch.Apply(rd), nil
	}
}

func (g *Gateway) executeUCS(ctx context.Context, rd domain.RouterData) (domain.RouterData, error) {
	if g.ucs == nil {
		return rd, fmt.Errorf("gateway: ucs path selected but no ucs endpoint configured")
	}
	out, err := g.ucs.Execute(ctx, rd)
	if err != nil {
		if domain.IsTransportTimeout(err) {
			patch := domain.ResponsePatch{
				Status: domain.StatusOf(domain.AttemptPending),
				Response: domain.ResultOf(domain.ErrResult(domain.ErrorResponse{
					StatusCode:    http.StatusGatewayTimeout,
					Code:          domain.CodeRequestTimeout,
					Message:       "unified connector service call timed out",
					AttemptStatus: domain.StatusOf(domain.AttemptPending),
				})),
			}
			return patch.Apply(rd), nil
		}
		return rd, fmt.Errorf("gateway: ucs call failed: %w", err)
	}
	return out, nil
}

// dispatchShadow fires the UCS call without affecting the returned result.
// Only a comparison counter records the outcome; acting on mismatches is a
// future extension.
func (g *Gateway) dispatchShadow(ctx context.Context, connectorName string, rd, directOut domain.RouterData, directErr error) {
	if g.ucs == nil {
		return
	}
	shadowCtx := context.WithoutCancel(ctx)
	go func() {
		ucsOut, err := g.ucs.Execute(shadowCtx, rd)
		switch {
		case err != nil:
			g.metrics.ShadowOutcomes.WithLabelValues(connectorName, "error").Inc()
			g.logger.Debug("shadow ucs dispatch failed",
				zap.String("connector", connectorName), zap.Error(err))
		case directErr == nil &&
			ucsOut.Status == directOut.Status &&
			ucsOut.Response.IsErr() == directOut.Response.IsErr():
			g.metrics.ShadowOutcomes.WithLabelValues(connectorName, "match").Inc()
		default:
			g.metrics.ShadowOutcomes.WithLabelValues(connectorName, "mismatch").Inc()
			g.logger.Info("shadow ucs result diverged from direct",
				zap.String("connector", connectorName),
				zap.String("direct_status", string(directOut.Status)),
				zap.String("ucs_status", string(ucsOut.Status)))
		}
	}()
}

func (g *Gateway) observe(connectorName string, flow domain.Flow, path ExecutionPath, out domain.RouterData, err error) {
	outcome := "success"
	switch {
	case err != nil:
		outcome = "error"
	case out.Response.IsErr():
		outcome = "declined"
	}
	g.metrics.CallsTotal.WithLabelValues(connectorName, string(flow), string(path), outcome).Inc()
	if out.LatencyMs > 0 {
		g.metrics.CallLatency.WithLabelValues(connectorName, string(flow)).Observe(float64(out.LatencyMs) / 1000)
	}
}
