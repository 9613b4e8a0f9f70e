package gateway

import "hash/fnv"

// ExecutionPath selects how a flow invocation reaches the processor.
type ExecutionPath string

const (
	// PathDirect calls the resolved connector adapter over HTTP.
	PathDirect ExecutionPath = "direct"
	// PathUnifiedConnectorService delegates the whole flow to the UCS RPC.
	PathUnifiedConnectorService ExecutionPath = "unified_connector_service"
	// PathShadowUnifiedConnectorService executes Direct and additionally
	// dispatches the UCS call for comparison; Direct's result is returned.
	PathShadowUnifiedConnectorService ExecutionPath = "shadow_unified_connector_service"
)

// UCSConfig is the merchant-level rollout configuration consulted by
// DetermineExecutionPath.
type UCSConfig struct {
	Enabled bool
	URL     string
	// RolloutPercent moves 0..100 percent of merchant connector accounts
	// onto the UCS path, bucketed by a stable hash.
	RolloutPercent int
	// MerchantAllowlist forces listed merchants onto UCS regardless of
	// the rollout percentage.
	MerchantAllowlist []string
	// ShadowEnabled dispatches UCS in shadow for traffic not on the UCS
	// path.
	ShadowEnabled bool
}

// DetermineExecutionPath is the single seam where the Direct/UCS routing
// policy is injected. Pure: the decision is made once per flow invocation,
// before any network call, and depends only on configuration and the
// merchant connector identity.
func DetermineExecutionPath(cfg UCSConfig, merchantID, merchantConnectorID string) ExecutionPath {
	if !cfg.Enabled || cfg.URL == "" {
		return PathDirect
	}
	for _, m := range cfg.MerchantAllowlist {
		if m == merchantID {
			return PathUnifiedConnectorService
		}
	}
	if cfg.RolloutPercent > 0 && rolloutBucket(merchantConnectorID) < cfg.RolloutPercent {
		return PathUnifiedConnectorService
	}
	if cfg.ShadowEnabled {
		return PathShadowUnifiedConnectorService
	}
	return PathDirect
}

// rolloutBucket maps an id onto a stable 0..99 bucket.
func rolloutBucket(id string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return int(h.Sum32() % 100)
}
