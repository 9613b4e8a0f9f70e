package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetermineExecutionPath(t *testing.T) {
	t.Run("disabled falls back to direct", func(t *testing.T) {
		cfg := UCSConfig{Enabled: false, URL: "http://ucs.internal", RolloutPercent: 100}
		assert.Equal(t, PathDirect, DetermineExecutionPath(cfg, "m1", "mca_1"))
	})

	t.Run("enabled without url falls back to direct", func(t *testing.T) {
		cfg := UCSConfig{Enabled: true, RolloutPercent: 100}
		assert.Equal(t, PathDirect, DetermineExecutionPath(cfg, "m1", "mca_1"))
	})

	t.Run("allowlisted merchant wins over rollout", func(t *testing.T) {
		cfg := UCSConfig{
			Enabled:           true,
			URL:               "http://ucs.internal",
			RolloutPercent:    0,
			MerchantAllowlist: []string{"m_other", "m1"},
		}
		assert.Equal(t, PathUnifiedConnectorService, DetermineExecutionPath(cfg, "m1", "mca_1"))
		assert.Equal(t, PathDirect, DetermineExecutionPath(cfg, "m2", "mca_1"))
	})

	t.Run("full rollout routes everything to ucs", func(t *testing.T) {
		cfg := UCSConfig{Enabled: true, URL: "http://ucs.internal", RolloutPercent: 100}
		for _, id := range []string{"mca_1", "mca_2", "mca_3"} {
			assert.Equal(t, PathUnifiedConnectorService, DetermineExecutionPath(cfg, "m1", id))
		}
	})

	t.Run("rollout bucketing is deterministic", func(t *testing.T) {
		cfg := UCSConfig{Enabled: true, URL: "http://ucs.internal", RolloutPercent: 50}
		first := DetermineExecutionPath(cfg, "m1", "mca_1")
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, DetermineExecutionPath(cfg, "m1", "mca_1"))
		}
	})

	t.Run("shadow applies to traffic outside the rollout", func(t *testing.T) {
		cfg := UCSConfig{Enabled: true, URL: "http://ucs.internal", ShadowEnabled: true}
		assert.Equal(t, PathShadowUnifiedConnectorService, DetermineExecutionPath(cfg, "m1", "mca_1"))
	})

	t.Run("without shadow the remainder stays direct", func(t *testing.T) {
		cfg := UCSConfig{Enabled: true, URL: "http://ucs.internal"}
		assert.Equal(t, PathDirect, DetermineExecutionPath(cfg, "m1", "mca_1"))
	})
}

func TestRolloutBucketStable(t *testing.T) {
	b := rolloutBucket("mca_1")
	assert.GreaterOrEqual(t, b, 0)
	assert.Less(t, b, 100)
	assert.Equal(t, b, rolloutBucket("mca_1"))
}
