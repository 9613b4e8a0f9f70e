package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker()

	for i := 0; i < defaultFailureThreshold-1; i++ {
		cb.RecordFailure("checkly")
		assert.True(t, cb.IsHealthy("checkly"))
	}
	cb.RecordFailure("checkly")

	assert.Equal(t, BreakerOpen, cb.State("checkly"))
	assert.False(t, cb.IsHealthy("checkly"))
}

func TestBreakerIsPerConnector(t *testing.T) {
	cb := NewCircuitBreakerWithSettings(1, time.Minute, 1)
	cb.RecordFailure("checkly")

	assert.False(t, cb.IsHealthy("checkly"))
	assert.True(t, cb.IsHealthy("voltbank"))
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreakerWithSettings(3, time.Minute, 1)

	cb.RecordFailure("checkly")
	cb.RecordFailure("checkly")
	cb.RecordSuccess("checkly")
	cb.RecordFailure("checkly")
	cb.RecordFailure("checkly")

	assert.True(t, cb.IsHealthy("checkly"))
}

func TestBreakerHalfOpenTransitions(t *testing.T) {
	cb := NewCircuitBreakerWithSettings(1, 10*time.Millisecond, 2)

	cb.RecordFailure("checkly")
	assert.False(t, cb.IsHealthy("checkly"))

	time.Sleep(20 * time.Millisecond)

	// The expired window moves the circuit to half-open and admits probes.
	assert.True(t, cb.IsHealthy("checkly"))
	assert.Equal(t, BreakerHalfOpen, cb.State("checkly"))

	t.Run("probe failure reopens", func(t *testing.T) {
		cb.RecordFailure("checkly")
		assert.Equal(t, BreakerOpen, cb.State("checkly"))
		assert.False(t, cb.IsHealthy("checkly"))
	})
}

func TestBreakerClosesAfterHalfOpenSuccesses(t *testing.T) {
	cb := NewCircuitBreakerWithSettings(1, 10*time.Millisecond, 2)

	cb.RecordFailure("voltbank")
	time.Sleep(20 * time.Millisecond)
	assert.True(t, cb.IsHealthy("voltbank"))

	cb.RecordSuccess("voltbank")
	assert.Equal(t, BreakerHalfOpen, cb.State("voltbank"))

	cb.RecordSuccess("voltbank")
	assert.Equal(t, BreakerClosed, cb.State("voltbank"))
	assert.True(t, cb.IsHealthy("voltbank"))
}
