package health

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngineStatus struct {
	breakerOpen bool
	tick        int
}

func (f fakeEngineStatus) BreakerOpen() bool { return f.breakerOpen }
func (f fakeEngineStatus) CurrentTick() int  { return f.tick }

func TestEngineCheckerReportsBreakerState(t *testing.T) {
	tests := []struct {
		name   string
		status fakeEngineStatus
		want   Status
	}{
		{"breaker closed", fakeEngineStatus{breakerOpen: false, tick: 12}, StatusHealthy},
		{"breaker open", fakeEngineStatus{breakerOpen: true, tick: 12}, StatusDegraded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewEngineChecker(tt.status)
			result := checker.Check(context.Background())
			assert.Equal(t, "engine", result.Name)
			assert.Equal(t, tt.want, result.Status)
			assert.Equal(t, tt.status.tick, result.Details["tick"])
		})
	}
}

func TestReadinessCheckerAggregatesDependencies(t *testing.T) {
	healthy := NewEngineChecker(fakeEngineStatus{breakerOpen: false})
	degraded := NewEngineChecker(fakeEngineStatus{breakerOpen: true})

	rc := NewReadinessChecker(healthy)
	result := rc.Check(context.Background())
	assert.Equal(t, StatusHealthy, result.Status)

	// Readiness treats a degraded dependency as still ready; only an
	// unhealthy dependency fails readiness.
	rc = NewReadinessChecker(degraded)
	result = rc.Check(context.Background())
	assert.Equal(t, StatusHealthy, result.Status)
}

func TestHealthServiceRegisterAndCheck(t *testing.T) {
	hs := NewHealthService()
	hs.Register(NewLivenessChecker())
	hs.Register(NewEngineChecker(fakeEngineStatus{breakerOpen: true}))

	result, err := hs.Check(context.Background(), "engine")
	require.NoError(t, err)
	assert.Equal(t, StatusDegraded, result.Status)

	_, err = hs.Check(context.Background(), "nonexistent")
	assert.Error(t, err)

	status, results := hs.GetOverallStatus(context.Background())
	assert.Equal(t, StatusDegraded, status)
	assert.Len(t, results, 2)
}

func TestHealthServiceOverallStatusIsUnhealthyIfAnyDependencyIs(t *testing.T) {
	hs := NewHealthService()
	hs.Register(NewLivenessChecker())
	hs.Register(NewReadinessChecker(NewEngineChecker(fakeEngineStatus{breakerOpen: false})))
	hs.Register(unhealthyChecker{})

	status, _ := hs.GetOverallStatus(context.Background())
	assert.Equal(t, StatusUnhealthy, status)
}

// unhealthyChecker is a minimal HealthChecker fixture that always reports
// unhealthy, to exercise GetOverallStatus's escalation.
type unhealthyChecker struct{}

func (unhealthyChecker) Name() string { return "always_unhealthy" }
func (unhealthyChecker) Check(ctx context.Context) CheckResult {
	return CheckResult{Name: "always_unhealthy", Status: StatusUnhealthy, Message: "forced failure"}
}

func TestSystemResourceCheckerReportsDetails(t *testing.T) {
	checker := NewSystemResourceChecker(0, 0) // non-positive falls back to defaults
	result := checker.Check(context.Background())
	assert.Equal(t, "system_resources", result.Name)
	assert.Contains(t, result.Details, "memory_alloc_bytes")
	assert.Contains(t, result.Details, "goroutines")
	assert.Equal(t, 85.0, checker.MemoryThresholdPercent)
	assert.Equal(t, 1000, checker.GoroutineThreshold)
}
