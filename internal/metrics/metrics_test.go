package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("test_endpoint")
		IncRegistration("walk_in")
		IncStatusChange("in-service")
		IncPositionRecompute()
		IncSweepCycle()
		IncSweepExpired()
		SetQueueLength("barber-1", 3)
	})
}
