package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDemoScenarios runs the shipped scenarios end to end and pins their
// traces with golden files.
func TestDemoScenarios(t *testing.T) {
	tests := []struct {
		name         string
		scenarioPath string
	}{
		{name: "first_reminder", scenarioPath: "../../testdata/scenarios/first_reminder.yaml"},
		{name: "escalation", scenarioPath: "../../testdata/scenarios/escalation.yaml"},
		{name: "follow_up", scenarioPath: "../../testdata/scenarios/follow_up.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scenario, err := LoadScenario(tt.scenarioPath)
			require.NoError(t, err, "failed to load scenario from %s", tt.scenarioPath)

			assert.Equal(t, tt.name, scenario.Name, "scenario name mismatch")
			assert.NotEmpty(t, scenario.Description)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "scenario failed: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}
