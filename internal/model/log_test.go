package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionResultKey(t *testing.T) {
	assert.Equal(t, "action_0_send_email", ActionResultKey(0, "send_email"))
	assert.Equal(t, "action_12_generate_voucher", ActionResultKey(12, "generate_voucher"))
}

func TestActionResults_MarshalKeepsPipelineOrder(t *testing.T) {
	results := ActionResults{
		{Key: ActionResultKey(10, "add_customer_tag"), Status: StatusSuccess},
		{Key: ActionResultKey(2, "send_email"), Status: StatusError, Error: "smtp down"},
	}

	data, err := json.Marshal(results)
	require.NoError(t, err)
	assert.Equal(t,
		`{"action_10_add_customer_tag":{"status":"success"},"action_2_send_email":{"status":"error","error":"smtp down"}}`,
		string(data))
}

func TestActionResults_UnmarshalPreservesOrder(t *testing.T) {
	data := []byte(`{"action_1_b":{"status":"success"},"action_0_a":{"status":"error","error":"boom"}}`)

	var results ActionResults
	require.NoError(t, json.Unmarshal(data, &results))
	require.Len(t, results, 2)
	assert.Equal(t, "action_1_b", results[0].Key)
	assert.Equal(t, "action_0_a", results[1].Key)
	assert.Equal(t, "boom", results[1].Error)
	assert.Equal(t, 1, results.Failed())

	got, ok := results.Get("action_0_a")
	assert.True(t, ok)
	assert.Equal(t, StatusError, got.Status)
}

func TestActionResults_EmptyAndNull(t *testing.T) {
	data, err := json.Marshal(ActionResults{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))

	var results ActionResults
	require.NoError(t, json.Unmarshal([]byte(`null`), &results))
	assert.Nil(t, results)

	assert.Error(t, json.Unmarshal([]byte(`[1]`), &results))
}

func TestExecutionLogJSON(t *testing.T) {
	log := ExecutionLog{
		ID:     "log-1",
		RuleID: "rule-1",
		CartID: "cart-1",
		Status: StatusSuccess,
		ActionResults: ActionResults{
			{Key: "action_0_send_email", Status: StatusSuccess},
		},
	}
	data, err := json.Marshal(log)
	require.NoError(t, err)

	var back ExecutionLog
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, log.ActionResults, back.ActionResults)
	assert.Equal(t, "rule-1", back.RuleID)
}
