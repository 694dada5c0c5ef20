package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cartrecovery/internal/model"
)

func successLog(id, cartID string, at time.Time) model.ExecutionLog {
	return model.ExecutionLog{
		ID:         id,
		RuleID:     "rule-1",
		CartID:     cartID,
		CustomerID: "cust-1",
		Status:     model.StatusSuccess,
		ActionResults: model.ActionResults{
			{Key: "action_0_send_email", Status: model.StatusSuccess},
			{Key: "action_1_add_customer_tag", Status: model.StatusError, Error: "store unavailable"},
		},
		CreatedAt: at,
	}
}

func TestRecordExecution_AdvancesCounters(t *testing.T) {
	s := createTestStore(t)
	seedBasics(t, s)
	ctx := context.Background()
	require.NoError(t, s.InsertCart(ctx, createTestCart("cart-1", "cust-1", "sc-1", "10", baseTime)))

	first := baseTime.Add(time.Hour)
	require.NoError(t, s.RecordExecution(ctx, successLog("log-1", "cart-1", first)))

	cart, err := s.GetCart(ctx, "cart-1")
	require.NoError(t, err)
	assert.Equal(t, 1, cart.AutomationCount)
	require.NotNil(t, cart.LastAutomationAt)
	assert.Equal(t, first, *cart.LastAutomationAt)

	second := first.Add(time.Hour)
	require.NoError(t, s.RecordExecution(ctx, successLog("log-2", "cart-1", second)))
	cart, err = s.GetCart(ctx, "cart-1")
	require.NoError(t, err)
	assert.Equal(t, 2, cart.AutomationCount)
	assert.Equal(t, second, *cart.LastAutomationAt)
}

func TestRecordExecution_MissingCartWritesNothing(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.RecordExecution(ctx, successLog("log-1", "ghost", baseTime))
	require.Error(t, err)

	logs, err := s.ListLogs(ctx, LogFilter{})
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestRecordExecution_DuplicateLogRollsBackCounters(t *testing.T) {
	s := createTestStore(t)
	seedBasics(t, s)
	ctx := context.Background()
	require.NoError(t, s.InsertCart(ctx, createTestCart("cart-1", "cust-1", "sc-1", "10", baseTime)))

	require.NoError(t, s.RecordExecution(ctx, successLog("log-1", "cart-1", baseTime)))
	require.Error(t, s.RecordExecution(ctx, successLog("log-1", "cart-1", baseTime.Add(time.Hour))))

	cart, err := s.GetCart(ctx, "cart-1")
	require.NoError(t, err)
	assert.Equal(t, 1, cart.AutomationCount)
	assert.Equal(t, baseTime, *cart.LastAutomationAt)
}

func TestInsertLog_LeavesCountersAlone(t *testing.T) {
	s := createTestStore(t)
	seedBasics(t, s)
	ctx := context.Background()
	require.NoError(t, s.InsertCart(ctx, createTestCart("cart-1", "cust-1", "sc-1", "10", baseTime)))

	require.NoError(t, s.InsertLog(ctx, model.ExecutionLog{
		ID: "log-err", RuleID: "rule-1", CartID: "cart-1", CustomerID: "cust-1",
		Status: model.StatusError, Error: "disk I/O error", CreatedAt: baseTime,
	}))

	cart, err := s.GetCart(ctx, "cart-1")
	require.NoError(t, err)
	assert.Zero(t, cart.AutomationCount)
	assert.Nil(t, cart.LastAutomationAt)
}

func TestListLogs_OrderFilterAndResults(t *testing.T) {
	s := createTestStore(t)
	seedBasics(t, s)
	ctx := context.Background()
	require.NoError(t, s.InsertCart(ctx, createTestCart("cart-1", "cust-1", "sc-1", "10", baseTime)))
	require.NoError(t, s.InsertCart(ctx, createTestCart("cart-2", "cust-1", "sc-1", "10", baseTime)))

	require.NoError(t, s.RecordExecution(ctx, successLog("log-1", "cart-1", baseTime)))
	require.NoError(t, s.RecordExecution(ctx, successLog("log-2", "cart-2", baseTime.Add(time.Minute))))
	require.NoError(t, s.InsertLog(ctx, model.ExecutionLog{
		ID: "log-3", RuleID: "rule-2", CartID: "cart-1", Status: model.StatusError, Error: "boom", CreatedAt: baseTime.Add(2 * time.Minute),
	}))

	logs, err := s.ListLogs(ctx, LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, []string{"log-3", "log-2", "log-1"}, []string{logs[0].ID, logs[1].ID, logs[2].ID})
	assert.Equal(t, "boom", logs[0].Error)
	assert.Empty(t, logs[0].ActionResults)

	res := logs[2].ActionResults
	require.Len(t, res, 2)
	assert.Equal(t, "action_0_send_email", res[0].Key)
	failed, ok := res.Get("action_1_add_customer_tag")
	require.True(t, ok)
	assert.Equal(t, "store unavailable", failed.Error)

	logs, err = s.ListLogs(ctx, LogFilter{CartID: "cart-1", Status: model.StatusSuccess})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "log-1", logs[0].ID)

	logs, err = s.ListLogs(ctx, LogFilter{RuleID: "rule-1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "log-2", logs[0].ID)
}
