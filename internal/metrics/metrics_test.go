package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Handler(t *testing.T) {
	m := New()

	m.ChatTurnsTotal.WithLabelValues("ok").Inc()
	m.ToolExecutionsTotal.WithLabelValues("fetch_expenses", "ok").Inc()
	m.PendingActionsStaged.Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "chat_turns_total")
	assert.Contains(t, body, "tool_executions_total")
	assert.Contains(t, body, "pending_actions_staged_total")
}
