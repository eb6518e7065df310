package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamzah/kharcha/pkg/expense"
)

func TestDeleteTool_MissingParams(t *testing.T) {
	env := setupToolEnv(t)

	result := env.exec(1, "delete_record", nil)
	require.True(t, result.Success)
	assert.Equal(t, msgDeleteParams, result.Output)

	// Missing owner identity is the caller's bug but still a parameter error.
	result = env.exec(0, "delete_record", map[string]interface{}{"record_id": 1})
	require.True(t, result.Success)
	assert.Equal(t, msgDeleteParams, result.Output)
}

func TestDeleteTool_NotFound(t *testing.T) {
	env := setupToolEnv(t)

	result := env.exec(1, "delete_record", map[string]interface{}{"record_id": 404, "confirmation": true})
	require.True(t, result.Success)
	assert.Equal(t, msgNotFound(404), result.Output)
}

func TestDeleteTool_CrossOwnerNotFound(t *testing.T) {
	env := setupToolEnv(t)
	id := env.seed(t, 2, "Travel", 1200, "2025-11-03")

	result := env.exec(1, "delete_record", map[string]interface{}{"record_id": id, "confirmation": true})
	require.True(t, result.Success)
	assert.Equal(t, msgNotFound(id), result.Output)

	_, err := env.expenses.Get(context.Background(), 2, id)
	assert.NoError(t, err)
}

func TestDeleteTool_UnconfirmedNeverMutates(t *testing.T) {
	env := setupToolEnv(t)
	id := env.seed(t, 1, "Food", 500, "2025-11-01")

	for _, params := range []map[string]interface{}{
		{"record_id": id},
		{"record_id": id, "confirmation": false},
	} {
		result := env.exec(1, "delete_record", params)
		require.True(t, result.Success)
		assert.Equal(t, msgConfirmDelete, result.Output)
	}

	_, err := env.expenses.Get(context.Background(), 1, id)
	assert.NoError(t, err)
}

func TestDeleteTool_ConfirmedDeletesExactlyOnce(t *testing.T) {
	env := setupToolEnv(t)
	id := env.seed(t, 1, "Food", 500, "2025-11-01")

	// First confirmed call deletes.
	result := env.exec(1, "delete_record", map[string]interface{}{"record_id": id, "confirmation": true})
	require.True(t, result.Success)
	assert.Equal(t, msgDeleted, result.Output)

	_, err := env.expenses.Get(context.Background(), 1, id)
	assert.ErrorIs(t, err, expense.ErrNotFound)

	// Second confirmed call on the same id reports not found.
	result = env.exec(1, "delete_record", map[string]interface{}{"record_id": id, "confirmation": true})
	require.True(t, result.Success)
	assert.Equal(t, msgNotFound(id), result.Output)
}

func TestDeleteTool_FullConfirmationFlow(t *testing.T) {
	env := setupToolEnv(t)
	id := env.seed(t, 1, "Food", 500, "2025-11-01")

	result := env.exec(1, "delete_record", map[string]interface{}{"record_id": id})
	require.Equal(t, msgConfirmDelete, result.Output)

	staged, err := env.proposals.Get(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, staged)
	assert.Equal(t, id, staged.RecordID)

	result = env.exec(1, "delete_record", map[string]interface{}{"record_id": id, "confirmation": true})
	assert.Equal(t, msgDeleted, result.Output)

	staged, err = env.proposals.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Nil(t, staged)
}

func TestDeleteTool_MismatchedProposalReAsks(t *testing.T) {
	env := setupToolEnv(t)
	a := env.seed(t, 1, "Food", 500, "2025-11-01")
	b := env.seed(t, 1, "Travel", 1200, "2025-11-03")

	result := env.exec(1, "delete_record", map[string]interface{}{"record_id": a})
	require.Equal(t, msgConfirmDelete, result.Output)

	result = env.exec(1, "delete_record", map[string]interface{}{"record_id": b, "confirmation": true})
	require.True(t, result.Success)
	assert.Equal(t, msgStaleProposal(b), result.Output)

	// Both records still present.
	_, err := env.expenses.Get(context.Background(), 1, a)
	assert.NoError(t, err)
	_, err = env.expenses.Get(context.Background(), 1, b)
	assert.NoError(t, err)
}
