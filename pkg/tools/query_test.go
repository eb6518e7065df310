package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queryResult(t *testing.T, env *toolEnv, query string) Result {
	t.Helper()
	return env.exec(1, "execute_query", map[string]interface{}{"query": query})
}

func TestQueryTool_VerbAllowlist(t *testing.T) {
	env := setupToolEnv(t)

	denied := []string{
		"UPDATE expenses SET amount = 0",
		"delete from expenses",
		"DROP TABLE expenses",
		"  \t\nupdate expenses set category = 'x'",
		"UpDaTe expenses SET amount = 1",
		"ALTER TABLE expenses ADD COLUMN x TEXT",
		"pragma table_info(expenses)",
		"",
		"   ",
	}
	for _, q := range denied {
		result := queryResult(t, env, q)
		require.True(t, result.Success, q)
		assert.Equal(t, msgNoPermission, result.Output, q)
	}
}

func TestQueryTool_UsersTableHeuristic(t *testing.T) {
	env := setupToolEnv(t)

	refused := []string{
		"SELECT * FROM users",
		"select email from USERS where id = 2",
		"insert into users (email) values ('x@y.z')",
		"delete from users", // refused by the table check before the verb check
	}
	for _, q := range refused {
		result := queryResult(t, env, q)
		require.True(t, result.Success, q)
		assert.Equal(t, msgRestricted, result.Output, q)
	}

	// Mentioning both tables passes the textual heuristic. That gap is part
	// of the contract, not something the tool tries to close.
	result := queryResult(t, env, "SELECT e.id FROM expenses e JOIN users u ON u.id = e.user_id")
	assert.True(t, result.Success)
	assert.NotEqual(t, msgRestricted, result.Output)
}

func TestQueryTool_SelectRendersRows(t *testing.T) {
	env := setupToolEnv(t)
	env.seed(t, 1, "Food", 500, "2025-11-01")
	env.seed(t, 1, "Travel", 1200, "2025-11-03")

	result := queryResult(t, env, "SELECT category, amount FROM expenses WHERE user_id = 1 ORDER BY date")
	require.True(t, result.Success)
	assert.Contains(t, result.Output, "category | amount")
	assert.Contains(t, result.Output, "Food | 500")
	assert.Contains(t, result.Output, "Travel | 1200")
}

func TestQueryTool_SelectEmpty(t *testing.T) {
	env := setupToolEnv(t)

	result := queryResult(t, env, "SELECT * FROM expenses WHERE user_id = 1")
	require.True(t, result.Success)
	assert.Equal(t, msgNoRows, result.Output)
}

func TestQueryTool_InsertCommits(t *testing.T) {
	env := setupToolEnv(t)

	result := queryResult(t, env,
		"INSERT INTO expenses (user_id, category, amount, amount_type, date) VALUES (1, 'Food', 250, 'DEBIT', '2025-11-02')")
	require.True(t, result.Success)
	assert.Contains(t, result.Output, "1 row(s) affected")

	var count int
	require.NoError(t, env.db.QueryRow(`SELECT COUNT(*) FROM expenses WHERE user_id = 1`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestQueryTool_BadSQLIsExecutionError(t *testing.T) {
	env := setupToolEnv(t)

	result := queryResult(t, env, "SELECT nonsense FROM nowhere")
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}
