package tools

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Fixed refusal strings absorbed into the conversation, never raised as
// errors.
const (
	msgRestricted   = "Access to other user data is restricted."
	msgNoPermission = "No permission to modify the database."
	msgNoRows       = "Query returned no rows."
)

var allowedVerbs = map[string]bool{
	"select": true,
	"insert": true,
}

// NewQueryTool builds the guarded free-text query tool.
//
// The guard is intentionally shallow and its gaps are part of the contract:
// the table check is a textual heuristic (an obfuscated reference to the
// users table slips through), and the owner filter on generated SQL is
// demanded by the system prompt, not injected or verified here. The verb
// allowlist is the only hard gate: anything that does not start with SELECT
// or INSERT is refused.
func NewQueryTool(db *sql.DB) Definition {
	return Definition{
		Name: "execute_query",
		Description: "Run a SQL query against the expense tracker database. " +
			"Only SELECT and INSERT statements are allowed; never UPDATE, DELETE or schema changes. " +
			"The expenses schema is (id:int, user_id:int, category:text, amount:real, amount_type:'DEBIT'|'CREDIT', date:'YYYY-MM-DD'). " +
			"Every query must filter by the current user's user_id. Never touch other tables.",
		Parameters: []Parameter{
			{Name: "query", Type: "string", Description: "The SQL statement to execute", Required: true},
		},
		Handler: func(ctx context.Context, ec ExecContext, params map[string]interface{}) (string, error) {
			query, _ := stringParam(params, "query")
			return runGuardedQuery(ctx, db, query)
		},
	}
}

func runGuardedQuery(ctx context.Context, db *sql.DB, query string) (string, error) {
	lowered := strings.ToLower(query)
	if strings.Contains(lowered, "users") && !strings.Contains(lowered, "expenses") {
		return msgRestricted, nil
	}

	fields := strings.Fields(lowered)
	if len(fields) == 0 || !allowedVerbs[fields[0]] {
		return msgNoPermission, nil
	}

	if fields[0] == "select" {
		rows, err := db.QueryContext(ctx, query)
		if err != nil {
			return "", fmt.Errorf("query failed: %w", err)
		}
		defer rows.Close()
		return renderRows(rows)
	}

	res, err := db.ExecContext(ctx, query)
	if err != nil {
		return "", fmt.Errorf("statement failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("read rows affected: %w", err)
	}
	return fmt.Sprintf("Statement executed. %d row(s) affected.", affected), nil
}

// renderRows flattens a result set into text the model can relay.
func renderRows(rows *sql.Rows) (string, error) {
	cols, err := rows.Columns()
	if err != nil {
		return "", fmt.Errorf("read columns: %w", err)
	}

	var b strings.Builder
	b.WriteString(strings.Join(cols, " | "))

	count := 0
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return "", fmt.Errorf("scan row: %w", err)
		}

		cells := make([]string, len(cols))
		for i, v := range values {
			cells[i] = renderValue(v)
		}
		b.WriteString("\n")
		b.WriteString(strings.Join(cells, " | "))
		count++
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate rows: %w", err)
	}

	if count == 0 {
		return msgNoRows, nil
	}
	return b.String(), nil
}

func renderValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
