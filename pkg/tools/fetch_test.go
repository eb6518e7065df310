package tools

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchTool_EmptyReturnsLiteralMessage(t *testing.T) {
	env := setupToolEnv(t)

	result := env.exec(1, "fetch_expenses", nil)
	require.True(t, result.Success)
	assert.Equal(t, msgNoExpenses, result.Output)
}

func TestFetchTool_ReturnsTenMostRecent(t *testing.T) {
	env := setupToolEnv(t)

	for i := 1; i <= 12; i++ {
		env.seed(t, 1, fmt.Sprintf("Cat%02d", i), float64(i), fmt.Sprintf("2025-11-%02d", i))
	}

	result := env.exec(1, "fetch_expenses", nil)
	require.True(t, result.Success)

	lines := strings.Split(result.Output, "\n")
	require.Len(t, lines, 10)

	// Newest first; the two oldest records fall off.
	assert.Contains(t, lines[0], "Cat12")
	assert.Contains(t, lines[9], "Cat03")
	assert.NotContains(t, result.Output, "Cat01")
	assert.NotContains(t, result.Output, "Cat02")
}

func TestFetchTool_ScopedToOwner(t *testing.T) {
	env := setupToolEnv(t)

	env.seed(t, 1, "Mine", 100, "2025-11-01")
	env.seed(t, 2, "Theirs", 200, "2025-11-02")

	result := env.exec(1, "fetch_expenses", nil)
	require.True(t, result.Success)
	assert.Contains(t, result.Output, "Mine")
	assert.NotContains(t, result.Output, "Theirs")
}
