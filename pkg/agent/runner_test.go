package agent

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamzah/kharcha/internal/store"
	"github.com/hamzah/kharcha/pkg/expense"
	"github.com/hamzah/kharcha/pkg/pending"
	"github.com/hamzah/kharcha/pkg/session"
	"github.com/hamzah/kharcha/pkg/tools"
)

// fakeProvider records every request and answers from a scripted callback.
type fakeProvider struct {
	mu       sync.Mutex
	requests []LLMRequest
	respond  func(call int, req LLMRequest) (*LLMResponse, error)
}

func (p *fakeProvider) Call(ctx context.Context, req LLMRequest) (*LLMResponse, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	call := len(p.requests)
	p.mu.Unlock()
	return p.respond(call, req)
}

func (p *fakeProvider) Provider() string { return "fake" }

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func (p *fakeProvider) request(call int) LLMRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[call-1]
}

// scripted answers the nth call with the nth response, repeating the last one.
func scripted(responses ...*LLMResponse) *fakeProvider {
	return &fakeProvider{
		respond: func(call int, req LLMRequest) (*LLMResponse, error) {
			if call > len(responses) {
				call = len(responses)
			}
			return responses[call-1], nil
		},
	}
}

type agentEnv struct {
	runner   *Runner
	provider *fakeProvider
	sessions *session.Manager
	expenses *expense.Store
	db       *sql.DB
}

func setupAgentEnv(t *testing.T, provider *fakeProvider) *agentEnv {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`INSERT INTO users (email) VALUES ('alice@example.com'), ('bob@example.com')`)
	require.NoError(t, err)

	expenses := expense.NewStore(db)
	registry := tools.NewRegistry(nil)
	require.NoError(t, tools.RegisterAll(registry, db, expenses, pending.NewStore(db, time.Minute)))

	sessions := session.NewManager(db)
	runner, err := NewRunner(Config{
		Sessions: sessions,
		Registry: registry,
		Provider: provider,
		Logger:   zerolog.Nop(),
		Options:  Options{Temperature: 0.7},
	})
	require.NoError(t, err)
	runner.retryDelay = time.Millisecond

	return &agentEnv{runner: runner, provider: provider, sessions: sessions, expenses: expenses, db: db}
}

func TestNewRunner(t *testing.T) {
	env := setupAgentEnv(t, scripted(&LLMResponse{Content: "ok"}))

	t.Run("should fail without session manager", func(t *testing.T) {
		_, err := NewRunner(Config{Registry: tools.NewRegistry(nil), Provider: env.provider})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "session manager")
	})

	t.Run("should fail without tool registry", func(t *testing.T) {
		_, err := NewRunner(Config{Sessions: env.sessions, Provider: env.provider})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tool registry")
	})

	t.Run("should fail without provider", func(t *testing.T) {
		_, err := NewRunner(Config{Sessions: env.sessions, Registry: tools.NewRegistry(nil)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "provider")
	})

	t.Run("should reject invalid temperature", func(t *testing.T) {
		_, err := NewRunner(Config{
			Sessions: env.sessions,
			Registry: tools.NewRegistry(nil),
			Provider: env.provider,
			Options:  Options{Temperature: 1.5},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "temperature")
	})

	t.Run("should fill defaults", func(t *testing.T) {
		runner, err := NewRunner(Config{
			Sessions: env.sessions,
			Registry: tools.NewRegistry(nil),
			Provider: env.provider,
		})
		require.NoError(t, err)
		assert.Equal(t, DefaultOptions().Model, runner.opts.Model)
		assert.Equal(t, DefaultOptions().MaxTurns, runner.opts.MaxTurns)
	})
}

func TestHandleChat_PlainReply(t *testing.T) {
	env := setupAgentEnv(t, scripted(&LLMResponse{Content: "You spent nothing this month."}))

	reply, err := env.runner.HandleChat(context.Background(), 1, "how much did I spend?")
	require.NoError(t, err)
	assert.Equal(t, "You spent nothing this month.", reply)

	// Both sides of the turn are persisted to the owner's thread.
	history, err := env.sessions.Load(context.Background(), session.ThreadKey(1))
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "how much did I spend?", history[0].Content)
	assert.Equal(t, "assistant", history[1].Role)
	assert.Equal(t, "You spent nothing this month.", history[1].Content)

	req := env.provider.request(1)
	assert.Contains(t, req.SystemPrompt, "user_id=1")
	assert.Contains(t, req.SystemPrompt, time.Now().Format("2006-01-02"))
	assert.Len(t, req.Tools, 4)
	require.NotEmpty(t, req.Messages)
	assert.Equal(t, "user", req.Messages[len(req.Messages)-1].Role)
}

func TestHandleChat_IncludesHistory(t *testing.T) {
	env := setupAgentEnv(t, scripted(&LLMResponse{Content: "Sure."}))

	key := session.ThreadKey(1)
	require.NoError(t, env.sessions.Append(context.Background(), key, session.Message{Role: "user", Content: "earlier question"}))
	require.NoError(t, env.sessions.Append(context.Background(), key, session.Message{Role: "assistant", Content: "earlier answer"}))

	_, err := env.runner.HandleChat(context.Background(), 1, "follow up")
	require.NoError(t, err)

	req := env.provider.request(1)
	require.Len(t, req.Messages, 3)
	assert.Equal(t, "earlier question", req.Messages[0].Content)
	assert.Equal(t, "earlier answer", req.Messages[1].Content)
	assert.Equal(t, "follow up", req.Messages[2].Content)
}

func TestHandleChat_ToolLoop(t *testing.T) {
	env := setupAgentEnv(t, scripted(
		&LLMResponse{ToolCalls: []ToolCall{{ID: "tc1", Name: "fetch_expenses", Parameters: map[string]interface{}{}}}},
		&LLMResponse{Content: "You have no expenses yet."},
	))

	reply, err := env.runner.HandleChat(context.Background(), 1, "list my expenses")
	require.NoError(t, err)
	assert.Equal(t, "You have no expenses yet.", reply)
	assert.Equal(t, 2, env.provider.callCount())

	// The second request carries the tool outcome back to the model.
	req := env.provider.request(2)
	last := req.Messages[len(req.Messages)-1]
	assert.Equal(t, "tool", last.Role)
	assert.Equal(t, "tc1", last.ToolCallID)
	assert.Equal(t, "No expenses found for this user.", last.Content)
}

func TestHandleChat_ToolSeesOnlyCallersRecords(t *testing.T) {
	env := setupAgentEnv(t, scripted(
		&LLMResponse{ToolCalls: []ToolCall{{ID: "tc1", Name: "fetch_expenses", Parameters: map[string]interface{}{}}}},
		&LLMResponse{Content: "done"},
	))

	ctx := context.Background()
	_, err := env.expenses.Add(ctx, expense.Record{OwnerID: 1, Category: "Mine", Amount: 100, AmountType: expense.Debit, Date: "2025-11-01"})
	require.NoError(t, err)
	_, err = env.expenses.Add(ctx, expense.Record{OwnerID: 2, Category: "Theirs", Amount: 200, AmountType: expense.Debit, Date: "2025-11-02"})
	require.NoError(t, err)

	_, err = env.runner.HandleChat(ctx, 1, "list my expenses")
	require.NoError(t, err)

	toolMsg := env.provider.request(2).Messages
	content := toolMsg[len(toolMsg)-1].Content
	assert.Contains(t, content, "Mine")
	assert.NotContains(t, content, "Theirs")
}

func TestHandleChat_EmptyContentFallback(t *testing.T) {
	env := setupAgentEnv(t, scripted(&LLMResponse{Content: "   "}))

	reply, err := env.runner.HandleChat(context.Background(), 1, "hello")
	require.NoError(t, err)
	assert.Equal(t, responseFallback, reply)

	history, err := env.sessions.Load(context.Background(), session.ThreadKey(1))
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, responseFallback, history[1].Content)
}

func TestHandleChat_MaxTurnsExceeded(t *testing.T) {
	env := setupAgentEnv(t, scripted(
		&LLMResponse{ToolCalls: []ToolCall{{ID: "tc", Name: "fetch_expenses", Parameters: map[string]interface{}{}}}},
	))
	env.runner.opts.MaxTurns = 3

	_, err := env.runner.HandleChat(context.Background(), 1, "loop forever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum tool execution turns exceeded")
	assert.Equal(t, 3, env.provider.callCount())
}

func TestHandleChat_RetriesTransientErrors(t *testing.T) {
	provider := &fakeProvider{}
	provider.respond = func(call int, req LLMRequest) (*LLMResponse, error) {
		if call == 1 {
			return nil, fmt.Errorf("429 rate limit")
		}
		return &LLMResponse{Content: "recovered"}, nil
	}
	env := setupAgentEnv(t, provider)

	reply, err := env.runner.HandleChat(context.Background(), 1, "hello")
	require.NoError(t, err)
	assert.Equal(t, "recovered", reply)
	assert.Equal(t, 2, provider.callCount())
}

func TestHandleChat_PermanentErrorFailsFast(t *testing.T) {
	provider := &fakeProvider{
		respond: func(call int, req LLMRequest) (*LLMResponse, error) {
			return nil, fmt.Errorf("invalid API key")
		},
	}
	env := setupAgentEnv(t, provider)

	_, err := env.runner.HandleChat(context.Background(), 1, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid API key")
	assert.Equal(t, 1, provider.callCount())
}

func TestHandleChat_ValidatesInput(t *testing.T) {
	env := setupAgentEnv(t, scripted(&LLMResponse{Content: "ok"}))

	_, err := env.runner.HandleChat(context.Background(), 0, "hello")
	assert.Error(t, err)

	_, err = env.runner.HandleChat(context.Background(), 1, "   ")
	assert.Error(t, err)

	assert.Equal(t, 0, env.provider.callCount())
}

func TestAbort(t *testing.T) {
	env := setupAgentEnv(t, scripted(&LLMResponse{Content: "ok"}))

	t.Run("should handle abort on non-existent session", func(t *testing.T) {
		assert.NoError(t, env.runner.Abort("non-existent"))
	})

	t.Run("should abort registered execution", func(t *testing.T) {
		sessionKey := "user-99"

		called := false
		env.runner.runsMu.Lock()
		env.runner.activeRuns[sessionKey] = func() { called = true }
		env.runner.runsMu.Unlock()

		require.NoError(t, env.runner.Abort(sessionKey))
		assert.True(t, called)
		assert.False(t, env.runner.IsRunning(sessionKey))
	})
}

func TestToolSpecs(t *testing.T) {
	env := setupAgentEnv(t, scripted(&LLMResponse{Content: "ok"}))

	specs := env.runner.toolSpecs()
	require.Len(t, specs, 4)

	names := make([]string, len(specs))
	for i, spec := range specs {
		names[i] = spec.Name
		assert.Equal(t, "object", spec.InputSchema["type"])
		assert.NotEmpty(t, spec.Description)
	}
	assert.Equal(t, []string{"delete_record", "execute_query", "fetch_expenses", "update_record"}, names)
}

func TestBuildSystemPrompt(t *testing.T) {
	now := time.Date(2025, 11, 5, 12, 0, 0, 0, time.UTC)
	prompt := buildSystemPrompt(7, []string{"fetch_expenses", "execute_query"}, now)

	assert.Contains(t, prompt, "user_id=7")
	assert.Contains(t, prompt, "2025-11-05")
	assert.Contains(t, prompt, "fetch_expenses, execute_query")
	assert.Contains(t, prompt, `WHERE user_id = 7`)
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, IsRetryableError(fmt.Errorf("ECONNRESET")))
	assert.True(t, IsRetryableError(fmt.Errorf("ETIMEDOUT")))
	assert.True(t, IsRetryableError(fmt.Errorf("429 rate limit")))
	assert.True(t, IsRetryableError(fmt.Errorf("500 server error")))

	assert.False(t, IsRetryableError(fmt.Errorf("invalid API key")))
	assert.False(t, IsRetryableError(fmt.Errorf("validation failed")))
	assert.False(t, IsRetryableError(nil))
}

func TestNewProviderFactory(t *testing.T) {
	for _, name := range []string{"anthropic", "openai", "gemini"} {
		provider, err := NewProvider(name, "test-key")
		require.NoError(t, err)
		assert.Equal(t, name, provider.Provider())
	}

	_, err := NewProvider("mistral", "test-key")
	assert.Error(t, err)
}
