package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hamzah/kharcha/internal/metrics"
	"github.com/hamzah/kharcha/pkg/session"
	"github.com/hamzah/kharcha/pkg/tools"
)

// Options configures assistant behavior per run.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
	MaxTurns    int
	MaxRetries  int
}

// DefaultOptions returns the default assistant options.
func DefaultOptions() Options {
	return Options{
		Model:       "claude-3-5-sonnet-20241022",
		Temperature: 0.7,
		MaxTokens:   4096,
		MaxTurns:    10,
		MaxRetries:  3,
	}
}

// Config holds runner dependencies.
type Config struct {
	Sessions *session.Manager
	Registry *tools.Registry
	Provider LLMProvider
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
	Options  Options
}

// Runner orchestrates chat turns for the expense assistant.
type Runner struct {
	sessions   *session.Manager
	registry   *tools.Registry
	provider   LLMProvider
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	opts       Options
	retryDelay time.Duration

	// Active runs for abort capability
	activeRuns map[string]context.CancelFunc
	runsMu     sync.RWMutex
}

// NewRunner creates a new runner.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("tool registry is required")
	}
	if cfg.Provider == nil {
		return nil, fmt.Errorf("llm provider is required")
	}
	if err := validateOptions(cfg.Options); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	opts := cfg.Options
	defaults := DefaultOptions()
	if opts.Model == "" {
		opts.Model = defaults.Model
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaults.MaxTokens
	}
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = defaults.MaxTurns
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaults.MaxRetries
	}

	return &Runner{
		sessions:   cfg.Sessions,
		registry:   cfg.Registry,
		provider:   cfg.Provider,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		opts:       opts,
		retryDelay: time.Second,
		activeRuns: make(map[string]context.CancelFunc),
	}, nil
}

func validateOptions(opts Options) error {
	if opts.Temperature < 0 || opts.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0 and 1")
	}
	if opts.MaxTokens < 0 {
		return fmt.Errorf("max tokens cannot be negative")
	}
	if opts.MaxTurns < 0 {
		return fmt.Errorf("max turns cannot be negative")
	}
	if opts.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	return nil
}

// HandleChat processes one natural-language turn for an owner and returns the
// assistant's reply. Both the user message and the reply are persisted to the
// owner's thread.
func (r *Runner) HandleChat(ctx context.Context, ownerID int64, query string) (string, error) {
	if ownerID <= 0 {
		return "", fmt.Errorf("owner id must be positive")
	}
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("query cannot be empty")
	}

	start := time.Now()
	sessionKey := session.ThreadKey(ownerID)
	logger := r.logger.With().Str("session_key", sessionKey).Logger()

	reply, err := r.executeTurn(ctx, ownerID, sessionKey, query, logger)

	if r.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		r.metrics.ChatTurnsTotal.WithLabelValues(status).Inc()
		r.metrics.ChatTurnDuration.Observe(time.Since(start).Seconds())
	}
	return reply, err
}

// Abort cancels a running chat turn for a session.
func (r *Runner) Abort(sessionKey string) error {
	r.runsMu.Lock()
	defer r.runsMu.Unlock()

	cancel, exists := r.activeRuns[sessionKey]
	if !exists {
		r.logger.Debug().Str("session_key", sessionKey).Msg("No active run to abort")
		return nil
	}

	r.logger.Info().Str("session_key", sessionKey).Msg("Aborting chat turn")
	cancel()
	delete(r.activeRuns, sessionKey)

	return nil
}

// IsRunning checks whether a chat turn is in flight for a session.
func (r *Runner) IsRunning(sessionKey string) bool {
	r.runsMu.RLock()
	defer r.runsMu.RUnlock()

	_, exists := r.activeRuns[sessionKey]
	return exists
}

func (r *Runner) executeTurn(ctx context.Context, ownerID int64, sessionKey, query string, logger zerolog.Logger) (string, error) {
	execCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.runsMu.Lock()
	r.activeRuns[sessionKey] = cancel
	r.runsMu.Unlock()

	defer func() {
		r.runsMu.Lock()
		delete(r.activeRuns, sessionKey)
		r.runsMu.Unlock()
	}()

	history, err := r.sessions.Load(execCtx, sessionKey)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load session history")
		return "", fmt.Errorf("failed to load session history: %w", err)
	}

	if err := r.sessions.Append(execCtx, sessionKey, session.Message{
		Role:    "user",
		Content: query,
	}); err != nil {
		logger.Error().Err(err).Msg("Failed to persist user message")
		return "", fmt.Errorf("failed to save user message: %w", err)
	}

	messages := make([]Message, 0, len(history)+1)
	for _, msg := range history {
		messages = append(messages, Message{Role: msg.Role, Content: msg.Content})
	}
	messages = append(messages, Message{Role: "user", Content: query})

	systemPrompt := buildSystemPrompt(ownerID, r.toolNames(), time.Now())

	reply, err := r.runToolLoop(execCtx, ownerID, sessionKey, messages, systemPrompt, logger)
	if err != nil {
		return "", err
	}

	if err := r.sessions.Append(execCtx, sessionKey, session.Message{
		Role:    "assistant",
		Content: reply,
	}); err != nil {
		logger.Error().Err(err).Msg("Failed to persist assistant message")
		return "", fmt.Errorf("failed to save assistant message: %w", err)
	}

	return reply, nil
}

// runToolLoop drives the model until it answers without tool calls or the
// turn limit is reached.
func (r *Runner) runToolLoop(ctx context.Context, ownerID int64, sessionKey string, messages []Message, systemPrompt string, logger zerolog.Logger) (string, error) {
	currentMessages := messages
	toolSpecs := r.toolSpecs()

	for turn := 0; turn < r.opts.MaxTurns; turn++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		response, err := r.callWithRetry(ctx, LLMRequest{
			Model:        r.opts.Model,
			Messages:     currentMessages,
			Tools:        toolSpecs,
			Temperature:  r.opts.Temperature,
			MaxTokens:    r.opts.MaxTokens,
			SystemPrompt: systemPrompt,
		})
		if err != nil {
			return "", err
		}

		if len(response.ToolCalls) == 0 {
			reply := strings.TrimSpace(response.Content)
			if reply == "" {
				logger.Warn().Msg("Model returned empty content")
				return responseFallback, nil
			}
			return response.Content, nil
		}

		outcomes := make([]toolOutcome, 0, len(response.ToolCalls))
		for _, toolCall := range response.ToolCalls {
			logger.Info().Str("tool", toolCall.Name).Msg("Executing tool call")
			result := r.registry.Execute(ctx, toolCall.Name, toolCall.Parameters, tools.ExecContext{
				OwnerID:    ownerID,
				SessionKey: sessionKey,
			})
			outcomes = append(outcomes, toolOutcome{
				ToolCallID: toolCall.ID,
				Output:     result.Output,
				Error:      result.Error,
			})
		}

		currentMessages = append(currentMessages, Message{
			Role:      "assistant",
			Content:   response.Content,
			ToolCalls: response.ToolCalls,
		})
		for _, outcome := range outcomes {
			content := outcome.Output
			if outcome.Error != "" {
				content = outcome.Error
			}
			currentMessages = append(currentMessages, Message{
				Role:       "tool",
				Content:    content,
				ToolCallID: outcome.ToolCallID,
			})
		}
	}

	return "", fmt.Errorf("maximum tool execution turns exceeded")
}

// callWithRetry calls the provider with exponential backoff on transient
// failures.
func (r *Runner) callWithRetry(ctx context.Context, request LLMRequest) (*LLMResponse, error) {
	var lastErr error

	for attempt := 0; attempt < r.opts.MaxRetries; attempt++ {
		response, err := r.provider.Call(ctx, request)
		if err == nil {
			return response, nil
		}

		lastErr = err

		if !IsRetryableError(err) {
			return nil, err
		}

		if attempt == r.opts.MaxRetries-1 {
			break
		}

		delay := r.retryDelay * (1 << attempt)
		r.logger.Info().
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("Retrying after provider error")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("max retries (%d) exceeded: %w", r.opts.MaxRetries, lastErr)
}

func (r *Runner) toolNames() []string {
	names := r.registry.List()
	sort.Strings(names)
	return names
}

// toolSpecs renders the registry's tools in provider-neutral form.
func (r *Runner) toolSpecs() []ToolSpec {
	names := r.toolNames()
	specs := make([]ToolSpec, 0, len(names))
	for _, name := range names {
		def := r.registry.Get(name)
		if def == nil {
			continue
		}
		specs = append(specs, ToolSpec{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema(),
		})
	}
	return specs
}
