// Package tools defines the fixed tool set the expense assistant may invoke
// and the registry that validates and executes tool calls.
//
// Tools never raise errors into the orchestrator for domain outcomes: policy
// refusals, missing records, and confirmation requests are all returned as
// plain strings that flow back into the conversation for the model to relay.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"

	"github.com/hamzah/kharcha/internal/metrics"
)

// Parameter defines a single tool parameter.
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // string, number, integer, boolean
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Handler is the function signature for tool execution. The returned string
// is fed back into the conversation verbatim; an error marks an execution
// failure (store unavailable, bad SQL), not a domain refusal.
type Handler func(ctx context.Context, ec ExecContext, params map[string]interface{}) (string, error)

// Definition defines a tool's metadata and handler.
type Definition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  []Parameter `json:"parameters"`
	Handler     Handler     `json:"-"`
}

// ExecContext carries per-call runtime information. OwnerID is injected by
// the calling layer and is never taken from model-supplied parameters.
type ExecContext struct {
	OwnerID    int64
	SessionKey string
	Timeout    time.Duration
}

// Result represents the outcome of a tool execution.
type Result struct {
	Success bool   `json:"success"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Registry holds the registered tools and their compiled parameter schemas.
type Registry struct {
	tools   map[string]*Definition
	schemas map[string]*gojsonschema.Schema
	metrics *metrics.Metrics
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry. m may be nil.
func NewRegistry(m *metrics.Metrics) *Registry {
	return &Registry{
		tools:   make(map[string]*Definition),
		schemas: make(map[string]*gojsonschema.Schema),
		metrics: m,
	}
}

// Register adds a tool to the registry.
func (r *Registry) Register(def Definition) error {
	if err := validateDefinition(def); err != nil {
		return fmt.Errorf("invalid tool definition: %w", err)
	}

	schema, err := compileSchema(def)
	if err != nil {
		return fmt.Errorf("failed to compile schema for %s: %w", def.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.tools[def.Name] = &def
	r.schemas[def.Name] = schema

	log.Info().Str("tool", def.Name).Msg("Tool registered")
	return nil
}

// Get returns a tool definition by name, or nil.
func (r *Registry) Get(name string) *Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// List returns all registered tool names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// Execute runs a tool call after validating its parameters.
func (r *Registry) Execute(ctx context.Context, toolName string, params map[string]interface{}, ec ExecContext) Result {
	start := time.Now()

	r.mu.RLock()
	tool := r.tools[toolName]
	schema := r.schemas[toolName]
	r.mu.RUnlock()

	if tool == nil {
		log.Error().Str("tool", toolName).Msg("Tool not found")
		return r.record(toolName, start, Result{
			Success: false,
			Error:   fmt.Sprintf("tool not found: %s", toolName),
		})
	}

	if params == nil {
		params = map[string]interface{}{}
	}

	if err := validateParams(schema, params); err != nil {
		log.Warn().Str("tool", toolName).Err(err).Msg("Parameter validation failed")
		return r.record(toolName, start, Result{
			Success: false,
			Error:   fmt.Sprintf("parameter validation failed: %v", err),
		})
	}

	timeout := 30 * time.Second
	if ec.Timeout > 0 {
		timeout = ec.Timeout
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log.Debug().Str("tool", toolName).Int64("owner", ec.OwnerID).Msg("Executing tool")

	output, err := tool.Handler(timeoutCtx, ec, params)
	if err != nil {
		log.Error().Str("tool", toolName).Err(err).Msg("Tool execution failed")
		return r.record(toolName, start, Result{Success: false, Error: err.Error()})
	}

	return r.record(toolName, start, Result{Success: true, Output: output})
}

func (r *Registry) record(toolName string, start time.Time, result Result) Result {
	if r.metrics != nil {
		status := "ok"
		if !result.Success {
			status = "error"
		}
		r.metrics.ToolExecutionsTotal.WithLabelValues(toolName, status).Inc()
		r.metrics.ToolExecutionDuration.WithLabelValues(toolName).Observe(time.Since(start).Seconds())
	}
	return result
}

func validateDefinition(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if def.Description == "" {
		return fmt.Errorf("tool description cannot be empty")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool handler cannot be nil")
	}
	for _, param := range def.Parameters {
		if param.Name == "" {
			return fmt.Errorf("parameter name cannot be empty")
		}
		switch param.Type {
		case "string", "number", "integer", "boolean":
		default:
			return fmt.Errorf("parameter %s has unsupported type %q", param.Name, param.Type)
		}
	}
	return nil
}

// InputSchema renders the JSON-schema object providers expect for a tool.
func (d *Definition) InputSchema() map[string]interface{} {
	properties := make(map[string]interface{})
	var required []string

	for _, param := range d.Parameters {
		properties[param.Name] = map[string]interface{}{
			"type":        param.Type,
			"description": param.Description,
		}
		if param.Required {
			required = append(required, param.Name)
		}
	}

	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func compileSchema(def Definition) (*gojsonschema.Schema, error) {
	raw, err := json.Marshal(def.InputSchema())
	if err != nil {
		return nil, err
	}
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
}

func validateParams(schema *gojsonschema.Schema, params map[string]interface{}) error {
	if schema == nil {
		return nil
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(params))
	if err != nil {
		return err
	}
	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return fmt.Errorf("%s", errs[0].String())
		}
		return fmt.Errorf("parameters do not match schema")
	}
	return nil
}
