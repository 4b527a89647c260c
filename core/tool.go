package core

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// HandlerFunc runs one tool invocation. It returns the rendered text, or a
// *ToolError (or any error) that ToResult turns into the wire result.
type HandlerFunc func(ctx context.Context, args Args) (string, error)

// Tool pairs an advertised MCP definition with its handler and the compiled
// validator for its input schema. Tools are immutable once built.
type Tool struct {
	Definition mcp.Tool
	Handler    HandlerFunc

	validator *ArgumentValidator
}

// NewTool builds a Tool. Definitions are static, so a schema that does not
// compile is a programming error and NewTool panics.
func NewTool(def mcp.Tool, handler HandlerFunc) *Tool {
	v, err := NewArgumentValidator(def)
	if err != nil {
		panic(fmt.Sprintf("core: invalid tool definition: %v", err))
	}
	return &Tool{Definition: def, Handler: handler, validator: v}
}

// Name returns the tool's advertised name.
func (t *Tool) Name() string {
	return t.Definition.Name
}

// Call applies schema defaults, validates the arguments and runs the handler.
// Validation failures short-circuit before any network call.
func (t *Tool) Call(ctx context.Context, raw map[string]interface{}) (string, error) {
	args := t.validator.ApplyDefaults(raw)
	if err := t.validator.Validate(args); err != nil {
		return "", err
	}
	return t.Handler(ctx, args)
}
