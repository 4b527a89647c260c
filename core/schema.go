package core

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/xeipuuv/gojsonschema"
)

// ArgumentValidator checks tool arguments against the tool's advertised
// input schema before the handler runs. The schema is compiled once.
type ArgumentValidator struct {
	tool   string
	schema *gojsonschema.Schema
	// defaults holds the "default" value of every property that declares one
	defaults map[string]interface{}
}

// NewArgumentValidator compiles the input schema of def.
func NewArgumentValidator(def mcp.Tool) (*ArgumentValidator, error) {
	raw, err := json.Marshal(def.InputSchema)
	if err != nil {
		return nil, fmt.Errorf("marshal input schema for %s: %w", def.Name, err)
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("compile input schema for %s: %w", def.Name, err)
	}

	defaults := make(map[string]interface{})
	for name, prop := range def.InputSchema.Properties {
		if p, ok := prop.(map[string]interface{}); ok {
			if d, ok := p["default"]; ok {
				defaults[name] = d
			}
		}
	}

	return &ArgumentValidator{tool: def.Name, schema: schema, defaults: defaults}, nil
}

// Validate returns a ToolError of CategoryInputError listing every violation,
// or nil when args satisfy the schema.
func (v *ArgumentValidator) Validate(args map[string]interface{}) error {
	if args == nil {
		args = map[string]interface{}{}
	}

	result, err := v.schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return NewValidationError(v.tool, []string{err.Error()})
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return NewValidationError(v.tool, problems)
}

// ApplyDefaults returns a copy of args with schema defaults filled in for
// absent (or null) parameters.
func (v *ArgumentValidator) ApplyDefaults(args map[string]interface{}) Args {
	out := make(Args, len(args)+len(v.defaults))
	for k, val := range args {
		if val != nil {
			out[k] = val
		}
	}
	for k, d := range v.defaults {
		if _, ok := out[k]; !ok {
			out[k] = d
		}
	}
	return out
}
