// Package tools implements the agent's native toolset behind Eino's
// tool.InvokableTool interface, plus the registry that dispatches model
// tool calls to them.
package tools

import (
	"github.com/cloudwego/eino/schema"
)

// ParamSpec describes one tool parameter for the model-facing schema.
type ParamSpec struct {
	Type        string
	Description string
	Required    bool
	Enum        []string
}

// Spec declares a tool: its model-facing schema plus the capability bits
// the registry uses to build restricted toolsets.
type Spec struct {
	Name        string
	Description string
	Parameters  map[string]ParamSpec
	// Mutating marks tools that change the workspace or shared stores.
	// Read-only agents never see mutating tools.
	Mutating bool
}

// ToolInfo converts the spec to an Eino schema.ToolInfo.
func (s *Spec) ToolInfo() *schema.ToolInfo {
	info := &schema.ToolInfo{
		Name: s.Name,
		Desc: s.Description,
	}
	if len(s.Parameters) > 0 {
		params := make(map[string]*schema.ParameterInfo, len(s.Parameters))
		for name, p := range s.Parameters {
			params[name] = &schema.ParameterInfo{
				Type:     paramTypeToDataType(p.Type),
				Desc:     p.Description,
				Required: p.Required,
				Enum:     p.Enum,
			}
		}
		info.ParamsOneOf = schema.NewParamsOneOfByParams(params)
	}
	return info
}

func paramTypeToDataType(t string) schema.DataType {
	switch t {
	case "string":
		return schema.String
	case "number":
		return schema.Number
	case "integer":
		return schema.Integer
	case "boolean":
		return schema.Boolean
	case "array":
		return schema.Array
	case "object":
		return schema.Object
	default:
		return schema.String
	}
}
