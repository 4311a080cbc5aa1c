package providers

// Keys MCP servers commonly emit in their input schemas that strict
// OpenAI-compatible endpoints reject or silently mishandle.
var unsupportedSchemaKeys = []string{"$schema", "$id", "examples", "default"}

// CleanToolSchemas returns a copy of tools with endpoint-incompatible JSON
// Schema fields removed from each tool's parameters and a guaranteed
// top-level object type. MCP servers produce schemas with draft metadata the
// chat APIs choke on; the tool loses nothing semantic.
func CleanToolSchemas(tools []ToolDefinition) []ToolDefinition {
	if len(tools) == 0 {
		return tools
	}

	cleaned := make([]ToolDefinition, len(tools))
	for i, t := range tools {
		cleaned[i] = ToolDefinition{
			Type: t.Type,
			Function: ToolFunctionSchema{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  cleanSchema(t.Function.Parameters),
			},
		}
	}
	return cleaned
}

// cleanSchema recursively removes unsupported keys from a JSON Schema map.
// The input is never mutated.
func cleanSchema(schema map[string]interface{}) map[string]interface{} {
	if schema == nil {
		return map[string]interface{}{"type": "object"}
	}

	out := make(map[string]interface{}, len(schema))
	for k, v := range schema {
		if isUnsupportedKey(k) {
			continue
		}
		out[k] = cleanValue(v)
	}
	if _, ok := out["type"]; !ok {
		out["type"] = "object"
	}
	return out
}

func cleanValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, inner := range val {
			if isUnsupportedKey(k) {
				continue
			}
			out[k] = cleanValue(inner)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, inner := range val {
			out[i] = cleanValue(inner)
		}
		return out
	default:
		return v
	}
}

func isUnsupportedKey(k string) bool {
	for _, bad := range unsupportedSchemaKeys {
		if k == bad {
			return true
		}
	}
	return false
}
