package llm

import (
	"fmt"
	"sort"

	"github.com/google/generative-ai-go/genai"
)

// ToGenaiSchema converts a decoded JSON Schema into Gemini's response schema subset.
// A type union with "null" becomes a nullable scalar; null enum members are dropped.
// A node with an enum but no type is a string enum, nullable when null is a member.
// Keywords Gemini does not understand (minLength, $schema, additionalProperties) are ignored.
func ToGenaiSchema(schema map[string]any) (*genai.Schema, error) {
	if schema == nil {
		return nil, nil
	}
	return convertSchema(schema, "(root)")
}

func convertSchema(node map[string]any, path string) (*genai.Schema, error) {
	rawType, ok := node["type"]
	if !ok {
		rawType = enumType(node["enum"])
	}
	typeName, nullable, err := schemaType(rawType, path)
	if err != nil {
		return nil, err
	}

	out := &genai.Schema{Nullable: nullable}
	if desc, ok := node["description"].(string); ok {
		out.Description = desc
	}

	switch typeName {
	case "string":
		out.Type = genai.TypeString
		if enum, ok := node["enum"].([]any); ok {
			for _, v := range enum {
				if s, ok := v.(string); ok {
					out.Enum = append(out.Enum, s)
				}
			}
		}
	case "integer":
		out.Type = genai.TypeInteger
	case "number":
		out.Type = genai.TypeNumber
	case "boolean":
		out.Type = genai.TypeBoolean
	case "array":
		out.Type = genai.TypeArray
		items, ok := node["items"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: array without items schema", path)
		}
		out.Items, err = convertSchema(items, path+"[]")
		if err != nil {
			return nil, err
		}
	case "object":
		out.Type = genai.TypeObject
		props, _ := node["properties"].(map[string]any)
		out.Properties = make(map[string]*genai.Schema, len(props))
		names := make([]string, 0, len(props))
		for name := range props {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			child, ok := props[name].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s.%s: property schema is not an object", path, name)
			}
			if out.Properties[name], err = convertSchema(child, path+"."+name); err != nil {
				return nil, err
			}
		}
		if required, ok := node["required"].([]any); ok {
			for _, r := range required {
				if s, ok := r.(string); ok {
					out.Required = append(out.Required, s)
				}
			}
		}
	default:
		return nil, fmt.Errorf("%s: unsupported schema type %q", path, typeName)
	}
	return out, nil
}

// schemaType resolves "type" which may be a string or a list such as ["string","null"].
func schemaType(raw any, path string) (string, bool, error) {
	switch t := raw.(type) {
	case string:
		return t, false, nil
	case []any:
		var name string
		nullable := false
		for _, v := range t {
			s, ok := v.(string)
			if !ok {
				return "", false, fmt.Errorf("%s: non-string entry in type list", path)
			}
			if s == "null" {
				nullable = true
				continue
			}
			if name != "" {
				return "", false, fmt.Errorf("%s: multiple non-null types are not supported", path)
			}
			name = s
		}
		if name == "" {
			return "", false, fmt.Errorf("%s: type list has no non-null type", path)
		}
		return name, nullable, nil
	default:
		return "", false, fmt.Errorf("%s: missing or invalid type", path)
	}
}

// enumType infers the type of a typeless enum of strings, with null allowed.
// Any other enum yields nil so the node is reported as untyped.
func enumType(raw any) any {
	enum, ok := raw.([]any)
	if !ok || len(enum) == 0 {
		return nil
	}
	named, nullable := 0, false
	for _, v := range enum {
		switch v.(type) {
		case string:
			named++
		case nil:
			nullable = true
		default:
			return nil
		}
	}
	switch {
	case named == 0:
		return nil
	case nullable:
		return []any{"string", "null"}
	default:
		return "string"
	}
}
