// Package extractor prunes OpenAPI definitions and extracts the normalized
// feature tokens used for similarity analysis.
package extractor

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/apigovern/gatekeeper/domain"
)

var pathParamPattern = regexp.MustCompile(`\{[^}]+\}`)

// detailedMethods are the operations whose operationId and tags contribute
// extra feature tokens. HEAD and OPTIONS only contribute the bare token.
var detailedMethods = []string{"get", "post", "put", "delete", "patch"}

var bareMethods = []string{"head", "options"}

// parseDocument parses a YAML or JSON API definition into a string-keyed
// map. A definition whose first non-whitespace byte is '{' is treated as
// JSON, anything else as YAML.
func parseDocument(definition string) (map[string]any, error) {
	trimmed := strings.TrimSpace(definition)
	if trimmed == "" {
		return nil, domain.NewInvalidInputError("invalid specification", nil)
	}

	var root any
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal([]byte(trimmed), &root); err != nil {
			return nil, domain.NewParseError("unparseable specification", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(trimmed), &root); err != nil {
			return nil, domain.NewParseError("unparseable specification", err)
		}
	}

	doc, ok := normalizeValue(root).(map[string]any)
	if !ok || len(doc) == 0 {
		return nil, domain.NewInvalidInputError("invalid specification", nil)
	}
	return doc, nil
}

// normalizeValue rewrites YAML's interface-keyed maps into string-keyed maps
// so the document can be re-serialized as JSON.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, inner := range val {
			val[k] = normalizeValue(inner)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			key, ok := k.(string)
			if !ok {
				key = stringifyKey(k)
			}
			out[key] = normalizeValue(inner)
		}
		return out
	case []any:
		for i, inner := range val {
			val[i] = normalizeValue(inner)
		}
		return val
	default:
		return v
	}
}

func stringifyKey(k any) string {
	data, err := json.Marshal(k)
	if err != nil {
		return ""
	}
	return strings.Trim(string(data), `"`)
}

// Prune removes boilerplate fields from an API definition and returns the
// remainder as canonical JSON. Removed fields: servers, externalDocs,
// top-level security, and info.contact, info.license, info.termsOfService.
func Prune(definition string) (string, error) {
	doc, err := parseDocument(definition)
	if err != nil {
		return "", err
	}

	delete(doc, "servers")
	delete(doc, "externalDocs")
	delete(doc, "security")

	if info, ok := doc["info"].(map[string]any); ok {
		delete(info, "contact")
		delete(info, "license")
		delete(info, "termsOfService")
	}

	// encoding/json writes map keys in sorted order, which is the canonical
	// form compared across engines.
	pruned, err := json.Marshal(doc)
	if err != nil {
		return "", domain.NewInternalError("failed to serialize pruned specification", err)
	}
	return string(pruned), nil
}

// normalizePath lowercases a path template and collapses every path
// parameter into the {param} placeholder.
func normalizePath(path string) string {
	return strings.ToLower(pathParamPattern.ReplaceAllString(path, "{param}"))
}

// NormalizedPaths extracts the path feature tokens of an API definition,
// sorted and deduplicated.
func NormalizedPaths(definition string) ([]string, error) {
	doc, err := parseDocument(definition)
	if err != nil {
		return nil, err
	}
	return sortedSet(pathTokens(doc)), nil
}

func pathTokens(doc map[string]any) map[string]struct{} {
	tokens := make(map[string]struct{})

	paths, ok := doc["paths"].(map[string]any)
	if !ok {
		return tokens
	}

	for path, rawItem := range paths {
		item, ok := rawItem.(map[string]any)
		if !ok {
			continue
		}
		normalized := normalizePath(path)

		for _, method := range detailedMethods {
			op, ok := item[method].(map[string]any)
			if !ok {
				continue
			}
			upper := strings.ToUpper(method)
			tokens[upper+" "+normalized] = struct{}{}

			if opID, ok := op["operationId"].(string); ok && opID != "" {
				tokens[upper+" "+normalized+" operationId:"+strings.ToLower(opID)] = struct{}{}
			}
			if tags, ok := op["tags"].([]any); ok {
				for _, rawTag := range tags {
					if tag, ok := rawTag.(string); ok && tag != "" {
						tokens[upper+" "+normalized+" tag:"+strings.ToLower(tag)] = struct{}{}
					}
				}
			}
		}

		for _, method := range bareMethods {
			if _, ok := item[method].(map[string]any); ok {
				tokens[strings.ToUpper(method)+" "+normalized] = struct{}{}
			}
		}
	}
	return tokens
}

// NormalizedSchemas extracts the schema feature tokens of an API definition,
// sorted and deduplicated.
func NormalizedSchemas(definition string) ([]string, error) {
	doc, err := parseDocument(definition)
	if err != nil {
		return nil, err
	}
	return sortedSet(schemaTokens(doc)), nil
}

func schemaTokens(doc map[string]any) map[string]struct{} {
	tokens := make(map[string]struct{})

	components, ok := doc["components"].(map[string]any)
	if !ok {
		return tokens
	}
	schemas, ok := components["schemas"].(map[string]any)
	if !ok {
		return tokens
	}

	for name, rawSchema := range schemas {
		schemaName := strings.ToLower(name)
		tokens["schema:"+schemaName] = struct{}{}

		schema, ok := rawSchema.(map[string]any)
		if !ok {
			continue
		}
		props, ok := schema["properties"].(map[string]any)
		if !ok {
			continue
		}
		for propName, rawProp := range props {
			propType := "object"
			if prop, ok := rawProp.(map[string]any); ok {
				if typ, ok := prop["type"].(string); ok && typ != "" {
					propType = typ
				}
			}
			tokens["schema:"+schemaName+"."+strings.ToLower(propName)+":"+strings.ToLower(propType)] = struct{}{}
		}
	}
	return tokens
}

// ExtractFeatures combines path and schema tokens into the sorted,
// deduplicated feature list fed to shingling.
func ExtractFeatures(definition string) ([]string, error) {
	doc, err := parseDocument(definition)
	if err != nil {
		return nil, err
	}

	combined := pathTokens(doc)
	for token := range schemaTokens(doc) {
		combined[token] = struct{}{}
	}
	return sortedSet(combined), nil
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for token := range set {
		out = append(out, token)
	}
	sort.Strings(out)
	return out
}
