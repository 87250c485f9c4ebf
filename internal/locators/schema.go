package locators

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationError describes one schema violation in a locator file
type ValidationError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ValidationError) String() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// fileSchema is the JSON schema every locator override file must satisfy
var fileSchema = map[string]interface{}{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"title":   "Locator Table",
	"type":    "object",
	"properties": map[string]interface{}{
		"apiVersion": map[string]interface{}{
			"type":    "string",
			"pattern": "^locators/v[0-9]+$",
		},
		"kind": map[string]interface{}{
			"type": "string",
			"enum": []string{"LocatorTable"},
		},
		"locators": map[string]interface{}{
			"type": "object",
			"propertyNames": map[string]interface{}{
				"pattern": "^[a-z][a-z0-9-]*$",
			},
			"additionalProperties": map[string]interface{}{
				"type":     "object",
				"required": []string{"strategy", "value"},
				"properties": map[string]interface{}{
					"strategy": map[string]interface{}{
						"type": "string",
						"enum": []string{
							string(StrategyID),
							string(StrategyXPath),
							string(StrategyCSS),
							string(StrategyText),
						},
					},
					"value": map[string]interface{}{
						"type":      "string",
						"minLength": 1,
					},
					"nth": map[string]interface{}{
						"type":    "integer",
						"minimum": 0,
					},
				},
				"additionalProperties": false,
			},
		},
	},
	"required":             []string{"apiVersion", "kind", "locators"},
	"additionalProperties": false,
}

var schemaLoader = func() gojsonschema.JSONLoader {
	raw, err := json.Marshal(fileSchema)
	if err != nil {
		panic(fmt.Sprintf("locator schema: %v", err))
	}
	return gojsonschema.NewBytesLoader(raw)
}()

// Validate checks a decoded locator document against the file schema.
// doc must be JSON-marshalable (as produced by yaml.v3 into interface{}).
func Validate(doc interface{}) ([]ValidationError, error) {
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(docJSON))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		errs = append(errs, ValidationError{
			Path:    e.Field(),
			Message: e.Description(),
			Code:    e.Type(),
		})
	}
	return errs, nil
}

// SchemaError is returned by Load when the file violates the schema
type SchemaError struct {
	File   string
	Errors []ValidationError
}

func (e *SchemaError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		parts[i] = ve.String()
	}
	return fmt.Sprintf("invalid locator file %s: %s", e.File, strings.Join(parts, "; "))
}
