// Package schema validates workflow and warm-up template documents
// against their JSON schemas before they enter the engine. Structural
// validation happens here; semantic checks (step IDs, action configs)
// live with the action registry.
package schema

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const workflowSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "steps"],
  "properties": {
    "id": {"type": "string"},
    "name": {"type": "string", "minLength": 1},
    "variables": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "value": {}
        }
      }
    },
    "steps": {
      "type": "array",
      "minItems": 1,
      "items": {"$ref": "#/definitions/step"}
    }
  },
  "definitions": {
    "step": {
      "type": "object",
      "required": ["id", "type"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "type": {"type": "string", "minLength": 1},
        "name": {"type": "string"},
        "config": {"type": "object"},
        "then": {
          "type": "array",
          "items": {"$ref": "#/definitions/step"}
        },
        "else": {
          "type": "array",
          "items": {"$ref": "#/definitions/step"}
        }
      }
    }
  }
}`

const warmupTemplateSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "platform", "total_days", "phases"],
  "properties": {
    "id": {"type": "string"},
    "name": {"type": "string", "minLength": 1},
    "platform": {"type": "string", "minLength": 1},
    "total_days": {"type": "integer", "minimum": 1},
    "phases": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "days", "daily_actions"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "days": {
            "type": "array",
            "items": {"type": "integer", "minimum": 1},
            "minItems": 2,
            "maxItems": 2
          },
          "daily_actions": {
            "type": "object",
            "additionalProperties": {
              "oneOf": [
                {"type": "boolean"},
                {
                  "type": "object",
                  "required": ["min", "max"],
                  "properties": {
                    "min": {"type": "integer", "minimum": 0},
                    "max": {"type": "integer", "minimum": 0}
                  }
                }
              ]
            }
          }
        }
      }
    },
    "schedule": {
      "type": "object",
      "properties": {
        "timezone": {"type": "string"},
        "run_at": {
          "type": "array",
          "items": {"type": "string", "pattern": "^([01][0-9]|2[0-3]):[0-5][0-9]$"}
        },
        "cron": {"type": "string"},
        "random_delay": {"type": "integer", "minimum": 0}
      }
    }
  }
}`

// ValidateWorkflow checks a raw workflow document against the workflow
// schema.
func ValidateWorkflow(document []byte) error {
	return validate(workflowSchema, document, "workflow")
}

// ValidateWarmupTemplate checks a raw warm-up template document against
// the template schema.
func ValidateWarmupTemplate(document []byte) error {
	return validate(warmupTemplateSchema, document, "warmup template")
}

func validate(schema string, document []byte, kind string) error {
	schemaLoader := gojsonschema.NewStringLoader(schema)
	documentLoader := gojsonschema.NewBytesLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validate %s: %w", kind, err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return fmt.Errorf("%s schema validation failed: %s", kind, strings.Join(details, "; "))
	}

	return nil
}
