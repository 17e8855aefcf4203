package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	rerrors "github.com/systmms/rollops/internal/errors"
)

// definitionSchema is the JSON schema for rollops.yaml. The parsed YAML is
// re-marshaled to JSON and checked against it, so structural mistakes fail
// with a field path instead of a zero value deep in a rollout.
const definitionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["platform"],
  "properties": {
    "version": {"type": "integer", "minimum": 0, "maximum": 0},
    "defaults": {
      "type": "object",
      "properties": {
        "strategy": {"type": "string", "enum": ["linear", "exponential", "manual"]},
        "max_weight": {"type": "integer", "minimum": 1, "maximum": 100},
        "total_duration": {"type": "string"},
        "step_interval": {"type": "string"},
        "readiness_timeout": {"type": "string"},
        "metrics_window": {"type": "string"},
        "thresholds": {
          "type": "object",
          "properties": {
            "max_error_rate": {"type": "number", "minimum": 0, "maximum": 100},
            "max_p95_latency_ms": {"type": "number", "minimum": 0},
            "max_quality_degradation": {"type": "number", "minimum": 0, "maximum": 100}
          }
        },
        "retry": {
          "type": "object",
          "properties": {
            "max_attempts": {"type": "integer", "minimum": 1},
            "backoff": {"type": "string"}
          }
        }
      }
    },
    "platform": {
      "type": "object",
      "required": ["router", "revisions", "metrics"],
      "properties": {
        "router": {
          "type": "object",
          "required": ["endpoint"],
          "properties": {
            "endpoint": {"type": "string", "minLength": 1},
            "timeout_ms": {"type": "integer", "minimum": 1}
          }
        },
        "revisions": {
          "type": "object",
          "required": ["endpoint"],
          "properties": {
            "endpoint": {"type": "string", "minLength": 1},
            "timeout_ms": {"type": "integer", "minimum": 1},
            "poll_interval_ms": {"type": "integer", "minimum": 1}
          }
        },
        "metrics": {
          "type": "object",
          "required": ["prometheus_url"],
          "properties": {
            "prometheus_url": {"type": "string", "minLength": 1},
            "timeout_ms": {"type": "integer", "minimum": 1},
            "queries": {
              "type": "object",
              "additionalProperties": {"type": "string"}
            }
          }
        }
      }
    },
    "storage": {
      "type": "object",
      "properties": {
        "state_dir": {"type": "string"},
        "retention_days": {"type": "integer", "minimum": 1},
        "postgres": {
          "type": "object",
          "required": ["dsn"],
          "properties": {"dsn": {"type": "string", "minLength": 1}}
        }
      }
    },
    "notifications": {"type": "object"},
    "metrics_server": {
      "type": "object",
      "properties": {
        "enabled": {"type": "boolean"},
        "port": {"type": "integer", "minimum": 0, "maximum": 65535},
        "path": {"type": "string"}
      }
    }
  }
}`

// validateDefinition checks the parsed definition against the JSON schema.
func validateDefinition(def *Definition) error {
	jsonData, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration for validation: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(definitionSchema),
		gojsonschema.NewBytesLoader(jsonData),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		var messages []string
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}
		return rerrors.ConfigError{
			Message:    "configuration failed schema validation:\n  - " + strings.Join(messages, "\n  - "),
			Suggestion: "Fix the listed fields in your rollops.yaml",
		}
	}

	return nil
}
