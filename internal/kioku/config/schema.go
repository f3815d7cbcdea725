package config

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// configSchemaJSON is the JSON schema every config file must satisfy
// before decoding. additionalProperties is false, so a misspelled key is
// rejected instead of silently ignored.
const configSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "max_messages_per_session": {"type": "integer", "minimum": 1},
    "max_context_messages": {"type": "integer", "minimum": 1},
    "cleanup_interval_minutes": {"type": "integer", "minimum": 1},
    "session_expiration_minutes": {"type": "integer", "minimum": 1},
    "max_active_sessions": {"type": "integer", "minimum": 1},
    "enable_automatic_cleanup": {"type": "boolean"},
    "max_memory_usage_mb": {"type": "integer", "minimum": 1},
    "metrics_addr": {"type": "string"},
    "log_level": {"type": "string", "enum": ["debug", "info", "warn", "error"]},
    "log_format": {"type": "string", "enum": ["text", "json"]}
  }
}`

var configSchema = jsonschema.MustCompileString("kioku-config.schema.json", configSchemaJSON)

// validateSchema checks a YAML document against the embedded schema. The
// document is round-tripped through JSON first, since the schema validator
// operates on JSON-decoded values. An empty document is valid.
func validateSchema(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("config parse: %w", err)
	}
	if doc == nil {
		return nil
	}

	jsonDoc, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(jsonDoc, &v); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}

	if err := configSchema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
