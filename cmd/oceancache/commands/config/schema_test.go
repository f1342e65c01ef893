package config

import (
	"encoding/json"
	"testing"
)

func TestGenerateSchema(t *testing.T) {
	data, err := generateSchema()
	if err != nil {
		t.Fatalf("generateSchema failed: %v", err)
	}

	var schema struct {
		Title      string                     `json:"title"`
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(data, &schema); err != nil {
		t.Fatalf("Schema is not valid JSON: %v", err)
	}

	if schema.Title != "oceancache Configuration" {
		t.Errorf("Unexpected title %q", schema.Title)
	}
	for _, section := range []string{"logging", "api", "dataset", "source", "loader", "scheduler", "shutdown_timeout"} {
		if _, ok := schema.Properties[section]; !ok {
			t.Errorf("Expected %q in schema properties", section)
		}
	}
}
