package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/goagain/reglet-host/internal/store"
)

func testRecords() []store.Record {
	return []store.Record{
		{
			PluginID:            "org.example.poetry",
			Version:             "1.0.0",
			Name:                "Poetry Filter",
			Status:              store.StatusEnabled,
			GrantedCapabilities: []string{"post:write"},
		},
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := &JSONFormatter{}
	err := f.Format(&buf, testRecords())
	if err != nil {
		t.Fatalf("Format: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "org.example.poetry") {
		t.Errorf("expected plugin_id in output: %s", output)
	}

	var data []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Errorf("output is not valid JSON: %v", err)
	}
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := &TableFormatter{}
	err := f.Format(&buf, testRecords())
	if err != nil {
		t.Fatalf("Format: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "org.example.poetry") {
		t.Errorf("expected plugin_id in table output: %s", output)
	}
	if !strings.Contains(output, "Plugin ID") || !strings.Contains(output, "Status") {
		t.Errorf("expected headers in output: %s", output)
	}
}

func TestTableFormatter_Empty(t *testing.T) {
	var buf bytes.Buffer
	f := &TableFormatter{}
	if err := f.Format(&buf, nil); err != nil {
		t.Fatalf("Format: %v", err)
	}
	if !strings.Contains(buf.String(), "no plugins installed") {
		t.Errorf("expected empty-state message, got: %s", buf.String())
	}
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := &YAMLFormatter{}
	err := f.Format(&buf, testRecords())
	if err != nil {
		t.Fatalf("Format: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "pluginid: org.example.poetry") && !strings.Contains(output, "PluginID: org.example.poetry") {
		t.Errorf("expected YAML key-value in output: %s", output)
	}
}

func TestNewFormatter_Invalid(t *testing.T) {
	_, err := NewFormatter("xml")
	if err == nil {
		t.Error("expected error for unsupported format")
	}
}
