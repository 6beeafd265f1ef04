package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPipelineConfig(t *testing.T) {
	// Create a temporary config file for testing
	configContent := `pipeline:
  segment_ms: 30000
  segment_delay_ms: 250
  max_message_length: 2000`

	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test_config.yaml")

	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	cfg := &Config{}
	err = cfg.LoadFromYAML(configPath)
	if err != nil {
		t.Fatalf("Failed to load YAML config: %v", err)
	}

	if cfg.Pipeline.SegmentMS != 30000 {
		t.Errorf("Expected segment_ms 30000, got %d", cfg.Pipeline.SegmentMS)
	}
	if cfg.Pipeline.SegmentDelayMS != 250 {
		t.Errorf("Expected segment_delay_ms 250, got %d", cfg.Pipeline.SegmentDelayMS)
	}
	if cfg.Pipeline.MaxMessageLength != 2000 {
		t.Errorf("Expected max_message_length 2000, got %d", cfg.Pipeline.MaxMessageLength)
	}
}

func TestLoadPipelineConfigPartial(t *testing.T) {
	// Only one key set: the rest must keep their defaults
	configContent := `pipeline:
  segment_ms: 45000`

	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test_config_partial.yaml")

	err := os.WriteFile(configPath, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	cfg := &Config{}
	cfg.SetPipelineDefaults()
	err = cfg.LoadFromYAML(configPath)
	if err != nil {
		t.Fatalf("Failed to load YAML config: %v", err)
	}

	if cfg.Pipeline.SegmentMS != 45000 {
		t.Errorf("Expected segment_ms 45000, got %d", cfg.Pipeline.SegmentMS)
	}
	if cfg.Pipeline.MaxMessageLength != 4096 {
		t.Errorf("Expected default max_message_length 4096, got %d", cfg.Pipeline.MaxMessageLength)
	}
	if cfg.Pipeline.SegmentDelayMS != 100 {
		t.Errorf("Expected default segment_delay_ms 100, got %d", cfg.Pipeline.SegmentDelayMS)
	}
}

func TestSetServiceDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.SetServiceDefaults()

	if cfg.Speech.Scope == "" {
		t.Error("Expected a default speech scope")
	}
	if cfg.Summary.Model != "GigaChat" {
		t.Errorf("Expected default model GigaChat, got %q", cfg.Summary.Model)
	}

	// Explicit values must survive
	cfg2 := &Config{}
	cfg2.Summary.Model = "GigaChat-Pro"
	cfg2.SetServiceDefaults()
	if cfg2.Summary.Model != "GigaChat-Pro" {
		t.Errorf("Expected GigaChat-Pro to be kept, got %q", cfg2.Summary.Model)
	}
}

func TestLoadFromYAMLMissingFile(t *testing.T) {
	cfg := &Config{}
	if err := cfg.LoadFromYAML(filepath.Join(t.TempDir(), "nope.yaml")); err != nil {
		t.Errorf("missing config file should not be an error, got %v", err)
	}
}
