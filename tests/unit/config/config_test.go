package config_test

import (
	"os"
	"strings"
	"testing"

	"github.com/hypercache/kvcore/pkg/config"
)

func TestConfigLoading(t *testing.T) {
	t.Run("Default_Configuration", func(t *testing.T) {
		cfg, err := config.Load("/non/existent/path")
		if err != nil {
			t.Fatalf("Failed to load default config: %v", err)
		}

		if cfg.Ring.RingSize != 1024 {
			t.Errorf("Expected default ring size 1024, got %d", cfg.Ring.RingSize)
		}
		if cfg.Ring.IndexKind != "rbt" {
			t.Errorf("Expected default index kind 'rbt', got %s", cfg.Ring.IndexKind)
		}
		if cfg.Filters.Users.Kind != "counting_bloom" {
			t.Errorf("Expected default user filter kind 'counting_bloom', got %s", cfg.Filters.Users.Kind)
		}
		if cfg.Logging.Level != "info" {
			t.Errorf("Expected default log level 'info', got %s", cfg.Logging.Level)
		}
	})

	t.Run("YAML_Configuration_Loading", func(t *testing.T) {
		yamlContent := `
node:
  id: "node-a"

filters:
  users:
    kind: "counting_bloom"
    expected_items: 50000
    false_positive_fpp: 0.02

ring:
  enabled: true
  ring_size: 512
  num_servers: 6
  index_kind: "bst"
  lookup_cache_size: 64

logging:
  level: "debug"
`
		tmpfile, err := os.CreateTemp("", "kvcore-test-*.yaml")
		if err != nil {
			t.Fatalf("Failed to create temp file: %v", err)
		}
		defer os.Remove(tmpfile.Name())

		if _, err := tmpfile.Write([]byte(yamlContent)); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}
		tmpfile.Close()

		cfg, err := config.Load(tmpfile.Name())
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}

		if cfg.Node.ID != "node-a" {
			t.Errorf("Expected node id 'node-a', got %s", cfg.Node.ID)
		}
		if cfg.Ring.RingSize != 512 {
			t.Errorf("Expected ring size 512, got %d", cfg.Ring.RingSize)
		}
		if cfg.Ring.NumServers != 6 {
			t.Errorf("Expected num_servers 6, got %d", cfg.Ring.NumServers)
		}
		if cfg.Ring.IndexKind != "bst" {
			t.Errorf("Expected index kind 'bst', got %s", cfg.Ring.IndexKind)
		}
		if cfg.Logging.Level != "debug" {
			t.Errorf("Expected log level 'debug', got %s", cfg.Logging.Level)
		}
	})

	t.Run("Configuration_Validation", func(t *testing.T) {
		cfg, err := config.Load("/non/existent/path")
		if err != nil {
			t.Fatalf("Failed to load default config: %v", err)
		}

		if err := cfg.Validate(); err != nil {
			t.Errorf("Default config should be valid: %v", err)
		}

		cfg.Ring.RingSize = 0
		if err := cfg.Validate(); err == nil {
			t.Errorf("Expected validation error for ring_size <= 0")
		}

		cfg, _ = config.Load("/non/existent/path")
		cfg.Node.ID = ""
		if err := cfg.Validate(); err == nil {
			t.Errorf("Expected validation error for empty node id")
		}

		cfg, _ = config.Load("/non/existent/path")
		cfg.Ring.IndexKind = "avl"
		if err := cfg.Validate(); err == nil {
			t.Errorf("Expected validation error for unknown index kind")
		}
	})

	t.Run("Validation_Accumulates_Every_Error", func(t *testing.T) {
		cfg, err := config.Load("/non/existent/path")
		if err != nil {
			t.Fatalf("Failed to load default config: %v", err)
		}

		cfg.Node.ID = ""
		cfg.Ring.RingSize = 0
		cfg.Ring.NumServers = 0
		cfg.Logging.Level = "loud"

		err = cfg.Validate()
		if err == nil {
			t.Fatal("expected validation errors")
		}

		msg := err.Error()
		for _, want := range []string{"node.id", "ring.ring_size", "ring.num_servers", "logging.level"} {
			if !strings.Contains(msg, want) {
				t.Errorf("expected combined error to mention %q, got: %s", want, msg)
			}
		}
	})

	t.Run("Ring_NumServers_Cannot_Exceed_RingSize", func(t *testing.T) {
		cfg, err := config.Load("/non/existent/path")
		if err != nil {
			t.Fatalf("Failed to load default config: %v", err)
		}

		cfg.Ring.RingSize = 4
		cfg.Ring.NumServers = 8
		if err := cfg.Validate(); err == nil {
			t.Errorf("Expected validation error when num_servers exceeds ring_size")
		}
	})
}

func TestFilterConfigValidation(t *testing.T) {
	t.Run("Cuckoo_Item_Filter_Requires_Cuckoo_Fields", func(t *testing.T) {
		cfg, err := config.Load("/non/existent/path")
		if err != nil {
			t.Fatalf("Failed to load default config: %v", err)
		}

		cfg.Ring.Enabled = false
		cfg.Filters.Items = config.FilterConfig{Kind: "cuckoo"}
		if err := cfg.Validate(); err == nil {
			t.Errorf("Expected validation error for a cuckoo filter missing sizing fields")
		}

		cfg.Filters.Items = config.FilterConfig{
			Kind:             "cuckoo",
			BucketSize:       4,
			NumBuckets:       1024,
			FingerprintBytes: 1,
			MaxEvictions:     500,
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Expected a fully-specified cuckoo filter to validate, got: %v", err)
		}
	})

	t.Run("Unknown_Filter_Kind_Is_Rejected", func(t *testing.T) {
		cfg, err := config.Load("/non/existent/path")
		if err != nil {
			t.Fatalf("Failed to load default config: %v", err)
		}

		cfg.Filters.Users.Kind = "quotient"
		if err := cfg.Validate(); err == nil {
			t.Errorf("Expected validation error for an unknown filter kind")
		}
	})
}
