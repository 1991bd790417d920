// Package config loads and validates the node's YAML configuration,
// kept from the teacher (gopkg.in/yaml.v3, Load/Validate) and trimmed to
// the fields this module actually uses: filter sizing, ring sizing, and
// logging.
package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure.
type Config struct {
	Node    NodeConfig    `yaml:"node"`
	Filters FiltersConfig `yaml:"filters"`
	Ring    RingConfig    `yaml:"ring"`
	Logging LoggingConfig `yaml:"logging"`
}

// NodeConfig contains node-specific configuration.
type NodeConfig struct {
	ID string `yaml:"id"`
}

// FilterConfig sizes one filter instance: the façade's username filter
// or, when Ring.Enabled is false, its item filter.
type FilterConfig struct {
	Kind             string  `yaml:"kind"`               // "bloom", "counting_bloom", "cuckoo"
	ExpectedItems    uint64  `yaml:"expected_items"`     // n, for bloom/counting_bloom
	FalsePositiveFPP float64 `yaml:"false_positive_fpp"` // p, for bloom/counting_bloom
	BucketSize       uint8   `yaml:"bucket_size"`        // B, for cuckoo
	NumBuckets       uint64  `yaml:"num_buckets"`        // Nb, for cuckoo
	FingerprintBytes uint8   `yaml:"fingerprint_bytes"`  // F, for cuckoo
	MaxEvictions     uint32  `yaml:"max_evictions"`      // E, for cuckoo
}

// FiltersConfig holds the façade's two filter slots.
type FiltersConfig struct {
	Users FilterConfig `yaml:"users"`
	Items FilterConfig `yaml:"items"` // ignored when Ring.Enabled is true
}

// RingConfig sizes the consistent-hash ring that backs the façade's item
// store, when enabled in place of a plain filter.
type RingConfig struct {
	Enabled         bool   `yaml:"enabled"`
	RingSize        int    `yaml:"ring_size"`        // R
	NumServers      int    `yaml:"num_servers"`      // N
	IndexKind       string `yaml:"index_kind"`       // "none", "bst", "rbt"
	LookupCacheSize int    `yaml:"lookup_cache_size"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level         string `yaml:"level"` // debug, info, warn, error, fatal
	EnableConsole bool   `yaml:"enable_console"`
	EnableFile    bool   `yaml:"enable_file"`
	LogFile       string `yaml:"log_file"`
	BufferSize    int    `yaml:"buffer_size"`
	LogDir        string `yaml:"log_dir"`
}

// Load reads and parses the configuration file, falling back to defaults
// if it does not exist.
func Load(path string) (*Config, error) {
	config := &Config{
		Node: NodeConfig{ID: "kvcore-node-1"},
		Filters: FiltersConfig{
			Users: FilterConfig{Kind: "counting_bloom", ExpectedItems: 100000, FalsePositiveFPP: 0.01},
			Items: FilterConfig{Kind: "bloom", ExpectedItems: 100000, FalsePositiveFPP: 0.01},
		},
		Ring: RingConfig{
			Enabled:         true,
			RingSize:        1024,
			NumServers:      8,
			IndexKind:       "rbt",
			LookupCacheSize: 256,
		},
		Logging: LoggingConfig{
			Level:         "info",
			EnableConsole: true,
			EnableFile:    false,
			BufferSize:    1000,
			LogDir:        "logs",
		},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("configuration file %s not found, using defaults\n", path)
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate checks every field, accumulating every violation found via
// go-multierror rather than returning only the first (SPEC_FULL.md §7),
// an improvement over the teacher's early-return Validate.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Node.ID == "" {
		result = multierror.Append(result, fmt.Errorf("node.id cannot be empty"))
	}

	result = multierror.Append(result, validateFilter("filters.users", c.Filters.Users))
	if !c.Ring.Enabled {
		result = multierror.Append(result, validateFilter("filters.items", c.Filters.Items))
	}

	if c.Ring.Enabled {
		if c.Ring.RingSize <= 0 {
			result = multierror.Append(result, fmt.Errorf("ring.ring_size must be > 0"))
		}
		if c.Ring.NumServers <= 0 {
			result = multierror.Append(result, fmt.Errorf("ring.num_servers must be > 0"))
		}
		if c.Ring.NumServers > c.Ring.RingSize {
			result = multierror.Append(result, fmt.Errorf("ring.num_servers cannot exceed ring.ring_size"))
		}
		if !isValidIndexKind(c.Ring.IndexKind) {
			result = multierror.Append(result, fmt.Errorf("ring.index_kind must be none, bst or rbt, got %q", c.Ring.IndexKind))
		}
		if c.Ring.LookupCacheSize < 0 {
			result = multierror.Append(result, fmt.Errorf("ring.lookup_cache_size must be >= 0"))
		}
	}

	if !isValidLogLevel(c.Logging.Level) {
		result = multierror.Append(result, fmt.Errorf("logging.level must be debug, info, warn, error or fatal, got %q", c.Logging.Level))
	}

	return result.ErrorOrNil()
}

func validateFilter(field string, f FilterConfig) error {
	var result *multierror.Error

	switch f.Kind {
	case "bloom", "counting_bloom":
		if f.ExpectedItems == 0 {
			result = multierror.Append(result, fmt.Errorf("%s.expected_items must be > 0", field))
		}
		if f.FalsePositiveFPP <= 0 || f.FalsePositiveFPP >= 1 {
			result = multierror.Append(result, fmt.Errorf("%s.false_positive_fpp must be in (0,1)", field))
		}
	case "cuckoo":
		if f.BucketSize == 0 {
			result = multierror.Append(result, fmt.Errorf("%s.bucket_size must be > 0", field))
		}
		if f.NumBuckets == 0 {
			result = multierror.Append(result, fmt.Errorf("%s.num_buckets must be > 0", field))
		}
		if f.FingerprintBytes == 0 || f.FingerprintBytes > 8 {
			result = multierror.Append(result, fmt.Errorf("%s.fingerprint_bytes must be in [1,8]", field))
		}
		if f.MaxEvictions == 0 {
			result = multierror.Append(result, fmt.Errorf("%s.max_evictions must be > 0", field))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("%s.kind must be bloom, counting_bloom or cuckoo, got %q", field, f.Kind))
	}

	return result.ErrorOrNil()
}

func isValidIndexKind(kind string) bool {
	switch kind {
	case "none", "bst", "rbt":
		return true
	default:
		return false
	}
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error", "fatal":
		return true
	default:
		return false
	}
}
