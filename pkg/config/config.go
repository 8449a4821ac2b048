// Package config loads and validates tokenforge run configuration.
//
// Configuration files may be YAML (.yaml, .yml) or TOML (.toml); both decode
// into the same [Config] structure. A minimal YAML file:
//
//	count: 100
//	output:
//	  image_dir: output/images
//	  metadata_dir: output/metadata
//	metadata:
//	  base_image_url: ipfs://CID
//	  name: My Collection
//	  description: Generated collection
//	layers:
//	  - name: Background
//	    directory: layers/background
//	    rarity:
//	      Gold.png: 0.1
//	  - name: Body
//	    directory: layers/body
//	constraints:
//	  forbidden_pairs:
//	    - a: {trait_type: Background, value: Gold}
//	      b: {trait_type: Body, value: Robot}
//
// [Config.Validate] reports problems as CONFIGURATION_ERROR so the CLI can
// abort before any generation starts.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/tokenforge/pkg/constraint"
	"github.com/matzehuels/tokenforge/pkg/errors"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultMaxAttempts is the per-token sampling budget.
	DefaultMaxAttempts = 1000

	// MaxCompressionLevel is the highest accepted PNG compression level.
	MaxCompressionLevel = 6

	// DefaultLedgerPrefix namespaces pattern sets in Redis.
	DefaultLedgerPrefix = "tokenforge:patterns"

	// DefaultMongoDatabase and DefaultMongoCollection are used when publishing is
	// enabled without explicit names.
	DefaultMongoDatabase   = "tokenforge"
	DefaultMongoCollection = "metadata"
)

// Ledger backends.
const (
	LedgerMemory = "memory"
	LedgerRedis  = "redis"
)

// Format identifies a configuration file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// =============================================================================
// Config Types
// =============================================================================

// Config is the complete run configuration.
type Config struct {
	Count       int                `yaml:"count" toml:"count"`
	Workers     int                `yaml:"workers" toml:"workers"`
	Seed        uint64             `yaml:"seed" toml:"seed"`
	MaxAttempts int                `yaml:"max_attempts" toml:"max_attempts"`
	Output      OutputConfig       `yaml:"output" toml:"output"`
	Metadata    MetadataConfig     `yaml:"metadata" toml:"metadata"`
	Layers      []LayerConfig      `yaml:"layers" toml:"layers"`
	Constraints *ConstraintsConfig `yaml:"constraints" toml:"constraints"`
	Ledger      LedgerConfig       `yaml:"ledger" toml:"ledger"`
	Publish     *PublishConfig     `yaml:"publish" toml:"publish"`
}

// OutputConfig controls where images and metadata are written.
type OutputConfig struct {
	ImageDir       string                `yaml:"image_dir" toml:"image_dir"`
	MetadataDir    string                `yaml:"metadata_dir" toml:"metadata_dir"`
	PNGCompression *PNGCompressionConfig `yaml:"png_compression" toml:"png_compression"`
}

// PNGCompressionConfig enables post-composite compression of output images.
type PNGCompressionConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
	Level   int  `yaml:"level" toml:"level"`
}

// MetadataConfig holds the templates for every token's metadata record.
type MetadataConfig struct {
	BaseImageURL string `yaml:"base_image_url" toml:"base_image_url"`
	Name         string `yaml:"name" toml:"name"`
	Description  string `yaml:"description" toml:"description"`
}

// LayerConfig declares one trait category. Declaration order is stacking
// order: the first layer is the bottom of the image.
type LayerConfig struct {
	Name      string `yaml:"name" toml:"name"`
	Directory string `yaml:"directory" toml:"directory"`
	// Rarity maps a file name (with extension) to its relative weight.
	// Files without an entry weigh 1.0.
	Rarity map[string]float64 `yaml:"rarity" toml:"rarity"`
}

// ConstraintsConfig lists trait combinations that must never be generated.
type ConstraintsConfig struct {
	ForbiddenPairs []constraint.ForbiddenPair `yaml:"forbidden_pairs" toml:"forbidden_pairs"`
}

// LedgerConfig selects where accepted pattern keys are recorded.
type LedgerConfig struct {
	Backend   string `yaml:"backend" toml:"backend"`
	RedisURL  string `yaml:"redis_url" toml:"redis_url"`
	KeyPrefix string `yaml:"key_prefix" toml:"key_prefix"`
	// RunID names the run. Processes given the same RunID share one Redis
	// pattern set. Empty means a fresh id per run.
	RunID string `yaml:"run_id" toml:"run_id"`
}

// PublishConfig optionally mirrors metadata records into MongoDB.
type PublishConfig struct {
	MongoURI   string `yaml:"mongo_uri" toml:"mongo_uri"`
	Database   string `yaml:"database" toml:"database"`
	Collection string `yaml:"collection" toml:"collection"`
}

// =============================================================================
// Loading
// =============================================================================

// Load reads the configuration file at path, choosing the decoder by
// extension. Unknown extensions are decoded as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "config file not found: %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "read config %s", path)
	}
	cfg, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, err, "parse config %s", path)
	}
	return cfg, nil
}

// FormatFromPath infers the file format from its extension.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Parse decodes configuration data in the given format.
func Parse(data []byte, format Format) (*Config, error) {
	var cfg Config
	switch format {
	case FormatTOML:
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg)
		if err != nil {
			return nil, err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown keys: %v", undecoded)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && err != io.EOF {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %q", format)
	}
	return &cfg, nil
}

// =============================================================================
// Defaults & Validation
// =============================================================================

// SetDefaults fills in unset optional fields. It is idempotent.
func (c *Config) SetDefaults() {
	if c.Workers == 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Ledger.Backend == "" {
		c.Ledger.Backend = LedgerMemory
	}
	if c.Ledger.KeyPrefix == "" {
		c.Ledger.KeyPrefix = DefaultLedgerPrefix
	}
	if pc := c.Output.PNGCompression; pc != nil {
		pc.Level = max(0, min(MaxCompressionLevel, pc.Level))
	}
	if p := c.Publish; p != nil {
		if p.Database == "" {
			p.Database = DefaultMongoDatabase
		}
		if p.Collection == "" {
			p.Collection = DefaultMongoCollection
		}
	}
}

// Validate checks the configuration for errors that make a run impossible.
// Call SetDefaults first; Validate does not modify the config.
func (c *Config) Validate() error {
	if c.Count <= 0 {
		return errors.New(errors.ErrCodeConfiguration, "count must be positive, got %d", c.Count)
	}
	if c.Workers < 0 {
		return errors.New(errors.ErrCodeConfiguration, "workers cannot be negative, got %d", c.Workers)
	}
	if c.MaxAttempts < 0 {
		return errors.New(errors.ErrCodeConfiguration, "max_attempts cannot be negative, got %d", c.MaxAttempts)
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := errors.ValidateBaseURL(c.Metadata.BaseImageURL); err != nil {
		return errors.Wrap(errors.ErrCodeConfiguration, err, "metadata.base_image_url")
	}
	if err := c.validateLayers(); err != nil {
		return err
	}
	if err := c.validateConstraints(); err != nil {
		return err
	}
	return c.validateBackends()
}

func (c *Config) validateOutput() error {
	if err := errors.ValidatePath(c.Output.ImageDir); err != nil {
		return errors.Wrap(errors.ErrCodeConfiguration, err, "output.image_dir")
	}
	if err := errors.ValidatePath(c.Output.MetadataDir); err != nil {
		return errors.Wrap(errors.ErrCodeConfiguration, err, "output.metadata_dir")
	}
	return nil
}

func (c *Config) validateLayers() error {
	if len(c.Layers) == 0 {
		return errors.New(errors.ErrCodeConfiguration, "at least one layer is required")
	}
	seen := make(map[string]bool, len(c.Layers))
	for i, l := range c.Layers {
		if err := errors.ValidateTraitName(l.Name); err != nil {
			return errors.Wrap(errors.ErrCodeConfiguration, err, "layers[%d].name", i)
		}
		if seen[l.Name] {
			return errors.New(errors.ErrCodeConfiguration, "duplicate layer name %q", l.Name)
		}
		seen[l.Name] = true
		if err := errors.ValidatePath(l.Directory); err != nil {
			return errors.Wrap(errors.ErrCodeConfiguration, err, "layer %q directory", l.Name)
		}
	}
	return nil
}

func (c *Config) validateConstraints() error {
	names := make(map[string]bool, len(c.Layers))
	for _, l := range c.Layers {
		names[l.Name] = true
	}
	for i, p := range c.ForbiddenPairs() {
		for _, tr := range []constraint.Trait{p.A, p.B} {
			if tr.TraitType == "" || tr.Value == "" {
				return errors.New(errors.ErrCodeConfiguration, "forbidden_pairs[%d]: trait_type and value are required", i)
			}
			if !names[tr.TraitType] {
				return errors.New(errors.ErrCodeConfiguration, "forbidden_pairs[%d]: unknown trait_type %q", i, tr.TraitType)
			}
		}
	}
	return nil
}

func (c *Config) validateBackends() error {
	switch c.Ledger.Backend {
	case LedgerMemory:
	case LedgerRedis:
		if c.Ledger.RedisURL == "" {
			return errors.New(errors.ErrCodeConfiguration, "ledger.redis_url is required for the redis backend")
		}
	default:
		return errors.New(errors.ErrCodeConfiguration, "unknown ledger backend %q (must be 'memory' or 'redis')", c.Ledger.Backend)
	}
	if id := c.Ledger.RunID; id != "" {
		if strings.TrimSpace(id) != id || strings.ContainsAny(id, " \t") {
			return errors.New(errors.ErrCodeConfiguration, "ledger.run_id cannot contain whitespace: %q", id)
		}
		if err := errors.ValidateTraitName(id); err != nil {
			return errors.Wrap(errors.ErrCodeConfiguration, err, "ledger.run_id")
		}
	}
	if c.Publish != nil && c.Publish.MongoURI == "" {
		return errors.New(errors.ErrCodeConfiguration, "publish.mongo_uri is required when publish is set")
	}
	return nil
}

// =============================================================================
// Accessors
// =============================================================================

// ForbiddenPairs returns the configured pairs, or nil when none are set.
func (c *Config) ForbiddenPairs() []constraint.ForbiddenPair {
	if c.Constraints == nil {
		return nil
	}
	return c.Constraints.ForbiddenPairs
}

// CompressionLevel returns the configured PNG compression level and whether
// compression is enabled.
func (c *Config) CompressionLevel() (int, bool) {
	pc := c.Output.PNGCompression
	if pc == nil || !pc.Enabled {
		return 0, false
	}
	return pc.Level, true
}
