package locked

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/joshuapare/heapkit/heap/alloc"
)

const envVarPrefix = "HEAPKIT"

const (
	// DefaultHeapSize is the arena size used when none is configured.
	DefaultHeapSize = 100 * 1024

	// MinHeapSize is the smallest arena every strategy can initialize: one
	// free-list node.
	MinHeapSize = 16
)

// Config selects and parameterizes the allocator behind a Heap.
type Config struct {
	Strategy   alloc.Strategy `envconfig:"HEAPKIT_STRATEGY"    yaml:"strategy"`
	HeapSize   int            `envconfig:"HEAPKIT_HEAP_SIZE"   yaml:"heapSize"`
	BlockSizes []int          `envconfig:"HEAPKIT_BLOCK_SIZES" yaml:"blockSizes"`
	Checked    bool           `envconfig:"HEAPKIT_CHECKED"     yaml:"checked"`
	LogAlloc   bool           `envconfig:"HEAPKIT_LOG_ALLOC"   yaml:"logAlloc"`
}

// DefaultConfig returns the fixed-block strategy over a 100 KiB heap with the
// default size classes.
func DefaultConfig() Config {
	return Config{
		Strategy: alloc.StrategyFixedBlock,
		HeapSize: DefaultHeapSize,
	}
}

// LoadConfig starts from DefaultConfig, applies the YAML file at path if path
// is not empty, applies HEAPKIT_* environment variables, and validates the
// result.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("unmarshaling config file: %w", err)
		}
	}

	if err := envconfig.Process(envVarPrefix, &c); err != nil {
		return Config{}, fmt.Errorf("parsing environment variables: %w", err)
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports the first problem with c, naming both the YAML key and the
// environment variable that set it.
func (c *Config) Validate() error {
	if y, e, msg := func() (string, string, string) {
		if _, err := c.Strategy.MarshalText(); err != nil {
			return "strategy", "STRATEGY", "unknown strategy"
		}
		if c.HeapSize < MinHeapSize {
			return "heapSize", "HEAP_SIZE", fmt.Sprintf("must be at least %d", MinHeapSize)
		}
		if len(c.BlockSizes) > 0 {
			if c.Strategy != alloc.StrategyFixedBlock {
				return "blockSizes", "BLOCK_SIZES", "only used by the fixed strategy"
			}
			for _, size := range c.BlockSizes {
				if size <= 0 {
					return "blockSizes", "BLOCK_SIZES", fmt.Sprintf("size %d is not positive", size)
				}
			}
			if err := c.SizeClasses().Validate(); err != nil {
				return "blockSizes", "BLOCK_SIZES", err.Error()
			}
		}
		return "", "", ""
	}(); y != "" {
		return fmt.Errorf("%w: %s / %s_%s: %s", ErrInvalidConfig, y, envVarPrefix, e, msg)
	}
	return nil
}

// SizeClasses returns the configured class table, or nil for the default one.
func (c *Config) SizeClasses() *alloc.SizeClassConfig {
	if len(c.BlockSizes) == 0 {
		return nil
	}
	sizes := make([]uintptr, len(c.BlockSizes))
	for i, size := range c.BlockSizes {
		sizes[i] = uintptr(size)
	}
	return &alloc.SizeClassConfig{Name: "Custom", BlockSizes: sizes}
}

// NewAllocator builds the configured, uninitialized allocator.
func (c *Config) NewAllocator() (alloc.Allocator, error) {
	a, err := alloc.New(c.Strategy, c.SizeClasses())
	if err != nil {
		return nil, err
	}
	if c.Checked {
		return alloc.NewChecked(a), nil
	}
	return a, nil
}
