package cluster

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/t-carroll/monocle3/pkg/embedding"
	"github.com/t-carroll/monocle3/pkg/partition"
)

// Config manages pipeline configuration using Viper.
type Config struct {
	v *viper.Viper
}

// NewConfig creates a configuration with defaults.
func NewConfig() *Config {
	v := viper.New()

	// Clustering parameters
	v.SetDefault("clustering.reduction_method", "UMAP")
	v.SetDefault("clustering.k", 20)
	v.SetDefault("clustering.louvain_iter", 1)
	v.SetDefault("clustering.weight", false)
	v.SetDefault("clustering.resolution", []float64{})
	v.SetDefault("clustering.random_seed", int64(42))
	v.SetDefault("clustering.cores", 1)
	v.SetDefault("clustering.max_components", 2)

	// Partition parameters
	v.SetDefault("partition.qval", 0.05)
	v.SetDefault("partition.correction", "BH")

	// Logging parameters
	v.SetDefault("logging.level", "info")

	return &Config{v: v}
}

// LoadFromFile loads configuration from file.
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	return c.v.ReadInConfig()
}

// Set allows dynamic configuration changes.
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// Getters for clustering parameters
func (c *Config) ReductionMethod() string { return c.v.GetString("clustering.reduction_method") }
func (c *Config) K() int                  { return c.v.GetInt("clustering.k") }
func (c *Config) LouvainIter() int        { return c.v.GetInt("clustering.louvain_iter") }
func (c *Config) Weight() bool            { return c.v.GetBool("clustering.weight") }
func (c *Config) RandomSeed() int64       { return c.v.GetInt64("clustering.random_seed") }
func (c *Config) Cores() int              { return c.v.GetInt("clustering.cores") }
func (c *Config) MaxComponents() int      { return c.v.GetInt("clustering.max_components") }

// Resolutions returns the resolution sweep; empty means the detector's
// default single resolution.
func (c *Config) Resolutions() []float64 {
	switch val := c.v.Get("clustering.resolution").(type) {
	case nil:
		return nil
	case float64:
		return []float64{val}
	case int:
		return []float64{float64(val)}
	case []float64:
		return val
	default:
		return cast.ToFloat64Slice(val)
	}
}

func (c *Config) PartitionQval() float64 { return c.v.GetFloat64("partition.qval") }
func (c *Config) Correction() string     { return c.v.GetString("partition.correction") }

func (c *Config) LogLevel() string { return c.v.GetString("logging.level") }

// CreateLogger creates a zerolog logger based on config.
func (c *Config) CreateLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).Level(level).With().Timestamp().Str("service", "cluster").Logger()
}

// Validate fails fast on out-of-range or unparseable parameters, naming
// the offending key.
func (c *Config) Validate() error {
	if _, err := embedding.ParseMethod(c.ReductionMethod()); err != nil {
		return fmt.Errorf("%w: clustering.reduction_method: %v", ErrConfiguration, err)
	}
	if c.K() < 1 {
		return fmt.Errorf("%w: clustering.k must be a positive integer, got %d", ErrConfiguration, c.K())
	}
	if c.LouvainIter() < 1 {
		return fmt.Errorf("%w: clustering.louvain_iter must be a positive integer, got %d", ErrConfiguration, c.LouvainIter())
	}
	for _, r := range c.Resolutions() {
		if r <= 0 {
			return fmt.Errorf("%w: clustering.resolution values must be positive, got %g", ErrConfiguration, r)
		}
	}
	if q := c.PartitionQval(); q <= 0 || q >= 1 {
		return fmt.Errorf("%w: partition.qval must be in (0,1), got %g", ErrConfiguration, q)
	}
	if _, err := partition.ParseCorrection(c.Correction()); err != nil {
		return fmt.Errorf("%w: partition.correction: %v", ErrConfiguration, err)
	}
	if c.Cores() < 1 {
		return fmt.Errorf("%w: clustering.cores must be a positive integer, got %d", ErrConfiguration, c.Cores())
	}
	if c.MaxComponents() < 1 {
		return fmt.Errorf("%w: clustering.max_components must be a positive integer, got %d", ErrConfiguration, c.MaxComponents())
	}
	return nil
}
