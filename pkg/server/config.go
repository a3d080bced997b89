package server

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds HTTP server and job-store settings. Values come from
// defaults overridden by CLUSTER_* environment variables, e.g.
// CLUSTER_SERVER_ADDRESS or CLUSTER_JOBS_MAX_WORKERS.
type Config struct {
	v *viper.Viper
}

// LoadConfig builds the server configuration.
func LoadConfig() *Config {
	v := viper.New()

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("jobs.max_workers", 4)
	v.SetDefault("jobs.ttl", time.Hour)
	v.SetDefault("jobs.cleanup_interval", 5*time.Minute)
	v.SetDefault("logging.level", "info")

	v.SetEnvPrefix("cluster")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Config{v: v}
}

func (c *Config) Address() string             { return c.v.GetString("server.address") }
func (c *Config) ReadTimeout() time.Duration  { return c.v.GetDuration("server.read_timeout") }
func (c *Config) WriteTimeout() time.Duration { return c.v.GetDuration("server.write_timeout") }
func (c *Config) MaxWorkers() int             { return c.v.GetInt("jobs.max_workers") }
func (c *Config) JobTTL() time.Duration       { return c.v.GetDuration("jobs.ttl") }
func (c *Config) CleanupEvery() time.Duration { return c.v.GetDuration("jobs.cleanup_interval") }
func (c *Config) LogLevel() string            { return c.v.GetString("logging.level") }

// Set overrides a configuration value, mainly for tests.
func (c *Config) Set(key string, value interface{}) { c.v.Set(key, value) }
