package beeq

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents a queue.yaml configuration file. It covers the settings a
// deployment tunes without recompiling: queue identity, concurrency, polling,
// and retention. Programmatic concerns (logger, telemetry, the Redis client
// itself) stay on Options.
type Config struct {
	Queue *QueueConfig `yaml:"queue"`
	Redis *RedisConfig `yaml:"redis,omitempty"`
}

// QueueConfig defines per-queue settings.
type QueueConfig struct {
	// Name is the logical namespace for the queue's keys.
	Name string `yaml:"name"`

	// Prefix overrides the leading Redis key segment.
	// Default: "bq".
	Prefix string `yaml:"prefix,omitempty"`

	// Concurrency is the number of concurrent handler slots for Process.
	// Default: 1.
	Concurrency int `yaml:"concurrency,omitempty"`

	// PollInterval bounds each blocking dequeue attempt.
	// Format: Go duration string (e.g., "1s", "500ms"). Default: 1s.
	PollInterval string `yaml:"poll_interval,omitempty"`

	// RemoveOnSuccess purges successful jobs instead of retaining them.
	RemoveOnSuccess bool `yaml:"remove_on_success,omitempty"`

	// RemoveOnFailure purges failed jobs instead of retaining them.
	RemoveOnFailure bool `yaml:"remove_on_failure,omitempty"`
}

// RedisConfig identifies the backing store.
type RedisConfig struct {
	// URL is the Redis connection string (e.g., "redis://localhost:6379").
	URL string `yaml:"url,omitempty"`
}

// GetConcurrency returns the configured concurrency or the default value.
func (q *QueueConfig) GetConcurrency() int {
	if q == nil || q.Concurrency <= 0 {
		return 1
	}
	return q.Concurrency
}

// GetPollInterval parses the poll interval string and returns a duration.
// Returns the default value if not set or invalid.
func (q *QueueConfig) GetPollInterval() time.Duration {
	if q == nil || q.PollInterval == "" {
		return DefaultPollInterval
	}
	d, err := time.ParseDuration(q.PollInterval)
	if err != nil || d <= 0 {
		return DefaultPollInterval
	}
	return d
}

// GetPrefix returns the key prefix or the default value.
func (q *QueueConfig) GetPrefix() string {
	if q == nil || q.Prefix == "" {
		return DefaultPrefix
	}
	return q.Prefix
}

// GetURL returns the Redis URL or the default value.
func (r *RedisConfig) GetURL() string {
	if r == nil || r.URL == "" {
		return "redis://localhost:6379"
	}
	return r.URL
}

// Options converts the queue section into an Options value. Fields without a
// yaml representation are left zero and fall back to their usual defaults.
func (c *Config) Options() Options {
	if c == nil {
		return Options{}
	}
	return Options{
		Prefix:          c.Queue.GetPrefix(),
		PollInterval:    c.Queue.GetPollInterval(),
		RemoveOnSuccess: c.Queue != nil && c.Queue.RemoveOnSuccess,
		RemoveOnFailure: c.Queue != nil && c.Queue.RemoveOnFailure,
	}
}

// LoadConfig reads and parses a queue.yaml file from the given path.
// If the path is a directory, it looks for queue.yaml or queue.yml in that
// directory.
func LoadConfig(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	configPath := path
	if info.IsDir() {
		yamlPath := filepath.Join(path, "queue.yaml")
		if _, err := os.Stat(yamlPath); err == nil {
			configPath = yamlPath
		} else {
			ymlPath := filepath.Join(path, "queue.yml")
			if _, err := os.Stat(ymlPath); err == nil {
				configPath = ymlPath
			} else {
				return nil, fmt.Errorf("no queue.yaml or queue.yml found in %s", path)
			}
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if config.Queue == nil || config.Queue.Name == "" {
		return nil, fmt.Errorf("config %s is missing queue.name", configPath)
	}

	return &config, nil
}
