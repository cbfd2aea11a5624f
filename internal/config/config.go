package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Paths       PathsConfig       `yaml:"paths"`
	Segmenter   SegmenterConfig   `yaml:"segmenter"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Index       IndexConfig       `yaml:"index"`
	Tracker     TrackerConfig     `yaml:"tracker"`
	Probe       ProbeConfig       `yaml:"probe"`
	Logging     LoggingConfig     `yaml:"logging"`
	Performance PerformanceConfig `yaml:"performance"`
}

type PathsConfig struct {
	Videos      string `yaml:"videos"`
	Transcripts string `yaml:"transcripts"`
	Manifest    string `yaml:"manifest"`
}

type SegmenterConfig struct {
	MaxSegmentChars int      `yaml:"max_segment_chars"`
	MaxSilenceGap   Duration `yaml:"max_silence_gap"`
}

type EmbeddingConfig struct {
	Provider      string      `yaml:"provider"` // gemini | openai
	Model         string      `yaml:"model"`
	APIKeys       []string    `yaml:"api_keys"`
	Dimensions    int         `yaml:"dimensions"`
	MaxConcurrent int         `yaml:"max_concurrent"`
	Retry         RetryConfig `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts int      `yaml:"max_attempts"`
	BaseDelay   Duration `yaml:"base_delay"`
	MaxDelay    Duration `yaml:"max_delay"`
}

type IndexConfig struct {
	Backend       string              `yaml:"backend"` // elasticsearch | cassandra
	BatchSize     int                 `yaml:"batch_size"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Cassandra     CassandraConfig     `yaml:"cassandra"`
}

type ElasticsearchConfig struct {
	URL      string `yaml:"url"`
	Index    string `yaml:"index"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type CassandraConfig struct {
	Hosts    []string `yaml:"hosts"`
	Keyspace string   `yaml:"keyspace"`
	Table    string   `yaml:"table"`
}

// TrackerConfig enables the Redis checksum tracker when Addr is set.
// Without it every run re-embeds every transcript.
type TrackerConfig struct {
	RedisAddr string `yaml:"redis_addr"`
	HashKey   string `yaml:"hash_key"`
}

type ProbeConfig struct {
	Enabled     bool   `yaml:"enabled"`
	FFprobePath string `yaml:"ffprobe_path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type PerformanceConfig struct {
	MaxConcurrent int `yaml:"max_concurrent"`
}

// Duration wraps time.Duration so YAML values can be written as "5s", "500ms".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load reads, unmarshals and validates a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Paths.Videos == "" {
		return fmt.Errorf("paths.videos is required")
	}
	if c.Paths.Transcripts == "" {
		return fmt.Errorf("paths.transcripts is required")
	}
	if c.Paths.Manifest == "" {
		return fmt.Errorf("paths.manifest is required")
	}

	switch c.Index.Backend {
	case "", "elasticsearch":
		c.Index.Backend = "elasticsearch"
		if c.Index.Elasticsearch.URL == "" {
			return fmt.Errorf("index.elasticsearch.url is required")
		}
		if c.Index.Elasticsearch.Index == "" {
			c.Index.Elasticsearch.Index = "video_transcriptions"
		}
	case "cassandra":
		if len(c.Index.Cassandra.Hosts) == 0 {
			return fmt.Errorf("index.cassandra.hosts is required")
		}
		if c.Index.Cassandra.Keyspace == "" {
			c.Index.Cassandra.Keyspace = "transcript_db"
		}
		if c.Index.Cassandra.Table == "" {
			c.Index.Cassandra.Table = "segments"
		}
	default:
		return fmt.Errorf("index.backend must be elasticsearch or cassandra, got %q", c.Index.Backend)
	}

	switch c.Embedding.Provider {
	case "", "gemini":
		c.Embedding.Provider = "gemini"
		if c.Embedding.Model == "" {
			c.Embedding.Model = "gemini-embedding-001"
		}
	case "openai":
		if c.Embedding.Model == "" {
			c.Embedding.Model = "text-embedding-3-large"
		}
	default:
		return fmt.Errorf("embedding.provider must be gemini or openai, got %q", c.Embedding.Provider)
	}
	if len(c.Embedding.APIKeys) == 0 {
		return fmt.Errorf("embedding.api_keys is required")
	}

	if c.Segmenter.MaxSegmentChars == 0 {
		c.Segmenter.MaxSegmentChars = 400
	}
	if c.Segmenter.MaxSilenceGap == 0 {
		c.Segmenter.MaxSilenceGap = Duration(5 * time.Second)
	}
	if c.Embedding.Dimensions == 0 {
		c.Embedding.Dimensions = 768
	}
	if c.Embedding.MaxConcurrent == 0 {
		c.Embedding.MaxConcurrent = 4
	}
	if c.Embedding.Retry.MaxAttempts == 0 {
		c.Embedding.Retry.MaxAttempts = 3
	}
	if c.Embedding.Retry.BaseDelay == 0 {
		c.Embedding.Retry.BaseDelay = Duration(500 * time.Millisecond)
	}
	if c.Embedding.Retry.MaxDelay == 0 {
		c.Embedding.Retry.MaxDelay = Duration(8 * time.Second)
	}
	if c.Index.BatchSize == 0 {
		c.Index.BatchSize = 50
	}
	if c.Tracker.RedisAddr != "" && c.Tracker.HashKey == "" {
		c.Tracker.HashKey = "indexed:videos"
	}
	if c.Probe.Enabled && c.Probe.FFprobePath == "" {
		c.Probe.FFprobePath = "ffprobe"
	}
	if c.Performance.MaxConcurrent == 0 {
		c.Performance.MaxConcurrent = 1
	}

	return nil
}
