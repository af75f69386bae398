// Package config loads and validates ingestion configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all pipeline configuration knobs loaded via Viper.
type Config struct {
	Source   SourceConfig   `mapstructure:"source"`
	Executor ExecutorConfig `mapstructure:"executor"`
	Filter   FilterConfig   `mapstructure:"filter"`
	Bridge   BridgeConfig   `mapstructure:"bridge"`
	Scoring  ScoringConfig  `mapstructure:"scoring"`
	Export   ExportConfig   `mapstructure:"export"`
	Report   ReportConfig   `mapstructure:"report"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// SourceConfig selects the bucket holding the archive files.
type SourceConfig struct {
	Backend   string `mapstructure:"backend"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Region    string `mapstructure:"region"`
	LocalDir  string `mapstructure:"local_dir"`
}

// ExecutorConfig governs per-file fan-out.
type ExecutorConfig struct {
	MaxParallel int           `mapstructure:"max_parallel"`
	FileTimeout time.Duration `mapstructure:"file_timeout"`
}

// FilterConfig holds the record filter thresholds and markers.
type FilterConfig struct {
	MaxContentLength  int64  `mapstructure:"max_content_length"`
	OversizePolicy    string `mapstructure:"oversize_policy"`
	MinContentLength  int64  `mapstructure:"min_content_length"`
	ContentTypePrefix string `mapstructure:"content_type_prefix"`
	TargetLanguage    string `mapstructure:"target_language"`
	LanguageMarker    string `mapstructure:"language_marker"`
	SchemaMarker      string `mapstructure:"schema_marker"`
	DomainQuota       int64  `mapstructure:"domain_quota"`
	LabelTable        string `mapstructure:"label_table"`
}

// BridgeConfig sizes the worker-to-driver buffer.
type BridgeConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// ScoringConfig selects the batch scorer.
type ScoringConfig struct {
	Backend   string        `mapstructure:"backend"`
	Endpoint  string        `mapstructure:"endpoint"`
	BatchSize int           `mapstructure:"batch_size"`
	Threshold float64       `mapstructure:"threshold"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// ExportConfig selects the export sink.
type ExportConfig struct {
	Backend   string `mapstructure:"backend"`
	Path      string `mapstructure:"path"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// ReportConfig controls periodic counter logging.
type ReportConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// MetricsConfig controls the optional HTTP metrics endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// TracingConfig toggles OpenTelemetry tracing.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.backend", "local")
	v.SetDefault("source.bucket", "")
	v.SetDefault("source.prefix", "")
	v.SetDefault("source.endpoint", "")
	v.SetDefault("source.access_key", "")
	v.SetDefault("source.secret_key", "")
	v.SetDefault("source.use_ssl", true)
	v.SetDefault("source.region", "")
	v.SetDefault("source.local_dir", "data/warc")
	v.SetDefault("executor.max_parallel", 0)
	v.SetDefault("executor.file_timeout", 0)
	v.SetDefault("filter.max_content_length", 4000000)
	v.SetDefault("filter.oversize_policy", "skip")
	v.SetDefault("filter.min_content_length", 128)
	v.SetDefault("filter.content_type_prefix", "text/html")
	v.SetDefault("filter.target_language", "en")
	v.SetDefault("filter.language_marker", `lang="en"`)
	v.SetDefault("filter.schema_marker", "http://schema.org")
	v.SetDefault("filter.domain_quota", 2000)
	v.SetDefault("filter.label_table", "")
	v.SetDefault("bridge.capacity", 1024)
	v.SetDefault("scoring.backend", "passthrough")
	v.SetDefault("scoring.endpoint", "")
	v.SetDefault("scoring.batch_size", 32)
	v.SetDefault("scoring.threshold", 0.9)
	v.SetDefault("scoring.timeout", 30*time.Second)
	v.SetDefault("export.backend", "jsonl")
	v.SetDefault("export.path", "data/out/records.jsonl")
	v.SetDefault("export.project_id", "")
	v.SetDefault("export.topic", "")
	v.SetDefault("report.interval", 10*time.Second)
	v.SetDefault("metrics.addr", "")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "webarchive-ingest")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	switch c.Source.Backend {
	case "local":
		if c.Source.LocalDir == "" {
			return fmt.Errorf("source.local_dir must be set for the local backend")
		}
	case "s3":
		if c.Source.Endpoint == "" {
			return fmt.Errorf("source.endpoint must be set for the s3 backend")
		}
		if c.Source.Bucket == "" {
			return fmt.Errorf("source.bucket must be set for the s3 backend")
		}
	case "gcs":
		if c.Source.Bucket == "" {
			return fmt.Errorf("source.bucket must be set for the gcs backend")
		}
	case "memory":
	default:
		return fmt.Errorf("source.backend %q is not supported", c.Source.Backend)
	}
	if c.Executor.MaxParallel < 0 {
		return fmt.Errorf("executor.max_parallel must be >= 0")
	}
	if c.Executor.FileTimeout < 0 {
		return fmt.Errorf("executor.file_timeout must be >= 0")
	}
	if c.Filter.MaxContentLength <= 0 {
		return fmt.Errorf("filter.max_content_length must be > 0")
	}
	if c.Filter.OversizePolicy != "skip" && c.Filter.OversizePolicy != "truncate" {
		return fmt.Errorf("filter.oversize_policy must be skip or truncate")
	}
	if c.Filter.MinContentLength < 0 {
		return fmt.Errorf("filter.min_content_length must be >= 0")
	}
	if c.Filter.DomainQuota < 0 {
		return fmt.Errorf("filter.domain_quota must be >= 0")
	}
	if c.Bridge.Capacity <= 0 {
		return fmt.Errorf("bridge.capacity must be > 0")
	}
	switch c.Scoring.Backend {
	case "passthrough":
	case "http":
		if c.Scoring.Endpoint == "" {
			return fmt.Errorf("scoring.endpoint must be set for the http scorer")
		}
	default:
		return fmt.Errorf("scoring.backend %q is not supported", c.Scoring.Backend)
	}
	if c.Scoring.BatchSize <= 0 {
		return fmt.Errorf("scoring.batch_size must be > 0")
	}
	if c.Scoring.Threshold < 0 || c.Scoring.Threshold > 1 {
		return fmt.Errorf("scoring.threshold must be within [0,1]")
	}
	switch c.Export.Backend {
	case "jsonl":
		if c.Export.Path == "" {
			return fmt.Errorf("export.path must be set for the jsonl exporter")
		}
	case "pubsub":
		if c.Export.ProjectID == "" || c.Export.Topic == "" {
			return fmt.Errorf("export.project_id and export.topic must be set for the pubsub exporter")
		}
	case "memory":
	default:
		return fmt.Errorf("export.backend %q is not supported", c.Export.Backend)
	}
	if c.Report.Interval <= 0 {
		return fmt.Errorf("report.interval must be > 0")
	}
	return nil
}
