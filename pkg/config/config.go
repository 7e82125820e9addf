package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the fully resolved backplane configuration.
//
// It is built once at startup by Load and is not mutated afterwards. Each
// backend adapter receives only its own section.
type Config struct {
	Env           string              `yaml:"env"`
	Logging       LoggingConfig       `yaml:"logging"`
	Telemetry     TelemetryConfig     `yaml:"telemetry"`
	Profiling     ProfilingConfig     `yaml:"profiling"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Neo4j         Neo4jConfig         `yaml:"neo4j"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is normalized to uppercase.
	Level  string `env:"LOG_LEVEL" validate:"required,oneof=DEBUG INFO WARN ERROR" yaml:"level"`
	Format string `env:"LOG_FORMAT" validate:"required,oneof=text json" yaml:"format"`
	// Output is stdout, stderr, or a file path.
	Output string `env:"LOG_OUTPUT" validate:"required" yaml:"output"`
	// ErrorOutput is an optional file that also receives ERROR records.
	ErrorOutput string `env:"LOG_ERROR_OUTPUT" yaml:"error_output,omitempty"`

	// Rotation of file outputs. Age is in days; zero backups keeps all
	// files within the age limit.
	MaxSizeMB  int  `env:"LOG_MAX_SIZE_MB" validate:"min=1" yaml:"max_size_mb"`
	MaxAgeDays int  `env:"LOG_MAX_AGE_DAYS" validate:"min=0" yaml:"max_age_days"`
	MaxBackups int  `env:"LOG_MAX_BACKUPS" validate:"min=0" yaml:"max_backups"`
	Compress   bool `env:"LOG_COMPRESS" yaml:"compress"`
}

// TelemetryConfig controls OpenTelemetry tracing of lifecycle operations.
type TelemetryConfig struct {
	Enabled    bool    `env:"TELEMETRY_ENABLED" yaml:"enabled"`
	Endpoint   string  `env:"TELEMETRY_ENDPOINT" validate:"required_if=Enabled true" yaml:"endpoint"`
	Insecure   bool    `env:"TELEMETRY_INSECURE" yaml:"insecure"`
	SampleRate float64 `env:"TELEMETRY_SAMPLE_RATE" validate:"gte=0,lte=1" yaml:"sample_rate"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled  bool   `env:"PROFILING_ENABLED" yaml:"enabled"`
	Endpoint string `env:"PROFILING_ENDPOINT" validate:"required_if=Enabled true,omitempty,url" yaml:"endpoint"`
	// Types are Pyroscope profile type names, e.g. cpu or inuse_space.
	Types []string `env:"PROFILING_TYPES" validate:"dive,oneof=cpu alloc_objects alloc_space inuse_objects inuse_space goroutines mutex_count mutex_duration block_count block_duration" yaml:"types"`
}

// MetricsConfig controls Prometheus metrics collection and the ops HTTP
// server that exposes them alongside health endpoints.
type MetricsConfig struct {
	Enabled bool `env:"METRICS_ENABLED" yaml:"enabled"`
	Port    int  `env:"OPS_PORT" validate:"min=1,max=65535" yaml:"port"`
}

// ServerConfig holds process lifecycle timeouts.
type ServerConfig struct {
	// ShutdownTimeout bounds the whole teardown pass.
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" validate:"gt=0" yaml:"shutdown_timeout"`
	// StartupTimeout bounds the initialization pass; zero means no bound.
	StartupTimeout time.Duration `env:"STARTUP_TIMEOUT" validate:"gte=0" yaml:"startup_timeout"`
}

// DatabaseConfig configures the relational store.
type DatabaseConfig struct {
	// URL is a PostgreSQL connection string (URL or keyword/value form).
	URL string `env:"DATABASE_URL" validate:"required" yaml:"url"`
}

// RedisConfig configures the cache client.
type RedisConfig struct {
	Host string `env:"REDIS_HOST" validate:"required" yaml:"host"`
	Port int    `env:"REDIS_PORT" validate:"min=1,max=65535" yaml:"port"`
	// Password is nil when no password is configured.
	Password *string `env:"REDIS_PASSWORD" yaml:"password,omitempty"`
	DB       int     `env:"REDIS_DB" validate:"gte=0" yaml:"db"`
}

// Addr returns host:port.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Neo4jConfig configures the graph driver.
type Neo4jConfig struct {
	URI      string `env:"NEO4J_URI" validate:"required,uri" yaml:"uri"`
	User     string `env:"NEO4J_USER" validate:"required" yaml:"user"`
	Password string `env:"NEO4J_PASSWORD" yaml:"password"`
	// Database is used by sessions that do not name one explicitly.
	Database string `env:"NEO4J_DATABASE" validate:"required" yaml:"database"`
}

// ElasticsearchConfig configures the search client. Credentials are optional;
// see the elasticsearch package for how the auth strategy is chosen.
type ElasticsearchConfig struct {
	Node       string `env:"ELASTICSEARCH_NODE" validate:"required,url" yaml:"node"`
	Username   string `env:"ELASTICSEARCH_USER" yaml:"username,omitempty"`
	Password   string `env:"ELASTICSEARCH_PASSWORD" yaml:"password,omitempty"`
	APIKey     string `env:"ELASTICSEARCH_API_KEY" yaml:"api_key,omitempty"`
	Serverless bool   `env:"ELASTICSEARCH_SERVERLESS" yaml:"serverless"`
}

// Load resolves the full configuration from src and validates it.
//
// Every malformed typed value is reported (joined), not just the first one.
func Load(src Source) (*Config, error) {
	r := NewResolver(src)
	p := &parser{r: r}

	cfg := &Config{
		Env: r.Get(KeyAppEnv, DefaultAppEnv),
		Logging: LoggingConfig{
			Level:  strings.ToUpper(r.Get(KeyLogLevel, DefaultLogLevel)),
			Format: strings.ToLower(r.Get(KeyLogFormat, DefaultLogFormat)),
			Output: r.Get(KeyLogOutput, DefaultLogOutput),

			ErrorOutput: r.Get(KeyLogErrorOutput, ""),
			MaxSizeMB:   p.integer(KeyLogMaxSizeMB, DefaultLogMaxSizeMB),
			MaxAgeDays:  p.integer(KeyLogMaxAgeDays, DefaultLogMaxAgeDays),
			MaxBackups:  p.integer(KeyLogMaxBackups, 0),
			Compress:    p.boolean(KeyLogCompress, true),
		},
		Telemetry: TelemetryConfig{
			Enabled:    p.boolean(KeyTelemetryEnabled, false),
			Endpoint:   r.Get(KeyTelemetryEndpoint, DefaultTelemetryEndpoint),
			Insecure:   p.boolean(KeyTelemetryInsecure, true),
			SampleRate: p.float(KeyTelemetrySampleRate, DefaultTelemetrySampleRate),
		},
		Profiling: ProfilingConfig{
			Enabled:  p.boolean(KeyProfilingEnabled, false),
			Endpoint: r.Get(KeyProfilingEndpoint, DefaultProfilingEndpoint),
			Types:    splitList(r.Get(KeyProfilingTypes, DefaultProfilingTypes)),
		},
		Metrics: MetricsConfig{
			Enabled: p.boolean(KeyMetricsEnabled, false),
			Port:    p.integer(KeyOpsPort, DefaultOpsPort),
		},
		Server: ServerConfig{
			ShutdownTimeout: p.duration(KeyShutdownTimeout, DefaultShutdownTimeout),
			StartupTimeout:  p.duration(KeyStartupTimeout, 0),
		},
		Database: DatabaseConfig{
			URL: r.Get(KeyDatabaseURL, ""),
		},
		Redis: RedisConfig{
			Host:     r.Get(KeyRedisHost, DefaultRedisHost),
			Port:     p.integer(KeyRedisPort, DefaultRedisPort),
			Password: r.Optional(KeyRedisPassword),
			DB:       p.integer(KeyRedisDB, DefaultRedisDB),
		},
		Neo4j: Neo4jConfig{
			URI:      r.Get(KeyNeo4jURI, DefaultNeo4jURI),
			User:     r.Get(KeyNeo4jUser, DefaultNeo4jUser),
			Password: r.Get(KeyNeo4jPassword, DefaultNeo4jPassword),
			Database: r.Get(KeyNeo4jDatabase, DefaultNeo4jDatabase),
		},
		Elasticsearch: ElasticsearchConfig{
			Node:       r.Get(KeyElasticsearchNode, DefaultElasticsearchNode),
			Username:   r.Get(KeyElasticsearchUser, ""),
			Password:   r.Get(KeyElasticsearchPassword, ""),
			APIKey:     r.Get(KeyElasticsearchAPIKey, ""),
			Serverless: p.boolean(KeyElasticsearchServerless, false),
		},
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parser collects typed-read errors so Load can report all of them.
type parser struct {
	r    *Resolver
	errs []error
}

func (p *parser) integer(key string, def int) int {
	v, err := p.r.Int(key, def)
	p.record(err)
	return v
}

func (p *parser) boolean(key string, def bool) bool {
	v, err := p.r.Bool(key, def)
	p.record(err)
	return v
}

func (p *parser) float(key string, def float64) float64 {
	v, err := p.r.Float(key, def)
	p.record(err)
	return v
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v, err := p.r.Duration(key, def)
	p.record(err)
	return v
}

func (p *parser) record(err error) {
	if err != nil {
		p.errs = append(p.errs, err)
	}
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
