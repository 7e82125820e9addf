package config

import "time"

// Configuration keys. Backend keys match the variable names operators already
// use for these services; every key except DATABASE_URL has a default.
const (
	KeyAppEnv = "APP_ENV"

	KeyLogLevel  = "LOG_LEVEL"
	KeyLogFormat = "LOG_FORMAT"
	KeyLogOutput = "LOG_OUTPUT"

	KeyLogErrorOutput = "LOG_ERROR_OUTPUT"
	KeyLogMaxSizeMB   = "LOG_MAX_SIZE_MB"
	KeyLogMaxAgeDays  = "LOG_MAX_AGE_DAYS"
	KeyLogMaxBackups  = "LOG_MAX_BACKUPS"
	KeyLogCompress    = "LOG_COMPRESS"

	KeyTelemetryEnabled    = "TELEMETRY_ENABLED"
	KeyTelemetryEndpoint   = "TELEMETRY_ENDPOINT"
	KeyTelemetryInsecure   = "TELEMETRY_INSECURE"
	KeyTelemetrySampleRate = "TELEMETRY_SAMPLE_RATE"

	KeyProfilingEnabled  = "PROFILING_ENABLED"
	KeyProfilingEndpoint = "PROFILING_ENDPOINT"
	KeyProfilingTypes    = "PROFILING_TYPES"

	KeyMetricsEnabled = "METRICS_ENABLED"
	KeyOpsPort        = "OPS_PORT"

	KeyShutdownTimeout = "SHUTDOWN_TIMEOUT"
	KeyStartupTimeout  = "STARTUP_TIMEOUT"

	KeyDatabaseURL = "DATABASE_URL"

	KeyRedisHost     = "REDIS_HOST"
	KeyRedisPort     = "REDIS_PORT"
	KeyRedisPassword = "REDIS_PASSWORD"
	KeyRedisDB       = "REDIS_DB"

	KeyNeo4jURI      = "NEO4J_URI"
	KeyNeo4jUser     = "NEO4J_USER"
	KeyNeo4jPassword = "NEO4J_PASSWORD"
	KeyNeo4jDatabase = "NEO4J_DATABASE"

	KeyElasticsearchNode       = "ELASTICSEARCH_NODE"
	KeyElasticsearchUser       = "ELASTICSEARCH_USER"
	KeyElasticsearchPassword   = "ELASTICSEARCH_PASSWORD"
	KeyElasticsearchAPIKey     = "ELASTICSEARCH_API_KEY"
	KeyElasticsearchServerless = "ELASTICSEARCH_SERVERLESS"
)

// Defaults.
const (
	DefaultAppEnv = "development"

	DefaultLogLevel  = "INFO"
	DefaultLogFormat = "text"
	DefaultLogOutput = "stdout"

	DefaultLogMaxSizeMB  = 20
	DefaultLogMaxAgeDays = 30

	DefaultTelemetryEndpoint   = "localhost:4317"
	DefaultTelemetrySampleRate = 1.0

	DefaultProfilingEndpoint = "http://localhost:4040"
	DefaultProfilingTypes    = "cpu,alloc_space,inuse_space,goroutines"

	DefaultOpsPort = 9090

	DefaultShutdownTimeout = 30 * time.Second

	DefaultRedisHost = "localhost"
	DefaultRedisPort = 6379
	DefaultRedisDB   = 0

	DefaultNeo4jURI      = "bolt://localhost:7687"
	DefaultNeo4jUser     = "neo4j"
	DefaultNeo4jPassword = "neo4j"
	DefaultNeo4jDatabase = "neo4j"

	DefaultElasticsearchNode = "http://localhost:9200"
)
