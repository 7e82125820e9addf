package logger

// Standard field keys for structured logging.
// Use these keys consistently so backend events can be queried uniformly.
const (
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	KeyComponent   = "component"
	KeyBackend     = "backend"     // postgres, redis, neo4j, elasticsearch
	KeyState       = "state"       // handle state after a transition
	KeyStatus      = "status"      // orchestrator status
	KeyCriticality = "criticality" // required, optional
	KeyErrorKind   = "error_kind"
	KeyError       = "error"
	KeyDurationMs  = "duration_ms"

	KeyAddr     = "addr"
	KeyHost     = "host"
	KeyPort     = "port"
	KeyDatabase = "database"
	KeyUser     = "user"
	KeyURI      = "uri"
	KeyNode     = "node"
	KeyAuth     = "auth"
	KeyMode     = "mode"
	KeyMaxConns = "max_conns"
	KeyDB       = "db"
)
