// Package stack wires the four backends and the lifecycle manager from a
// resolved configuration.
package stack

import (
	"github.com/marmos91/backplane/pkg/backend"
	"github.com/marmos91/backplane/pkg/backend/elasticsearch"
	"github.com/marmos91/backplane/pkg/backend/neo4j"
	"github.com/marmos91/backplane/pkg/backend/postgres"
	"github.com/marmos91/backplane/pkg/backend/redis"
	"github.com/marmos91/backplane/pkg/config"
	"github.com/marmos91/backplane/pkg/lifecycle"
	"github.com/marmos91/backplane/pkg/metrics"
)

// Stack holds the typed adapters and the Manager that drives them.
type Stack struct {
	Postgres      *postgres.Store
	Redis         *redis.Cache
	Neo4j         *neo4j.Graph
	Elasticsearch *elasticsearch.Search
	Manager       *lifecycle.Manager
}

type options struct {
	postgres      []postgres.Option
	redis         []redis.Option
	neo4j         []neo4j.Option
	elasticsearch []elasticsearch.Option
	lifecycle     []lifecycle.Option
}

// Option customizes how New builds the stack.
type Option func(*options)

// WithPostgresOptions passes options to the relational adapter.
func WithPostgresOptions(opts ...postgres.Option) Option {
	return func(o *options) { o.postgres = append(o.postgres, opts...) }
}

// WithRedisOptions passes options to the cache adapter.
func WithRedisOptions(opts ...redis.Option) Option {
	return func(o *options) { o.redis = append(o.redis, opts...) }
}

// WithNeo4jOptions passes options to the graph adapter.
func WithNeo4jOptions(opts ...neo4j.Option) Option {
	return func(o *options) { o.neo4j = append(o.neo4j, opts...) }
}

// WithElasticsearchOptions passes options to the search adapter.
func WithElasticsearchOptions(opts ...elasticsearch.Option) Option {
	return func(o *options) { o.elasticsearch = append(o.elasticsearch, opts...) }
}

// WithLifecycleOptions passes options to the Manager. They are applied after
// the metrics default, so WithMetrics here overrides it.
func WithLifecycleOptions(opts ...lifecycle.Option) Option {
	return func(o *options) { o.lifecycle = append(o.lifecycle, opts...) }
}

// New builds the adapters in startup order: relational, cache, graph,
// search. Nothing connects until Manager.Start.
//
// Lifecycle metrics are attached when metrics.InitRegistry has been called
// and the Prometheus implementation is linked in.
func New(cfg *config.Config, opts ...Option) *Stack {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s := &Stack{
		Postgres:      postgres.New(cfg.Database, o.postgres...),
		Redis:         redis.New(cfg.Redis, o.redis...),
		Neo4j:         neo4j.New(cfg.Neo4j, o.neo4j...),
		Elasticsearch: elasticsearch.New(cfg.Elasticsearch, o.elasticsearch...),
	}

	lifecycleOpts := append([]lifecycle.Option{
		lifecycle.WithMetrics(metrics.NewLifecycleMetrics()),
	}, o.lifecycle...)
	s.Manager = lifecycle.NewManager(s.Backends(), lifecycleOpts...)
	return s
}

// Backends returns the adapters in startup order.
func (s *Stack) Backends() []backend.Backend {
	return []backend.Backend{s.Postgres, s.Redis, s.Neo4j, s.Elasticsearch}
}
