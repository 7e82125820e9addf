package neo4j

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// SessionMode selects the access mode of a new session.
type SessionMode int

const (
	Read SessionMode = iota
	Write
)

func (m SessionMode) String() string {
	if m == Write {
		return "write"
	}
	return "read"
}

func (m SessionMode) accessMode() neo4j.AccessMode {
	if m == Write {
		return neo4j.AccessModeWrite
	}
	return neo4j.AccessModeRead
}

// Session opens a session in the given mode. database overrides the
// configured default database when non-empty. The caller must close the
// session.
func (g *Graph) Session(ctx context.Context, mode SessionMode, database string) (neo4j.SessionWithContext, error) {
	driver, err := g.Driver()
	if err != nil {
		return nil, err
	}
	return driver.NewSession(ctx, g.sessionConfig(mode, database)), nil
}

func (g *Graph) sessionConfig(mode SessionMode, database string) neo4j.SessionConfig {
	if database == "" {
		database = g.cfg.Database
	}
	return neo4j.SessionConfig{
		AccessMode:   mode.accessMode(),
		DatabaseName: database,
	}
}

// ReadSession opens a read session on the optional database, defaulting to
// the configured one.
func (g *Graph) ReadSession(ctx context.Context, database ...string) (neo4j.SessionWithContext, error) {
	return g.Session(ctx, Read, first(database))
}

// WriteSession opens a write session on the optional database, defaulting to
// the configured one.
func (g *Graph) WriteSession(ctx context.Context, database ...string) (neo4j.SessionWithContext, error) {
	return g.Session(ctx, Write, first(database))
}

// ExecuteRead runs work in a managed read transaction on a session that is
// closed when ExecuteRead returns, whether work succeeds, fails or panics.
func (g *Graph) ExecuteRead(ctx context.Context, database string, work neo4j.ManagedTransactionWork) (any, error) {
	session, err := g.Session(ctx, Read, database)
	if err != nil {
		return nil, err
	}
	defer func() { _ = session.Close(ctx) }()
	return session.ExecuteRead(ctx, work)
}

// ExecuteWrite runs work in a managed write transaction. See ExecuteRead.
func (g *Graph) ExecuteWrite(ctx context.Context, database string, work neo4j.ManagedTransactionWork) (any, error) {
	session, err := g.Session(ctx, Write, database)
	if err != nil {
		return nil, err
	}
	defer func() { _ = session.Close(ctx) }()
	return session.ExecuteWrite(ctx, work)
}

func first(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}
