// Package datasource manages live SQL connections: dialect adapters, the
// connection registry, and read-only query execution.
package datasource

import (
	"context"

	"go.uber.org/zap"

	"github.com/tessellate-ai/analyst-engine/pkg/models"
)

// QueryResult is the tabular outcome of one executed statement.
type QueryResult struct {
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"rowCount"`
}

// Adapter is a live connection to one database, implemented per dialect.
type Adapter interface {
	// TestConnection verifies the database answers a trivial query.
	TestConnection(ctx context.Context) error

	// GetTables lists the user-visible tables of the connected database.
	GetTables(ctx context.Context) ([]string, error)

	// GetColumns lists a table's columns with their declared types.
	GetColumns(ctx context.Context, table string) ([]models.Column, error)

	// Query runs an already-validated statement and materializes the rows.
	Query(ctx context.Context, sql string) (*QueryResult, error)

	// Close releases the underlying pool.
	Close() error
}

// Opener creates an adapter from stored credentials. Each dialect package
// registers one in its init.
type Opener func(ctx context.Context, creds models.ConnectionCredentials, logger *zap.Logger) (Adapter, error)

// CredentialStore resolves persisted connection credentials, letting the
// registry rebuild adapters that were lost to a process restart.
type CredentialStore interface {
	GetConnectionCredentials(ctx context.Context, userID, connectionID string) (*models.ConnectionCredentials, error)
}
