// Package catalog tracks which data sources each user has registered. A
// durable PostgreSQL store is the source of truth; an in-process cache keeps
// the service answering when the store is unreachable.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tessellate-ai/analyst-engine/pkg/apperrors"
	"github.com/tessellate-ai/analyst-engine/pkg/models"
)

// Store is the durable tier of the catalog.
type Store interface {
	// EnsureSchema creates the catalog tables if they do not exist.
	EnsureSchema(ctx context.Context) error

	// SaveDataset records an uploaded dataset for a user. Re-saving the same
	// (userID, id) pair is a no-op.
	SaveDataset(ctx context.Context, userID string, entry models.SourceEntry) error

	// SaveConnection records a SQL connection with the credentials needed to
	// re-establish it after a restart.
	SaveConnection(ctx context.Context, userID string, entry models.SourceEntry, creds models.ConnectionCredentials) error

	// DeleteEntry removes a registered source of either kind.
	DeleteEntry(ctx context.Context, userID, id string, kind models.SourceKind) error

	// GetUserContext lists everything the user has registered.
	GetUserContext(ctx context.Context, userID string) (models.UserContext, error)

	// GetConnection returns stored credentials, or apperrors.ErrConnectionNotFound.
	GetConnection(ctx context.Context, userID, connectionID string) (*models.ConnectionCredentials, error)
}

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing pool. The pool is expected to be lazy:
// a store backed by an unreachable database still constructs, and callers
// degrade to their cache on query errors.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the two catalog tables. Idempotent.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS datasets (
			user_id TEXT NOT NULL,
			id TEXT NOT NULL,
			name TEXT NOT NULL,
			metadata JSONB,
			registered_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (user_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS sql_connections (
			user_id TEXT NOT NULL,
			id TEXT NOT NULL,
			name TEXT NOT NULL,
			db_type TEXT NOT NULL,
			host TEXT NOT NULL,
			port INTEGER NOT NULL,
			database_name TEXT NOT NULL,
			username TEXT NOT NULL,
			password TEXT NOT NULL,
			metadata JSONB,
			registered_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (user_id, id)
		)`,
	}
	for _, stmt := range ddl {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure catalog schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveDataset(ctx context.Context, userID string, entry models.SourceEntry) error {
	meta, err := marshalMetadata(entry.Metadata)
	if err != nil {
		return err
	}
	if entry.RegisteredAt.IsZero() {
		entry.RegisteredAt = time.Now().UTC()
	}

	query := `
		INSERT INTO datasets (user_id, id, name, metadata, registered_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, id) DO NOTHING`

	if _, err := s.pool.Exec(ctx, query, userID, entry.ID, entry.Name, meta, entry.RegisteredAt); err != nil {
		return fmt.Errorf("failed to save dataset: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveConnection(ctx context.Context, userID string, entry models.SourceEntry, creds models.ConnectionCredentials) error {
	meta, err := marshalMetadata(entry.Metadata)
	if err != nil {
		return err
	}
	if entry.RegisteredAt.IsZero() {
		entry.RegisteredAt = time.Now().UTC()
	}

	query := `
		INSERT INTO sql_connections (user_id, id, name, db_type, host, port, database_name, username, password, metadata, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, id) DO NOTHING`

	_, err = s.pool.Exec(ctx, query,
		userID, entry.ID, entry.Name,
		creds.DBType, creds.Host, creds.Port, creds.Database, creds.Username, creds.Password,
		meta, entry.RegisteredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save connection: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteEntry(ctx context.Context, userID, id string, kind models.SourceKind) error {
	table := "datasets"
	if kind == models.SourceKindSQL {
		table = "sql_connections"
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE user_id = $1 AND id = $2", table)
	if _, err := s.pool.Exec(ctx, query, userID, id); err != nil {
		return fmt.Errorf("failed to delete catalog entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserContext(ctx context.Context, userID string) (models.UserContext, error) {
	var uc models.UserContext

	datasets, err := s.queryEntries(ctx,
		`SELECT id, name, metadata, registered_at FROM datasets WHERE user_id = $1 ORDER BY registered_at`,
		userID, models.SourceKindCSV)
	if err != nil {
		return uc, err
	}
	uc.CSVFiles = datasets

	connections, err := s.queryEntries(ctx,
		`SELECT id, name, metadata, registered_at FROM sql_connections WHERE user_id = $1 ORDER BY registered_at`,
		userID, models.SourceKindSQL)
	if err != nil {
		return uc, err
	}
	uc.SQLDatabases = connections

	return uc, nil
}

func (s *PostgresStore) GetConnection(ctx context.Context, userID, connectionID string) (*models.ConnectionCredentials, error) {
	query := `
		SELECT id, db_type, host, port, database_name, username, password
		FROM sql_connections
		WHERE user_id = $1 AND id = $2`

	var creds models.ConnectionCredentials
	err := s.pool.QueryRow(ctx, query, userID, connectionID).Scan(
		&creds.ID, &creds.DBType, &creds.Host, &creds.Port,
		&creds.Database, &creds.Username, &creds.Password,
	)
	if err == pgx.ErrNoRows {
		return nil, apperrors.ErrConnectionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load connection credentials: %w", err)
	}
	return &creds, nil
}

func (s *PostgresStore) queryEntries(ctx context.Context, query, userID string, kind models.SourceKind) ([]models.SourceEntry, error) {
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog entries: %w", err)
	}
	defer rows.Close()

	var entries []models.SourceEntry
	for rows.Next() {
		var entry models.SourceEntry
		var meta []byte
		if err := rows.Scan(&entry.ID, &entry.Name, &meta, &entry.RegisteredAt); err != nil {
			return nil, fmt.Errorf("failed to scan catalog entry: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode entry metadata: %w", err)
			}
		}
		entry.Kind = kind
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func marshalMetadata(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entry metadata: %w", err)
	}
	return data, nil
}
