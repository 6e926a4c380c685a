package datasource

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tessellate-ai/analyst-engine/pkg/apperrors"
	"github.com/tessellate-ai/analyst-engine/pkg/logging"
	"github.com/tessellate-ai/analyst-engine/pkg/models"
	"github.com/tessellate-ai/analyst-engine/pkg/retry"
	"github.com/tessellate-ai/analyst-engine/pkg/sqlguard"
)

// maxResultRows caps any executed statement that carries no LIMIT of its own.
const maxResultRows = 1000

// Registry holds the live adapters keyed by (userID, connectionID). Adapters
// lost to a restart are rebuilt on demand from the credential store.
type Registry struct {
	creds  CredentialStore
	logger *zap.Logger

	// open is the adapter constructor; package tests swap it for a fake.
	open func(ctx context.Context, creds models.ConnectionCredentials, logger *zap.Logger) (Adapter, error)

	mu       sync.RWMutex
	adapters map[string]Adapter
	dbTypes  map[string]string
}

// NewRegistry creates an empty registry backed by the given credential store.
func NewRegistry(creds CredentialStore, logger *zap.Logger) *Registry {
	return &Registry{
		creds:    creds,
		logger:   logger,
		open:     openRegistered,
		adapters: make(map[string]Adapter),
		dbTypes:  make(map[string]string),
	}
}

// openRegistered opens an adapter with backoff. Bad credentials and other
// permanent failures stop immediately; only transient errors are retried.
func openRegistered(ctx context.Context, creds models.ConnectionCredentials, logger *zap.Logger) (Adapter, error) {
	opener, err := openerFor(creds.DBType)
	if err != nil {
		return nil, err
	}
	var adapter Adapter
	err = retry.DoIfRetryable(ctx, retry.DefaultConfig(), func() error {
		var openErr error
		adapter, openErr = opener(ctx, creds, logger)
		return openErr
	})
	if err != nil {
		return nil, err
	}
	return adapter, nil
}

// Connect opens a verified connection and registers it, returning the
// connection id. A missing id on the credentials gets a fresh UUID.
func (r *Registry) Connect(ctx context.Context, userID string, creds models.ConnectionCredentials) (string, error) {
	if creds.ID == "" {
		creds.ID = uuid.NewString()
	}

	adapter, err := r.open(ctx, creds, r.logger)
	if err != nil {
		return "", fmt.Errorf("failed to open %s connection: %w", creds.DBType, err)
	}
	if err := adapter.TestConnection(ctx); err != nil {
		_ = adapter.Close()
		return "", fmt.Errorf("connection test failed: %w", err)
	}

	r.store(userID, creds.ID, creds.DBType, adapter)

	r.logger.Info("database connection established",
		zap.String("user_id", userID),
		zap.String("connection_id", creds.ID),
		zap.String("db_type", creds.DBType),
		zap.String("host", creds.Host))
	return creds.ID, nil
}

// Test opens a throwaway connection, pings it, and closes it.
func (r *Registry) Test(ctx context.Context, creds models.ConnectionCredentials) error {
	adapter, err := r.open(ctx, creds, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open %s connection: %w", creds.DBType, err)
	}
	defer adapter.Close()
	return adapter.TestConnection(ctx)
}

// Get returns the live adapter for a connection. On a registry miss it
// attempts recovery: load the stored credentials and reconnect. Two callers
// racing the same recovery may both open an adapter; the last one stored
// wins and the displaced adapter is closed.
func (r *Registry) Get(ctx context.Context, userID, connectionID string) (Adapter, error) {
	key := adapterKey(userID, connectionID)

	r.mu.RLock()
	adapter, ok := r.adapters[key]
	r.mu.RUnlock()
	if ok {
		return adapter, nil
	}

	if r.creds == nil {
		return nil, apperrors.ErrConnectionNotFound
	}
	creds, err := r.creds.GetConnectionCredentials(ctx, userID, connectionID)
	if err != nil {
		return nil, apperrors.ErrConnectionNotFound
	}

	r.logger.Info("recovering database connection from stored credentials",
		zap.String("user_id", userID),
		zap.String("connection_id", connectionID))

	adapter, err = r.open(ctx, *creds, r.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to recover connection: %w", err)
	}
	if err := adapter.TestConnection(ctx); err != nil {
		_ = adapter.Close()
		return nil, fmt.Errorf("recovered connection test failed: %w", err)
	}

	r.store(userID, connectionID, creds.DBType, adapter)
	return adapter, nil
}

// DBType reports the dialect of a registered connection, defaulting to
// mysql when the connection is unknown.
func (r *Registry) DBType(userID, connectionID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.dbTypes[adapterKey(userID, connectionID)]; ok {
		return t
	}
	return "mysql"
}

// InspectSchema walks every table of the connection and returns the full
// column map.
func (r *Registry) InspectSchema(ctx context.Context, userID, connectionID string) (models.Schema, error) {
	adapter, err := r.Get(ctx, userID, connectionID)
	if err != nil {
		return nil, err
	}

	tables, err := adapter.GetTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	schema := make(models.Schema, len(tables))
	for _, table := range tables {
		columns, err := adapter.GetColumns(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("failed to describe table %s: %w", table, err)
		}
		schema[table] = columns
	}
	return schema, nil
}

// Execute validates a statement, caps its result size, and runs it. The
// cap is appended only when the statement carries no LIMIT of its own.
func (r *Registry) Execute(ctx context.Context, userID, connectionID, sql string) (*QueryResult, error) {
	if verdict := sqlguard.Validate(sql); !verdict.Valid {
		return nil, apperrors.NewSecurityError(verdict.Message)
	}

	if !strings.Contains(strings.ToUpper(sql), "LIMIT") {
		sql += fmt.Sprintf(" LIMIT %d", maxResultRows)
	}

	adapter, err := r.Get(ctx, userID, connectionID)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("executing query",
		zap.String("connection_id", connectionID),
		zap.String("query", logging.SanitizeQuery(sql)))

	return adapter.Query(ctx, sql)
}

// Close tears down one connection and forgets it.
func (r *Registry) Close(userID, connectionID string) error {
	key := adapterKey(userID, connectionID)

	r.mu.Lock()
	adapter, ok := r.adapters[key]
	delete(r.adapters, key)
	delete(r.dbTypes, key)
	r.mu.Unlock()

	if !ok {
		return apperrors.ErrConnectionNotFound
	}
	return adapter.Close()
}

// CloseAll tears down every live connection. Used at shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, adapter := range r.adapters {
		if err := adapter.Close(); err != nil {
			r.logger.Warn("failed to close connection", zap.String("key", key), zap.Error(err))
		}
		delete(r.adapters, key)
		delete(r.dbTypes, key)
	}
}

func (r *Registry) store(userID, connectionID, dbType string, adapter Adapter) {
	key := adapterKey(userID, connectionID)

	r.mu.Lock()
	if old, ok := r.adapters[key]; ok && old != adapter {
		_ = old.Close()
	}
	r.adapters[key] = adapter
	r.dbTypes[key] = dbType
	r.mu.Unlock()
}

func adapterKey(userID, connectionID string) string {
	return userID + "/" + connectionID
}
