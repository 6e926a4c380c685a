// Package mysql provides the MySQL dialect adapter.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/tessellate-ai/analyst-engine/pkg/datasource"
	"github.com/tessellate-ai/analyst-engine/pkg/logging"
	"github.com/tessellate-ai/analyst-engine/pkg/models"
)

func init() {
	datasource.Register("mysql", open)
}

// Adapter wraps a database/sql pool for one MySQL database.
type Adapter struct {
	db     *sql.DB
	dbName string
	logger *zap.Logger
}

func open(ctx context.Context, creds models.ConnectionCredentials, logger *zap.Logger) (datasource.Adapter, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		creds.Username, creds.Password, creds.Host, creds.Port, creds.Database)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql pool for %s: %w", logging.SanitizeDSN(dsn), err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Adapter{db: db, dbName: creds.Database, logger: logger}, nil
}

// NewAdapter wraps an existing pool. Used by tests.
func NewAdapter(db *sql.DB, dbName string, logger *zap.Logger) *Adapter {
	return &Adapter{db: db, dbName: dbName, logger: logger}
}

func (a *Adapter) TestConnection(ctx context.Context) error {
	var one int
	if err := a.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("mysql connection test failed: %w", err)
	}
	return nil
}

func (a *Adapter) GetTables(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (a *Adapter) GetColumns(ctx context.Context, table string) ([]models.Column, error) {
	query := `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`

	rows, err := a.db.QueryContext(ctx, query, a.dbName, table)
	if err != nil {
		return nil, fmt.Errorf("failed to describe table %s: %w", table, err)
	}
	defer rows.Close()

	var columns []models.Column
	for rows.Next() {
		var col models.Column
		if err := rows.Scan(&col.Name, &col.Type); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// Query materializes the full result set. The MySQL driver hands most
// values back as []byte, so those are converted to strings for JSON
// friendliness.
func (a *Adapter) Query(ctx context.Context, query string) (*datasource.QueryResult, error) {
	start := time.Now()
	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	result := &datasource.QueryResult{Columns: columns, Rows: []map[string]any{}}
	values := make([]any, len(columns))
	scanTargets := make([]any, len(columns))
	for i := range values {
		scanTargets[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			switch v := values[i].(type) {
			case []byte:
				row[col] = string(v)
			default:
				row[col] = v
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	result.RowCount = len(result.Rows)

	a.logger.Debug("mysql query executed",
		zap.Int("rows", result.RowCount),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

func (a *Adapter) Close() error {
	return a.db.Close()
}
