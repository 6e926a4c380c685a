package datasource

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tessellate-ai/analyst-engine/pkg/apperrors"
	"github.com/tessellate-ai/analyst-engine/pkg/models"
)

type fakeAdapter struct {
	testErr  error
	queries  []string
	closed   bool
	tables   []string
	columns  map[string][]models.Column
	queryOut *QueryResult
}

func (f *fakeAdapter) TestConnection(context.Context) error { return f.testErr }
func (f *fakeAdapter) GetTables(context.Context) ([]string, error) {
	return f.tables, nil
}
func (f *fakeAdapter) GetColumns(_ context.Context, table string) ([]models.Column, error) {
	return f.columns[table], nil
}
func (f *fakeAdapter) Query(_ context.Context, sql string) (*QueryResult, error) {
	f.queries = append(f.queries, sql)
	if f.queryOut != nil {
		return f.queryOut, nil
	}
	return &QueryResult{Columns: []string{"n"}, Rows: []map[string]any{{"n": 1}}, RowCount: 1}, nil
}
func (f *fakeAdapter) Close() error {
	f.closed = true
	return nil
}

type fakeCreds struct {
	store map[string]models.ConnectionCredentials
}

func (f *fakeCreds) GetConnectionCredentials(_ context.Context, userID, connectionID string) (*models.ConnectionCredentials, error) {
	creds, ok := f.store[userID+"/"+connectionID]
	if !ok {
		return nil, apperrors.ErrConnectionNotFound
	}
	return &creds, nil
}

func newTestRegistry(t *testing.T, creds CredentialStore) (*Registry, *fakeAdapter) {
	t.Helper()
	adapter := &fakeAdapter{}
	reg := NewRegistry(creds, zap.NewNop())
	reg.open = func(context.Context, models.ConnectionCredentials, *zap.Logger) (Adapter, error) {
		return adapter, nil
	}
	return reg, adapter
}

func TestOpenRegisteredStopsOnPermanentError(t *testing.T) {
	attempts := 0
	Register("permfail", func(context.Context, models.ConnectionCredentials, *zap.Logger) (Adapter, error) {
		attempts++
		return nil, errors.New("access denied for user")
	})

	_, err := openRegistered(context.Background(),
		models.ConnectionCredentials{DBType: "permfail"}, zap.NewNop())
	require.Error(t, err)
	// Bad credentials are not transient: a single attempt, no backoff.
	assert.Equal(t, 1, attempts)
}

func TestConnectAndGet(t *testing.T) {
	reg, adapter := newTestRegistry(t, nil)
	ctx := context.Background()

	id, err := reg.Connect(ctx, "u1", models.ConnectionCredentials{DBType: "mysql", Host: "db", Port: 3306})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, err := reg.Get(ctx, "u1", id)
	require.NoError(t, err)
	assert.Same(t, Adapter(adapter), got)
	assert.Equal(t, "mysql", reg.DBType("u1", id))
}

func TestConnectFailsOnBadPing(t *testing.T) {
	reg, adapter := newTestRegistry(t, nil)
	adapter.testErr = errors.New("access denied")

	_, err := reg.Connect(context.Background(), "u1", models.ConnectionCredentials{DBType: "mysql"})
	require.Error(t, err)
	assert.True(t, adapter.closed)
}

func TestGetRecoversFromCredentialStore(t *testing.T) {
	creds := &fakeCreds{store: map[string]models.ConnectionCredentials{
		"u1/conn1": {ID: "conn1", DBType: "postgresql", Host: "db", Port: 5432},
	}}
	reg, adapter := newTestRegistry(t, creds)
	ctx := context.Background()

	got, err := reg.Get(ctx, "u1", "conn1")
	require.NoError(t, err)
	assert.Same(t, Adapter(adapter), got)
	assert.Equal(t, "postgresql", reg.DBType("u1", "conn1"))
}

func TestGetUnknownConnection(t *testing.T) {
	reg, _ := newTestRegistry(t, &fakeCreds{store: map[string]models.ConnectionCredentials{}})

	_, err := reg.Get(context.Background(), "u1", "missing")
	assert.ErrorIs(t, err, apperrors.ErrConnectionNotFound)
}

func TestDBTypeDefaultsToMySQL(t *testing.T) {
	reg, _ := newTestRegistry(t, nil)
	assert.Equal(t, "mysql", reg.DBType("u1", "unknown"))
}

func TestExecuteAppendsLimit(t *testing.T) {
	reg, adapter := newTestRegistry(t, nil)
	ctx := context.Background()
	id, err := reg.Connect(ctx, "u1", models.ConnectionCredentials{DBType: "mysql"})
	require.NoError(t, err)

	_, err = reg.Execute(ctx, "u1", id, "SELECT * FROM orders")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM orders LIMIT 1000", adapter.queries[0])
}

func TestExecutePreservesExistingLimit(t *testing.T) {
	reg, adapter := newTestRegistry(t, nil)
	ctx := context.Background()
	id, err := reg.Connect(ctx, "u1", models.ConnectionCredentials{DBType: "mysql"})
	require.NoError(t, err)

	_, err = reg.Execute(ctx, "u1", id, "SELECT * FROM orders limit 5")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM orders limit 5", adapter.queries[0])
}

func TestExecuteRejectsNonSelect(t *testing.T) {
	reg, adapter := newTestRegistry(t, nil)
	ctx := context.Background()
	id, err := reg.Connect(ctx, "u1", models.ConnectionCredentials{DBType: "mysql"})
	require.NoError(t, err)

	_, err = reg.Execute(ctx, "u1", id, "DROP TABLE orders")
	require.Error(t, err)
	assert.True(t, apperrors.IsSecurity(err))
	assert.Empty(t, adapter.queries)

	_, err = reg.Execute(ctx, "u1", id, "SELECT * FROM orders; DROP TABLE orders")
	require.Error(t, err)
	assert.True(t, apperrors.IsSecurity(err))
}

func TestInspectSchema(t *testing.T) {
	reg, adapter := newTestRegistry(t, nil)
	adapter.tables = []string{"orders", "users"}
	adapter.columns = map[string][]models.Column{
		"orders": {{Name: "id", Type: "int"}, {Name: "total", Type: "decimal"}},
		"users":  {{Name: "id", Type: "int"}},
	}

	ctx := context.Background()
	id, err := reg.Connect(ctx, "u1", models.ConnectionCredentials{DBType: "mysql"})
	require.NoError(t, err)

	schema, err := reg.InspectSchema(ctx, "u1", id)
	require.NoError(t, err)
	require.Len(t, schema, 2)
	assert.Equal(t, "total", schema["orders"][1].Name)
}

func TestCloseForgetsConnection(t *testing.T) {
	reg, adapter := newTestRegistry(t, nil)
	ctx := context.Background()
	id, err := reg.Connect(ctx, "u1", models.ConnectionCredentials{DBType: "mysql"})
	require.NoError(t, err)

	require.NoError(t, reg.Close("u1", id))
	assert.True(t, adapter.closed)

	assert.ErrorIs(t, reg.Close("u1", id), apperrors.ErrConnectionNotFound)
}

func TestCloseAll(t *testing.T) {
	reg, adapter := newTestRegistry(t, nil)
	ctx := context.Background()
	_, err := reg.Connect(ctx, "u1", models.ConnectionCredentials{DBType: "mysql"})
	require.NoError(t, err)

	reg.CloseAll()
	assert.True(t, adapter.closed)
	assert.Empty(t, reg.adapters)
}
