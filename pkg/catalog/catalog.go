package catalog

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/tessellate-ai/analyst-engine/pkg/apperrors"
	"github.com/tessellate-ai/analyst-engine/pkg/models"
)

// Catalog is the two-tier source registry. Every write lands in the
// in-process cache first, then in the durable store; every read prefers the
// durable store and falls back to the cache. Lookups never fail just because
// the durable store is down.
type Catalog struct {
	store  Store // nil when no durable store is configured
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[string]models.UserContext
	creds map[string]models.ConnectionCredentials // key: userID + "/" + connectionID
}

// New creates a catalog. store may be nil for cache-only operation.
func New(store Store, logger *zap.Logger) *Catalog {
	return &Catalog{
		store:  store,
		logger: logger,
		cache:  make(map[string]models.UserContext),
		creds:  make(map[string]models.ConnectionCredentials),
	}
}

// RegisterDataset records an uploaded dataset. Registration is idempotent
// per (userID, entry.ID) and never fails on durable-store outage.
func (c *Catalog) RegisterDataset(ctx context.Context, userID string, entry models.SourceEntry) {
	entry.Kind = models.SourceKindCSV

	c.mu.Lock()
	uc := c.cache[userID]
	if !containsEntry(uc.CSVFiles, entry.ID) {
		uc.CSVFiles = append(uc.CSVFiles, entry)
		c.cache[userID] = uc
	}
	c.mu.Unlock()

	if c.store == nil {
		return
	}
	if err := c.store.SaveDataset(ctx, userID, entry); err != nil {
		c.logger.Warn("durable catalog write failed, dataset kept in cache only",
			zap.String("user_id", userID),
			zap.String("dataset_id", entry.ID),
			zap.Error(err))
	}
}

// RegisterConnection records a SQL connection together with the credentials
// needed to rebuild it after a restart.
func (c *Catalog) RegisterConnection(ctx context.Context, userID string, entry models.SourceEntry, creds models.ConnectionCredentials) {
	entry.Kind = models.SourceKindSQL

	c.mu.Lock()
	uc := c.cache[userID]
	if !containsEntry(uc.SQLDatabases, entry.ID) {
		uc.SQLDatabases = append(uc.SQLDatabases, entry)
		c.cache[userID] = uc
	}
	c.creds[credsKey(userID, entry.ID)] = creds
	c.mu.Unlock()

	if c.store == nil {
		return
	}
	if err := c.store.SaveConnection(ctx, userID, entry, creds); err != nil {
		c.logger.Warn("durable catalog write failed, connection kept in cache only",
			zap.String("user_id", userID),
			zap.String("connection_id", entry.ID),
			zap.Error(err))
	}
}

// GetUserContext returns every source the user has registered. The durable
// store wins when reachable and refreshes the cache; otherwise the cached
// copy is returned as-is.
func (c *Catalog) GetUserContext(ctx context.Context, userID string) models.UserContext {
	if c.store != nil {
		uc, err := c.store.GetUserContext(ctx, userID)
		if err == nil {
			c.mu.Lock()
			c.cache[userID] = uc
			c.mu.Unlock()
			return uc
		}
		c.logger.Warn("durable catalog read failed, serving cached context",
			zap.String("user_id", userID),
			zap.Error(err))
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache[userID]
}

// GetConnectionCredentials loads stored credentials for a connection,
// preferring the durable store. Returns apperrors.ErrConnectionNotFound when
// neither tier knows the connection.
func (c *Catalog) GetConnectionCredentials(ctx context.Context, userID, connectionID string) (*models.ConnectionCredentials, error) {
	if c.store != nil {
		creds, err := c.store.GetConnection(ctx, userID, connectionID)
		if err == nil {
			return creds, nil
		}
		if err != apperrors.ErrConnectionNotFound {
			c.logger.Warn("durable credential read failed, trying cache",
				zap.String("connection_id", connectionID),
				zap.Error(err))
		}
	}

	c.mu.RLock()
	creds, ok := c.creds[credsKey(userID, connectionID)]
	c.mu.RUnlock()
	if !ok {
		return nil, apperrors.ErrConnectionNotFound
	}
	return &creds, nil
}

// Remove deletes a source from both tiers. A durable-store failure leaves
// the durable row behind but still clears the cache; it is logged, not
// returned.
func (c *Catalog) Remove(ctx context.Context, userID, id string, kind models.SourceKind) {
	c.mu.Lock()
	uc := c.cache[userID]
	switch kind {
	case models.SourceKindCSV:
		uc.CSVFiles = removeEntry(uc.CSVFiles, id)
	case models.SourceKindSQL:
		uc.SQLDatabases = removeEntry(uc.SQLDatabases, id)
		delete(c.creds, credsKey(userID, id))
	}
	c.cache[userID] = uc
	c.mu.Unlock()

	if c.store == nil {
		return
	}
	if err := c.store.DeleteEntry(ctx, userID, id, kind); err != nil {
		c.logger.Warn("durable catalog delete failed",
			zap.String("user_id", userID),
			zap.String("entry_id", id),
			zap.Error(err))
	}
}

// FindByName looks a source up by its display name, case-insensitively.
func (c *Catalog) FindByName(ctx context.Context, userID, name string) (*models.SourceEntry, bool) {
	uc := c.GetUserContext(ctx, userID)
	all := make([]models.SourceEntry, 0, len(uc.CSVFiles)+len(uc.SQLDatabases))
	all = append(all, uc.CSVFiles...)
	all = append(all, uc.SQLDatabases...)
	for _, entry := range all {
		if strings.EqualFold(entry.Name, name) {
			e := entry
			return &e, true
		}
	}
	return nil, false
}

func credsKey(userID, connectionID string) string {
	return userID + "/" + connectionID
}

func containsEntry(entries []models.SourceEntry, id string) bool {
	for _, e := range entries {
		if e.ID == id {
			return true
		}
	}
	return false
}

// removeEntry copies into a fresh slice. Compacting in place would rewrite
// the backing array shared with UserContext snapshots already handed out.
func removeEntry(entries []models.SourceEntry, id string) []models.SourceEntry {
	out := make([]models.SourceEntry, 0, len(entries))
	for _, e := range entries {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}
