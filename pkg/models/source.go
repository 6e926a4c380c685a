// Package models holds the data types shared across catalog, agents, and
// handlers.
package models

import "time"

// SourceKind distinguishes the two source families a question can route to.
type SourceKind string

const (
	SourceKindCSV SourceKind = "csv"
	SourceKindSQL SourceKind = "sql"
)

// SourceEntry is one registered data source in a user's catalog. Immutable
// after creation except for deletion; uniqueness is enforced per
// (userID, ID) within its kind.
type SourceEntry struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Kind         SourceKind     `json:"type"`
	RegisteredAt time.Time      `json:"registeredAt"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// UserContext lists every data source available to one user. The durable
// store is the source of truth; in-memory copies are best-effort caches.
type UserContext struct {
	CSVFiles     []SourceEntry `json:"csvFiles"`
	SQLDatabases []SourceEntry `json:"sqlDatabases"`
}

// Empty reports whether the user has no registered sources of either kind.
func (c *UserContext) Empty() bool {
	return len(c.CSVFiles) == 0 && len(c.SQLDatabases) == 0
}

// ConnectionCredentials are the persisted parameters needed to re-create a
// live database connection after a process restart.
type ConnectionCredentials struct {
	ID       string `json:"id"`
	DBType   string `json:"dbType"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	Username string `json:"username"`
	Password string `json:"password"`
}
