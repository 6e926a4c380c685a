package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tessellate-ai/analyst-engine/pkg/apperrors"
	"github.com/tessellate-ai/analyst-engine/pkg/catalog"
	"github.com/tessellate-ai/analyst-engine/pkg/datasource"
	"github.com/tessellate-ai/analyst-engine/pkg/models"
	"github.com/tessellate-ai/analyst-engine/pkg/services"
)

// SQLHandler serves live database connections: connect, inspect, query.
type SQLHandler struct {
	registry *datasource.Registry
	catalog  *catalog.Catalog
	agent    *services.SQLAgent
	logger   *zap.Logger
}

// NewSQLHandler creates the SQL connection handler.
func NewSQLHandler(registry *datasource.Registry, cat *catalog.Catalog, agent *services.SQLAgent, logger *zap.Logger) *SQLHandler {
	return &SQLHandler{registry: registry, catalog: cat, agent: agent, logger: logger}
}

// RegisterRoutes registers SQL routes on the given mux.
func (h *SQLHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sql/connect", h.Connect)
	mux.HandleFunc("POST /api/sql/test-connection", h.Test)
	mux.HandleFunc("GET /api/sql/schema/{connectionId}", h.Schema)
	mux.HandleFunc("POST /api/sql/query", h.Query)
	mux.HandleFunc("POST /api/sql/nl-query", h.NLQuery)
	mux.HandleFunc("GET /api/sql/sources/{userId}", h.Sources)
	mux.HandleFunc("DELETE /api/sql/connection/{connectionId}", h.Disconnect)
}

type connectRequest struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	DBType   string `json:"db_type"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *connectRequest) credentials() (models.ConnectionCredentials, error) {
	if r.Host == "" || r.Database == "" || r.Username == "" {
		return models.ConnectionCredentials{}, apperrors.NewValidationError("host, database, and username are required")
	}
	dbType := r.DBType
	if dbType == "" {
		dbType = "mysql"
	}
	port := r.Port
	if port == 0 {
		switch dbType {
		case "postgresql":
			port = 5432
		default:
			port = 3306
		}
	}
	return models.ConnectionCredentials{
		DBType:   dbType,
		Host:     r.Host,
		Port:     port,
		Database: r.Database,
		Username: r.Username,
		Password: r.Password,
	}, nil
}

// Connect establishes a verified connection and registers it in the
// catalog so it survives restarts.
func (h *SQLHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	creds, err := req.credentials()
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	userID := orAnonymous(req.UserID)
	connectionID, err := h.registry.Connect(r.Context(), userID, creds)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	creds.ID = connectionID
	name := req.Name
	if name == "" {
		name = creds.Database
	}
	h.catalog.RegisterConnection(r.Context(), userID, models.SourceEntry{
		ID:           connectionID,
		Name:         name,
		RegisteredAt: time.Now().UTC(),
		Metadata: map[string]any{
			"dbType": creds.DBType,
			"host":   creds.Host,
		},
	}, creds)

	_ = WriteJSON(w, http.StatusOK, map[string]string{
		"connection_id": connectionID,
		"db_type":       creds.DBType,
		"status":        "connected",
	})
}

// Test verifies credentials without keeping the connection.
func (h *SQLHandler) Test(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	creds, err := req.credentials()
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}

	if err := h.registry.Test(r.Context(), creds); err != nil {
		_ = WriteJSON(w, http.StatusOK, map[string]any{"success": false, "message": err.Error()})
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "connection successful"})
}

// Schema returns the table and column map of a connection.
func (h *SQLHandler) Schema(w http.ResponseWriter, r *http.Request) {
	schema, err := h.registry.InspectSchema(r.Context(), userIDOf(r), r.PathValue("connectionId"))
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, map[string]any{"schema": schema})
}

type rawQueryRequest struct {
	UserID       string `json:"user_id"`
	ConnectionID string `json:"connection_id"`
	SQL          string `json:"sql"`
}

// Query executes a caller-supplied statement after validation.
func (h *SQLHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req rawQueryRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	if req.ConnectionID == "" || req.SQL == "" {
		WriteServiceError(w, h.logger, apperrors.NewValidationError("connection_id and sql are required"))
		return
	}

	result, err := h.registry.Execute(r.Context(), orAnonymous(req.UserID), req.ConnectionID, req.SQL)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, result)
}

type nlQueryRequest struct {
	UserID       string `json:"user_id"`
	ConnectionID string `json:"connection_id"`
	Question     string `json:"question"`
}

// NLQuery answers a natural-language question against one connection.
func (h *SQLHandler) NLQuery(w http.ResponseWriter, r *http.Request) {
	var req nlQueryRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	if req.ConnectionID == "" || req.Question == "" {
		WriteServiceError(w, h.logger, apperrors.NewValidationError("connection_id and question are required"))
		return
	}

	answer, err := h.agent.Query(r.Context(), orAnonymous(req.UserID), req.ConnectionID, req.Question)
	if err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, answer)
}

// Sources lists the user's registered SQL connections.
func (h *SQLHandler) Sources(w http.ResponseWriter, r *http.Request) {
	uc := h.catalog.GetUserContext(r.Context(), orAnonymous(r.PathValue("userId")))
	_ = WriteJSON(w, http.StatusOK, map[string]any{"sources": uc.SQLDatabases})
}

// Disconnect closes a connection and forgets it in both tiers.
func (h *SQLHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	userID := userIDOf(r)
	connectionID := r.PathValue("connectionId")

	if err := h.registry.Close(userID, connectionID); err != nil {
		WriteServiceError(w, h.logger, err)
		return
	}
	h.catalog.Remove(r.Context(), userID, connectionID, models.SourceKindSQL)

	_ = WriteJSON(w, http.StatusOK, map[string]string{
		"status":        "disconnected",
		"connection_id": connectionID,
	})
}
