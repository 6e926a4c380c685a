// Package services contains the agents and the orchestrator that answer
// natural-language questions from the user's registered data sources.
package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tessellate-ai/analyst-engine/pkg/apperrors"
	"github.com/tessellate-ai/analyst-engine/pkg/datasource"
	"github.com/tessellate-ai/analyst-engine/pkg/llm"
	"github.com/tessellate-ai/analyst-engine/pkg/logging"
	"github.com/tessellate-ai/analyst-engine/pkg/models"
	"github.com/tessellate-ai/analyst-engine/pkg/prompts"
	"github.com/tessellate-ai/analyst-engine/pkg/sqlguard"
)

// connectionRegistry is the slice of the datasource registry the SQL agent
// needs.
type connectionRegistry interface {
	InspectSchema(ctx context.Context, userID, connectionID string) (models.Schema, error)
	Execute(ctx context.Context, userID, connectionID, sql string) (*datasource.QueryResult, error)
	DBType(userID, connectionID string) string
}

// DatabaseAnswer is the SQL agent's response to one question against one
// connection.
type DatabaseAnswer struct {
	SQL      string                  `json:"sql"`
	Result   *datasource.QueryResult `json:"result"`
	Analysis string                  `json:"analysis"`
}

// SQLAgent turns questions into dialect-correct SQL, executes it, and
// explains the result.
type SQLAgent struct {
	completer llm.Completer
	registry  connectionRegistry
	logger    *zap.Logger
}

// NewSQLAgent creates a SQL agent over the given connection registry.
func NewSQLAgent(completer llm.Completer, registry connectionRegistry, logger *zap.Logger) *SQLAgent {
	return &SQLAgent{completer: completer, registry: registry, logger: logger}
}

// GenerateSQL produces a validated SELECT for the question. A statement that
// fails validation is never returned: generation is rerun from scratch on
// the caller's initiative, not silently patched.
func (a *SQLAgent) GenerateSQL(ctx context.Context, userID, connectionID, question string) (string, error) {
	if check := sqlguard.CheckUserInput(question); check != nil {
		a.logger.Warn("question matched injection heuristics",
			zap.String("connection_id", connectionID),
			zap.String("fingerprint", check.Fingerprint),
			zap.String("question", logging.SanitizeQuery(question)))
	}

	schema, err := a.registry.InspectSchema(ctx, userID, connectionID)
	if err != nil {
		return "", err
	}
	if len(schema) == 0 {
		return "", apperrors.NewValidationError("connected database has no tables")
	}

	dbType := a.registry.DBType(userID, connectionID)
	prompt := prompts.BuildSQLGenerationPrompt(question, schema, dbType)

	raw, err := a.completer.Complete(ctx, prompt, prompts.SQLSystemMessage, 0.0)
	if err != nil {
		return "", fmt.Errorf("SQL generation failed: %w", err)
	}
	sql := llm.StripCodeFences(raw)

	if verdict := sqlguard.Validate(sql); !verdict.Valid {
		a.logger.Warn("model generated invalid SQL",
			zap.String("connection_id", connectionID),
			zap.String("reason", verdict.Message),
			zap.String("sql", logging.SanitizeQuery(sql)))
		return "", apperrors.NewSecurityError(fmt.Sprintf("generated invalid SQL: %s", verdict.Message))
	}

	a.logger.Debug("generated SQL",
		zap.String("connection_id", connectionID),
		zap.String("db_type", dbType),
		zap.String("sql", logging.SanitizeQuery(sql)))
	return sql, nil
}

// Query answers a question end to end: generate, execute, analyze.
func (a *SQLAgent) Query(ctx context.Context, userID, connectionID, question string) (*DatabaseAnswer, error) {
	sql, err := a.GenerateSQL(ctx, userID, connectionID, question)
	if err != nil {
		return nil, err
	}

	result, err := a.registry.Execute(ctx, userID, connectionID, sql)
	if err != nil {
		return nil, fmt.Errorf("query execution failed: %w", err)
	}

	analysis := a.AnalyzeResults(ctx, question, sql, result)
	return &DatabaseAnswer{SQL: sql, Result: result, Analysis: analysis}, nil
}

// AnalyzeResults summarizes a result set in plain language. Analysis is
// best-effort: when the model call fails, the caller still gets the row
// count.
func (a *SQLAgent) AnalyzeResults(ctx context.Context, question, sql string, result *datasource.QueryResult) string {
	prompt := prompts.BuildAnalysisPrompt(question, sql, result.Rows, result.RowCount)

	analysis, err := a.completer.Complete(ctx, prompt, prompts.AnalysisSystemMessage, 0.3)
	if err != nil || analysis == "" {
		if err != nil {
			a.logger.Warn("result analysis failed", zap.Error(err))
		}
		return fmt.Sprintf("The query returned %d rows.", result.RowCount)
	}
	return analysis
}
