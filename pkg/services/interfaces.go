// Package services holds the insight pipeline: prompt assembly, generation,
// sanitization, execution, and shaping, plus the canned catalog and the
// dashboard statistics built on it.
package services

import (
	"context"

	"github.com/propfolio/insight-engine/pkg/models"
	sqlval "github.com/propfolio/insight-engine/pkg/sql"
)

// QueryExecutor runs statements against the portfolio store. Satisfied by
// database.Executor; mocked in tests.
type QueryExecutor interface {
	ExecuteValidated(ctx context.Context, stmt *sqlval.Statement) (*models.QueryResult, error)
	ExecuteCanned(ctx context.Context, sqlText string, args ...any) (*models.QueryResult, error)
}
