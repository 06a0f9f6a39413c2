package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/propfolio/insight-engine/pkg/apperrors"
	"github.com/propfolio/insight-engine/pkg/config"
	"github.com/propfolio/insight-engine/pkg/logging"
	"github.com/propfolio/insight-engine/pkg/models"
	sqlval "github.com/propfolio/insight-engine/pkg/sql"
)

// Executor runs statements against the portfolio store. Generated statements
// run capped inside a read-only transaction; canned statements run uncapped
// because their shape is fixed and trusted. Both are bounded by the configured
// execution timeout.
type Executor struct {
	db      *DB
	maxRows int
	timeout time.Duration
	logger  *zap.Logger
}

// NewExecutor creates the query executor.
func NewExecutor(db *DB, cfg *config.InsightConfig, logger *zap.Logger) *Executor {
	return &Executor{
		db:      db,
		maxRows: cfg.MaxResultRows,
		timeout: cfg.QueryTimeout(),
		logger:  logger.Named("executor"),
	}
}

// ExecuteValidated runs a sanitized generated statement. The result is
// truncated and flagged when it exceeds the row cap; truncation is not an
// error. Execution always happens in a read-only transaction, a second fence
// behind the sanitizer.
func (e *Executor) ExecuteValidated(ctx context.Context, stmt *sqlval.Statement) (*models.QueryResult, error) {
	result, err := e.run(ctx, stmt.SQL, nil, e.maxRows)
	if err != nil {
		e.logger.Error("generated statement failed",
			zap.String("sql", logging.SanitizeQuery(stmt.SQL)),
			zap.Strings("tables", stmt.Tables),
			zap.Error(err))
		return nil, err
	}

	e.logger.Debug("generated statement executed",
		zap.Strings("tables", stmt.Tables),
		zap.Int("rows", result.RowCount),
		zap.Bool("truncated", result.Truncated),
		zap.Duration("elapsed", result.Duration))
	return result, nil
}

// ExecuteCanned runs a hand-authored catalog statement with bound parameters.
// No row cap applies.
func (e *Executor) ExecuteCanned(ctx context.Context, sqlText string, args ...any) (*models.QueryResult, error) {
	result, err := e.run(ctx, sqlText, args, 0)
	if err != nil {
		e.logger.Error("canned statement failed",
			zap.String("sql", logging.SanitizeQuery(sqlText)),
			zap.Error(err))
		return nil, err
	}
	return result, nil
}

func (e *Executor) run(ctx context.Context, sqlText string, args []any, maxRows int) (*models.QueryResult, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()

	tx, err := e.db.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, e.classify(ctx, err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	rows, err := tx.Query(ctx, sqlText, args...)
	if err != nil {
		return nil, e.classify(ctx, err)
	}

	result, err := collectRows(rows, maxRows)
	if err != nil {
		return nil, e.classify(ctx, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, e.classify(ctx, err)
	}

	result.Duration = time.Since(start)
	return result, nil
}

// classify maps a store failure onto the pipeline taxonomy. A deadline hit is
// reported as a timeout the caller may retry; anything else is a generic
// execution failure.
func (e *Executor) classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", apperrors.ErrExecutionTimeout, e.timeout)
	}
	return fmt.Errorf("%w: %v", apperrors.ErrExecutionFailure, err)
}

// collectRows drains the result set into a QueryResult, stopping at maxRows
// when a cap is set. A capped result is marked truncated; partial results are
// never passed off as complete.
func collectRows(rows pgx.Rows, maxRows int) (*models.QueryResult, error) {
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]models.ColumnInfo, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = models.ColumnInfo{
			Name: string(fd.Name),
			Type: pgTypeNameFromOID(fd.DataTypeOID),
		}
	}

	resultRows := make([]map[string]any, 0)
	truncated := false
	for rows.Next() {
		if maxRows > 0 && len(resultRows) >= maxRows {
			truncated = true
			break
		}

		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col.Name] = normalizeValue(values[i])
		}
		resultRows = append(resultRows, rowMap)
	}
	rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return &models.QueryResult{
		Columns:   columns,
		Rows:      resultRows,
		RowCount:  len(resultRows),
		Truncated: truncated,
	}, nil
}

// normalizeValue converts pgx wire types into plain Go values. Numerics stay
// numeric and timestamps stay native time values; formatting is the shaper's
// job, except where a canned query pre-formats a date label on purpose.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case pgtype.Numeric:
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case [16]byte:
		return uuid.UUID(val)
	default:
		return v
	}
}

// pgTypeNameFromOID maps common PostgreSQL type OIDs to readable type names.
func pgTypeNameFromOID(oid uint32) string {
	switch oid {
	case 16:
		return "BOOL"
	case 20:
		return "INT8"
	case 21:
		return "INT2"
	case 23:
		return "INT4"
	case 25:
		return "TEXT"
	case 700:
		return "FLOAT4"
	case 701:
		return "FLOAT8"
	case 1042:
		return "BPCHAR"
	case 1043:
		return "VARCHAR"
	case 1082:
		return "DATE"
	case 1114:
		return "TIMESTAMP"
	case 1184:
		return "TIMESTAMPTZ"
	case 1700:
		return "NUMERIC"
	case 2950:
		return "UUID"
	case 114:
		return "JSON"
	case 3802:
		return "JSONB"
	default:
		return "UNKNOWN"
	}
}
