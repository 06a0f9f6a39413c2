// Package repositories provides read access to the portfolio store for the
// grounding path. Write access belongs to the CRUD backend, which is a
// separate system.
package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/propfolio/insight-engine/pkg/database"
)

// AuthzProvider answers which property records a caller may see. This is the
// single authorization boundary for grounding context: the context assembler
// consumes it and never computes visibility itself.
type AuthzProvider interface {
	// VisiblePropertyIDs returns the properties the caller owns plus those
	// reachable through portfolios the caller is a member of.
	VisiblePropertyIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

type pgAuthzProvider struct {
	db *database.DB
}

// NewAuthzProvider creates the store-backed authorization boundary.
func NewAuthzProvider(db *database.DB) AuthzProvider {
	return &pgAuthzProvider{db: db}
}

var _ AuthzProvider = (*pgAuthzProvider)(nil)

func (p *pgAuthzProvider) VisiblePropertyIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	sql := `
		SELECT "id"
		FROM properties
		WHERE "userId" = $1
		   OR EXISTS (
		       SELECT 1
		       FROM portfolio_properties pp
		       JOIN portfolio_members pm ON pp."portfolioId" = pm."portfolioId"
		       WHERE pp."propertyId" = properties."id"
		         AND pm."userId" = $1
		   )`

	rows, err := p.db.Query(ctx, sql, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list visible properties: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan property id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating property ids: %w", err)
	}

	return ids, nil
}
