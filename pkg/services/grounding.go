package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/propfolio/insight-engine/pkg/models"
	"github.com/propfolio/insight-engine/pkg/repositories"
)

// GroundingAssembler builds the caller-visible record snapshot folded into
// chat prompts. Visibility is answered by the authorization boundary; the
// assembler never reasons about ownership or membership itself.
//
// The snapshot is bounded by recency: at most rowLimit of the most recent rows
// per collection. A full portfolio dump would not fit a generator input window.
type GroundingAssembler struct {
	authz    repositories.AuthzProvider
	repo     repositories.PortfolioRepository
	rowLimit int
	logger   *zap.Logger
}

// NewGroundingAssembler creates the context assembler for the chat path.
func NewGroundingAssembler(authz repositories.AuthzProvider, repo repositories.PortfolioRepository, rowLimit int, logger *zap.Logger) *GroundingAssembler {
	return &GroundingAssembler{
		authz:    authz,
		repo:     repo,
		rowLimit: rowLimit,
		logger:   logger.Named("grounding"),
	}
}

// Snapshot fetches the caller's visible records.
func (g *GroundingAssembler) Snapshot(ctx context.Context, userID uuid.UUID) (*models.GroundingSnapshot, error) {
	propertyIDs, err := g.authz.VisiblePropertyIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve visible properties: %w", err)
	}

	snapshot := &models.GroundingSnapshot{}
	if len(propertyIDs) > 0 {
		if snapshot.Properties, err = g.repo.ListProperties(ctx, propertyIDs, g.rowLimit); err != nil {
			return nil, err
		}
		if snapshot.Reports, err = g.repo.ListReports(ctx, propertyIDs, g.rowLimit); err != nil {
			return nil, err
		}
		if snapshot.Expenses, err = g.repo.ListExpenses(ctx, propertyIDs, g.rowLimit); err != nil {
			return nil, err
		}
		if snapshot.RentalAgreements, err = g.repo.ListRentalAgreements(ctx, propertyIDs, g.rowLimit); err != nil {
			return nil, err
		}
	}

	if snapshot.Portfolios, err = g.repo.ListMemberPortfolios(ctx, userID); err != nil {
		return nil, err
	}

	g.logger.Debug("assembled grounding snapshot",
		zap.Int("properties", len(snapshot.Properties)),
		zap.Int("reports", len(snapshot.Reports)),
		zap.Int("expenses", len(snapshot.Expenses)),
		zap.Int("rental_agreements", len(snapshot.RentalAgreements)),
		zap.Int("portfolios", len(snapshot.Portfolios)))
	return snapshot, nil
}

// Render serializes a snapshot for embedding in a prompt. JSON keeps the block
// unambiguous for the generator and cheap to produce deterministically.
func (g *GroundingAssembler) Render(snapshot *models.GroundingSnapshot) (string, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("failed to serialize grounding snapshot: %w", err)
	}
	return string(data), nil
}
