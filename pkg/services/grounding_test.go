package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/propfolio/insight-engine/pkg/models"
)

const testSessionTTL = time.Minute

type stubAuthz struct {
	ids      []uuid.UUID
	lastUser uuid.UUID
	err      error
}

func (s *stubAuthz) VisiblePropertyIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	s.lastUser = userID
	return s.ids, s.err
}

type stubPortfolioRepo struct {
	properties []models.Property
	reports    []models.PerformanceReport
	expenses   []models.Expense
	agreements []models.RentalAgreement
	portfolios []models.Portfolio

	lastLimit int
	lastIDs   []uuid.UUID
}

func (s *stubPortfolioRepo) ListProperties(ctx context.Context, ids []uuid.UUID, limit int) ([]models.Property, error) {
	s.lastIDs = ids
	s.lastLimit = limit
	return s.properties, nil
}

func (s *stubPortfolioRepo) ListReports(ctx context.Context, ids []uuid.UUID, limit int) ([]models.PerformanceReport, error) {
	return s.reports, nil
}

func (s *stubPortfolioRepo) ListExpenses(ctx context.Context, ids []uuid.UUID, limit int) ([]models.Expense, error) {
	return s.expenses, nil
}

func (s *stubPortfolioRepo) ListRentalAgreements(ctx context.Context, ids []uuid.UUID, limit int) ([]models.RentalAgreement, error) {
	return s.agreements, nil
}

func (s *stubPortfolioRepo) ListMemberPortfolios(ctx context.Context, userID uuid.UUID) ([]models.Portfolio, error) {
	return s.portfolios, nil
}

func TestSnapshotUsesAuthzBoundary(t *testing.T) {
	userID := uuid.New()
	propertyID := uuid.New()
	authz := &stubAuthz{ids: []uuid.UUID{propertyID}}
	repo := &stubPortfolioRepo{
		properties: []models.Property{{ID: propertyID, Name: "Row House"}},
	}

	g := NewGroundingAssembler(authz, repo, 25, zap.NewNop())
	snapshot, err := g.Snapshot(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, userID, authz.lastUser)
	assert.Equal(t, []uuid.UUID{propertyID}, repo.lastIDs)
	assert.Equal(t, 25, repo.lastLimit, "row limit must bound every collection")
	require.Len(t, snapshot.Properties, 1)
}

func TestSnapshotWithNoVisiblePropertiesSkipsRecordFetches(t *testing.T) {
	authz := &stubAuthz{ids: nil}
	repo := &stubPortfolioRepo{portfolios: []models.Portfolio{{ID: uuid.New(), Name: "Starter"}}}

	g := NewGroundingAssembler(authz, repo, 50, zap.NewNop())
	snapshot, err := g.Snapshot(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Empty(t, snapshot.Properties)
	assert.Nil(t, repo.lastIDs, "record fetches must not run without visible properties")
	assert.Len(t, snapshot.Portfolios, 1)
}

func TestRenderProducesJSON(t *testing.T) {
	g := NewGroundingAssembler(&stubAuthz{}, &stubPortfolioRepo{}, 50, zap.NewNop())

	propertyID := uuid.New()
	out, err := g.Render(&models.GroundingSnapshot{
		Properties: []models.Property{{ID: propertyID, Name: "Row House", City: "Denver"}},
	})
	require.NoError(t, err)

	assert.Contains(t, out, `"Row House"`)
	assert.Contains(t, out, propertyID.String())
	assert.Contains(t, out, `"properties"`)
}
