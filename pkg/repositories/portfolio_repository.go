package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/propfolio/insight-engine/pkg/database"
	"github.com/propfolio/insight-engine/pkg/models"
)

// PortfolioRepository reads the caller-visible records that the context
// assembler folds into chat prompts. Every list is bounded by a row limit and
// ordered by recency; the full dataset of a large portfolio would not fit a
// generator input window.
type PortfolioRepository interface {
	ListProperties(ctx context.Context, propertyIDs []uuid.UUID, limit int) ([]models.Property, error)
	ListReports(ctx context.Context, propertyIDs []uuid.UUID, limit int) ([]models.PerformanceReport, error)
	ListExpenses(ctx context.Context, propertyIDs []uuid.UUID, limit int) ([]models.Expense, error)
	ListRentalAgreements(ctx context.Context, propertyIDs []uuid.UUID, limit int) ([]models.RentalAgreement, error)
	ListMemberPortfolios(ctx context.Context, userID uuid.UUID) ([]models.Portfolio, error)
}

type portfolioRepository struct {
	db *database.DB
}

// NewPortfolioRepository creates a PortfolioRepository.
func NewPortfolioRepository(db *database.DB) PortfolioRepository {
	return &portfolioRepository{db: db}
}

var _ PortfolioRepository = (*portfolioRepository)(nil)

func (r *portfolioRepository) ListProperties(ctx context.Context, propertyIDs []uuid.UUID, limit int) ([]models.Property, error) {
	sql := `
		SELECT "id", "userId", "name", "type", "city", "state",
		       CAST("currentValue" AS FLOAT), CAST("appreciationRate" AS FLOAT),
		       "rentalStatus", CAST("monthlyRent" AS FLOAT)
		FROM properties
		WHERE "id" = ANY($1)
		ORDER BY "updatedAt" DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, sql, propertyIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	defer rows.Close()

	properties := make([]models.Property, 0)
	for rows.Next() {
		var p models.Property
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Type, &p.City, &p.State,
			&p.CurrentValue, &p.AppreciationRate, &p.RentalStatus, &p.MonthlyRent); err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		properties = append(properties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating properties: %w", err)
	}

	return properties, nil
}

func (r *portfolioRepository) ListReports(ctx context.Context, propertyIDs []uuid.UUID, limit int) ([]models.PerformanceReport, error) {
	sql := `
		SELECT "propertyId", CAST("totalRevenue" AS FLOAT), CAST("totalExpenses" AS FLOAT),
		       CAST("netIncome" AS FLOAT), CAST("occupancyRate" AS FLOAT), "reportPeriod"
		FROM property_performance_reports
		WHERE "propertyId" = ANY($1)
		ORDER BY "reportPeriod" DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, sql, propertyIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list performance reports: %w", err)
	}
	defer rows.Close()

	reports := make([]models.PerformanceReport, 0)
	for rows.Next() {
		var rep models.PerformanceReport
		if err := rows.Scan(&rep.PropertyID, &rep.TotalRevenue, &rep.TotalExpenses,
			&rep.NetIncome, &rep.OccupancyRate, &rep.ReportPeriod); err != nil {
			return nil, fmt.Errorf("failed to scan performance report: %w", err)
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating performance reports: %w", err)
	}

	return reports, nil
}

func (r *portfolioRepository) ListExpenses(ctx context.Context, propertyIDs []uuid.UUID, limit int) ([]models.Expense, error) {
	sql := `
		SELECT "propertyId", "type", CAST("amount" AS FLOAT), "date", "vendor"
		FROM expenses
		WHERE "propertyId" = ANY($1)
		ORDER BY "date" DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, sql, propertyIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]models.Expense, 0)
	for rows.Next() {
		var e models.Expense
		if err := rows.Scan(&e.PropertyID, &e.Type, &e.Amount, &e.Date, &e.Vendor); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}

	return expenses, nil
}

func (r *portfolioRepository) ListRentalAgreements(ctx context.Context, propertyIDs []uuid.UUID, limit int) ([]models.RentalAgreement, error) {
	sql := `
		SELECT "propertyId", "tenantName", "startDate", "endDate", CAST("monthlyRent" AS FLOAT)
		FROM rental_agreements
		WHERE "propertyId" = ANY($1)
		ORDER BY "startDate" DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, sql, propertyIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list rental agreements: %w", err)
	}
	defer rows.Close()

	agreements := make([]models.RentalAgreement, 0)
	for rows.Next() {
		var a models.RentalAgreement
		if err := rows.Scan(&a.PropertyID, &a.TenantName, &a.StartDate, &a.EndDate, &a.MonthlyRent); err != nil {
			return nil, fmt.Errorf("failed to scan rental agreement: %w", err)
		}
		agreements = append(agreements, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rental agreements: %w", err)
	}

	return agreements, nil
}

func (r *portfolioRepository) ListMemberPortfolios(ctx context.Context, userID uuid.UUID) ([]models.Portfolio, error) {
	sql := `
		SELECT p."id", p."name"
		FROM portfolios p
		JOIN portfolio_members pm ON pm."portfolioId" = p."id"
		WHERE pm."userId" = $1
		ORDER BY p."name"`

	rows, err := r.db.Query(ctx, sql, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	defer rows.Close()

	portfolios := make([]models.Portfolio, 0)
	for rows.Next() {
		var p models.Portfolio
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		portfolios = append(portfolios, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolios: %w", err)
	}

	return portfolios, nil
}
