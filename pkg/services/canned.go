package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/propfolio/insight-engine/pkg/apperrors"
	"github.com/propfolio/insight-engine/pkg/models"
	sqlval "github.com/propfolio/insight-engine/pkg/sql"
)

// CannedQueryID identifies one hand-authored analytic query.
type CannedQueryID string

const (
	CannedTopCitiesByAppreciation CannedQueryID = "top_cities_by_appreciation"
	CannedHighRentalDemand        CannedQueryID = "high_rental_demand"
	CannedPortfolioTotalValue     CannedQueryID = "portfolio_total_value"
	CannedRecommendedForSale      CannedQueryID = "recommended_for_sale"
	CannedRecommendedToHold       CannedQueryID = "recommended_to_hold"
	CannedExpensesAndRevenue      CannedQueryID = "expenses_and_revenue"
	CannedMonthlyExpenseBreakdown CannedQueryID = "monthly_expense_breakdown"
	CannedActiveRentalAgreements  CannedQueryID = "active_rental_agreements"
	CannedMonthlyRentalIncome     CannedQueryID = "monthly_rental_income"
)

// CannedQuery is one fixed, parameterized analytic query. The output column
// names are part of the interface contract consumed by the shaper and the
// presentation layer; changing them is a breaking change.
//
// Caller identifiers are always bound as $1, never interpolated into the SQL
// text. Market-wide queries reference no caller and bind nothing.
type CannedQuery struct {
	ID          CannedQueryID
	Description string
	SQL         string
	BindsCaller bool
	Columns     []string
}

// cannedCatalog is the fixed catalog, versioned together with the schema
// contract and the migrations that make it true.
var cannedCatalog = []CannedQuery{
	{
		ID:          CannedTopCitiesByAppreciation,
		Description: "Top 5 cities with the highest average property appreciation rates.",
		SQL: `SELECT
			"city",
			CAST(AVG("appreciationRate") AS FLOAT) AS avg_appreciation_rate
		FROM properties
		GROUP BY "city"
		ORDER BY avg_appreciation_rate DESC
		LIMIT 5`,
		Columns: []string{"city", "avg_appreciation_rate"},
	},
	{
		ID:          CannedHighRentalDemand,
		Description: "Cities ranked by number of properties with active rental agreements.",
		SQL: `SELECT
			p."city",
			CAST(COUNT(p."id") AS INT) AS active_rental_properties
		FROM properties p
		JOIN rental_agreements ra ON p."id" = ra."propertyId"
		WHERE ra."startDate" <= NOW()
		  AND (ra."endDate" IS NULL OR ra."endDate" >= NOW())
		GROUP BY p."city"
		ORDER BY active_rental_properties DESC`,
		Columns: []string{"city", "active_rental_properties"},
	},
	{
		ID:          CannedPortfolioTotalValue,
		Description: "Total current value of all properties in the caller's portfolios.",
		SQL: `SELECT
			CAST(SUM(pt."currentValue") AS FLOAT) AS total_current_value
		FROM portfolio_members pm
		JOIN portfolio_properties ppt ON ppt."portfolioId" = pm."portfolioId"
		JOIN properties pt ON ppt."propertyId" = pt."id"
		WHERE pm."userId" = $1`,
		BindsCaller: true,
		Columns:     []string{"total_current_value"},
	},
	{
		ID:          CannedRecommendedForSale,
		Description: "Properties with negative net income in their latest performance report, within the caller's portfolios.",
		SQL: `SELECT
			p."name", p."address", p."state",
			CAST(p."currentValue" AS FLOAT) AS "currentValue"
		FROM properties p
		JOIN property_performance_reports r ON p."id" = r."propertyId"
		JOIN portfolio_properties pt ON pt."propertyId" = p."id"
		JOIN portfolio_members pm ON pt."portfolioId" = pm."portfolioId"
		WHERE pm."userId" = $1
		  AND r."netIncome" < 0`,
		BindsCaller: true,
		Columns:     []string{"name", "address", "state", "currentValue"},
	},
	{
		ID:          CannedRecommendedToHold,
		Description: "Properties with appreciation above 5% but occupancy below 50%, within the caller's portfolios.",
		SQL: `SELECT
			p."name", p."address", p."state",
			CAST(p."currentValue" AS FLOAT) AS "currentValue"
		FROM properties p
		JOIN property_performance_reports r ON p."id" = r."propertyId"
		JOIN portfolio_properties pt ON pt."propertyId" = p."id"
		JOIN portfolio_members pm ON pt."portfolioId" = pm."portfolioId"
		WHERE pm."userId" = $1
		  AND p."appreciationRate" > 5
		  AND r."occupancyRate" < 50`,
		BindsCaller: true,
		Columns:     []string{"name", "address", "state", "currentValue"},
	},
	{
		ID:          CannedExpensesAndRevenue,
		Description: "Total expenses and revenue per property across the caller's portfolios.",
		SQL: `SELECT
			p."name" AS property_name,
			p."address", p."state",
			CAST(p."currentValue" AS FLOAT) AS "currentValue",
			CAST(SUM(e."amount") AS FLOAT) AS total_expenses,
			CAST(SUM(ppr."totalRevenue") AS FLOAT) AS total_revenue
		FROM expenses e
		JOIN property_performance_reports ppr ON e."propertyId" = ppr."propertyId"
		JOIN properties p ON e."propertyId" = p."id"
		JOIN portfolio_properties pt ON p."id" = pt."propertyId"
		JOIN portfolio_members pm ON pt."portfolioId" = pm."portfolioId"
		WHERE pm."userId" = $1
		GROUP BY p."id", p."name", p."address", p."state", p."currentValue"`,
		BindsCaller: true,
		Columns:     []string{"property_name", "address", "state", "currentValue", "total_expenses", "total_revenue"},
	},
	{
		ID:          CannedMonthlyExpenseBreakdown,
		Description: "Monthly expense totals for the caller's own properties over the last year.",
		SQL: `SELECT
			CAST(EXTRACT(YEAR FROM e."date") AS INT) AS year,
			CAST(EXTRACT(MONTH FROM e."date") AS INT) AS month,
			CAST(SUM(e."amount") AS FLOAT) AS monthly_expenses
		FROM expenses e
		JOIN properties p ON e."propertyId" = p."id"
		WHERE p."userId" = $1
		  AND e."date" >= NOW() - INTERVAL '1 year'
		GROUP BY year, month
		ORDER BY year DESC, month DESC`,
		BindsCaller: true,
		Columns:     []string{"year", "month", "monthly_expenses"},
	},
	{
		ID:          CannedActiveRentalAgreements,
		Description: "Active rental agreements for properties in the caller's portfolios.",
		SQL: `SELECT
			ra."tenantName", ra."startDate", ra."endDate",
			CAST(ra."monthlyRent" AS FLOAT) AS "monthlyRent"
		FROM rental_agreements ra
		JOIN properties p ON ra."propertyId" = p."id"
		JOIN portfolio_properties pp ON pp."propertyId" = p."id"
		JOIN portfolio_members pm ON pp."portfolioId" = pm."portfolioId"
		WHERE pm."userId" = $1
		  AND CURRENT_DATE BETWEEN ra."startDate" AND COALESCE(ra."endDate", CURRENT_DATE)`,
		BindsCaller: true,
		Columns:     []string{"tenantName", "startDate", "endDate", "monthlyRent"},
	},
	{
		ID:          CannedMonthlyRentalIncome,
		Description: "Total monthly rental income across the caller's own properties.",
		SQL: `SELECT
			CAST(SUM(ra."monthlyRent") AS FLOAT) AS total_monthly_rental_income
		FROM rental_agreements ra
		JOIN properties p ON ra."propertyId" = p."id"
		WHERE p."userId" = $1`,
		BindsCaller: true,
		Columns:     []string{"total_monthly_rental_income"},
	},
}

// CannedLibrary exposes the catalog and executes its entries. The catalog is
// immutable after process startup and safe for concurrent use.
type CannedLibrary struct {
	byID     map[CannedQueryID]*CannedQuery
	executor QueryExecutor
	logger   *zap.Logger
}

// NewCannedLibrary creates the canned query library.
func NewCannedLibrary(executor QueryExecutor, logger *zap.Logger) *CannedLibrary {
	byID := make(map[CannedQueryID]*CannedQuery, len(cannedCatalog))
	for i := range cannedCatalog {
		byID[cannedCatalog[i].ID] = &cannedCatalog[i]
	}
	return &CannedLibrary{
		byID:     byID,
		executor: executor,
		logger:   logger.Named("canned"),
	}
}

// Catalog returns the catalog entries in their declared order.
func (l *CannedLibrary) Catalog() []CannedQuery {
	return cannedCatalog
}

// Get looks up a catalog entry by ID.
func (l *CannedLibrary) Get(id CannedQueryID) (*CannedQuery, bool) {
	q, ok := l.byID[id]
	return q, ok
}

// Execute runs a catalog query for a caller. The caller identifier is screened
// for injection patterns and bound as a parameter; it never touches the SQL
// text. No row cap applies: canned shapes are fixed and trusted.
func (l *CannedLibrary) Execute(ctx context.Context, id CannedQueryID, callerID uuid.UUID) (*models.QueryResult, error) {
	q, ok := l.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown canned query %q", apperrors.ErrInvalidInput, id)
	}

	if !q.BindsCaller {
		return l.executor.ExecuteCanned(ctx, q.SQL)
	}

	caller := callerID.String()
	if res := sqlval.CheckParameterForInjection("caller_id", caller); res != nil {
		l.logger.Warn("rejected canned query parameter",
			zap.String("canned_query", string(id)),
			zap.String("param", res.ParamName),
			zap.String("fingerprint", res.Fingerprint))
		return nil, fmt.Errorf("%w: parameter failed injection screening", apperrors.ErrInvalidInput)
	}

	return l.executor.ExecuteCanned(ctx, q.SQL, caller)
}
