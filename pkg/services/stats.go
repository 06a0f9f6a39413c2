package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/propfolio/insight-engine/pkg/models"
)

// DashboardStats is the full dashboard payload for one caller.
type DashboardStats struct {
	Overview         *PortfolioOverview   `json:"overview"`
	PerformanceChart *models.ChartDataset `json:"performance_chart"`
	ExpenseChart     *models.ChartDataset `json:"expense_chart"`
	RecentExpenses   []map[string]any     `json:"recent_expenses"`
	RecentReports    []map[string]any     `json:"recent_reports"`
}

// PortfolioOverview aggregates the caller's visible properties.
type PortfolioOverview struct {
	PropertyCount int     `json:"property_count"`
	TotalValue    float64 `json:"total_value"`
	TotalExpenses float64 `json:"total_expenses"`
	NetIncome     float64 `json:"net_income"`
}

// visiblePropertyPredicate scopes a properties row aliased p to the caller's
// visible set: owned directly, or shared through a portfolio the caller is a
// member of. Same boundary the grounding authz provider answers.
const visiblePropertyPredicate = `(p."userId" = $1
	OR EXISTS (
		SELECT 1
		FROM portfolio_properties pp
		JOIN portfolio_members pm ON pp."portfolioId" = pm."portfolioId"
		WHERE pp."propertyId" = p."id"
		  AND pm."userId" = $1
	))`

const statsOverviewSQL = `SELECT
	CAST((SELECT COUNT(*) FROM properties p WHERE ` + visiblePropertyPredicate + `) AS INT) AS property_count,
	CAST(COALESCE((SELECT SUM(p."currentValue") FROM properties p WHERE ` + visiblePropertyPredicate + `), 0) AS FLOAT) AS total_value,
	CAST(COALESCE((SELECT SUM(e."amount") FROM expenses e JOIN properties p ON e."propertyId" = p."id" WHERE ` + visiblePropertyPredicate + `), 0) AS FLOAT) AS total_expenses,
	CAST(COALESCE((SELECT SUM(r."netIncome") FROM property_performance_reports r JOIN properties p ON r."propertyId" = p."id" WHERE ` + visiblePropertyPredicate + `), 0) AS FLOAT) AS net_income`

const statsPerformanceSQL = `SELECT
	r."reportPeriod",
	CAST(SUM(r."totalRevenue") AS FLOAT) AS total_revenue,
	CAST(SUM(r."totalExpenses") AS FLOAT) AS total_expenses,
	CAST(SUM(r."netIncome") AS FLOAT) AS net_income,
	CAST(SUM(r."occupancyRate") AS FLOAT) AS occupancy_rate
FROM property_performance_reports r
JOIN properties p ON r."propertyId" = p."id"
WHERE ` + visiblePropertyPredicate + `
GROUP BY r."reportPeriod"
ORDER BY r."reportPeriod"`

const statsMonthlyExpensesSQL = `SELECT
	CAST(EXTRACT(MONTH FROM e."date") AS INT) AS month,
	CAST(SUM(e."amount") AS FLOAT) AS monthly_expenses
FROM expenses e
JOIN properties p ON e."propertyId" = p."id"
WHERE ` + visiblePropertyPredicate + `
  AND e."date" >= NOW() - INTERVAL '1 year'
GROUP BY month`

// The recent-records previews stay scoped to directly-owned properties; they
// are the caller's own activity feed, not a portfolio-wide view.
const statsRecentExpensesSQL = `SELECT
	p."name" AS property_name,
	e."type",
	CAST(e."amount" AS FLOAT) AS amount,
	TO_CHAR(e."date", 'DD Mon YYYY') AS date,
	e."vendor"
FROM expenses e
JOIN properties p ON e."propertyId" = p."id"
WHERE p."userId" = $1
ORDER BY e."date" DESC
LIMIT 5`

const statsRecentReportsSQL = `SELECT
	p."name" AS property_name,
	CAST(r."netIncome" AS FLOAT) AS net_income,
	CAST(r."occupancyRate" AS FLOAT) AS occupancy_rate,
	TO_CHAR(r."reportPeriod", 'DD Mon YYYY') AS date
FROM property_performance_reports r
JOIN properties p ON r."propertyId" = p."id"
WHERE p."userId" = $1
ORDER BY r."reportPeriod" DESC
LIMIT 5`

// StatsService builds the dashboard from fixed queries and the shaper.
// Charts and the overview cover the caller's visible properties, including
// portfolio-shared ones.
type StatsService struct {
	executor QueryExecutor
	shaper   *Shaper
	logger   *zap.Logger
}

// NewStatsService creates the dashboard statistics service.
func NewStatsService(executor QueryExecutor, shaper *Shaper, logger *zap.Logger) *StatsService {
	return &StatsService{
		executor: executor,
		shaper:   shaper,
		logger:   logger.Named("stats"),
	}
}

// Dashboard assembles the full dashboard payload for a caller.
func (s *StatsService) Dashboard(ctx context.Context, userID uuid.UUID) (*DashboardStats, error) {
	overview, err := s.overview(ctx, userID)
	if err != nil {
		return nil, err
	}

	performance, err := s.performanceChart(ctx, userID)
	if err != nil {
		return nil, err
	}

	expenses, err := s.expenseChart(ctx, userID)
	if err != nil {
		return nil, err
	}

	recentExpenses, err := s.recent(ctx, statsRecentExpensesSQL, "recent expenses", userID)
	if err != nil {
		return nil, err
	}

	recentReports, err := s.recent(ctx, statsRecentReportsSQL, "recent reports", userID)
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		Overview:         overview,
		PerformanceChart: performance,
		ExpenseChart:     expenses,
		RecentExpenses:   recentExpenses,
		RecentReports:    recentReports,
	}, nil
}

func (s *StatsService) overview(ctx context.Context, userID uuid.UUID) (*PortfolioOverview, error) {
	result, err := s.executor.ExecuteCanned(ctx, statsOverviewSQL, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio overview: %w", err)
	}

	overview := &PortfolioOverview{}
	if !result.Empty() {
		row := result.Rows[0]
		if n, ok := asInt(row["property_count"]); ok {
			overview.PropertyCount = n
		}
		overview.TotalValue, _ = asFloat(row["total_value"])
		overview.TotalExpenses, _ = asFloat(row["total_expenses"])
		overview.NetIncome, _ = asFloat(row["net_income"])
	}
	return overview, nil
}

// performanceChart plots revenue, expenses, net income, and occupancy per
// report period. The display hints match what the renderer expects for this
// chart: solid revenue, dashed expenses, filled net income.
func (s *StatsService) performanceChart(ctx context.Context, userID uuid.UUID) (*models.ChartDataset, error) {
	result, err := s.executor.ExecuteCanned(ctx, statsPerformanceSQL, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to load performance history: %w", err)
	}

	specs := []lineSeriesSpec{
		{column: "total_revenue", label: "Total Revenue", color: "#4bc0c0", tension: 0.4},
		{column: "total_expenses", label: "Total Expenses", color: "#ff6384", tension: 0.4, dashed: true},
		{column: "net_income", label: "Net Income", color: "#36a2eb", tension: 0.4, filled: true},
		{column: "occupancy_rate", label: "Occupancy Rate (%)", color: "#9966ff", tension: 0.4},
	}
	return s.shaper.PeriodLineChart(result, "reportPeriod", specs), nil
}

func (s *StatsService) expenseChart(ctx context.Context, userID uuid.UUID) (*models.ChartDataset, error) {
	result, err := s.executor.ExecuteCanned(ctx, statsMonthlyExpensesSQL, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to load monthly expenses: %w", err)
	}
	return s.shaper.MonthlyBarChart(result, "month", "monthly_expenses", "Monthly Expenses", "#ff9f40"), nil
}

func (s *StatsService) recent(ctx context.Context, sqlText, what string, userID uuid.UUID) ([]map[string]any, error) {
	result, err := s.executor.ExecuteCanned(ctx, sqlText, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", what, err)
	}
	return result.Rows, nil
}
