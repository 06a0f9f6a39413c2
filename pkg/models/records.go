package models

import (
	"time"

	"github.com/google/uuid"
)

// Property is a caller-visible property row used for grounding context.
// MonthlyRent is a pointer: vacant properties carry no rent.
type Property struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	City             string    `json:"city"`
	State            string    `json:"state"`
	CurrentValue     float64   `json:"current_value"`
	AppreciationRate float64   `json:"appreciation_rate"`
	RentalStatus     string    `json:"rental_status"`
	MonthlyRent      *float64  `json:"monthly_rent,omitempty"`
}

// PerformanceReport is one reporting-period snapshot for a property.
type PerformanceReport struct {
	PropertyID    uuid.UUID `json:"property_id"`
	TotalRevenue  float64   `json:"total_revenue"`
	TotalExpenses float64   `json:"total_expenses"`
	NetIncome     float64   `json:"net_income"`
	OccupancyRate float64   `json:"occupancy_rate"`
	ReportPeriod  time.Time `json:"report_period"`
}

// Expense is one recorded outgoing for a property. Vendor is optional in the
// upstream schema.
type Expense struct {
	PropertyID uuid.UUID `json:"property_id"`
	Type       string    `json:"type"`
	Amount     float64   `json:"amount"`
	Date       time.Time `json:"date"`
	Vendor     *string   `json:"vendor,omitempty"`
}

// RentalAgreement is one tenancy record for a property.
type RentalAgreement struct {
	PropertyID  uuid.UUID  `json:"property_id"`
	TenantName  string     `json:"tenant_name"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	MonthlyRent float64    `json:"monthly_rent"`
}

// Portfolio is a portfolio the caller belongs to.
type Portfolio struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// GroundingSnapshot is the caller-visible data folded into a chat prompt.
// It only ever contains rows the caller is authorized to see.
type GroundingSnapshot struct {
	Properties       []Property          `json:"properties"`
	Reports          []PerformanceReport `json:"reports"`
	Expenses         []Expense           `json:"expenses"`
	RentalAgreements []RentalAgreement   `json:"rental_agreements"`
	Portfolios       []Portfolio         `json:"portfolios"`
}
