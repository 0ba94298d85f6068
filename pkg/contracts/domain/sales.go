package domain

import (
	"fmt"
	"math"
)

// MonthlySales is one row of the monthly sales view.
// Month is formatted "YYYY-MM"; rows are ordered by month ascending.
type MonthlySales struct {
	Month     string  `json:"month" csv:"month" validate:"required,len=7"`
	UnitsSold float64 `json:"units_sold" csv:"Units Sold"`
	Revenue   float64 `json:"revenue" csv:"Revenue"`
}

// ProductPerformance aggregates sales per (Product, Category).
type ProductPerformance struct {
	Product   string  `json:"product" csv:"Product" validate:"required"`
	Category  string  `json:"category" csv:"Category" validate:"required"`
	UnitsSold float64 `json:"units_sold" csv:"Units Sold"`
	Revenue   float64 `json:"revenue" csv:"Revenue"`
}

// RegionalPerformance aggregates sales per (Region, Manager).
type RegionalPerformance struct {
	Region    string  `json:"region" csv:"Region" validate:"required"`
	Manager   string  `json:"manager" csv:"Manager" validate:"required"`
	UnitsSold float64 `json:"units_sold" csv:"Units Sold"`
	Revenue   float64 `json:"revenue" csv:"Revenue"`
}

// SalesSummary holds the scalar figures over every merged row.
// It is logged and displayed, never persisted.
type SalesSummary struct {
	TotalRevenue   float64 `json:"total_revenue"`
	AverageRevenue float64 `json:"average_revenue"`
	TotalUnits     float64 `json:"total_units"`
	Rows           int     `json:"rows" validate:"gte=0"`
}

// String renders the summary the way it is shown on the console.
func (s SalesSummary) String() string {
	return fmt.Sprintf("Total Revenue: $%.2f | Average Revenue: $%.2f | Total Units Sold: %.0f",
		s.TotalRevenue, s.AverageRevenue, s.TotalUnits)
}

// Validate checks the summary is internally consistent.
func (s SalesSummary) Validate() error {
	if s.Rows < 0 {
		return fmt.Errorf("rows must be non-negative, got %d", s.Rows)
	}
	if s.Rows == 0 && s.AverageRevenue != 0 {
		return fmt.Errorf("average revenue must be 0 for an empty dataset")
	}
	if s.Rows > 0 && math.Abs(s.AverageRevenue*float64(s.Rows)-s.TotalRevenue) > 1e-6*math.Max(1, math.Abs(s.TotalRevenue)) {
		return fmt.Errorf("average revenue %.4f does not match total %.4f over %d rows", s.AverageRevenue, s.TotalRevenue, s.Rows)
	}
	return nil
}

// LabeledValue is one point of a chart series.
type LabeledValue struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ChartData holds the groupings rendered by the visualization step.
type ChartData struct {
	MonthlyRevenue  []LabeledValue `json:"monthly_revenue"`
	TopProducts     []LabeledValue `json:"top_products"`
	CategoryRevenue []LabeledValue `json:"category_revenue"`
	RegionRevenue   []LabeledValue `json:"region_revenue"`
}

// SalesAnalysis bundles every view produced from the merged dataset.
type SalesAnalysis struct {
	Monthly  []MonthlySales        `json:"monthly" validate:"dive"`
	Products []ProductPerformance  `json:"products" validate:"dive"`
	Regions  []RegionalPerformance `json:"regions" validate:"dive"`
	Summary  SalesSummary          `json:"summary"`
}
