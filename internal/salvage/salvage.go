// Package salvage measures whether interventions actually work. It keeps
// rolling-window aggregates of red-zone sessions, conversions, and the
// revenue attributed to save attempts, and exposes them to the dashboard.
package salvage

import "time"

// DefaultWindow is the rolling aggregation window.
const DefaultWindow = time.Hour

// Stats is the dashboard projection of the current window.
type Stats struct {
	TotalSalvaged   int     `json:"total_salvaged_customers"`
	RevenueSaved    float64 `json:"total_revenue_saved"`
	SalvageRate     float64 `json:"salvage_rate"`
	AvgSalvageValue float64 `json:"avg_salvage_value"`
	TotalHighRisk   int     `json:"total_high_risk"`
	TotalConverted  int     `json:"total_conversions"`
	TotalRevenue    float64 `json:"total_revenue"`
	WindowSeconds   int     `json:"window_seconds"`
}

// Attribution is the outcome of attributing one conversion.
type Attribution struct {
	Salvaged  bool
	Duplicate bool // the session was already attributed; aggregates unchanged
	Value     float64
}
