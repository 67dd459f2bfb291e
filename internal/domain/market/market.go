// Package market defines the read-only entities shown on the macro panel:
// asset managers, their weekly indicator readings, and the weekly synthesis.
package market

import "time"

// Table names in the row store.
const (
	TableAssetManagers   = "asset_managers"
	TableMacroDataPoints = "macro_data_points"
	TableWeeklySynthesis = "weekly_synthesis"
)

// Tables lists every table the dashboard reads.
var Tables = []string{TableWeeklySynthesis, TableAssetManagers, TableMacroDataPoints}

// AssetManager is a fund house whose indicator readings are tracked.
type AssetManager struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	LogoURL string `json:"logo_url"`
}

// MacroDataPoint is one indicator reading published by a manager for a week.
// (ManagerID, WeekOf, IndicatorName) is unique upstream.
type MacroDataPoint struct {
	ManagerID      int64     `json:"manager_id"`
	WeekOf         time.Time `json:"week_of"`
	IndicatorName  string    `json:"indicator_name"`
	IndicatorValue float64   `json:"indicator_value"`
}

// WeeklySynthesis is the free-text summary written for a week.
type WeeklySynthesis struct {
	CreatedAt     time.Time `json:"created_at"`
	SynthesisText string    `json:"synthesis_text"`
}
