// Package panel builds the weekly macro panel: the latest synthesis text and
// an indicator × asset-manager table of the most recent week's readings.
//
// Build is pure. It never fails: an empty input yields StatusNoData, and
// inconsistent rows (orphaned manager ids, duplicate cells) are resolved by
// fixed rules documented on each step.
package panel

import (
	"slices"
	"time"

	"github.com/bussola-offshore/bussola/internal/domain/market"
)

// Status reports which kind of panel was produced.
type Status string

const (
	StatusOK             Status = "ok"
	StatusNoData         Status = "no_data"
	StatusEmptySynthesis Status = "empty_synthesis"
)

// IndicatorColumn is the header of the first column.
const IndicatorColumn = "Indicator"

// PreferredManagers is the display order of manager columns. Managers not in
// this list are left out of the panel.
var PreferredManagers = []string{
	"BlackRock",
	"J.P. Morgan",
	"PIMCO",
	"Bridgewater",
	"Vanguard",
	"Goldman Sachs",
}

// Row is one indicator line. Values align with Result.Columns[1:]; a nil
// entry means the manager published no reading for that indicator.
type Row struct {
	Indicator string     `json:"indicator"`
	Values    []*float64 `json:"values"`
}

// Cell identifies one pivot position.
type Cell struct {
	Indicator string `json:"indicator"`
	Manager   string `json:"manager"`
}

// Result is the presentation-ready panel.
type Result struct {
	WeekLabel     time.Time `json:"week_label"`
	SynthesisText *string   `json:"synthesis_text"`
	Columns       []string  `json:"columns"`
	Rows          []Row     `json:"rows"`
	Status        Status    `json:"status"`
	// Duplicates lists cells that received more than one reading; the last
	// reading in input order is the one shown.
	Duplicates []Cell `json:"duplicates,omitempty"`
}

// Build turns the raw table contents into a Result.
func Build(synthesis []market.WeeklySynthesis, managers []market.AssetManager, points []market.MacroDataPoint) Result {
	var res Result
	if s, ok := SelectSynthesis(synthesis); ok {
		text := s.SynthesisText
		res.SynthesisText = &text
	}

	if len(managers) == 0 || len(points) == 0 {
		res.Status = StatusNoData
		return res
	}

	week := LatestWeek(points)
	res.WeekLabel = week

	joined := join(FilterWeek(points, week), managers)
	res.Columns, res.Rows, res.Duplicates = pivot(joined)

	res.Status = StatusOK
	if res.SynthesisText == nil {
		res.Status = StatusEmptySynthesis
	}
	return res
}

// SelectSynthesis returns the record with the greatest CreatedAt. When several
// share the maximum the first one in input order wins; callers must not rely
// on which.
func SelectSynthesis(rows []market.WeeklySynthesis) (market.WeeklySynthesis, bool) {
	if len(rows) == 0 {
		return market.WeeklySynthesis{}, false
	}
	best := rows[0]
	for _, s := range rows[1:] {
		if s.CreatedAt.After(best.CreatedAt) {
			best = s
		}
	}
	return best, true
}

// LatestWeek returns max(WeekOf) over points, or the zero time for none.
func LatestWeek(points []market.MacroDataPoint) time.Time {
	var latest time.Time
	for i, p := range points {
		if i == 0 || p.WeekOf.After(latest) {
			latest = p.WeekOf
		}
	}
	return latest
}

// FilterWeek keeps exactly the points whose WeekOf equals week.
func FilterWeek(points []market.MacroDataPoint, week time.Time) []market.MacroDataPoint {
	out := make([]market.MacroDataPoint, 0, len(points))
	for _, p := range points {
		if p.WeekOf.Equal(week) {
			out = append(out, p)
		}
	}
	return out
}

type reading struct {
	indicator string
	manager   string
	value     float64
}

// join pairs points with their manager name. Points whose ManagerID matches
// no manager are dropped.
func join(points []market.MacroDataPoint, managers []market.AssetManager) []reading {
	names := make(map[int64]string, len(managers))
	for _, m := range managers {
		names[m.ID] = m.Name
	}
	out := make([]reading, 0, len(points))
	for _, p := range points {
		name, ok := names[p.ManagerID]
		if !ok {
			continue
		}
		out = append(out, reading{indicator: p.IndicatorName, manager: name, value: p.IndicatorValue})
	}
	return out
}

// pivot lays readings out as indicator rows (sorted by name) and preferred
// manager columns. Later readings overwrite earlier ones for the same cell.
func pivot(readings []reading) (columns []string, rows []Row, dups []Cell) {
	cells := make(map[Cell]float64, len(readings))
	present := make(map[string]bool)
	var indicators []string
	seenIndicator := make(map[string]bool)

	for _, r := range readings {
		c := Cell{Indicator: r.indicator, Manager: r.manager}
		if _, exists := cells[c]; exists {
			dups = append(dups, c)
		}
		cells[c] = r.value
		present[r.manager] = true
		if !seenIndicator[r.indicator] {
			seenIndicator[r.indicator] = true
			indicators = append(indicators, r.indicator)
		}
	}
	slices.Sort(indicators)

	managers := OrderColumns(present)
	columns = append([]string{IndicatorColumn}, managers...)

	rows = make([]Row, 0, len(indicators))
	for _, ind := range indicators {
		row := Row{Indicator: ind, Values: make([]*float64, len(managers))}
		for i, m := range managers {
			if v, ok := cells[Cell{Indicator: ind, Manager: m}]; ok {
				row.Values[i] = &v
			}
		}
		rows = append(rows, row)
	}
	return columns, rows, dups
}

// OrderColumns returns the managers present in the data, in PreferredManagers
// order. Names outside the list are omitted.
func OrderColumns(present map[string]bool) []string {
	out := make([]string, 0, len(PreferredManagers))
	for _, name := range PreferredManagers {
		if present[name] {
			out = append(out, name)
		}
	}
	return out
}
