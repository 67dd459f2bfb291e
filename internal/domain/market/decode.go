package market

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bussola-offshore/bussola/internal/domain"
)

// timeLayouts are tried in order when a date or timestamp arrives as text.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	time.DateOnly,
}

// DecodeAssetManager converts a raw row into an AssetManager.
func DecodeAssetManager(rec map[string]any) (AssetManager, error) {
	var m AssetManager
	var err error
	if m.ID, err = intField(rec, "id"); err != nil {
		return m, err
	}
	if m.Name, err = stringField(rec, "name", true); err != nil {
		return m, err
	}
	if m.LogoURL, err = stringField(rec, "logo_url", false); err != nil {
		return m, err
	}
	return m, nil
}

// DecodeMacroDataPoint converts a raw row into a MacroDataPoint.
func DecodeMacroDataPoint(rec map[string]any) (MacroDataPoint, error) {
	var p MacroDataPoint
	var err error
	if p.ManagerID, err = intField(rec, "manager_id"); err != nil {
		return p, err
	}
	if p.WeekOf, err = dateField(rec, "week_of"); err != nil {
		return p, err
	}
	if p.IndicatorName, err = stringField(rec, "indicator_name", true); err != nil {
		return p, err
	}
	if p.IndicatorValue, err = floatField(rec, "indicator_value"); err != nil {
		return p, err
	}
	return p, nil
}

// DecodeWeeklySynthesis converts a raw row into a WeeklySynthesis.
func DecodeWeeklySynthesis(rec map[string]any) (WeeklySynthesis, error) {
	var s WeeklySynthesis
	var err error
	if s.CreatedAt, err = timeField(rec, "created_at"); err != nil {
		return s, err
	}
	if s.SynthesisText, err = stringField(rec, "synthesis_text", false); err != nil {
		return s, err
	}
	return s, nil
}

func shapeErr(field, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", domain.ErrDataShape, field, fmt.Sprintf(format, args...))
}

func lookup(rec map[string]any, field string) (any, bool) {
	v, ok := rec[field]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func stringField(rec map[string]any, field string, required bool) (string, error) {
	v, ok := lookup(rec, field)
	if !ok {
		if required {
			return "", shapeErr(field, "missing")
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", shapeErr(field, "expected text, got %T", v)
	}
	if required && strings.TrimSpace(s) == "" {
		return "", shapeErr(field, "empty")
	}
	return s, nil
}

func intField(rec map[string]any, field string) (int64, error) {
	v, ok := lookup(rec, field)
	if !ok {
		return 0, shapeErr(field, "missing")
	}
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, shapeErr(field, "not an integer: %s", n)
		}
		return i, nil
	case float64:
		if n != math.Trunc(n) {
			return 0, shapeErr(field, "not an integer: %v", n)
		}
		return int64(n), nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, shapeErr(field, "not an integer: %q", n)
		}
		return i, nil
	default:
		return 0, shapeErr(field, "expected integer, got %T", v)
	}
}

func floatField(rec map[string]any, field string) (float64, error) {
	v, ok := lookup(rec, field)
	if !ok {
		return 0, shapeErr(field, "missing")
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, shapeErr(field, "not a number: %s", n)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, shapeErr(field, "not a number: %q", n)
		}
		return f, nil
	default:
		return 0, shapeErr(field, "expected number, got %T", v)
	}
}

func timeField(rec map[string]any, field string) (time.Time, error) {
	t, err := parseTime(rec, field)
	if err != nil {
		return t, err
	}
	return t.UTC(), nil
}

// dateField reads a calendar date. The day is taken in the value's own
// offset, so "2024-01-08T00:00:00+03:00" stays 2024-01-08.
func dateField(rec map[string]any, field string) (time.Time, error) {
	t, err := parseTime(rec, field)
	if err != nil {
		return t, err
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

func parseTime(rec map[string]any, field string) (time.Time, error) {
	v, ok := lookup(rec, field)
	if !ok {
		return time.Time{}, shapeErr(field, "missing")
	}
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, shapeErr(field, "unrecognised date %q", t)
	default:
		return time.Time{}, shapeErr(field, "expected date, got %T", v)
	}
}
