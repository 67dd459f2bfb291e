package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bussola-offshore/bussola/internal/domain"
	"github.com/bussola-offshore/bussola/internal/domain/market"
	"github.com/bussola-offshore/bussola/internal/domain/panel"
	"github.com/bussola-offshore/bussola/internal/port/rowstore"
)

func workedExampleTables() map[string][]rowstore.Record {
	return map[string][]rowstore.Record{
		market.TableWeeklySynthesis: {
			{"created_at": "2024-05-01T10:00:00Z", "synthesis_text": "A"},
			{"created_at": "2024-05-08T10:00:00+00:00", "synthesis_text": "B"},
		},
		market.TableAssetManagers: {
			{"id": "1", "name": "BlackRock"},
			{"id": 2, "name": "Acme"},
		},
		market.TableMacroDataPoints: {
			{"manager_id": 1, "week_of": "2024-05-06", "indicator_name": "CDS", "indicator_value": 50},
			{"manager_id": 2, "week_of": "2024-05-06", "indicator_name": "CDS", "indicator_value": 70},
			{"manager_id": 1, "week_of": "2024-04-29", "indicator_name": "CDS", "indicator_value": 40},
		},
	}
}

func TestPanelService_WorkedExample(t *testing.T) {
	svc := NewPanelService(&fakeTables{tables: workedExampleTables()})

	p := svc.Load(context.Background())

	if p.Status != panel.StatusOK {
		t.Fatalf("status = %s", p.Status)
	}
	if p.SynthesisText == nil || *p.SynthesisText != "B" {
		t.Fatalf("synthesis = %v", p.SynthesisText)
	}
	if len(p.Columns) != 2 || p.Columns[0] != panel.IndicatorColumn || p.Columns[1] != "BlackRock" {
		t.Fatalf("columns = %v", p.Columns)
	}
	if len(p.Rows) != 1 || p.Rows[0].Indicator != "CDS" || p.Rows[0].Values[0] == nil || *p.Rows[0].Values[0] != 50 {
		t.Fatalf("rows = %+v", p.Rows)
	}
	if len(p.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", p.Warnings)
	}
}

func TestPanelService_FetchFailureDegradesToEmpty(t *testing.T) {
	tables := workedExampleTables()
	svc := NewPanelService(&fakeTables{
		tables: tables,
		errs:   map[string]error{market.TableMacroDataPoints: domain.ErrFetch},
	})

	p := svc.Load(context.Background())

	if p.Status != panel.StatusNoData {
		t.Fatalf("status = %s, want no_data", p.Status)
	}
	if p.SynthesisText == nil || *p.SynthesisText != "B" {
		t.Fatal("synthesis should still be shown when points fail")
	}
	if len(p.Warnings) != 1 || !strings.Contains(p.Warnings[0], market.TableMacroDataPoints) {
		t.Fatalf("warnings = %v", p.Warnings)
	}
}

func TestPanelService_ConfigurationErrorIsNotRepeated(t *testing.T) {
	cfgErr := errors.Join(domain.ErrFetch, domain.ErrConfiguration)
	svc := NewPanelService(&fakeTables{errs: map[string]error{
		market.TableWeeklySynthesis: cfgErr,
		market.TableAssetManagers:   cfgErr,
		market.TableMacroDataPoints: cfgErr,
	}})

	p := svc.Load(context.Background())

	if !p.Unconfigured {
		t.Fatal("expected Unconfigured")
	}
	if len(p.Warnings) != 0 {
		t.Fatalf("configuration errors belong to the banner, got warnings %v", p.Warnings)
	}
	if p.Status != panel.StatusNoData {
		t.Fatalf("status = %s", p.Status)
	}
}

func TestPanelService_SkipsMalformedRecords(t *testing.T) {
	tables := workedExampleTables()
	tables[market.TableMacroDataPoints] = append(tables[market.TableMacroDataPoints],
		rowstore.Record{"manager_id": "x", "week_of": "2024-05-06", "indicator_name": "CDS", "indicator_value": 1},
		rowstore.Record{"manager_id": 1, "week_of": "someday", "indicator_name": "CDS", "indicator_value": 1},
	)
	svc := NewPanelService(&fakeTables{tables: tables})

	p := svc.Load(context.Background())

	if p.Status != panel.StatusOK {
		t.Fatalf("status = %s", p.Status)
	}
	if len(p.Warnings) != 1 || !strings.Contains(p.Warnings[0], "Skipped 2") {
		t.Fatalf("warnings = %v", p.Warnings)
	}
}

func TestPanelService_ReportsDuplicates(t *testing.T) {
	tables := workedExampleTables()
	tables[market.TableMacroDataPoints] = append(tables[market.TableMacroDataPoints],
		rowstore.Record{"manager_id": 1, "week_of": "2024-05-06", "indicator_name": "CDS", "indicator_value": 55},
	)
	svc := NewPanelService(&fakeTables{tables: tables})

	p := svc.Load(context.Background())

	if got := *p.Rows[0].Values[0]; got != 55 {
		t.Fatalf("last write should win, got %v", got)
	}
	if len(p.Duplicates) != 1 || len(p.Warnings) != 1 {
		t.Fatalf("duplicates = %v, warnings = %v", p.Duplicates, p.Warnings)
	}
}

func TestPanelService_EmptySynthesis(t *testing.T) {
	tables := workedExampleTables()
	delete(tables, market.TableWeeklySynthesis)
	svc := NewPanelService(&fakeTables{tables: tables})

	p := svc.Load(context.Background())

	if p.Status != panel.StatusEmptySynthesis {
		t.Fatalf("status = %s", p.Status)
	}
	if p.SynthesisText != nil {
		t.Fatal("expected no synthesis")
	}
}
