package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	cfotel "github.com/bussola-offshore/bussola/internal/adapter/otel"
	"github.com/bussola-offshore/bussola/internal/domain"
	"github.com/bussola-offshore/bussola/internal/domain/market"
	"github.com/bussola-offshore/bussola/internal/domain/panel"
	"github.com/bussola-offshore/bussola/internal/port/rowstore"
)

// TableReader returns whole tables. DataCache is the production implementation.
type TableReader interface {
	Get(ctx context.Context, table string) ([]rowstore.Record, error)
}

// Panel is a built panel plus the non-fatal problems met while loading it.
type Panel struct {
	panel.Result
	Warnings []string `json:"warnings"`
	// Unconfigured is set when a table could not be read because the row
	// store is not configured. The configuration banner covers it, so no
	// per-table warning is added.
	Unconfigured bool `json:"unconfigured,omitempty"`
}

// PanelService loads the three market tables and builds the panel.
type PanelService struct {
	tables  TableReader
	metrics *cfotel.Metrics
}

// NewPanelService creates a PanelService reading through tables.
func NewPanelService(tables TableReader) *PanelService {
	return &PanelService{tables: tables}
}

// SetMetrics attaches the panel build counter.
func (s *PanelService) SetMetrics(m *cfotel.Metrics) {
	s.metrics = m
}

// Load reads and builds the panel. It never fails: a table that cannot be
// read counts as empty and a record that cannot be decoded is skipped, each
// reported as a warning.
func (s *PanelService) Load(ctx context.Context) *Panel {
	ctx, span := cfotel.StartPanelSpan(ctx)
	defer span.End()

	p := &Panel{Warnings: []string{}}

	synthesis := decodeTable(ctx, p, s.read(ctx, p, market.TableWeeklySynthesis), market.TableWeeklySynthesis, market.DecodeWeeklySynthesis)
	managers := decodeTable(ctx, p, s.read(ctx, p, market.TableAssetManagers), market.TableAssetManagers, market.DecodeAssetManager)
	points := decodeTable(ctx, p, s.read(ctx, p, market.TableMacroDataPoints), market.TableMacroDataPoints, market.DecodeMacroDataPoint)

	p.Result = panel.Build(synthesis, managers, points)
	for _, c := range p.Duplicates {
		p.Warnings = append(p.Warnings, fmt.Sprintf("More than one %s reading for %s this week; showing the last one.", c.Indicator, c.Manager))
	}

	span.SetAttributes(
		attribute.String("panel.status", string(p.Status)),
		attribute.Int("panel.rows", len(p.Rows)),
		attribute.Int("panel.warnings", len(p.Warnings)),
	)
	if s.metrics != nil {
		s.metrics.PanelBuilds.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(p.Status))))
	}
	return p
}

func (s *PanelService) read(ctx context.Context, p *Panel, table string) []rowstore.Record {
	recs, err := s.tables.Get(ctx, table)
	if err == nil {
		return recs
	}
	if errors.Is(err, domain.ErrConfiguration) {
		p.Unconfigured = true
		return recs
	}
	slog.WarnContext(ctx, "panel table unavailable", "table", table, "error", err)
	p.Warnings = append(p.Warnings, fmt.Sprintf("Could not load %s; showing it as empty.", table))
	return recs
}

// decodeTable decodes recs with fn, skipping records that do not fit.
func decodeTable[T any](ctx context.Context, p *Panel, recs []rowstore.Record, table string, fn func(map[string]any) (T, error)) []T {
	out := make([]T, 0, len(recs))
	skipped := 0
	for i, rec := range recs {
		v, err := fn(rec)
		if err != nil {
			skipped++
			slog.WarnContext(ctx, "record skipped", "table", table, "index", i, "error", err)
			continue
		}
		out = append(out, v)
	}
	if skipped > 0 {
		p.Warnings = append(p.Warnings, fmt.Sprintf("Skipped %d malformed record(s) in %s.", skipped, table))
	}
	return out
}
