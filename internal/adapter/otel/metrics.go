package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "bussola"

// Metrics holds all dashboard metric instruments.
type Metrics struct {
	CacheHits     metric.Int64Counter
	CacheMisses   metric.Int64Counter
	FetchFailures metric.Int64Counter
	FetchDuration metric.Float64Histogram
	PanelBuilds   metric.Int64Counter
	AuthAttempts  metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.CacheHits, err = meter.Int64Counter("bussola.cache.hits",
		metric.WithDescription("Table reads served from the data cache"))
	if err != nil {
		return nil, err
	}

	m.CacheMisses, err = meter.Int64Counter("bussola.cache.misses",
		metric.WithDescription("Table reads that went to the row store"))
	if err != nil {
		return nil, err
	}

	m.FetchFailures, err = meter.Int64Counter("bussola.fetch.failures",
		metric.WithDescription("Row store fetches that failed"))
	if err != nil {
		return nil, err
	}

	m.FetchDuration, err = meter.Float64Histogram("bussola.fetch.duration_seconds",
		metric.WithDescription("Row store fetch duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.PanelBuilds, err = meter.Int64Counter("bussola.panel.builds",
		metric.WithDescription("Panels built, by status"))
	if err != nil {
		return nil, err
	}

	m.AuthAttempts, err = meter.Int64Counter("bussola.auth.attempts",
		metric.WithDescription("Sign-in and sign-up attempts, by action and outcome"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
