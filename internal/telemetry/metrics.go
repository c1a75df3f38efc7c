package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsAPI forwards everything to an inner API and additionally records
// counts and broken/warning reports as otel instruments.
type MetricsAPI struct {
	inner API

	mutex    sync.Mutex
	gauges   map[string]metric.Int64Gauge
	reports  metric.Int64Counter
	meterCtx context.Context
}

func NewMetricsAPI(inner API) (*MetricsAPI, error) {
	meter := otel.Meter("keiba.telemetry")
	reports, err := meter.Int64Counter("reports")
	if err != nil {
		return nil, fmt.Errorf("create reports counter: %w", err)
	}
	return &MetricsAPI{
		inner:    inner,
		gauges:   map[string]metric.Int64Gauge{},
		reports:  reports,
		meterCtx: context.Background(),
	}, nil
}

func (m *MetricsAPI) ReportBroken(id string, params ...any) {
	m.reports.Add(m.meterCtx, 1, metric.WithAttributes(
		attribute.String("id", id),
		attribute.String("level", "broken"),
	))
	m.inner.ReportBroken(id, params...)
}

func (m *MetricsAPI) ReportWarning(id string, params ...any) {
	m.reports.Add(m.meterCtx, 1, metric.WithAttributes(
		attribute.String("id", id),
		attribute.String("level", "warning"),
	))
	m.inner.ReportWarning(id, params...)
}

func (m *MetricsAPI) ReportDebug(msg string, params ...any) {
	m.inner.ReportDebug(msg, params...)
}

func (m *MetricsAPI) ReportCount(id string, count int64) {
	m.mutex.Lock()
	gauge, ok := m.gauges[id]
	var gaugeErr error
	if !ok {
		gauge, gaugeErr = otel.Meter("keiba.telemetry").Int64Gauge(id)
		if gaugeErr != nil {
			// a nil entry keeps the failure from being reported on every count
			gauge = nil
		}
		m.gauges[id] = gauge
	}
	m.mutex.Unlock()

	if gaugeErr != nil {
		m.inner.ReportWarning("telemetry.gauge", id, gaugeErr)
	}

	if gauge != nil {
		gauge.Record(m.meterCtx, count)
	}
	m.inner.ReportCount(id, count)
}
