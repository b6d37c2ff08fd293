package metrics

import (
	"context"

	"category-import-backend/internal/services/importer"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ImportMetrics counts batch imports and their per-row outcomes.
type ImportMetrics struct {
	batchesTotal *prometheus.CounterVec
	rowsTotal    *prometheus.CounterVec
	inFlight     prometheus.Gauge
}

// NewImportMetrics registers the collectors on reg. A nil reg uses the
// default registerer.
func NewImportMetrics(reg prometheus.Registerer) *ImportMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &ImportMetrics{
		batchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "category_import",
			Name:      "batches_total",
			Help:      "Total number of category import batches by lifecycle stage.",
		}, []string{"stage"}),
		rowsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "category_import",
			Name:      "rows_total",
			Help:      "Total number of imported category rows by outcome.",
		}, []string{"outcome"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "category_import",
			Name:      "batches_in_flight",
			Help:      "Number of batches currently being reconciled.",
		}),
	}
}

func (m *ImportMetrics) BeforeBatchImport(_ context.Context, _ importer.BatchEvent) {
	m.batchesTotal.WithLabelValues("started").Inc()
	m.inFlight.Inc()
}

func (m *ImportMetrics) AfterBatchImport(_ context.Context, ev importer.BatchEvent) {
	m.batchesTotal.WithLabelValues("processed").Inc()
	m.inFlight.Dec()
	m.rowsTotal.WithLabelValues("created").Add(float64(ev.Summary.Created))
	m.rowsTotal.WithLabelValues("updated").Add(float64(ev.Summary.Updated))
	m.rowsTotal.WithLabelValues("skipped").Add(float64(ev.Skipped))
}

func (m *ImportMetrics) BatchImportFailed(_ context.Context, _ importer.BatchEvent) {
	m.batchesTotal.WithLabelValues("failed").Inc()
	m.inFlight.Dec()
}
