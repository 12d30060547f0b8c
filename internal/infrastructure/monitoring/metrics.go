package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type LedgerMetrics struct {
	PaymentsRecordedTotal *prometheus.CounterVec
	CascadesTotal         *prometheus.CounterVec
	PayoffQuotesTotal     *prometheus.CounterVec
	SalesCompletedTotal   prometheus.Counter
	OverdueSales          prometheus.Gauge
	OverduePayments       prometheus.Gauge
}

var (
	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bhph_engine_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Ledger = LedgerMetrics{
		PaymentsRecordedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bhph_engine_payments_recorded_total",
				Help: "Total number of payment confirmations by outcome.",
			},
			[]string{"status"},
		),
		CascadesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bhph_engine_payment_cascades_total",
				Help: "Total number of paid-payment deletion cascades by outcome.",
			},
			[]string{"status"},
		),
		PayoffQuotesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bhph_engine_payoff_quotes_total",
				Help: "Total number of early payoff quotes served by source.",
			},
			[]string{"source"},
		),
		SalesCompletedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "bhph_engine_sales_completed_total",
				Help: "Total number of sales that reached completion.",
			},
		),
		OverdueSales: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "bhph_engine_overdue_sales",
				Help: "Active sales with at least one payment past its grace period, per last scan.",
			},
		),
		OverduePayments: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "bhph_engine_overdue_payments",
				Help: "Pending payments past their grace period, per last scan.",
			},
		),
	}
)

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordPayment(status string) {
	Ledger.PaymentsRecordedTotal.WithLabelValues(status).Inc()
}

func RecordCascade(status string) {
	Ledger.CascadesTotal.WithLabelValues(status).Inc()
}

func RecordPayoffQuote(source string) {
	Ledger.PayoffQuotesTotal.WithLabelValues(source).Inc()
}

func RecordSaleCompleted() {
	Ledger.SalesCompletedTotal.Inc()
}

func RecordOverdueScan(overdueSales, overduePayments int) {
	Ledger.OverdueSales.Set(float64(overdueSales))
	Ledger.OverduePayments.Set(float64(overduePayments))
}
