package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chicago_inspections_runs_total",
			Help: "Total pipeline runs by command and outcome",
		},
		[]string{"command", "status"},
	)

	RowsFetched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chicago_inspections_rows_fetched_total",
			Help: "Raw rows fetched from the upstream feed",
		},
	)

	RowsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chicago_inspections_rows_dropped_total",
			Help: "Rows dropped during normalization",
		},
	)

	RowsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chicago_inspections_rows_written_total",
			Help: "Rows written to the store by entity",
		},
		[]string{"entity"},
	)

	RowsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chicago_inspections_rows_failed_total",
			Help: "Rows that failed to write by entity",
		},
		[]string{"entity"},
	)

	RatingsLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chicago_inspections_ratings_lookups_total",
			Help: "Ratings provider lookups by outcome",
		},
		[]string{"outcome"},
	)

	PublishDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chicago_inspections_publish_decisions_total",
			Help: "Sheet publish decisions by tab",
		},
		[]string{"tab", "decision"},
	)

	ExtractRows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chicago_inspections_extract_rows",
			Help: "Rows in the most recent extract snapshot",
		},
		[]string{"extract"},
	)
)

func Init() {
	prometheus.MustRegister(RunsTotal)
	prometheus.MustRegister(RowsFetched)
	prometheus.MustRegister(RowsDropped)
	prometheus.MustRegister(RowsWritten)
	prometheus.MustRegister(RowsFailed)
	prometheus.MustRegister(RatingsLookups)
	prometheus.MustRegister(PublishDecisions)
	prometheus.MustRegister(ExtractRows)
}

func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
