package metrics

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

func registerDBMetrics(db *sql.DB, logger zerolog.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "invoices_open",
			Help: "Invoices in draft or sent status",
		},
		func() float64 {
			return queryFloat(db, logger, "SELECT COUNT(*) FROM invoices WHERE status IN ('draft','sent')")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "receivables_gross",
			Help: "Gross amount of sent but unpaid invoices",
		},
		func() float64 {
			return queryFloat(db, logger, "SELECT COALESCE(SUM(gross), 0)::float8 FROM invoices WHERE status = 'sent'")
		},
	))
}

func queryFloat(db *sql.DB, logger zerolog.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var value float64
	if err := db.QueryRow(query).Scan(&value); err != nil {
		logger.Warn().Err(err).Msg("metrics query failed")
		return 0
	}
	if value < 0 {
		return 0
	}
	return value
}
