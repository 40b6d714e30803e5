package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const (
	metricPrefix = "invoice_desk_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	numberAllocationTotal   *prometheus.CounterVec
	numberAllocationLatency *prometheus.HistogramVec

	documentRenderTotal   *prometheus.CounterVec
	documentRenderLatency *prometheus.HistogramVec

	backupTotal   *prometheus.CounterVec
	backupLatency *prometheus.HistogramVec

	invoiceStatusChanges *prometheus.CounterVec
)

// Init registers invoicing metrics and DB-backed gauges.
func Init(db *sql.DB, logger zerolog.Logger) {
	registerOnce.Do(func() {
		numberAllocationTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "number_allocations_total",
				Help: "Total invoice number allocations by result",
			},
			[]string{"result"},
		)
		numberAllocationLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "number_allocation_latency_seconds",
				Help:    "Invoice number allocation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		documentRenderTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "document_render_total",
				Help: "Total rendered documents by kind and result",
			},
			[]string{"kind", "result"},
		)
		documentRenderLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "document_render_latency_seconds",
				Help:    "Document render latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind", "result"},
		)

		backupTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "backup_total",
				Help: "Total backup operations by operation and result",
			},
			[]string{"op", "result"},
		)
		backupLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "backup_latency_seconds",
				Help:    "Backup operation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op", "result"},
		)

		invoiceStatusChanges = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "invoice_status_changes_total",
				Help: "Total invoice status changes by target status",
			},
			[]string{"status"},
		)

		prometheus.MustRegister(
			numberAllocationTotal,
			numberAllocationLatency,
			documentRenderTotal,
			documentRenderLatency,
			backupTotal,
			backupLatency,
			invoiceStatusChanges,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveNumberAllocation records allocation latency and result.
func ObserveNumberAllocation(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if numberAllocationTotal != nil {
		numberAllocationTotal.WithLabelValues(result).Inc()
	}
	if numberAllocationLatency != nil {
		numberAllocationLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveDocumentRender records render latency by kind (pdf, einvoice, xlsx).
func ObserveDocumentRender(kind, result string, duration time.Duration) {
	if kind == "" {
		kind = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if documentRenderTotal != nil {
		documentRenderTotal.WithLabelValues(kind, result).Inc()
	}
	if documentRenderLatency != nil {
		documentRenderLatency.WithLabelValues(kind, result).Observe(duration.Seconds())
	}
}

// ObserveBackup records backup latency by operation (export, import, prune).
func ObserveBackup(op, result string, duration time.Duration) {
	if op == "" {
		op = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if backupTotal != nil {
		backupTotal.WithLabelValues(op, result).Inc()
	}
	if backupLatency != nil {
		backupLatency.WithLabelValues(op, result).Observe(duration.Seconds())
	}
}

// IncInvoiceStatus increments the status change counter.
func IncInvoiceStatus(status string) {
	if status == "" {
		status = "unknown"
	}
	if invoiceStatusChanges != nil {
		invoiceStatusChanges.WithLabelValues(status).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError

	KindPDF      = "pdf"
	KindEInvoice = "einvoice"
	KindXLSX     = "xlsx"

	BackupExport = "export"
	BackupImport = "import"
	BackupPrune  = "prune"
)
