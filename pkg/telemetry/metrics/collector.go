package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"warden-hq/warden/pkg/config"
	"warden-hq/warden/pkg/monitor"
)

// Collector registers and records all event-driven Warden metrics.
// It is safe for concurrent use; the underlying Prometheus types
// synchronize internally.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	runsTotal         *prometheus.CounterVec
	runDuration       *prometheus.HistogramVec
	rulesChecked      prometheus.Counter
	violationRows     prometheus.Counter
	queriesBlocked    *prometheus.CounterVec
	executionErrors   prometheus.Counter
	rulesIngested     *prometheus.CounterVec
	reviewDecisions   *prometheus.CounterVec
	ledgerWriteFaults prometheus.Counter
}

// NewCollector creates a metrics collector with its own registry. A nil
// registry argument creates a fresh one; passing a registry lets tests
// and the state collector share it.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "warden"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "core"
	}

	c := &Collector{
		config:   cfg,
		registry: registry,

		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "runs_total",
				Help:      "Total number of completed pipeline runs",
			},
			[]string{"mode"},
		),

		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "run_duration_seconds",
				Help:      "Duration of pipeline runs in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"mode"},
		),

		rulesChecked: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rules_checked_total",
				Help:      "Total number of rules checked across all runs",
			},
		),

		violationRows: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "violation_rows_total",
				Help:      "Total matching rows reported across all runs (true counts, not capped samples)",
			},
		),

		queriesBlocked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "queries_blocked_total",
				Help:      "Total candidate queries rejected by validation, by reason",
			},
			[]string{"reason"},
		),

		executionErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "execution_errors_total",
				Help:      "Total rule checks that failed at build or execution time",
			},
		),

		rulesIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rules_ingested_total",
				Help:      "Total ingested rule candidates, by outcome",
			},
			[]string{"outcome"},
		),

		reviewDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "review_decisions_total",
				Help:      "Total analyst decisions recorded, by new state",
			},
			[]string{"state"},
		),

		ledgerWriteFaults: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ledger_write_faults_total",
				Help:      "Total audit ledger write faults (each one aborts its run)",
			},
		),
	}

	registry.MustRegister(
		c.runsTotal,
		c.runDuration,
		c.rulesChecked,
		c.violationRows,
		c.queriesBlocked,
		c.executionErrors,
		c.rulesIngested,
		c.reviewDecisions,
		c.ledgerWriteFaults,
	)

	return c
}

// ObserveRun records the metrics for one completed pipeline run.
func (c *Collector) ObserveRun(report *monitor.Report) {
	if !c.config.Enabled || report == nil {
		return
	}

	mode := string(report.Mode)
	c.runsTotal.WithLabelValues(mode).Inc()
	c.runDuration.WithLabelValues(mode).Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
	c.rulesChecked.Add(float64(report.RulesChecked))
	c.violationRows.Add(float64(report.TotalRows))

	for i := range report.Records {
		switch report.Records[i].Status {
		case monitor.StatusBlocked:
			c.queriesBlocked.WithLabelValues(report.Records[i].Reason).Inc()
		case monitor.StatusError:
			c.executionErrors.Inc()
		}
	}
}

// RecordIngest records the outcome counts of one rule ingest call.
func (c *Collector) RecordIngest(accepted, duplicates, rejected int) {
	if !c.config.Enabled {
		return
	}
	c.rulesIngested.WithLabelValues("accepted").Add(float64(accepted))
	c.rulesIngested.WithLabelValues("duplicate").Add(float64(duplicates))
	c.rulesIngested.WithLabelValues("rejected").Add(float64(rejected))
}

// RecordDecision records one analyst decision by its new state.
func (c *Collector) RecordDecision(state string) {
	if !c.config.Enabled {
		return
	}
	c.reviewDecisions.WithLabelValues(state).Inc()
}

// RecordLedgerWriteFault records a fatal audit write failure.
func (c *Collector) RecordLedgerWriteFault() {
	if !c.config.Enabled {
		return
	}
	c.ledgerWriteFaults.Inc()
}

// Registry returns the Prometheus registry backing this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Path returns the configured exposition endpoint path.
func (c *Collector) Path() string {
	return c.config.Path
}
