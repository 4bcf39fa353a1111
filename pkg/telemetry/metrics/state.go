package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"warden-hq/warden/pkg/config"
	"warden-hq/warden/pkg/hitl"
	"warden-hq/warden/pkg/ledger"
)

// collectTimeout bounds the storage reads done during one scrape.
const collectTimeout = 5 * time.Second

// LedgerCounter counts audit events matching a filter. *ledger.Ledger
// satisfies it.
type LedgerCounter interface {
	Count(ctx context.Context, query *ledger.Query) (int64, error)
}

// DecisionSummarizer reports current decision counts per state.
// *hitl.Store satisfies it.
type DecisionSummarizer interface {
	Summarize(ctx context.Context) (map[hitl.State]int64, error)
}

// StateCollector exposes scrape-time gauges read from the audit ledger and
// the decision store, so the exported totals always match what the stores
// hold rather than what this process happened to observe.
type StateCollector struct {
	counter    LedgerCounter
	summarizer DecisionSummarizer
	logger     *slog.Logger

	ledgerEvents *prometheus.Desc
	decisions    *prometheus.Desc
}

// NewStateCollector creates a state collector. Register it on the same
// registry as the Collector:
//
//	registry.MustRegister(metrics.NewStateCollector(auditLedger, store, cfg))
func NewStateCollector(counter LedgerCounter, summarizer DecisionSummarizer, cfg *config.MetricsConfig) *StateCollector {
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "warden"
	}
	subsystem := cfg.Subsystem
	if subsystem == "" {
		subsystem = "core"
	}

	return &StateCollector{
		counter:    counter,
		summarizer: summarizer,
		logger:     slog.Default().With("component", "metrics.state"),
		ledgerEvents: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "ledger_events"),
			"Audit ledger events currently stored, by kind",
			[]string{"kind"}, nil,
		),
		decisions: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "review_decision_states"),
			"Recorded analyst decisions currently stored, by state",
			[]string{"state"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (sc *StateCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- sc.ledgerEvents
	ch <- sc.decisions
}

// Collect implements prometheus.Collector. Storage read failures drop the
// affected series from the scrape instead of failing it.
func (sc *StateCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	for _, kind := range ledger.Kinds() {
		count, err := sc.counter.Count(ctx, &ledger.Query{Kinds: []ledger.EventKind{kind}})
		if err != nil {
			sc.logger.Warn("ledger count failed during scrape", "kind", string(kind), "error", err)
			continue
		}
		ch <- prometheus.MustNewConstMetric(sc.ledgerEvents, prometheus.GaugeValue, float64(count), string(kind))
	}

	summary, err := sc.summarizer.Summarize(ctx)
	if err != nil {
		sc.logger.Warn("decision summary failed during scrape", "error", err)
		return
	}
	for _, state := range hitl.ValidStates() {
		ch <- prometheus.MustNewConstMetric(sc.decisions, prometheus.GaugeValue, float64(summary[state]), string(state))
	}
}
