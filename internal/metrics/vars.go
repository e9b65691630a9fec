package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	FeedUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_feed_updates_total",
		Help: "Normalized rate updates pushed to the graph queue",
	})

	FeedErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_feed_errors_total",
		Help: "Malformed feed updates dropped by the normalizer",
	})

	GraphEdges = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arb_graph_edges",
		Help: "Edges currently held by the exchange graph",
	})

	SnapshotEdges = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arb_snapshot_edges",
		Help: "Live (non-stale) edges in the last detection snapshot",
	})

	PassesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_passes_total",
		Help: "Evaluation passes run",
	})

	PassErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_pass_errors_total",
		Help: "Evaluation passes aborted by an error",
	})

	PassDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "arb_pass_duration_seconds",
		Help:    "Wall time of one detect+score+decide pass",
		Buckets: prometheus.DefBuckets,
	})

	CyclesFound = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_negative_cycles_total",
		Help: "Raw negative cycles extracted by the detector",
	})

	OppsDispatched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_opportunities_dispatched_total",
		Help: "Opportunities that cleared the decision gate",
	})

	BestNetYield = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arb_best_net_yield",
		Help: "Net yield of the best cycle seen in the last pass",
	})
)

func init() {
	prometheus.MustRegister(
		FeedUpdates,
		FeedErrors,
		GraphEdges,
		SnapshotEdges,
		PassesTotal,
		PassErrors,
		PassDuration,
		CyclesFound,
		OppsDispatched,
		BestNetYield,
	)
}
