package observability

import "github.com/prometheus/client_golang/prometheus"

// Domain collectors. Label values are fixed enums to keep cardinality
// bounded; identities and reservation ids never become labels.
var (
	// InlineQueries counts inline queries by outcome (accepted|denied|error).
	InlineQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_inline_queries_total",
			Help: "Inline queries handled, by outcome.",
		},
		[]string{"outcome"},
	)

	// Selections counts result selections by outcome
	// (not_found|denied|rate_limited|answered|failed|replayed).
	Selections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_selections_total",
			Help: "Inline result selections handled, by outcome.",
		},
		[]string{"outcome"},
	)

	// AnswerDuration records Answer Provider latency in seconds.
	AnswerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bot_answer_duration_seconds",
			Help:    "Answer provider call duration in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 35, 60},
		},
		[]string{"outcome"},
	)

	// Deliveries counts chat transport calls by kind
	// (notify|placeholder|edit|send) and outcome (ok|error).
	Deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_deliveries_total",
			Help: "Chat transport deliveries, by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	// Callbacks counts external completion callbacks by outcome.
	Callbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_callbacks_total",
			Help: "External answer callbacks, by outcome.",
		},
		[]string{"outcome"},
	)

	// Swept counts reservations removed by the retention janitor.
	Swept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_reservations_swept_total",
			Help: "Terminal reservations removed by the retention sweep.",
		},
	)
)

func init() {
	prometheus.MustRegister(InlineQueries, Selections, AnswerDuration, Deliveries, Callbacks, Swept)
}

// OutcomeLabel maps an error to the ok|error label used by Deliveries.
func OutcomeLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
