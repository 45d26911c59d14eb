package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "wikiquiz"

// Metrics holds the Prometheus collectors of the quiz pipeline.
type Metrics struct {
	ArticleFetches  *prometheus.CounterVec
	ModelAttempts   *prometheus.CounterVec
	ParseStrategies *prometheus.CounterVec
	Generations     *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ArticleFetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "article_fetch_total",
				Help:      "Article retrieval attempts by tier and outcome",
			},
			[]string{"tier", "outcome"},
		),
		ModelAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "model_attempts_total",
				Help:      "Model invocations by model identifier and outcome",
			},
			[]string{"model", "outcome"},
		),
		ParseStrategies: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "parse_strategy_total",
				Help:      "Response parser results by strategy",
			},
			[]string{"strategy", "outcome"},
		),
		Generations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quiz_generation_total",
				Help:      "End-to-end quiz generation requests by outcome",
			},
			[]string{"outcome"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"method", "route", "status"},
		),
	}
}

// Nop returns collectors registered on a private registry; used where no
// exposition endpoint exists.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}
