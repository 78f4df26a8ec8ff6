package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// monitoring service.
type Metrics struct {
	EvaluationsTotal *prometheus.CounterVec // labels: outcome={no_alert,alert_threshold,alert_model,alert_both}
	AlertsTotal      *prometheus.CounterVec // labels: kind={risk_threshold,risk_model}
	EvaluationErrors prometheus.Counter
	ModelLoaded      prometheus.Gauge
	ModelProbability prometheus.Histogram

	ForecastAdvisories prometheus.Counter

	// Retraining metrics.
	TrainingRuns     *prometheus.CounterVec // labels: outcome={trained,skipped,failed}
	TrainingRows     prometheus.Gauge
	TrainingDuration prometheus.Histogram
	HeldOutF1        *prometheus.GaugeVec // labels: class={normal,risk}

	// Collaborator metrics.
	DeliveriesTotal  *prometheus.CounterVec // labels: kind={alert,forecast,error}
	StorageErrors    prometheus.Counter
	FeedbackConsumed *prometheus.CounterVec // labels: result={stored,invalid,failed}
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.EvaluationsTotal,
		m.AlertsTotal,
		m.EvaluationErrors,
		m.ModelLoaded,
		m.ModelProbability,
		m.ForecastAdvisories,
		m.TrainingRuns,
		m.TrainingRows,
		m.TrainingDuration,
		m.HeldOutF1,
		m.DeliveriesTotal,
		m.StorageErrors,
		m.FeedbackConsumed,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		EvaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clima_alerta",
			Name:      "evaluations_total",
			Help:      "Hybrid evaluations by decision outcome.",
		}, []string{"outcome"}),
		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clima_alerta",
			Name:      "alerts_total",
			Help:      "Persisted and delivered alerts by kind.",
		}, []string{"kind"}),
		EvaluationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clima_alerta",
			Name:      "evaluation_errors_total",
			Help:      "Evaluations that failed in a collaborator or validation step.",
		}),
		ModelLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clima_alerta",
			Name:      "model_loaded",
			Help:      "1 when the last cycle ran with a loaded model, 0 in rule-only mode.",
		}),
		ModelProbability: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clima_alerta",
			Name:      "model_risk_probability",
			Help:      "Risk probabilities produced by the model path.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		ForecastAdvisories: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clima_alerta",
			Name:      "forecast_advisories_total",
			Help:      "Rain advisories emitted by the forecast evaluator.",
		}),
		TrainingRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clima_alerta",
			Name:      "training_runs_total",
			Help:      "Retraining attempts by outcome.",
		}, []string{"outcome"}),
		TrainingRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "clima_alerta",
			Name:      "training_rows",
			Help:      "Valid labeled rows available at the last retraining attempt.",
		}),
		TrainingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clima_alerta",
			Name:      "training_duration_seconds",
			Help:      "Duration of a complete train-evaluate-persist run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}),
		HeldOutF1: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "clima_alerta",
			Name:      "held_out_f1",
			Help:      "Per-class F1 on the held-out split of the last completed training run.",
		}, []string{"class"}),
		DeliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clima_alerta",
			Name:      "deliveries_total",
			Help:      "Messages handed to the notifier by kind.",
		}, []string{"kind"}),
		StorageErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clima_alerta",
			Name:      "storage_errors_total",
			Help:      "Failed storage operations.",
		}),
		FeedbackConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clima_alerta",
			Name:      "feedback_consumed_total",
			Help:      "Feedback events consumed from the feedback topic by result.",
		}, []string{"result"}),
	}
}
