package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Brownie44l1/rop-api/internal/config"
	"github.com/Brownie44l1/rop-api/version"
)

const (
	Namespace = "rop"
	Subsystem = "classifier"
)

// Variables declared for metrics.
var (
	PredictionCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: Subsystem,
		Name:      "prediction_total",
		Help:      "Counter of the number of predictions, labeled by top class.",
	}, []string{"class"})

	RequestFailureCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: Subsystem,
		Name:      "request_failure_total",
		Help:      "Counter of the number of failed requests, labeled by error kind.",
	}, []string{"kind"})

	LowConfidenceCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: Subsystem,
		Name:      "low_confidence_total",
		Help:      "Counter of the number of predictions below the confidence threshold.",
	})

	InferenceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: Subsystem,
		Name:      "inference_duration_seconds",
		Help:      "Histogram of the forward pass duration.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	ModelLoadedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: Subsystem,
		Name:      "model_loaded",
		Help:      "Whether the model is loaded and validated.",
	})

	VersionGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: Subsystem,
		Name:      "version",
		Help:      "Version info of the service.",
	}, []string{"major", "minor", "git_version", "git_commit", "platform", "build_time", "go_version"})
)

func New(cfg *config.MetricsConfig) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	VersionGauge.WithLabelValues(version.Major, version.Minor, version.GitVersion, version.GitCommit, version.Platform, version.BuildTime, version.GoVersion).Set(1)
	return &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}
}
