// Package metrics exposes Prometheus counters for backtests, Monte Carlo
// runs, walk-forward folds and the HTTP API.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rustyeddy/polypaper/backtest"
	"github.com/rustyeddy/polypaper/strategies"
	"github.com/rustyeddy/polypaper/walkforward"
)

const namespace = "polypaper"

// Recorder registers its metrics on a private registry, not the global one.
type Recorder struct {
	registry *prometheus.Registry

	backtests          *prometheus.CounterVec
	evaluations        *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	simulations        prometheus.Counter
	folds              *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		backtests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backtests_total",
			Help:      "Completed backtest runs by strategy.",
		}, []string{"strategy"}),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Walk-forward evaluations by result.",
		}, []string{"result"}),
		evaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Wall time of one walk-forward evaluation.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		simulations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "montecarlo_simulations_total",
			Help:      "Monte Carlo trials run.",
		}),
		folds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "walkforward_folds_total",
			Help:      "Walk-forward folds by status.",
		}, []string{"status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	r.registry.MustRegister(
		r.backtests,
		r.evaluations,
		r.evaluationDuration,
		r.simulations,
		r.folds,
		r.httpRequests,
		r.httpDuration,
	)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) ObserveBacktest(strategyID string) {
	r.backtests.WithLabelValues(strategyID).Inc()
}

func (r *Recorder) ObserveMonteCarlo(simulations int) {
	r.simulations.Add(float64(simulations))
}

// ObserveFold counts a walk-forward fold. It has the walkforward.Options
// OnFold signature.
func (r *Recorder) ObserveFold(_ walkforward.FoldResult, err error) {
	status := "ok"
	if err != nil {
		status = "failed"
	}
	r.folds.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// WriteTextfile dumps the registry for the node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

// Middleware records request counts and latency by matched route.
func (r *Recorder) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		r.httpRequests.WithLabelValues(c.Request.Method, route, status).Inc()
		r.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

type instrumented struct {
	next walkforward.Evaluator
	rec  *Recorder
}

// InstrumentEvaluator counts and times every call to next.
func InstrumentEvaluator(next walkforward.Evaluator, rec *Recorder) walkforward.Evaluator {
	return &instrumented{next: next, rec: rec}
}

func (e *instrumented) Evaluate(ctx context.Context, params strategies.Params, start, end time.Time) (*backtest.Result, error) {
	t := time.Now()
	res, err := e.next.Evaluate(ctx, params, start, end)
	e.rec.evaluationDuration.Observe(time.Since(t).Seconds())
	if err != nil {
		e.rec.evaluations.WithLabelValues("error").Inc()
		return nil, err
	}
	e.rec.evaluations.WithLabelValues("ok").Inc()
	return res, nil
}

// StrategyID forwards to the wrapped evaluator when it has one.
func (e *instrumented) StrategyID() string {
	if s, ok := e.next.(interface{ StrategyID() string }); ok {
		return s.StrategyID()
	}
	return ""
}
