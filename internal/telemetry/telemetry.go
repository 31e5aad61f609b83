package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// #region collectors
var (
	// EvaluatorPasses counts full passes of the evaluator over a corpus.
	EvaluatorPasses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reimburse_evaluator_passes_total",
		Help: "Total evaluator passes over a corpus",
	})

	// EvaluatorPassDuration records how long one evaluator pass takes.
	EvaluatorPassDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reimburse_evaluator_pass_duration_seconds",
		Help:    "Duration of one evaluator pass",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	})

	// CandidatesEvaluated counts optimizer candidates by strategy.
	CandidatesEvaluated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reimburse_optimizer_candidates_total",
		Help: "Total candidate parameter sets scored by the optimizer",
	}, []string{"strategy"})

	// CandidatesRejected counts candidates that failed to evaluate.
	CandidatesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reimburse_optimizer_rejected_total",
		Help: "Total candidate parameter sets rejected as invalid",
	}, []string{"strategy"})

	// BestScore tracks the best aggregate score of the current run by strategy.
	BestScore = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "reimburse_optimizer_best_score",
		Help: "Best aggregate score found so far (lower is better)",
	}, []string{"strategy"})
)

// #endregion collectors

// #region serve
// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("metrics endpoint listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	}
}

// #endregion serve
