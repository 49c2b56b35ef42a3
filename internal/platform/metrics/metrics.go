package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "allocation"

// Metrics はアプリケーションの Prometheus メトリクスを保持します。
// allocation.Recorder を満たします。
type Metrics struct {
	registry *prometheus.Registry

	operationDuration *prometheus.HistogramVec
	operationsTotal   *prometheus.CounterVec
	rejectionsTotal   prometheus.Counter
	rollbacksTotal    *prometheus.CounterVec
	requestsTotal     *prometheus.CounterVec
}

// New は専用レジストリに登録したメトリクスを生成します。
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of allocation operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total allocation operations by operation and result",
			},
			[]string{"operation", "result"},
		),
		rejectionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rejections_total",
				Help:      "Total requests rejected by the 100% allocation ceiling",
			},
		),
		rollbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transfer_rollbacks_total",
				Help:      "Total compensating transfer rollbacks by outcome",
			},
			[]string{"result"},
		),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "grpc_requests_total",
				Help:      "Total gRPC requests by method and code",
			},
			[]string{"method", "code"},
		),
	}

	reg.MustRegister(
		m.operationDuration,
		m.operationsTotal,
		m.rejectionsTotal,
		m.rollbacksTotal,
		m.requestsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry は内部のレジストリを返します。
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveOperation はアサインメント操作の所要時間と結果を記録します。
func (m *Metrics) ObserveOperation(operation, result string, elapsed time.Duration) {
	m.operationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	m.operationsTotal.WithLabelValues(operation, result).Inc()
}

// IncRejection は稼働率上限による拒否を数えます。
func (m *Metrics) IncRejection() {
	m.rejectionsTotal.Inc()
}

// IncRollback は移管ロールバックの結果を数えます。
func (m *Metrics) IncRollback(result string) {
	m.rollbacksTotal.WithLabelValues(result).Inc()
}

// IncRequest は gRPC リクエストを数えます。
func (m *Metrics) IncRequest(method, code string) {
	m.requestsTotal.WithLabelValues(method, code).Inc()
}

// Handler は /metrics 用の HTTP ハンドラを返します。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve は addr で /metrics を公開し、コンテキストがキャンセルされると停止します。
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
