package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はアプリケーションのメトリクスを管理する
//
// Record 系メソッドは nil レシーバーでも呼び出せる。
// メトリクスを設定しないサービスやテストはそのまま nil を渡せばよい。
type Metrics struct {
	// method, path, status_code
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 仮押さえ（status: success, invalid, conflict, lock_failed, error）
	ReservationsTotal        *prometheus.CounterVec
	ExpiredReservationsTotal prometheus.Counter

	// 注文（type: ONLINE/IN_PERSON, status: created, rejected）と決済確定（payment_status）
	OrdersTotal      *prometheus.CounterVec
	SettlementsTotal *prometheus.CounterVec

	// チケット発行（status: issued, failed）
	TicketIssuanceTotal *prometheus.CounterVec

	// operation: acquire, status: success/failed/error
	DistributedLockDuration *prometheus.HistogramVec

	// worker, status: success/skipped/error
	WorkerRunsTotal *prometheus.CounterVec
}

func counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
}

// New はデフォルトレジストリに登録したメトリクスを作成する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: counterVec("http_requests_total",
			"Total number of HTTP requests", "method", "path", "status_code"),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		ReservationsTotal: counterVec("reservations_total",
			"Total number of seat hold attempts", "status"),
		ExpiredReservationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "expired_reservations_total",
			Help: "Total number of seat holds expired by the sweeper",
		}),
		OrdersTotal: counterVec("orders_total",
			"Total number of order attempts", "type", "status"),
		SettlementsTotal: counterVec("settlements_total",
			"Total number of payment settlements", "payment_status"),
		TicketIssuanceTotal: counterVec("ticket_issuance_total",
			"Total number of ticket issuance attempts", "status"),
		DistributedLockDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "distributed_lock_duration_seconds",
				Help:    "Time spent on distributed lock operations",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation", "status"},
		),
		WorkerRunsTotal: counterVec("worker_runs_total",
			"Total number of background worker runs", "worker", "status"),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ReservationsTotal,
		m.ExpiredReservationsTotal,
		m.OrdersTotal,
		m.SettlementsTotal,
		m.TicketIssuanceTotal,
		m.DistributedLockDuration,
		m.WorkerRunsTotal,
	)
	return m
}

// Init はプロセス全体で使うメトリクスをデフォルトレジストリに作成する
// 2回呼ぶと登録が重複して panic する
func Init() *Metrics {
	return New()
}

func (m *Metrics) RecordReservation(status string) {
	if m == nil {
		return
	}
	m.ReservationsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ExpiredReservationsTotal.Add(float64(n))
}

func (m *Metrics) RecordOrder(orderType, status string) {
	if m == nil {
		return
	}
	m.OrdersTotal.WithLabelValues(orderType, status).Inc()
}

func (m *Metrics) RecordSettlement(paymentStatus string) {
	if m == nil {
		return
	}
	m.SettlementsTotal.WithLabelValues(paymentStatus).Inc()
}

func (m *Metrics) RecordTicketIssuance(status string) {
	if m == nil {
		return
	}
	m.TicketIssuanceTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordWorkerRun(worker, status string) {
	if m == nil {
		return
	}
	m.WorkerRunsTotal.WithLabelValues(worker, status).Inc()
}

// ObserveLock はロック操作に要した時間を記録する
func (m *Metrics) ObserveLock(operation, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.DistributedLockDuration.WithLabelValues(operation, status).Observe(d.Seconds())
}
