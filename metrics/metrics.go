// Package metrics exposes ledger activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/warp/leave-ledger/leave"
)

// Collector records ledger events and HTTP outcomes.
type Collector struct {
	leaveRequests  *prometheus.CounterVec
	balanceAdjusts *prometheus.CounterVec
	balanceDays    *prometheus.CounterVec
	statusChanges  *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
}

var _ leave.Metrics = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		leaveRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leave_requests_total",
			Help: "Leave request attempts by outcome (created or the error kind).",
		}, []string{"outcome"}),
		balanceAdjusts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leave_balance_adjustments_total",
			Help: "Committed balance adjustments by direction.",
		}, []string{"direction"}),
		balanceDays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leave_balance_days_total",
			Help: "Days moved by committed balance adjustments, by direction.",
		}, []string{"direction"}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leave_status_transitions_total",
			Help: "Leave request status transitions.",
		}, []string{"from", "to"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "leave_http_requests_total",
			Help: "HTTP responses by route pattern and status code.",
		}, []string{"route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "leave_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		c.leaveRequests,
		c.balanceAdjusts,
		c.balanceDays,
		c.statusChanges,
		c.httpRequests,
		c.httpLatency,
	)

	return c
}

// LeaveRequested counts a RequestLeave outcome.
func (c *Collector) LeaveRequested(outcome string) {
	c.leaveRequests.WithLabelValues(outcome).Inc()
}

// BalanceAdjusted counts one committed adjustment of days.
func (c *Collector) BalanceAdjusted(direction string, days int) {
	c.balanceAdjusts.WithLabelValues(direction).Inc()
	c.balanceDays.WithLabelValues(direction).Add(float64(days))
}

// StatusChanged counts a committed status transition.
func (c *Collector) StatusChanged(from, to string) {
	c.statusChanges.WithLabelValues(from, to).Inc()
}

// RecordHTTP records one served request.
func (c *Collector) RecordHTTP(route string, statusCode int, elapsed time.Duration) {
	c.httpRequests.WithLabelValues(route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
