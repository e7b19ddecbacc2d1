package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// find returns the metric in family name whose labels include want.
func find(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) *dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			match := true
			for k, v := range want {
				if labels[k] != v {
					match = false
					break
				}
			}
			if match {
				return m
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, want)
	return nil
}

func TestLeaveRequested_CountsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.LeaveRequested("created")
	c.LeaveRequested("created")
	c.LeaveRequested("conflict")

	assert.Equal(t, 2.0, find(t, reg, "leave_requests_total", map[string]string{"outcome": "created"}).GetCounter().GetValue())
	assert.Equal(t, 1.0, find(t, reg, "leave_requests_total", map[string]string{"outcome": "conflict"}).GetCounter().GetValue())
}

func TestBalanceAdjusted_CountsAdjustmentsAndDays(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.BalanceAdjusted("debit", 5)
	c.BalanceAdjusted("debit", 3)
	c.BalanceAdjusted("credit", 5)

	debits := map[string]string{"direction": "debit"}
	assert.Equal(t, 2.0, find(t, reg, "leave_balance_adjustments_total", debits).GetCounter().GetValue())
	assert.Equal(t, 8.0, find(t, reg, "leave_balance_days_total", debits).GetCounter().GetValue())
	assert.Equal(t, 5.0, find(t, reg, "leave_balance_days_total", map[string]string{"direction": "credit"}).GetCounter().GetValue())
}

func TestStatusChanged(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.StatusChanged("PENDING", "APPROVED")

	m := find(t, reg, "leave_status_transitions_total", map[string]string{"from": "PENDING", "to": "APPROVED"})
	assert.Equal(t, 1.0, m.GetCounter().GetValue())
}

func TestRecordHTTP(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTP("/api/users/{id}", http.StatusNotFound, 20*time.Millisecond)

	m := find(t, reg, "leave_http_requests_total", map[string]string{"route": "/api/users/{id}", "status_code": "404"})
	assert.Equal(t, 1.0, m.GetCounter().GetValue())
	h := find(t, reg, "leave_http_request_duration_seconds", map[string]string{"route": "/api/users/{id}"})
	assert.Equal(t, uint64(1), h.GetHistogram().GetSampleCount())
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.LeaveRequested("created")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	resp := w.Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `leave_requests_total{outcome="created"} 1`))
}
