package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for profile submissions, audited
// amendments, reference resolution and HTTP traffic.
type Metrics struct {
	ProfileSubmissions  *prometheus.CounterVec
	DependentAmendments *prometheus.CounterVec
	Resolutions         *prometheus.CounterVec
	ReferenceRows       prometheus.Gauge
	ReferenceLoads      prometheus.Counter
	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
}

// New creates a Metrics instance with every collector registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ProfileSubmissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "schoolprofile_submissions_total",
			Help: "Profile submit-or-amend calls by outcome",
		}, []string{"outcome"}),
		DependentAmendments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "schoolprofile_amendments_total",
			Help: "Audited dependent-record amendments by action and outcome",
		}, []string{"action", "outcome"}),
		Resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "schoolprofile_reference_resolutions_total",
			Help: "Reference lookups by method and result",
		}, []string{"method", "result"}),
		ReferenceRows: f.NewGauge(prometheus.GaugeOpts{
			Name: "schoolprofile_reference_rows",
			Help: "Rows in the loaded reference dataset",
		}),
		ReferenceLoads: f.NewCounter(prometheus.CounterOpts{
			Name: "schoolprofile_reference_loads_total",
			Help: "Successful reference dataset loads",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "schoolprofile_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "schoolprofile_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route"}),
	}
}

// ObserveSubmission records a submit-or-amend outcome ("created", "amended", "failed").
func (m *Metrics) ObserveSubmission(outcome string) {
	m.ProfileSubmissions.WithLabelValues(outcome).Inc()
}

// ObserveAmendment records an audited amendment outcome.
func (m *Metrics) ObserveAmendment(action, outcome string) {
	m.DependentAmendments.WithLabelValues(action, outcome).Inc()
}

// ObserveResolution records a reference lookup ("id" or "name") and whether it matched.
func (m *Metrics) ObserveResolution(method string, found bool) {
	result := "miss"
	if found {
		result = "hit"
	}
	m.Resolutions.WithLabelValues(method, result).Inc()
}

// SetReferenceRows records a successful reference load of n rows.
func (m *Metrics) SetReferenceRows(n int) {
	m.ReferenceRows.Set(float64(n))
	m.ReferenceLoads.Inc()
}

// ObserveHTTP records one completed request.
// Call with time.Now() at the start of the request.
func (m *Metrics) ObserveHTTP(method, route, status string, start time.Time) {
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
}
