package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNew_RegistersOnOwnRegistry(t *testing.T) {
	// Two instances on separate registries must not collide.
	m1 := New(prometheus.NewRegistry())
	m2 := New(prometheus.NewRegistry())
	assert.NotNil(t, m1)
	assert.NotNil(t, m2)
}

func TestObserveSubmission(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveSubmission("created")
	m.ObserveSubmission("amended")
	m.ObserveSubmission("amended")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProfileSubmissions.WithLabelValues("created")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ProfileSubmissions.WithLabelValues("amended")))
}

func TestObserveAmendment(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveAmendment("Enrolment Update", "ok")
	m.ObserveAmendment("Enrolment Update", "not_found")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DependentAmendments.WithLabelValues("Enrolment Update", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DependentAmendments.WithLabelValues("Enrolment Update", "not_found")))
}

func TestObserveResolution(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveResolution("id", true)
	m.ObserveResolution("id", false)
	m.ObserveResolution("name", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Resolutions.WithLabelValues("id", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Resolutions.WithLabelValues("id", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Resolutions.WithLabelValues("name", "miss")))
}

func TestSetReferenceRows(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SetReferenceRows(47000)
	m.SetReferenceRows(47012)

	assert.Equal(t, 47012.0, testutil.ToFloat64(m.ReferenceRows))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReferenceLoads))
}

func TestObserveHTTP(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveHTTP("GET", "/api/v1/schools/:schoolId", "200", time.Now())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/v1/schools/:schoolId", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPDuration))
}
