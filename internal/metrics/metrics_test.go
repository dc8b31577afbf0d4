package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/proctor/internal/detection"
	"github.com/JaimeStill/proctor/internal/metrics"
	"github.com/JaimeStill/proctor/internal/proctor"
)

func TestRecorder(t *testing.T) {
	m := metrics.New()

	m.Violation(detection.KindTabSwitch)
	m.Violation(detection.KindTabSwitch)
	m.DetectorFailure("face")
	m.Transition(proctor.StateInProgress)
	m.ObserveRequest(http.MethodGet, http.StatusOK, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)

	assert.Contains(t, text, `proctor_violations_total{kind="tab_switch"} 2`)
	assert.Contains(t, text, `proctor_violations_total{kind="plagiarism"} 0`)
	assert.Contains(t, text, `proctor_detector_failures_total{signal="face"} 1`)
	assert.Contains(t, text, `proctor_session_transitions_total{state="in_progress"} 1`)
	assert.Contains(t, text, `proctor_http_request_duration_seconds_count{method="GET",status="200"} 1`)
}

func TestRegistryIsPrivate(t *testing.T) {
	a := metrics.New()
	b := metrics.New()

	a.Violation(detection.KindFaceLost)

	families, err := b.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != "proctor_violations_total" {
			continue
		}
		assert.Len(t, f.GetMetric(), len(detection.Kinds))
		for _, metric := range f.GetMetric() {
			assert.Zero(t, metric.GetCounter().GetValue())
		}
	}
}
