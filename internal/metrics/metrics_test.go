package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New()
	m.Mutation("add_card", true)
	m.Mutation("add_card", true)
	m.Mutation("move_card", false)
	m.Rendered(3)
	m.PersistenceFailure("save")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.mutations.WithLabelValues("add_card", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mutations.WithLabelValues("move_card", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.renders))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.cards))
	assert.Equal(t, 1.0, m.Failures("save"))
	assert.Equal(t, 0.0, m.Failures("load"))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Mutation("x", true)
		m.Rendered(1)
		m.PersistenceFailure("load")
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.Rendered(0)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dtnboard_renders_total 1")
}
