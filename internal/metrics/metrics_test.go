package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IndependentRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	m1 := New()
	m2 := New()
	m1.CacheHitsTotal.Inc()
	m2.CacheHitsTotal.Inc()
	assert.NotNil(t, m1.Handler())
	assert.NotNil(t, m2.Handler())
}

func TestHandler_ExposesCounters(t *testing.T) {
	m := New()
	m.SearchesTotal.WithLabelValues("hybrid").Inc()
	m.CacheMissesTotal.Inc()
	m.IndexErrorsTotal.WithLabelValues("tokenize_failure").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `recallkit_searches_total{strategy="hybrid"} 1`))
	assert.True(t, strings.Contains(body, "recallkit_cache_misses_total 1"))
	assert.True(t, strings.Contains(body, `recallkit_index_errors_total{kind="tokenize_failure"} 1`))
}
