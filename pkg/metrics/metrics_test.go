package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestNew_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()

	a.DocsIndexedTotal.Add(3)
	assert.Contains(t, scrape(t, a), "pagesearch_docs_indexed_total 3")
	assert.Contains(t, scrape(t, b), "pagesearch_docs_indexed_total 0")
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New()
	m.SearchQueriesTotal.WithLabelValues("hit").Inc()

	body := scrape(t, m)
	assert.Contains(t, body, `pagesearch_search_queries_total{result_type="hit"} 1`)
	assert.Contains(t, body, "go_goroutines")
}
