package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	handler := Middleware(mux)

	counter := HTTPRequestTotal.WithLabelValues(http.MethodGet, "GET /api/items/{id}", "202")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"1", "2"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items/"+id, nil))
		assert.Equal(t, http.StatusAccepted, rec.Code)
	}

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestMiddlewareLabelsUnmatchedRequests(t *testing.T) {
	handler := Middleware(http.NotFoundHandler())

	counter := HTTPRequestTotal.WithLabelValues(http.MethodGet, "unmatched", "404")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestRecordEvaluation(t *testing.T) {
	success := EvaluationsTotal.WithLabelValues("analysis", "success")
	failure := EvaluationsTotal.WithLabelValues("analysis", "error")
	beforeSuccess := testutil.ToFloat64(success)
	beforeFailure := testutil.ToFloat64(failure)

	RecordEvaluation("analysis", time.Millisecond, nil)
	RecordEvaluation("analysis", time.Millisecond, errors.New("boom"))

	assert.Equal(t, beforeSuccess+1, testutil.ToFloat64(success))
	assert.Equal(t, beforeFailure+1, testutil.ToFloat64(failure))
}

func TestSetCandidateCartons(t *testing.T) {
	SetCandidateCartons(7)
	assert.Equal(t, 7.0, testutil.ToFloat64(CandidateCartons))
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordEvaluation("scaling", time.Millisecond, nil)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "cost_evaluations_total"))
}
