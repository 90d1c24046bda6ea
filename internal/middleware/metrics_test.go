package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appmw "github.com/s1natex/breakdown-api-GO/internal/middleware"
)

func TestMetricsCounterUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(appmw.MetricsMiddleware)

	r.Post("/lists/{listID}/load", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// two different ids must land on one series
	for _, id := range []string{"a1", "b2"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/lists/"+id+"/load", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	mrec := httptest.NewRecorder()
	appmw.MetricsHandler().ServeHTTP(mrec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, mrec.Code)
	body := mrec.Body.String()

	assert.Contains(t, body, `http_requests_total{method="POST",route="/lists/{listID}/load",status="200"} 2`)
	assert.NotContains(t, body, `route="/lists/a1/load"`, "raw ids leaked into metric labels")
}
