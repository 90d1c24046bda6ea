package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	appmw "github.com/s1natex/breakdown-api-GO/internal/middleware"
)

func TestRateLimit(t *testing.T) {
	lim := rate.NewLimiter(0.25, 1) // one request every 4s, burst 1
	r := chi.NewRouter()
	r.Use(appmw.RateLimitMiddleware(lim))
	r.Post("/breakdown", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(201) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/breakdown", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	// second immediately should be 429
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/breakdown", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "4", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate_limited"}`, rec.Body.String())
}

func TestNewLimiter_DisabledWhenZero(t *testing.T) {
	assert.Nil(t, appmw.NewLimiter(0, 5))

	r := chi.NewRouter()
	r.Use(appmw.RateLimitMiddleware(appmw.NewLimiter(0, 0)))
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest("GET", "/ping", nil))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}
}
