package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/snapeat/internal/health"
)

func TestCORS_AllowList(t *testing.T) {
	router := newTestDeps().router(t)

	preflight := map[string]string{
		"Origin":                        "https://snapeat.vercel.app",
		"Access-Control-Request-Method": "POST",
	}
	rec := doRequest(t, router, "OPTIONS", "/checkout", nil, preflight)
	assert.Equal(t, "https://snapeat.vercel.app", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	preflight["Origin"] = "https://evil.example.com"
	rec = doRequest(t, router, "OPTIONS", "/checkout", nil, preflight)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestTestCORS_ReportsOrigin(t *testing.T) {
	router := newTestDeps().router(t)

	rec := doRequest(t, router, "GET", "/test-cors", nil, map[string]string{"Origin": "http://localhost:3000"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "http://localhost:3000", body["origin"])
	assert.NotEmpty(t, body["timestamp"])
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	// no origin at all, as from curl
	rec = doRequest(t, router, "GET", "/test-cors", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth(t *testing.T) {
	deps := newTestDeps()
	router := deps.router(t)

	rec := doRequest(t, router, "GET", "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, health.StatusOK, decode[health.Report](t, rec).Status)

	deps = newTestDeps()
	deps.health = stubHealth{report: health.Report{Status: health.StatusDegraded, Checks: map[string]string{"redis": "dial tcp: refused"}}}
	router = deps.router(t)

	rec = doRequest(t, router, "GET", "/health", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "dial tcp: refused", decode[health.Report](t, rec).Checks["redis"])
}

func TestRouter_SetsRequestID(t *testing.T) {
	router := newTestDeps().router(t)

	rec := doRequest(t, router, "GET", "/categories", nil, nil)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}
