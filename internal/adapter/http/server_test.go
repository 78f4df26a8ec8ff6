package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/mfigueredo/clima-alerta/internal/adapter/http"
	"github.com/mfigueredo/clima-alerta/internal/domain"
)

type mockReady struct {
	err error
}

func (m *mockReady) CheckReadiness(_ context.Context) error { return m.err }

type mockStatus struct {
	summary domain.StatusSummary
	err     error
}

func (m *mockStatus) StatusSummary(_ context.Context) (domain.StatusSummary, error) {
	return m.summary, m.err
}

func newTestServer(ready *mockReady, status *mockStatus) *httpadapter.Server {
	return httpadapter.NewServer(":0", ready, status, slog.Default())
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&mockReady{}, &mockStatus{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestReadyz(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		srv := newTestServer(&mockReady{}, &mockStatus{})

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not ready", func(t *testing.T) {
		srv := newTestServer(&mockReady{err: errors.New("still starting")}, &mockStatus{})

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "still starting")
	})
}

func TestStatusz(t *testing.T) {
	last := time.Date(2026, time.February, 10, 12, 0, 0, 0, time.UTC)
	status := &mockStatus{summary: domain.StatusSummary{TotalReadings: 128, LastReadingAt: &last}}
	srv := newTestServer(&mockReady{}, status)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/statusz", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.StatusSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(128), got.TotalReadings)
	require.NotNil(t, got.LastReadingAt)
	assert.True(t, last.Equal(*got.LastReadingAt))
}

func TestStatusz_StorageFailure(t *testing.T) {
	srv := newTestServer(&mockReady{}, &mockStatus{err: errors.New("connection refused")})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/statusz", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestMetricsEndpointRegistered(t *testing.T) {
	srv := newTestServer(&mockReady{}, &mockStatus{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
