package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/sahil-chaple/jalrakshak-risk-engine/internal/adapter/http"
	"github.com/sahil-chaple/jalrakshak-risk-engine/internal/analytics"
	"github.com/sahil-chaple/jalrakshak-risk-engine/internal/domain"
	"github.com/sahil-chaple/jalrakshak-risk-engine/internal/tracker"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

func newTestServer(t *testing.T, readyErr error) *httpadapter.Server {
	t.Helper()

	classifier, err := domain.NewClassifier(0.3, 0.6, 0.8, 0.05)
	require.NoError(t, err)
	trk, err := tracker.New(classifier, 30*time.Minute)
	require.NoError(t, err)

	ts := time.Date(2025, 7, 14, 6, 0, 0, 0, time.UTC)
	for region, score := range map[string]float64{"mumbai": 0.72, "jaipur": 0.1} {
		_, _, err := trk.Assess(domain.RiskScore{
			ID:        "score-" + region,
			Region:    region,
			Timestamp: ts,
			Score:     score,
		}, "")
		require.NoError(t, err)
	}

	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, trk, 2*time.Hour, slog.Default())
}

func get(srv *httpadapter.Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(newTestServer(t, nil), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(newTestServer(t, nil), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(newTestServer(t, fmt.Errorf("not ready yet")), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(newTestServer(t, nil), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRegionsListsAllRegions(t *testing.T) {
	rec := get(newTestServer(t, nil), "/api/v1/regions")

	assert.Equal(t, http.StatusOK, rec.Code)

	var snaps []tracker.RegionSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snaps))
	require.Len(t, snaps, 2)

	byRegion := make(map[string]tracker.RegionSnapshot, len(snaps))
	for _, s := range snaps {
		byRegion[s.Region] = s
	}
	assert.Equal(t, domain.LevelWarning, byRegion["mumbai"].Level)
	assert.Equal(t, domain.LevelNormal, byRegion["jaipur"].Level)
}

func TestRegionReturnsSnapshot(t *testing.T) {
	rec := get(newTestServer(t, nil), "/api/v1/regions/mumbai")

	assert.Equal(t, http.StatusOK, rec.Code)

	var snap tracker.RegionSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "mumbai", snap.Region)
	assert.Equal(t, domain.LevelWarning, snap.Level)
	assert.Equal(t, 0.72, snap.LastScore.Score)
}

func TestRegionReturns404WhenUnknown(t *testing.T) {
	rec := get(newTestServer(t, nil), "/api/v1/regions/atlantis")

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unknown region", body["error"])
}

func TestRegionHistoryListsTransitions(t *testing.T) {
	rec := get(newTestServer(t, nil), "/api/v1/regions/mumbai/history")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Region  string                   `json:"region"`
		History []domain.TransitionEvent `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "mumbai", body.Region)
	require.Len(t, body.History, 1)
	assert.Equal(t, domain.LevelNormal, body.History[0].From)
	assert.Equal(t, domain.LevelWarning, body.History[0].To)
}

func TestRegionHistoryReturns404WhenUnknown(t *testing.T) {
	rec := get(newTestServer(t, nil), "/api/v1/regions/atlantis/history")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSummaryAggregatesLevels(t *testing.T) {
	rec := get(newTestServer(t, nil), "/api/v1/summary")

	assert.Equal(t, http.StatusOK, rec.Code)

	var summary analytics.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.Regions)
	assert.Equal(t, 1, summary.LevelCounts["WARNING"])
	assert.Equal(t, 1, summary.LevelCounts["NORMAL"])
	assert.Contains(t, summary.Trends, "mumbai")
}

func TestPostMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/regions", nil)
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
