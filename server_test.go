package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/overlay.report/internal/config"
	"github.com/banshee-data/overlay.report/internal/hud/engine"
	"github.com/banshee-data/overlay.report/internal/testutil"
)

func newTestServer(t *testing.T) (*WebServer, *http.ServeMux) {
	t.Helper()
	cfg := engine.EngineConfigFromTuning(config.MustLoadDefaultConfig())
	cfg.Seed = 99
	eng := engine.NewEngine(cfg, 1280, 720, false)
	ws := NewWebServer(eng, nil)
	return ws, ws.ServeMux()
}

func postJSON(t *testing.T, mux *http.ServeMux, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := testutil.NewTestRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	_, mux := newTestServer(t)

	rec := testutil.NewTestRecorder()
	mux.ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/healthz"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
}

func TestGetParams(t *testing.T) {
	_, mux := newTestServer(t)

	rec := testutil.NewTestRecorder()
	mux.ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/api/hud/params"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var got engine.EngineConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 56.0, got.Layout.LaneSpacingPx)
}

func TestPostParamsAppliesTuning(t *testing.T) {
	ws, mux := newTestServer(t)

	rec := postJSON(t, mux, "/api/hud/params", map[string]interface{}{
		"lane_spacing_px": 72.0,
		"slot_step_px":    28.0,
	})
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	cfg := ws.engine.Config()
	assert.Equal(t, 72.0, cfg.Layout.LaneSpacingPx)
	assert.Equal(t, 28.0, cfg.Layout.SlotStepPx)
}

func TestPostParamsRejectsInvalid(t *testing.T) {
	_, mux := newTestServer(t)

	rec := postJSON(t, mux, "/api/hud/params", map[string]interface{}{
		"boundary_policy": "teleport",
	})
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
}

func TestPostParamsRejectsMalformedJSON(t *testing.T) {
	_, mux := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/hud/params", bytes.NewReader([]byte("{not json")))
	rec := testutil.NewTestRecorder()
	mux.ServeHTTP(rec, req)
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
}

func TestVisibilityEndpoint(t *testing.T) {
	ws, mux := newTestServer(t)

	rec := postJSON(t, mux, "/api/hud/visibility", map[string]bool{"visible": false})
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Equal(t, engine.StatePaused, ws.engine.State())

	rec = postJSON(t, mux, "/api/hud/visibility", map[string]bool{"visible": true})
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Equal(t, engine.StateRunning, ws.engine.State())
}

func TestVisibilityRequiresField(t *testing.T) {
	_, mux := newTestServer(t)

	rec := postJSON(t, mux, "/api/hud/visibility", map[string]string{})
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
}

func TestResizeEndpoint(t *testing.T) {
	ws, mux := newTestServer(t)

	rec := postJSON(t, mux, "/api/hud/resize", map[string]int{"w": 1920, "h": 1080})
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	stats := ws.engine.Snapshot()
	assert.Equal(t, 1920, stats.ViewportW)
	assert.Equal(t, 1080, stats.ViewportH)
}

func TestResizeRejectsNegative(t *testing.T) {
	_, mux := newTestServer(t)

	rec := postJSON(t, mux, "/api/hud/resize", map[string]int{"w": -1, "h": 720})
	testutil.AssertStatusCode(t, rec.Code, http.StatusBadRequest)
}

func TestPauseResumeEndpoints(t *testing.T) {
	ws, mux := newTestServer(t)

	rec := postJSON(t, mux, "/api/hud/pause", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Equal(t, engine.StatePaused, ws.engine.State())

	rec = postJSON(t, mux, "/api/hud/resume", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Equal(t, engine.StateRunning, ws.engine.State())
}

func TestRegenerateEndpoint(t *testing.T) {
	ws, mux := newTestServer(t)
	before := ws.engine.SceneID()

	rec := postJSON(t, mux, "/api/hud/regenerate", nil)
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.NotEqual(t, before, ws.engine.SceneID())
}

func TestStatsEndpoint(t *testing.T) {
	_, mux := newTestServer(t)

	rec := testutil.NewTestRecorder()
	mux.ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, "/api/hud/stats"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var resp map[string]engine.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, engine.StateRunning, resp["engine"].State)
	assert.NotZero(t, resp["engine"].EntityCount)
}

func TestMethodNotAllowed(t *testing.T) {
	_, mux := newTestServer(t)

	for _, path := range []string{"/api/hud/visibility", "/api/hud/resize", "/api/hud/pause", "/api/hud/resume", "/api/hud/regenerate"} {
		rec := testutil.NewTestRecorder()
		mux.ServeHTTP(rec, testutil.NewTestRequest(http.MethodGet, path))
		testutil.AssertStatusCode(t, rec.Code, http.StatusMethodNotAllowed)
	}
}
