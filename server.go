package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/banshee-data/overlay.report/internal/config"
	"github.com/banshee-data/overlay.report/internal/hud/engine"
	"github.com/banshee-data/overlay.report/internal/hud/layout"
	"github.com/banshee-data/overlay.report/internal/hud/motion"
	"github.com/banshee-data/overlay.report/internal/hud/scene"
	"github.com/banshee-data/overlay.report/internal/hud/visualiser"
	"github.com/banshee-data/overlay.report/internal/httputil"
	"github.com/banshee-data/overlay.report/internal/monitoring"
	"github.com/banshee-data/overlay.report/internal/version"
)

// WebServer exposes the HTTP control surface for the overlay engine: tuning
// parameter reads and writes, visibility and viewport updates, stats, and
// the websocket frame stream.
type WebServer struct {
	engine    *engine.Engine
	publisher *visualiser.Publisher
}

func NewWebServer(e *engine.Engine, p *visualiser.Publisher) *WebServer {
	return &WebServer{engine: e, publisher: p}
}

// ServeMux returns the API routing table.
func (ws *WebServer) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", ws.handleHealthz)
	mux.HandleFunc("/api/hud/params", ws.handleParams)
	mux.HandleFunc("/api/hud/visibility", ws.handleVisibility)
	mux.HandleFunc("/api/hud/resize", ws.handleResize)
	mux.HandleFunc("/api/hud/pause", ws.handlePause)
	mux.HandleFunc("/api/hud/resume", ws.handleResume)
	mux.HandleFunc("/api/hud/regenerate", ws.handleRegenerate)
	mux.HandleFunc("/api/hud/stats", ws.handleStats)
	if ws.publisher != nil {
		mux.Handle("/api/hud/frames", ws.publisher)
	}
	return mux
}

func (ws *WebServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{
		"status":  "ok",
		"version": version.Version,
		"git_sha": version.GitSHA,
	})
}

// handleParams reads (GET) or replaces (POST) the engine tuning. POST
// bodies use the same JSON schema as the tuning defaults file and are
// validated before being applied.
func (ws *WebServer) handleParams(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		httputil.WriteJSONOK(w, ws.engine.Config())

	case http.MethodPost:
		tuning := config.EmptyTuningConfig()
		if err := json.NewDecoder(r.Body).Decode(tuning); err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid JSON: %v", err))
			return
		}
		if err := tuning.Validate(); err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid configuration: %v", err))
			return
		}

		ws.engine.UpdateConfig(func(cfg *engine.EngineConfig) {
			cfg.Generator = scene.GeneratorConfigFromTuning(tuning)
			cfg.Motion = motion.ConfigFromTuning(tuning)
			cfg.Layout = layout.ConfigFromTuning(tuning)
			cfg.AspectChangeThreshold = tuning.GetAspectChangeThreshold()
		})
		monitoring.Logf("server: tuning parameters updated")
		httputil.WriteJSONOK(w, ws.engine.Config())

	default:
		httputil.MethodNotAllowed(w)
	}
}

type visibilityRequest struct {
	Visible *bool `json:"visible"`
}

func (ws *WebServer) handleVisibility(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if req.Visible == nil {
		httputil.BadRequest(w, "missing 'visible' field")
		return
	}

	ws.engine.SetVisible(*req.Visible)
	httputil.WriteJSONOK(w, map[string]interface{}{"visible": *req.Visible, "state": ws.engine.State()})
}

type resizeRequest struct {
	W int `json:"w"`
	H int `json:"h"`
}

func (ws *WebServer) handleResize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	var req resizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if req.W < 0 || req.H < 0 {
		httputil.BadRequest(w, fmt.Sprintf("invalid viewport %dx%d", req.W, req.H))
		return
	}

	ws.engine.Resize(req.W, req.H)
	httputil.WriteJSONOK(w, ws.engine.Snapshot())
}

func (ws *WebServer) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	ws.engine.Pause()
	httputil.WriteJSONOK(w, map[string]interface{}{"state": ws.engine.State()})
}

func (ws *WebServer) handleResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	ws.engine.Resume()
	httputil.WriteJSONOK(w, map[string]interface{}{"state": ws.engine.State()})
}

func (ws *WebServer) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	ws.engine.Regenerate()
	httputil.WriteJSONOK(w, ws.engine.Snapshot())
}

func (ws *WebServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	resp := map[string]interface{}{"engine": ws.engine.Snapshot()}
	if ws.publisher != nil {
		resp["publisher"] = ws.publisher.Stats()
	}
	httputil.WriteJSONOK(w, resp)
}
