package engine

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/overlay.report/internal/config"
	"github.com/banshee-data/overlay.report/internal/hud/layout"
	"github.com/banshee-data/overlay.report/internal/hud/motion"
	"github.com/banshee-data/overlay.report/internal/hud/rng"
	"github.com/banshee-data/overlay.report/internal/hud/scene"
	"github.com/banshee-data/overlay.report/internal/monitoring"
	"github.com/banshee-data/overlay.report/internal/timeutil"
	"github.com/banshee-data/overlay.report/internal/units"
)

// State is the engine lifecycle state.
type State string

const (
	StateRunning State = "running"
	StatePaused  State = "paused"
)

// EngineConfig aggregates the per-stage tuning for a single engine instance.
type EngineConfig struct {
	Generator scene.GeneratorConfig
	Motion    motion.Config
	Layout    layout.Config

	// AspectChangeThreshold is the relative aspect-ratio change above which
	// a resize regenerates the population instead of clamping it in place.
	AspectChangeThreshold float64

	// Seed selects the deterministic random stream. Zero means clock-seeded.
	Seed int64

	Vocabulary []scene.Class
}

// EngineConfigFromTuning builds an EngineConfig from the shared tuning file.
func EngineConfigFromTuning(cfg *config.TuningConfig) EngineConfig {
	return EngineConfig{
		Generator:             scene.GeneratorConfigFromTuning(cfg),
		Motion:                motion.ConfigFromTuning(cfg),
		Layout:                layout.ConfigFromTuning(cfg),
		AspectChangeThreshold: cfg.GetAspectChangeThreshold(),
		Seed:                  cfg.GetSeed(),
		Vocabulary:            scene.DefaultVocabulary(),
	}
}

// Engine owns a synthetic scene and drives it through the per-frame
// pipeline: kinematics, lane and slot allocation, label placement.
// All exported methods are safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	config  EngineConfig
	rs      *rng.Stream
	clock   timeutil.Clock
	sceneID string

	w, h     float64
	entities []*scene.Entity
	lanes    []layout.Lane

	state         State
	reducedMotion bool
	visible       bool

	frameID       uint64
	lastTickNanos int64
}

// NewEngine creates an engine for the given viewport and immediately
// generates its population. With reducedMotion set the engine starts and
// stays paused: it will emit static frames but never advance.
func NewEngine(cfg EngineConfig, w, h int, reducedMotion bool) *Engine {
	e := &Engine{
		config:        cfg,
		clock:         timeutil.RealClock{},
		sceneID:       uuid.NewString(),
		w:             float64(w),
		h:             float64(h),
		state:         StateRunning,
		reducedMotion: reducedMotion,
		visible:       true,
	}
	if cfg.Seed != 0 {
		e.rs = rng.New(cfg.Seed)
	} else {
		e.rs = rng.NewFromClock()
	}
	if reducedMotion {
		e.state = StatePaused
	}
	e.lanes = layout.BuildLanes(e.h, cfg.Layout)
	e.entities = scene.Generate(e.w, e.h, cfg.Vocabulary, cfg.Generator, e.rs)
	monitoring.Logf("engine: scene %s populated with %d entities (%dx%d)", e.sceneID, len(e.entities), w, h)
	return e
}

// SceneID returns the identifier assigned to the current population.
// It changes whenever the population is regenerated.
func (e *Engine) SceneID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sceneID
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Pause stops state advancement. Frames emitted while paused are static.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = StatePaused
}

// Resume restarts state advancement. The first frame after a resume uses a
// zero timestep so a long pause never appears as a single huge jump. Under
// reduced motion the engine stays paused.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.reducedMotion {
		return
	}
	e.state = StateRunning
	e.lastTickNanos = 0
}

// SetVisible pauses the engine while the host surface is hidden and resumes
// it when the surface becomes visible again.
func (e *Engine) SetVisible(visible bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.visible = visible
	if !visible {
		e.state = StatePaused
		return
	}
	if e.reducedMotion {
		return
	}
	e.state = StateRunning
	e.lastTickNanos = 0
}

// Resize updates the viewport. Identical dimensions are a no-op. A resize
// that changes the aspect ratio beyond the configured threshold regenerates
// the population under a fresh scene ID; a smaller resize keeps every entity
// and clamps any that would fall outside the new bounds. Lanes are rebuilt
// in both cases.
func (e *Engine) Resize(w, h int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	nw, nh := float64(w), float64(h)
	if nw == e.w && nh == e.h {
		return
	}

	oldAspect := 0.0
	if e.h > 0 {
		oldAspect = e.w / e.h
	}
	newAspect := 0.0
	if nh > 0 {
		newAspect = nw / nh
	}

	regenerate := false
	if oldAspect <= 0 {
		regenerate = true
	} else if math.Abs(newAspect-oldAspect)/oldAspect > e.config.AspectChangeThreshold {
		regenerate = true
	}

	e.w, e.h = nw, nh
	e.lanes = layout.BuildLanes(e.h, e.config.Layout)

	if regenerate {
		e.regenerateLocked()
		return
	}
	motion.ClampInto(e.entities, e.w, e.h)
}

func (e *Engine) regenerateLocked() {
	e.sceneID = uuid.NewString()
	e.entities = scene.Generate(e.w, e.h, e.config.Vocabulary, e.config.Generator, e.rs)
	monitoring.Logf("engine: scene %s regenerated with %d entities", e.sceneID, len(e.entities))
}

// Regenerate replaces the population under a fresh scene ID without
// touching the viewport.
func (e *Engine) Regenerate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.regenerateLocked()
}

// UpdateConfig applies fn to the engine configuration under the engine
// lock. Lane geometry is rebuilt afterwards so layout changes take effect
// on the next frame.
func (e *Engine) UpdateConfig(fn func(*EngineConfig)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.config)
	e.lanes = layout.BuildLanes(e.h, e.config.Layout)
}

// Config returns a copy of the current engine configuration.
func (e *Engine) Config() EngineConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.config
}

// Tick produces the next frame using wall-clock time. The timestep is the
// interval since the previous running tick, clamped to the configured
// maximum so stalls degrade to slow motion instead of teleporting entities.
func (e *Engine) Tick(now time.Time) *FrameBundle {
	e.mu.Lock()
	defer e.mu.Unlock()

	nowNanos := now.UnixNano()
	dt := 0.0
	if e.state == StateRunning {
		if e.lastTickNanos != 0 {
			dt = float64(nowNanos-e.lastTickNanos) / float64(time.Second)
		}
		e.lastTickNanos = nowNanos
	}
	dt = e.config.Motion.ClampDt(dt)

	frame := e.stepLocked(dt)
	frame.TimestampNanos = nowNanos
	return frame
}

// TickDelta produces the next frame using an explicit timestep. It is the
// headless entry point used by parameter sweeps and tests; the timestep is
// still clamped to the configured maximum. While paused the timestep is
// forced to zero.
func (e *Engine) TickDelta(dt float64) *FrameBundle {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateRunning {
		dt = 0
	}
	return e.stepLocked(e.config.Motion.ClampDt(dt))
}

// stepLocked runs one pipeline pass: advance kinematics, allocate lanes and
// slots, place labels and route leaders. Callers must hold e.mu.
func (e *Engine) stepLocked(dt float64) *FrameBundle {
	if dt > 0 {
		motion.Advance(e.entities, dt, e.w, e.h, e.config.Motion, e.rs)
	}

	slots := layout.AssignSlots(e.entities, e.lanes, e.config.Layout)
	for i, s := range slots {
		e.entities[i].LaneIndex = s.LaneIndex
	}

	e.frameID++
	frame := &FrameBundle{
		FrameID:  e.frameID,
		SceneID:  e.sceneID,
		Viewport: Viewport{W: e.w, H: e.h},
		Paused:   e.state == StatePaused,
		Boxes:    make([]Box, 0, len(e.entities)),
		Labels:   make([]Label, 0, len(e.entities)),
		Leaders:  make([]Leader, 0, len(e.entities)),
	}

	for i, ent := range e.entities {
		frame.Boxes = append(frame.Boxes, Box{
			EntityID:   ent.ID,
			Class:      ent.Class,
			Confidence: ent.Confidence,
			X:          ent.X,
			Y:          ent.Y,
			W:          ent.W,
			H:          ent.H,
		})

		text := fmt.Sprintf("%s %s", ent.Class, units.FormatConfidence(ent.Confidence))
		box, leader := layout.PlaceLabel(ent, text, slots[i].SlotY, e.w, e.h, e.config.Layout)
		frame.Labels = append(frame.Labels, Label{EntityID: ent.ID, Text: text, Box: box})
		frame.Leaders = append(frame.Leaders, Leader{EntityID: ent.ID, Points: leader})
	}
	return frame
}

// LaneAssignments returns the current entity-to-lane mapping. Used by
// parameter sweeps to measure lane churn between frames.
func (e *Engine) LaneAssignments() map[int]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[int]int, len(e.entities))
	for _, ent := range e.entities {
		out[ent.ID] = ent.LaneIndex
	}
	return out
}

// Stats is a point-in-time summary of engine activity for status endpoints.
type Stats struct {
	SceneID     string `json:"scene_id"`
	State       State  `json:"state"`
	EntityCount int    `json:"entity_count"`
	LaneCount   int    `json:"lane_count"`
	FrameID     uint64 `json:"frame_id"`
	ViewportW   int    `json:"viewport_w"`
	ViewportH   int    `json:"viewport_h"`
	Visible     bool   `json:"visible"`
}

// Snapshot returns current engine statistics.
func (e *Engine) Snapshot() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		SceneID:     e.sceneID,
		State:       e.state,
		EntityCount: len(e.entities),
		LaneCount:   len(e.lanes),
		FrameID:     e.frameID,
		ViewportW:   int(e.w),
		ViewportH:   int(e.h),
		Visible:     e.visible,
	}
}

// Run drives the engine at the requested frame rate until ctx is cancelled,
// handing each frame to emit. An in-flight tick always completes before Run
// returns.
func (e *Engine) Run(ctx context.Context, fps float64, emit func(*FrameBundle)) error {
	if fps <= 0 {
		return fmt.Errorf("invalid frame rate %v", fps)
	}
	e.mu.Lock()
	clock := e.clock
	e.mu.Unlock()

	interval := time.Duration(float64(time.Second) / fps)
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	monitoring.Logf("engine: running at %.1f fps (%v per frame)", fps, interval)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C():
			emit(e.Tick(now))
		}
	}
}

// SetClock overrides the wall clock used by Run. Tests drive the frame loop
// with a mock clock instead of waiting out real tick intervals.
func (e *Engine) SetClock(c timeutil.Clock) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock = c
}
