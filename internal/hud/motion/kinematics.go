// Package motion advances entity kinematics: constant-velocity integration
// with a sinusoidal sway term, a boundary policy (wrap or bounce), and
// per-tick confidence jitter.
package motion

import (
	"fmt"
	"math"

	"github.com/banshee-data/overlay.report/internal/config"
	"github.com/banshee-data/overlay.report/internal/hud/rng"
	"github.com/banshee-data/overlay.report/internal/hud/scene"
)

// BoundaryPolicy selects what happens when an entity leaves the viewport.
// It is resolved once at construction, never re-checked ad hoc per call.
type BoundaryPolicy int

const (
	// BoundaryWrap teleports an entity that has fully exited the viewport
	// plus the configured margin (on the side it is moving toward) to just
	// beyond the opposite edge.
	BoundaryWrap BoundaryPolicy = iota
	// BoundaryBounce inverts the offending velocity component and clamps
	// the position inside the viewport.
	BoundaryBounce
)

// ParseBoundaryPolicy maps the config string to a policy value.
func ParseBoundaryPolicy(s string) (BoundaryPolicy, error) {
	switch s {
	case "wrap":
		return BoundaryWrap, nil
	case "bounce":
		return BoundaryBounce, nil
	default:
		return BoundaryWrap, fmt.Errorf("unknown boundary policy %q", s)
	}
}

// String returns the config-file spelling of the policy.
func (p BoundaryPolicy) String() string {
	if p == BoundaryBounce {
		return "bounce"
	}
	return "wrap"
}

// Config holds the resolved parameters for the kinematic updater.
type Config struct {
	Policy           BoundaryPolicy
	WrapMarginPx     float64
	MaxTickSeconds   float64
	SwayAmplitudePx  float64
	SwayFrequency    float64
	ConfidenceMin    float64
	ConfidenceMax    float64
	ConfidenceJitter float64
}

// ConfigFromTuning builds a motion Config from a loaded TuningConfig. An
// invalid boundary policy string falls back to wrap (Validate rejects it at
// load time already).
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	policy, _ := ParseBoundaryPolicy(cfg.GetBoundaryPolicy())
	return Config{
		Policy:           policy,
		WrapMarginPx:     cfg.GetWrapMarginPx(),
		MaxTickSeconds:   cfg.GetMaxTickSeconds(),
		SwayAmplitudePx:  cfg.GetSwayAmplitudePx(),
		SwayFrequency:    cfg.GetSwayFrequency(),
		ConfidenceMin:    cfg.GetConfidenceMin(),
		ConfidenceMax:    cfg.GetConfidenceMax(),
		ConfidenceJitter: cfg.GetConfidenceJitter(),
	}
}

// ClampDt limits a raw frame delta to the configured maximum so tab-suspend
// gaps can't teleport entities arbitrarily far. Negative deltas (clock
// weirdness) collapse to zero.
func (c Config) ClampDt(dt float64) float64 {
	if dt < 0 {
		return 0
	}
	if dt > c.MaxTickSeconds {
		return c.MaxTickSeconds
	}
	return dt
}

// Advance moves every entity by dt seconds within the given viewport,
// applies the boundary policy, and jitters confidence. dt must already be
// clamped by the caller (the orchestrator owns dt policy; sweep and tests
// may deliberately feed large deltas).
//
// The function mutates only the entities passed in. Its only nondeterminism
// is the confidence jitter draw, one per entity in slice order.
func Advance(entities []*scene.Entity, dt, w, h float64, cfg Config, rs *rng.Stream) {
	for _, e := range entities {
		e.X += e.VX * dt
		// Sway is a pure function of the entity's own id and x, giving
		// per-entity-deterministic wobble without extra RNG draws.
		sway := math.Sin(e.X*cfg.SwayFrequency+float64(e.ID)) * cfg.SwayAmplitudePx
		e.Y += e.VY*dt + sway*dt

		switch cfg.Policy {
		case BoundaryWrap:
			wrapEntity(e, w, h, cfg.WrapMarginPx)
		case BoundaryBounce:
			bounceEntity(e, w, h)
		}

		jitter := (rs.Float64()*2 - 1) * cfg.ConfidenceJitter
		e.Confidence = clamp(e.Confidence+jitter, cfg.ConfidenceMin, cfg.ConfidenceMax)
	}
}

// wrapEntity teleports an entity that has fully cleared the viewport edge
// on its travel side to the hidden strip beyond the opposite edge, so it
// glides back on-screen seamlessly. After a wrap the position always lies
// within [-(dim+margin), extent+margin].
func wrapEntity(e *scene.Entity, w, h, margin float64) {
	if e.VX > 0 && e.X > w {
		e.X = -(e.W + margin)
	} else if e.VX < 0 && e.X+e.W < 0 {
		e.X = w + margin
	}

	if e.VY > 0 && e.Y > h {
		e.Y = -(e.H + margin)
	} else if e.VY < 0 && e.Y+e.H < 0 {
		e.Y = h + margin
	}
}

// bounceEntity reflects an entity off the viewport edges, keeping the box
// inside [0, extent-dim] on both axes.
func bounceEntity(e *scene.Entity, w, h float64) {
	if e.X < 0 {
		e.X = 0
		e.VX = -e.VX
	} else if e.X+e.W > w {
		e.X = w - e.W
		e.VX = -e.VX
	}

	if e.Y < 0 {
		e.Y = 0
		e.VY = -e.VY
	} else if e.Y+e.H > h {
		e.Y = h - e.H
		e.VY = -e.VY
	}
}

// ClampInto forces entity boxes inside the viewport after a small resize,
// preserving identity and velocity. Boxes larger than the new viewport pin
// to the origin.
func ClampInto(entities []*scene.Entity, w, h float64) {
	for _, e := range entities {
		e.X = clamp(e.X, 0, math.Max(0, w-e.W))
		e.Y = clamp(e.Y, 0, math.Max(0, h-e.H))
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
