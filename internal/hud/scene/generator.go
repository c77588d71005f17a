package scene

import (
	"math"

	"github.com/banshee-data/overlay.report/internal/config"
	"github.com/banshee-data/overlay.report/internal/hud/rng"
)

// GeneratorConfig holds the resolved parameters for entity generation.
type GeneratorConfig struct {
	AreaPerEntity float64 // viewport px² per entity
	MinEntities   int
	MaxEntities   int
	SizeRatioMin  float64 // box height relative to min(W,H)
	SizeRatioMax  float64
	SpeedMinPps   float64
	SpeedMaxPps   float64
	ConfidenceMin float64
	ConfidenceMax float64
}

// GeneratorConfigFromTuning builds a GeneratorConfig from a loaded TuningConfig.
func GeneratorConfigFromTuning(cfg *config.TuningConfig) GeneratorConfig {
	return GeneratorConfig{
		AreaPerEntity: cfg.GetAreaPerEntity(),
		MinEntities:   cfg.GetMinEntities(),
		MaxEntities:   cfg.GetMaxEntities(),
		SizeRatioMin:  cfg.GetSizeRatioMin(),
		SizeRatioMax:  cfg.GetSizeRatioMax(),
		SpeedMinPps:   cfg.GetSpeedMinPps(),
		SpeedMaxPps:   cfg.GetSpeedMaxPps(),
		ConfidenceMin: cfg.GetConfidenceMin(),
		ConfidenceMax: cfg.GetConfidenceMax(),
	}
}

// TargetCount returns the population size for a viewport: floor(W*H/area)
// clamped to [MinEntities, MaxEntities]. A zero or negative viewport yields
// zero entities.
func TargetCount(w, h float64, cfg GeneratorConfig) int {
	if w <= 0 || h <= 0 {
		return 0
	}
	n := int(w * h / cfg.AreaPerEntity)
	if n < cfg.MinEntities {
		n = cfg.MinEntities
	}
	if n > cfg.MaxEntities {
		n = cfg.MaxEntities
	}
	return n
}

// Generate produces a fresh entity population for the viewport. Entities are
// returned in insertion order (IDs 1..n), which downstream slot assignment
// uses as the stable tie-break. Generation never fails; a degenerate
// viewport produces an empty slice.
//
// Every initial bounding box is placed fully on-screen. The RNG draw order
// per entity is fixed (class, size ratio, aspect, x, y, speed, direction,
// confidence) so a fixed seed reproduces the exact scene.
func Generate(w, h float64, vocab []Class, cfg GeneratorConfig, rs *rng.Stream) []*Entity {
	count := TargetCount(w, h, cfg)
	if count == 0 || len(vocab) == 0 {
		return nil
	}

	base := math.Min(w, h)
	entities := make([]*Entity, 0, count)

	for i := 0; i < count; i++ {
		class := vocab[rs.IntN(len(vocab))]

		eh := base * rs.Range(cfg.SizeRatioMin, cfg.SizeRatioMax)
		ew := eh * rs.Range(class.AspectMin, class.AspectMax)
		if ew > w {
			ew = w
		}
		if eh > h {
			eh = h
		}

		x := placeWithin(w, ew, rs)
		y := placeWithin(h, eh, rs)

		speed := rs.Range(cfg.SpeedMinPps, cfg.SpeedMaxPps)
		angle := rs.Range(0, 2*math.Pi)
		vx := speed * math.Cos(angle)
		vy := speed * math.Sin(angle)

		side := SideRight
		if vx < 0 {
			side = SideLeft
		}

		entities = append(entities, &Entity{
			ID:         i + 1,
			Class:      class.Name,
			X:          x,
			Y:          y,
			W:          ew,
			H:          eh,
			VX:         vx,
			VY:         vy,
			Confidence: rs.Range(cfg.ConfidenceMin, cfg.ConfidenceMax),
			Side:       side,
			LaneIndex:  -1,
		})
	}

	return entities
}

// placeWithin picks a coordinate so that a box of the given extent fits
// inside [0, span].
func placeWithin(span, extent float64, rs *rng.Stream) float64 {
	free := span - extent
	if free <= 0 {
		return 0
	}
	return rs.Range(0, free)
}
