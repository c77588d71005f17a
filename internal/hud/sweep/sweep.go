// Package sweep runs headless engine simulations across a grid of layout
// parameters and seeds, and scores each combination for label stability.
// It backs the sweep command line tool used to tune lane and slot settings.
package sweep

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/overlay.report/internal/hud/engine"
	"github.com/banshee-data/overlay.report/internal/monitoring"
)

// Params is one point in the sweep grid: the layout knobs under test.
type Params struct {
	LaneSpacingPx   float64 `json:"lane_spacing_px"`
	SlotStepPx      float64 `json:"slot_step_px"`
	CongestionLimit int     `json:"congestion_limit"`
	LanePenaltyPx   float64 `json:"lane_penalty_px"`
}

// Grid holds the values to combine for each parameter. Empty slices fall
// back to the base configuration value.
type Grid struct {
	LaneSpacings     []float64
	SlotSteps        []float64
	CongestionLimits []int
	LanePenalties    []float64
}

// Combinations expands the grid into the full cross product, substituting
// base values for any axis left empty.
func (g Grid) Combinations(base Params) []Params {
	spacings := g.LaneSpacings
	if len(spacings) == 0 {
		spacings = []float64{base.LaneSpacingPx}
	}
	steps := g.SlotSteps
	if len(steps) == 0 {
		steps = []float64{base.SlotStepPx}
	}
	limits := g.CongestionLimits
	if len(limits) == 0 {
		limits = []int{base.CongestionLimit}
	}
	penalties := g.LanePenalties
	if len(penalties) == 0 {
		penalties = []float64{base.LanePenaltyPx}
	}

	combos := make([]Params, 0, len(spacings)*len(steps)*len(limits)*len(penalties))
	for _, sp := range spacings {
		for _, st := range steps {
			for _, cl := range limits {
				for _, pen := range penalties {
					combos = append(combos, Params{
						LaneSpacingPx:   sp,
						SlotStepPx:      st,
						CongestionLimit: cl,
						LanePenaltyPx:   pen,
					})
				}
			}
		}
	}
	return combos
}

// Metrics summarises layout stability for one parameter combination across
// all seeds. Lower reassignment and clamp rates mean calmer labels.
type Metrics struct {
	// ReassignRateMean is the mean fraction of entity-frames in which an
	// entity changed lanes.
	ReassignRateMean   float64 `json:"reassign_rate_mean"`
	ReassignRateStddev float64 `json:"reassign_rate_stddev"`

	// ClampRateMean is the mean fraction of labels pinned to the vertical
	// viewport clamp bounds.
	ClampRateMean   float64 `json:"clamp_rate_mean"`
	ClampRateStddev float64 `json:"clamp_rate_stddev"`

	// OccupancyStddevMean is the mean across seeds of the per-lane
	// occupancy standard deviation. Higher values mean entities piled into
	// few lanes.
	OccupancyStddevMean float64 `json:"occupancy_stddev_mean"`

	Seeds  int `json:"seeds"`
	Frames int `json:"frames"`
}

// Result pairs a parameter combination with its measured metrics.
type Result struct {
	Params  Params  `json:"params"`
	Metrics Metrics `json:"metrics"`
}

// RunSpec configures a sweep run.
type RunSpec struct {
	Base   engine.EngineConfig
	Grid   Grid
	Seeds  []int64
	Frames int
	Dt     float64
	Width  int
	Height int
}

// Validate checks the run configuration.
func (s RunSpec) Validate() error {
	if len(s.Seeds) == 0 {
		return fmt.Errorf("at least one seed required")
	}
	if s.Frames <= 1 {
		return fmt.Errorf("frames must be > 1, got %d", s.Frames)
	}
	if s.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %v", s.Dt)
	}
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("invalid viewport %dx%d", s.Width, s.Height)
	}
	return nil
}

// Run executes the sweep. Each combination runs once per seed; metrics are
// aggregated across seeds with gonum. The context cancels between
// combinations, never mid simulation.
func Run(ctx context.Context, spec RunSpec) ([]Result, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	base := Params{
		LaneSpacingPx:   spec.Base.Layout.LaneSpacingPx,
		SlotStepPx:      spec.Base.Layout.SlotStepPx,
		CongestionLimit: spec.Base.Layout.CongestionLimit,
		LanePenaltyPx:   spec.Base.Layout.LanePenaltyPx,
	}
	combos := spec.Grid.Combinations(base)
	monitoring.Logf("sweep: %d combinations x %d seeds x %d frames", len(combos), len(spec.Seeds), spec.Frames)

	results := make([]Result, 0, len(combos))
	started := time.Now()
	for i, params := range combos {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		metrics := measure(spec, params)
		results = append(results, Result{Params: params, Metrics: metrics})
		monitoring.Logf("sweep: combo %d/%d spacing=%.0f step=%.0f limit=%d penalty=%.0f reassign=%.4f clamp=%.4f",
			i+1, len(combos), params.LaneSpacingPx, params.SlotStepPx, params.CongestionLimit, params.LanePenaltyPx,
			metrics.ReassignRateMean, metrics.ClampRateMean)
	}
	monitoring.Logf("sweep: complete in %v", time.Since(started))
	return results, nil
}

// measure runs one combination across all seeds.
func measure(spec RunSpec, params Params) Metrics {
	reassignRates := make([]float64, 0, len(spec.Seeds))
	clampRates := make([]float64, 0, len(spec.Seeds))
	occupancyStds := make([]float64, 0, len(spec.Seeds))

	for _, seed := range spec.Seeds {
		cfg := spec.Base
		cfg.Seed = seed
		cfg.Layout.LaneSpacingPx = params.LaneSpacingPx
		cfg.Layout.SlotStepPx = params.SlotStepPx
		cfg.Layout.CongestionLimit = params.CongestionLimit
		cfg.Layout.LanePenaltyPx = params.LanePenaltyPx

		reassign, clamp, occStd := simulate(cfg, spec)
		reassignRates = append(reassignRates, reassign)
		clampRates = append(clampRates, clamp)
		occupancyStds = append(occupancyStds, occStd)
	}

	return Metrics{
		ReassignRateMean:    stat.Mean(reassignRates, nil),
		ReassignRateStddev:  stddevOrZero(reassignRates),
		ClampRateMean:       stat.Mean(clampRates, nil),
		ClampRateStddev:     stddevOrZero(clampRates),
		OccupancyStddevMean: stat.Mean(occupancyStds, nil),
		Seeds:               len(spec.Seeds),
		Frames:              spec.Frames,
	}
}

// stddevOrZero avoids gonum returning NaN for a single sample.
func stddevOrZero(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}

// simulate runs one seeded engine for the configured number of frames and
// reports its lane reassignment rate, label clamp rate, and mean per-lane
// occupancy spread.
func simulate(cfg engine.EngineConfig, spec RunSpec) (reassignRate, clampRate, occupancyStd float64) {
	e := engine.NewEngine(cfg, spec.Width, spec.Height, false)

	prevLanes := map[int]int{}
	var entityFrames, reassignments int
	var labels, clamped int
	var occStds []float64

	const clampEps = 0.5
	topClamp := 8.0
	bottomClamp := float64(spec.Height) - cfg.Layout.LabelHeightPx - 8.0

	for f := 0; f < spec.Frames; f++ {
		frame := e.TickDelta(spec.Dt)

		for _, label := range frame.Labels {
			labels++
			if label.Box.Y <= topClamp+clampEps || label.Box.Y >= bottomClamp-clampEps {
				clamped++
			}
		}

		occupancy := map[int]float64{}
		for id, lane := range e.LaneAssignments() {
			entityFrames++
			if prev, ok := prevLanes[id]; ok && prev != lane {
				reassignments++
			}
			prevLanes[id] = lane
			occupancy[lane]++
		}

		counts := make([]float64, 0, len(occupancy))
		for _, c := range occupancy {
			counts = append(counts, c)
		}
		if len(counts) >= 2 {
			occStds = append(occStds, stat.StdDev(counts, nil))
		}
	}

	if entityFrames > 0 {
		reassignRate = float64(reassignments) / float64(entityFrames)
	}
	if labels > 0 {
		clampRate = float64(clamped) / float64(labels)
	}
	if len(occStds) > 0 {
		occupancyStd = stat.Mean(occStds, nil)
	}
	return reassignRate, clampRate, occupancyStd
}
