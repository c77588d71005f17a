// Package layout deconflicts label placement: it partitions the viewport
// into horizontal lanes, assigns each entity a collision-free vertical slot,
// and routes an elbow leader line from the entity to its label.
package layout

import (
	"math"
	"sort"

	"github.com/banshee-data/overlay.report/internal/config"
	"github.com/banshee-data/overlay.report/internal/hud/scene"
)

// Lane is a horizontal stripe at a fixed y. Occupancy is tracked per frame
// inside AssignSlots; the table itself is immutable between resizes.
type Lane struct {
	Y float64
}

// Config holds the resolved parameters for lane allocation and label layout.
type Config struct {
	LaneSpacingPx     float64
	MaxLanes          int
	CongestionLimit   int
	LanePenaltyPx     float64
	SlotStepPx        float64
	LabelHeightPx     float64
	LabelCharWidthPx  float64
	LabelPaddingPx    float64
	LabelMinWidthPx   float64
	LabelMaxWidthFrac float64
	GutterMarginPx    float64
	ElbowMarginPx     float64
}

// ConfigFromTuning builds a layout Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		LaneSpacingPx:     cfg.GetLaneSpacingPx(),
		MaxLanes:          cfg.GetMaxLanes(),
		CongestionLimit:   cfg.GetLaneCongestionLimit(),
		LanePenaltyPx:     cfg.GetLanePenaltyPx(),
		SlotStepPx:        cfg.GetSlotStepPx(),
		LabelHeightPx:     cfg.GetLabelHeightPx(),
		LabelCharWidthPx:  cfg.GetLabelCharWidthPx(),
		LabelPaddingPx:    cfg.GetLabelPaddingPx(),
		LabelMinWidthPx:   cfg.GetLabelMinWidthPx(),
		LabelMaxWidthFrac: cfg.GetLabelMaxWidthFrac(),
		GutterMarginPx:    cfg.GetGutterMarginPx(),
		ElbowMarginPx:     cfg.GetElbowMarginPx(),
	}
}

// BuildLanes computes the lane table for a viewport height: evenly spaced
// stripe centres, one lane per LaneSpacingPx, capped at MaxLanes. A
// degenerate viewport degrades to a single lane at the vertical centre so
// allocation always has somewhere to go.
func BuildLanes(h float64, cfg Config) []Lane {
	if h <= 0 {
		return []Lane{{Y: 0}}
	}

	n := int(h / cfg.LaneSpacingPx)
	if n < 1 {
		return []Lane{{Y: h / 2}}
	}
	if cfg.MaxLanes > 0 && n > cfg.MaxLanes {
		n = cfg.MaxLanes
	}

	lanes := make([]Lane, n)
	stride := h / float64(n)
	for i := range lanes {
		lanes[i].Y = (float64(i) + 0.5) * stride
	}
	return lanes
}

// Slot is one entity's per-frame label position: the lane it landed in and
// the vertical centre its label should take.
type Slot struct {
	EntityID  int
	LaneIndex int
	SlotY     float64
}

// AssignSlots maps every entity to a lane and a vertical slot such that no
// two entities sharing a lane receive the same label offset this frame.
//
// Per-frame occupancy counters start at zero. Each entity keeps its current
// lane unless it has none or the lane is congested (occupancy at the
// congestion limit); otherwise it takes the lane minimising
// |lane.y − anchor.y| + occupancy·penalty, which spreads entities across
// lanes. Entities sharing a lane are ordered by x (insertion order breaks
// ties) and staggered symmetrically around the lane centre in SlotStepPx
// increments, so same-lane labels stay at least one step apart.
//
// The function is pure: it reads entity state and the lane table and returns
// a slot slice parallel to the entity slice. Callers apply LaneIndex back to
// the entities.
func AssignSlots(entities []*scene.Entity, lanes []Lane, cfg Config) []Slot {
	if len(entities) == 0 || len(lanes) == 0 {
		return nil
	}

	used := make([]int, len(lanes))
	laneOf := make([]int, len(entities))

	for i, e := range entities {
		li := e.LaneIndex
		if li < 0 || li >= len(lanes) || used[li] >= cfg.CongestionLimit {
			li = nearestLane(e.AnchorY(), lanes, used, cfg.LanePenaltyPx)
		}
		laneOf[i] = li
		used[li]++
	}

	// Group entity indices per lane, preserving insertion order.
	byLane := make([][]int, len(lanes))
	for i := range entities {
		byLane[laneOf[i]] = append(byLane[laneOf[i]], i)
	}

	slots := make([]Slot, len(entities))
	for li, members := range byLane {
		if len(members) == 0 {
			continue
		}
		// Stable sort keeps insertion order for equal x.
		sort.SliceStable(members, func(a, b int) bool {
			return entities[members[a]].X < entities[members[b]].X
		})

		n := len(members)
		for k, idx := range members {
			offset := (float64(k) - float64(n-1)/2) * cfg.SlotStepPx
			slots[idx] = Slot{
				EntityID:  entities[idx].ID,
				LaneIndex: li,
				SlotY:     lanes[li].Y + offset,
			}
		}
	}

	return slots
}

// nearestLane scores every lane by anchor distance plus an occupancy
// penalty and returns the lowest-scoring index. Ties resolve to the lower
// index, which keeps the result deterministic.
func nearestLane(anchorY float64, lanes []Lane, used []int, penalty float64) int {
	best := 0
	bestScore := math.Inf(1)
	for i, lane := range lanes {
		score := math.Abs(lane.Y-anchorY) + float64(used[i])*penalty
		if score < bestScore {
			best = i
			bestScore = score
		}
	}
	return best
}
