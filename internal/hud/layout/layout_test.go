package layout

import (
	"math"
	"testing"

	"github.com/banshee-data/overlay.report/internal/hud/rng"
	"github.com/banshee-data/overlay.report/internal/hud/scene"
)

func testConfig() Config {
	return Config{
		LaneSpacingPx:     56,
		MaxLanes:          24,
		CongestionLimit:   2,
		LanePenaltyPx:     48,
		SlotStepPx:        24,
		LabelHeightPx:     20,
		LabelCharWidthPx:  7,
		LabelPaddingPx:    10,
		LabelMinWidthPx:   64,
		LabelMaxWidthFrac: 0.22,
		GutterMarginPx:    16,
		ElbowMarginPx:     18,
	}
}

func TestBuildLanes(t *testing.T) {
	cfg := testConfig()

	lanes := BuildLanes(720, cfg)
	if len(lanes) != 12 { // 720/56 = 12.86 -> 12
		t.Fatalf("lane count = %d, want 12", len(lanes))
	}
	stride := 720.0 / 12.0
	for i, lane := range lanes {
		want := (float64(i) + 0.5) * stride
		if lane.Y != want {
			t.Errorf("lane %d y = %v, want %v", i, lane.Y, want)
		}
	}
}

func TestBuildLanesDegenerate(t *testing.T) {
	cfg := testConfig()

	lanes := BuildLanes(30, cfg) // below one lane spacing
	if len(lanes) != 1 {
		t.Fatalf("lane count = %d, want 1 synthetic lane", len(lanes))
	}
	if lanes[0].Y != 15 {
		t.Errorf("synthetic lane y = %v, want viewport centre 15", lanes[0].Y)
	}

	if lanes := BuildLanes(0, cfg); len(lanes) != 1 {
		t.Errorf("zero-height lane count = %d, want 1", len(lanes))
	}
}

func TestBuildLanesCapped(t *testing.T) {
	cfg := testConfig()
	cfg.MaxLanes = 4

	lanes := BuildLanes(2000, cfg)
	if len(lanes) != 4 {
		t.Errorf("lane count = %d, want capped at 4", len(lanes))
	}
}

// TestSlotStagger covers the canonical two-entity case: with step 24 the
// offsets around the lane centre must be exactly -12 and +12.
func TestSlotStagger(t *testing.T) {
	cfg := testConfig()
	lanes := []Lane{{Y: 100}}

	a := &scene.Entity{ID: 1, X: 50, Y: 90, W: 20, H: 20, Side: scene.SideLeft, LaneIndex: -1}
	b := &scene.Entity{ID: 2, X: 300, Y: 95, W: 20, H: 20, Side: scene.SideLeft, LaneIndex: -1}

	slots := AssignSlots([]*scene.Entity{a, b}, lanes, cfg)
	if len(slots) != 2 {
		t.Fatalf("slot count = %d, want 2", len(slots))
	}

	if slots[0].SlotY != 88 { // 100 - 12
		t.Errorf("first slot y = %v, want 88", slots[0].SlotY)
	}
	if slots[1].SlotY != 112 { // 100 + 12
		t.Errorf("second slot y = %v, want 112", slots[1].SlotY)
	}
}

func TestSlotStaggerOrdersByX(t *testing.T) {
	cfg := testConfig()
	lanes := []Lane{{Y: 100}}

	// b sits left of a; its label must take the upper offset.
	a := &scene.Entity{ID: 1, X: 400, Y: 90, W: 20, H: 20, LaneIndex: -1}
	b := &scene.Entity{ID: 2, X: 40, Y: 95, W: 20, H: 20, LaneIndex: -1}

	slots := AssignSlots([]*scene.Entity{a, b}, lanes, cfg)
	if slots[1].SlotY != 88 {
		t.Errorf("leftmost entity slot y = %v, want 88", slots[1].SlotY)
	}
	if slots[0].SlotY != 112 {
		t.Errorf("rightmost entity slot y = %v, want 112", slots[0].SlotY)
	}
}

func TestNoSameLaneCollision(t *testing.T) {
	cfg := testConfig()
	lanes := BuildLanes(720, cfg)
	rs := rng.New(0xBEEF)

	entities := scene.Generate(1280, 720, scene.DefaultVocabulary(), scene.GeneratorConfig{
		AreaPerEntity: 30000, MinEntities: 24, MaxEntities: 36,
		SizeRatioMin: 0.05, SizeRatioMax: 0.14,
		SpeedMinPps: 30, SpeedMaxPps: 90,
		ConfidenceMin: 0.70, ConfidenceMax: 0.99,
	}, rs)

	for frame := 0; frame < 200; frame++ {
		// Scatter entities to churn lane assignment.
		for _, e := range entities {
			e.Y = rs.Range(0, 700)
		}

		slots := AssignSlots(entities, lanes, cfg)
		for i := range entities {
			entities[i].LaneIndex = slots[i].LaneIndex
		}

		// Same-lane label centres must be pairwise separated by at
		// least the label height.
		for i := 0; i < len(slots); i++ {
			for j := i + 1; j < len(slots); j++ {
				if slots[i].LaneIndex != slots[j].LaneIndex {
					continue
				}
				sep := math.Abs(slots[i].SlotY - slots[j].SlotY)
				if sep < cfg.LabelHeightPx {
					t.Fatalf("frame %d: lane %d slots %v and %v separated by %v < label height %v",
						frame, slots[i].LaneIndex, slots[i].SlotY, slots[j].SlotY, sep, cfg.LabelHeightPx)
				}
			}
		}
	}
}

func TestAssignSlotsKeepsUncongestedLane(t *testing.T) {
	cfg := testConfig()
	lanes := BuildLanes(720, cfg)

	e := &scene.Entity{ID: 1, X: 100, Y: 700, W: 20, H: 20, LaneIndex: 0}
	slots := AssignSlots([]*scene.Entity{e}, lanes, cfg)

	// Lane 0 is far from the anchor but not congested, so it is kept.
	if slots[0].LaneIndex != 0 {
		t.Errorf("lane index = %d, want 0 (sticky assignment)", slots[0].LaneIndex)
	}
}

func TestAssignSlotsEvictsFromCongestedLane(t *testing.T) {
	cfg := testConfig()
	cfg.CongestionLimit = 1
	lanes := BuildLanes(720, cfg)

	a := &scene.Entity{ID: 1, X: 100, Y: 100, W: 20, H: 20, LaneIndex: 3}
	b := &scene.Entity{ID: 2, X: 200, Y: 100, W: 20, H: 20, LaneIndex: 3}

	slots := AssignSlots([]*scene.Entity{a, b}, lanes, cfg)
	if slots[0].LaneIndex != 3 {
		t.Errorf("first entity lane = %d, want to keep 3", slots[0].LaneIndex)
	}
	if slots[1].LaneIndex == 3 {
		t.Error("second entity stayed in congested lane 3")
	}
}

func TestAssignSlotsEmpty(t *testing.T) {
	cfg := testConfig()
	if slots := AssignSlots(nil, BuildLanes(720, cfg), cfg); slots != nil {
		t.Errorf("expected nil slots for empty entity list, got %v", slots)
	}
}

func TestPlaceLabelLeftGutter(t *testing.T) {
	cfg := testConfig()
	e := &scene.Entity{ID: 1, Class: "Car", X: 600, Y: 300, W: 80, H: 40, Side: scene.SideLeft}

	label, leader := PlaceLabel(e, "Car 87%", 320, 1280, 720, cfg)

	if label.X != cfg.GutterMarginPx {
		t.Errorf("label x = %v, want flush to left gutter %v", label.X, cfg.GutterMarginPx)
	}
	wantW := float64(len("Car 87%"))*7 + 20
	if label.W != wantW {
		t.Errorf("label w = %v, want %v", label.W, wantW)
	}
	if label.Y != 320-10 {
		t.Errorf("label y = %v, want slot-centred 310", label.Y)
	}

	if len(leader) != 4 {
		t.Fatalf("leader has %d points, want 4", len(leader))
	}
	if leader[0].X != 600 || leader[0].Y != 320 {
		t.Errorf("leader anchor = %+v, want (600, 320)", leader[0])
	}
	// Elbow strictly outside the entity box on the label side.
	if leader[1].X >= e.X {
		t.Errorf("elbow x = %v, want strictly left of entity x %v", leader[1].X, e.X)
	}
	if leader[1].X != 600-cfg.ElbowMarginPx {
		t.Errorf("elbow x = %v, want %v", leader[1].X, 600-cfg.ElbowMarginPx)
	}
	// Final segment enters the label's right edge.
	if leader[3].X != label.X+label.W {
		t.Errorf("attach x = %v, want label right edge %v", leader[3].X, label.X+label.W)
	}
	if leader[3].Y != label.Y+label.H/2 {
		t.Errorf("attach y = %v, want label centre %v", leader[3].Y, label.Y+label.H/2)
	}
}

func TestPlaceLabelRightGutter(t *testing.T) {
	cfg := testConfig()
	e := &scene.Entity{ID: 2, Class: "Human", X: 200, Y: 100, W: 30, H: 70, Side: scene.SideRight}

	label, leader := PlaceLabel(e, "Human 92%", 135, 1280, 720, cfg)

	if label.X+label.W != 1280-cfg.GutterMarginPx {
		t.Errorf("label right edge = %v, want flush to right gutter", label.X+label.W)
	}
	if leader[1].X <= e.X+e.W {
		t.Errorf("elbow x = %v, want strictly right of entity edge %v", leader[1].X, e.X+e.W)
	}
	if leader[3].X != label.X {
		t.Errorf("attach x = %v, want label left edge %v", leader[3].X, label.X)
	}
}

func TestPlaceLabelVerticalClamp(t *testing.T) {
	cfg := testConfig()
	e := &scene.Entity{ID: 3, X: 600, Y: 2, W: 40, H: 20, Side: scene.SideLeft}

	top, _ := PlaceLabel(e, "Object 71%", -50, 1280, 720, cfg)
	if top.Y != 8 {
		t.Errorf("label y = %v, want clamped to 8", top.Y)
	}

	bottom, _ := PlaceLabel(e, "Object 71%", 5000, 1280, 720, cfg)
	if bottom.Y != 720-cfg.LabelHeightPx-8 {
		t.Errorf("label y = %v, want clamped to %v", bottom.Y, 720-cfg.LabelHeightPx-8)
	}
}

func TestPlaceLabelWidthClamp(t *testing.T) {
	cfg := testConfig()
	e := &scene.Entity{ID: 4, X: 600, Y: 300, W: 40, H: 20, Side: scene.SideLeft}

	short, _ := PlaceLabel(e, "X", 300, 1280, 720, cfg)
	if short.W != cfg.LabelMinWidthPx {
		t.Errorf("short label w = %v, want min %v", short.W, cfg.LabelMinWidthPx)
	}

	long, _ := PlaceLabel(e, "An improbably verbose classification string 99%", 300, 1280, 720, cfg)
	if long.W != 1280*cfg.LabelMaxWidthFrac {
		t.Errorf("long label w = %v, want max %v", long.W, 1280*cfg.LabelMaxWidthFrac)
	}
}
