// Package scene defines the synthetic entity model and the batch generator
// that populates a viewport with fake detections.
package scene

import "math"

// Side indicates which viewport gutter an entity's label prefers.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// Class describes one entry of the label vocabulary: a display name plus an
// aspect-ratio profile (width/height) that entity bounding boxes are sampled
// from.
type Class struct {
	Name      string
	AspectMin float64
	AspectMax float64
}

// DefaultVocabulary returns the built-in label vocabulary. Cars are wide,
// humans tall, generic objects roughly square.
func DefaultVocabulary() []Class {
	return []Class{
		{Name: "Car", AspectMin: 1.6, AspectMax: 2.2},
		{Name: "Human", AspectMin: 0.35, AspectMax: 0.5},
		{Name: "Object", AspectMin: 0.8, AspectMax: 1.2},
	}
}

// Entity is a single tracked synthetic object. ID and Class are assigned at
// creation and never change; position and confidence are mutated every tick;
// Side stays stable unless the lane allocator reassigns it.
type Entity struct {
	ID    int
	Class string

	// Bounding box, viewport pixels. (X, Y) is the top-left corner.
	X, Y float64
	W, H float64

	// Velocity, pixels per second. Sign may flip on boundary interaction
	// under the bounce policy.
	VX, VY float64

	// Fake detection confidence, clamped to the configured range.
	Confidence float64

	// Label placement state.
	Side      Side
	LaneIndex int // index into the lane table; -1 when unassigned
}

// AnchorX returns the x coordinate of the entity's leader-line anchor: the
// midpoint of the bounding box edge facing the entity's label side.
func (e *Entity) AnchorX() float64 {
	if e.Side == SideLeft {
		return e.X
	}
	return e.X + e.W
}

// AnchorY returns the y coordinate of the entity's leader-line anchor
// (vertical centre of the bounding box).
func (e *Entity) AnchorY() float64 {
	return e.Y + e.H/2
}

// Speed returns the velocity magnitude in pixels per second.
func (e *Entity) Speed() float64 {
	return math.Hypot(e.VX, e.VY)
}
