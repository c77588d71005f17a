package engine

import "github.com/banshee-data/overlay.report/internal/hud/layout"

// Viewport is the host-reported drawing surface size in pixels.
type Viewport struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Box is a positioned entity bounding box ready for rendering.
type Box struct {
	EntityID   int     `json:"entity_id"`
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          float64 `json:"w"`
	H          float64 `json:"h"`
}

// Label is a positioned label rectangle plus its display text
// (class name and confidence percentage).
type Label struct {
	EntityID int             `json:"entity_id"`
	Text     string          `json:"text"`
	Box      layout.LabelBox `json:"box"`
}

// Leader is the polyline connecting an entity's anchor to its label.
type Leader struct {
	EntityID int            `json:"entity_id"`
	Points   []layout.Point `json:"points"`
}

// FrameBundle is the canonical per-frame output handed to the host renderer:
// an ordered set of renderable primitives. The host is solely responsible
// for turning these into pixels.
type FrameBundle struct {
	FrameID        uint64   `json:"frame_id"`
	TimestampNanos int64    `json:"timestamp_nanos"`
	SceneID        string   `json:"scene_id"`
	Viewport       Viewport `json:"viewport"`
	Paused         bool     `json:"paused"`

	Boxes   []Box    `json:"boxes"`
	Labels  []Label  `json:"labels"`
	Leaders []Leader `json:"leaders"`
}
