package layout

import "github.com/banshee-data/overlay.report/internal/hud/scene"

// Point is a polyline vertex in viewport pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// LabelBox is a positioned label rectangle in the entity's preferred gutter.
type LabelBox struct {
	X    float64    `json:"x"`
	Y    float64    `json:"y"`
	W    float64    `json:"w"`
	H    float64    `json:"h"`
	Side scene.Side `json:"side"`
}

// AttachX returns the x coordinate of the label's leader attach edge: left
// gutter labels attach on their right edge, right gutter labels on their
// left edge.
func (l LabelBox) AttachX() float64 {
	if l.Side == scene.SideLeft {
		return l.X + l.W
	}
	return l.X
}

// PlaceLabel computes the label rectangle for an entity and the leader
// polyline connecting them.
//
// Width is estimated from the text length at the configured glyph width,
// padded, then clamped to [LabelMinWidthPx, w·LabelMaxWidthFrac] (the upper
// bound wins if the two conflict on a tiny viewport). The label sits flush
// to its gutter and is clamped vertically to [8, h−labelH−8] so it never
// renders off-screen.
//
// The leader runs from the entity's anchor, horizontally out to an elbow
// offset ElbowMarginPx beyond the bounding box on the label-facing side,
// vertically to the label's centre line, then horizontally into the attach
// edge. The elbow therefore never crosses back through the entity's box.
func PlaceLabel(e *scene.Entity, text string, slotY, w, h float64, cfg Config) (LabelBox, []Point) {
	labelW := float64(len(text))*cfg.LabelCharWidthPx + 2*cfg.LabelPaddingPx
	maxW := w * cfg.LabelMaxWidthFrac
	if labelW < cfg.LabelMinWidthPx {
		labelW = cfg.LabelMinWidthPx
	}
	if labelW > maxW {
		labelW = maxW
	}

	labelH := cfg.LabelHeightPx
	label := LabelBox{W: labelW, H: labelH, Side: e.Side}

	if e.Side == scene.SideLeft {
		label.X = cfg.GutterMarginPx
	} else {
		label.X = w - cfg.GutterMarginPx - labelW
	}

	top := 8.0
	bottom := h - labelH - 8
	if bottom < top {
		bottom = top
	}
	label.Y = clampF(slotY-labelH/2, top, bottom)

	anchor := Point{X: e.AnchorX(), Y: e.AnchorY()}
	attach := Point{X: label.AttachX(), Y: label.Y + labelH/2}

	var elbowX float64
	if e.Side == scene.SideLeft {
		elbowX = anchor.X - cfg.ElbowMarginPx
	} else {
		elbowX = anchor.X + cfg.ElbowMarginPx
	}

	leader := []Point{
		anchor,
		{X: elbowX, Y: anchor.Y},
		{X: elbowX, Y: attach.Y},
		attach,
	}

	return label, leader
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
