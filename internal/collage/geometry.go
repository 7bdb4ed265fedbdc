// Package collage implements the client-side collage canvas engine: the
// coordinate math between screen and canvas space, the gesture classifier
// that turns raw pointer events into pan/zoom/drag/pinch/tap intents, the
// per-item optimistic transform state, and the scene store that mirrors the
// remote collage documents.
package collage

import "math"

// Point is a 2D point or vector. Screen space is surface pixels, canvas
// space is the shared logical coordinate system item positions live in.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p + q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Mul returns the point scaled by s.
func (p Point) Mul(s float64) Point {
	return Point{X: p.X * s, Y: p.Y * s}
}

// Div returns the point divided by s.
func (p Point) Div(s float64) Point {
	return Point{X: p.X / s, Y: p.Y / s}
}

// Length returns the vector length.
func (p Point) Length() float64 {
	return math.Hypot(p.X, p.Y)
}

// Zoom and scale bounds. Canvas zoom may go further out than item scale so
// the whole collage can be brought into view.
const (
	MinZoom = 0.1
	MaxZoom = 3.0

	MinItemScale = 0.5
	MaxItemScale = 3.0
)

// BaseItemWidth/Height is the unscaled image box every collage item renders
// into. Positions are the top-left corner of this box in canvas space.
const (
	BaseItemWidth  = 150.0
	BaseItemHeight = 150.0
)

// ViewState is one client's viewport over the canvas. It is never
// synchronized; every client pans and zooms independently.
type ViewState struct {
	// Origin is the screen-space position of the rendering surface.
	Origin Point
	// Pan is the screen-space offset applied after zoom.
	Pan Point
	// Zoom is clamped to [MinZoom, MaxZoom] and is never zero.
	Zoom float64
}

// NewViewState returns a viewport at the canvas origin with zoom 1.
func NewViewState() ViewState {
	return ViewState{Zoom: 1}
}

// ToCanvas maps a screen-space point into canvas space.
func (v ViewState) ToCanvas(screen Point) Point {
	return screen.Sub(v.Origin).Sub(v.Pan).Div(v.Zoom)
}

// ToScreen maps a canvas-space point back onto the screen. Inverse of
// ToCanvas for any finite point.
func (v ViewState) ToScreen(canvas Point) Point {
	return canvas.Mul(v.Zoom).Add(v.Pan).Add(v.Origin)
}

// ApplyPan shifts the viewport by a raw screen-space delta.
func (v *ViewState) ApplyPan(delta Point) {
	v.Pan = v.Pan.Add(delta)
}

// ApplyZoom multiplies the zoom by factor, clamped to the zoom bounds.
func (v *ViewState) ApplyZoom(factor float64) {
	v.Zoom = ClampZoom(v.Zoom * factor)
}

// ClampZoom clamps a canvas zoom value to [MinZoom, MaxZoom].
func ClampZoom(zoom float64) float64 {
	return math.Min(MaxZoom, math.Max(MinZoom, zoom))
}

// ClampItemScale clamps an item scale value to [MinItemScale, MaxItemScale].
// Every entry point that mutates an item's scale goes through this.
func ClampItemScale(scale float64) float64 {
	return math.Min(MaxItemScale, math.Max(MinItemScale, scale))
}

// NormalizeRotation wraps an accumulated rotation into (-180, 180]. Rotation
// runs unwrapped while a gesture is active and is normalized when the commit
// value is built.
func NormalizeRotation(deg float64) float64 {
	wrapped := math.Mod(deg, 360)
	if wrapped > 180 {
		wrapped -= 360
	} else if wrapped <= -180 {
		wrapped += 360
	}
	return wrapped
}

// Transform is a collage item's placement: canvas-space top-left position,
// display rotation in degrees, and uniform scale about the box center.
type Transform struct {
	Position Point   `json:"position"`
	Rotation float64 `json:"rotation"`
	Scale    float64 `json:"scale"`
}

// Center returns the canvas-space center of the item's box. Scale and
// rotation are applied about this point.
func (t Transform) Center() Point {
	return Point{
		X: t.Position.X + BaseItemWidth/2,
		Y: t.Position.Y + BaseItemHeight/2,
	}
}

// Contains reports whether a canvas-space point lands inside the item's box,
// accounting for the item's rotation and scale. The point is inverse-rotated
// about the box center and tested against the axis-aligned scaled box.
func (t Transform) Contains(canvasPoint Point) bool {
	center := t.Center()
	rel := canvasPoint.Sub(center)

	rad := -t.Rotation * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	local := Point{
		X: rel.X*cos - rel.Y*sin,
		Y: rel.X*sin + rel.Y*cos,
	}

	halfW := BaseItemWidth / 2 * t.Scale
	halfH := BaseItemHeight / 2 * t.Scale
	return local.X >= -halfW && local.X <= halfW &&
		local.Y >= -halfH && local.Y <= halfH
}

const transformEpsilon = 1e-6

// Equal reports whether two transforms match within floating-point
// tolerance. Used to decide when a remote snapshot has caught up with a
// locally committed value.
func (t Transform) Equal(other Transform) bool {
	return math.Abs(t.Position.X-other.Position.X) < transformEpsilon &&
		math.Abs(t.Position.Y-other.Position.Y) < transformEpsilon &&
		math.Abs(t.Rotation-other.Rotation) < transformEpsilon &&
		math.Abs(t.Scale-other.Scale) < transformEpsilon
}

// Distance returns the distance between two points.
func Distance(a, b Point) float64 {
	return b.Sub(a).Length()
}

// AngleDegrees returns the angle of the vector from a to b, in degrees.
func AngleDegrees(a, b Point) float64 {
	return math.Atan2(b.Y-a.Y, b.X-a.X) * 180 / math.Pi
}
