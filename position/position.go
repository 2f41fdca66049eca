/*
Package position holds the tracked scene-space position shared between the
detection loop and the scene renderers, and the mapping used to convert a
detected keypoint from source frame pixels into scene space.
*/
package position

import (
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// DefaultDepth is the fixed scene z coordinate tracked objects are placed at
	DefaultDepth = -0.5
	// divisorRatio is the number of scene units spanning the frame height when
	// no explicit scale divisor is configured.  A 480 pixel high frame gives a
	// divisor of 80 pixels per scene unit.
	divisorRatio = 6
)

// Position is a scene space coordinate
type Position r3.Vec

// Vec returns the position as a gonum vector
func (p Position) Vec() r3.Vec {
	return r3.Vec(p)
}

// IsFinite reports whether all three components are real numbers
func (p Position) IsFinite() bool {
	for _, v := range [3]float64{p.X, p.Y, p.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return true
}

// String returns the position in human readable format
func (p Position) String() string {
	return fmt.Sprintf("(%.4f, %.4f, %.4f)", p.X, p.Y, p.Z)
}

// Mapper converts keypoint pixel coordinates of a source frame into scene
// coordinates by shifting the origin to the frame centre, scaling by the
// divisor and inverting the y axis
type Mapper struct {
	halfWidth  float64
	halfHeight float64
	divisor    float64
	depth      float64
}

// NewMapper returns a Mapper for frames of the given size.  A divisor of zero
// derives the pixels per scene unit from the frame height.
func NewMapper(frame image.Point, divisor, depth float64) (Mapper, error) {

	if frame.X <= 0 || frame.Y <= 0 {
		return Mapper{}, fmt.Errorf("invalid frame size %dx%d", frame.X, frame.Y)
	}

	if divisor < 0 || math.IsNaN(divisor) || math.IsInf(divisor, 0) {
		return Mapper{}, fmt.Errorf("invalid scale divisor %v", divisor)
	}

	if math.IsNaN(depth) || math.IsInf(depth, 0) {
		return Mapper{}, fmt.Errorf("invalid depth %v", depth)
	}

	if divisor == 0 {
		divisor = float64(frame.Y) / divisorRatio
	}

	return Mapper{
		halfWidth:  float64(frame.X) / 2,
		halfHeight: float64(frame.Y) / 2,
		divisor:    divisor,
		depth:      depth,
	}, nil
}

// Map converts the pixel coordinate px,py into scene space
func (m Mapper) Map(px, py float64) Position {
	return Position{
		X: (px - m.halfWidth) / m.divisor,
		Y: -(py - m.halfHeight) / m.divisor,
		Z: m.depth,
	}
}

// Divisor returns the number of pixels per scene unit in use
func (m Mapper) Divisor() float64 {
	return m.divisor
}

// Depth returns the fixed z coordinate
func (m Mapper) Depth() float64 {
	return m.depth
}
