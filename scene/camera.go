/*
Package scene holds the 3D try-on scene drawn over the video feed: a
perspective camera with orbit controls, the tracked marker and jewelry
meshes, and a flat shaded painter's algorithm renderer writing into gocv
Mats.
*/
package scene

import (
	"image"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Camera is a perspective camera looking from Position towards Target
type Camera struct {
	Position r3.Vec
	Target   r3.Vec
	Up       r3.Vec
	// FOV is the vertical field of view in degrees
	FOV float64
	// Near is the distance of the near clipping plane
	Near float64
}

// DefaultCamera returns the scene camera five units in front of the origin
// with a 75 degree vertical field of view
func DefaultCamera() Camera {
	return Camera{
		Position: r3.Vec{X: 0, Y: 0, Z: 5},
		Target:   r3.Vec{},
		Up:       r3.Vec{X: 0, Y: 1, Z: 0},
		FOV:      75,
		Near:     0.1,
	}
}

// Projected is a scene point projected onto the viewport
type Projected struct {
	// X and Y are viewport pixel coordinates
	X float64
	Y float64
	// Depth is the distance in front of the camera along its view axis
	Depth float64
}

// Point returns the projected position rounded to the nearest pixel
func (p Projected) Point() image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}

// basis returns the camera right, up and forward unit vectors
func (c Camera) basis() (right, up, forward r3.Vec) {

	forward = r3.Unit(r3.Sub(c.Target, c.Position))
	right = r3.Unit(r3.Cross(forward, c.Up))
	up = r3.Cross(right, forward)

	return right, up, forward
}

// focal returns the focal length in pixels for a viewport height
func (c Camera) focal(height int) float64 {
	return float64(height) / 2 / math.Tan(c.FOV*math.Pi/360)
}

// Project maps a scene point onto a viewport of the given size.  False is
// returned when the point lies behind the near plane.
func (c Camera) Project(p r3.Vec, viewport image.Point) (Projected, bool) {

	right, up, forward := c.basis()
	d := r3.Sub(p, c.Position)
	depth := r3.Dot(d, forward)

	if depth < c.Near {
		return Projected{}, false
	}

	f := c.focal(viewport.Y)

	return Projected{
		X:     float64(viewport.X)/2 + f*r3.Dot(d, right)/depth,
		Y:     float64(viewport.Y)/2 - f*r3.Dot(d, up)/depth,
		Depth: depth,
	}, true
}
