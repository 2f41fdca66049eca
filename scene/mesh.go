package scene

import (
	"image/color"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// MarkerColor is the red of the tracked position marker
	MarkerColor = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	// GoldColor is used for jewelry meshes without a material colour
	GoldColor = color.RGBA{R: 212, G: 175, B: 55, A: 255}
)

// Triangle is a single flat shaded face of a mesh
type Triangle struct {
	A, B, C r3.Vec
	Color   color.RGBA
}

// Normal returns the unit face normal following the A, B, C winding
func (t Triangle) Normal() r3.Vec {
	n := r3.Cross(r3.Sub(t.B, t.A), r3.Sub(t.C, t.A))

	if r3.Norm(n) == 0 {
		return r3.Vec{}
	}

	return r3.Unit(n)
}

// Centroid returns the centre point of the triangle
func (t Triangle) Centroid() r3.Vec {
	return r3.Scale(1.0/3, r3.Add(r3.Add(t.A, t.B), t.C))
}

// Mesh is a triangle list in model space centred on its origin
type Mesh struct {
	Name      string
	Triangles []Triangle
}

// Sphere returns a UV sphere of the given radius with segments divisions
// around and segments divisions from pole to pole
func Sphere(radius float64, segments int, clr color.RGBA) *Mesh {

	if segments < 3 {
		segments = 3
	}

	// vertex grid rows run from the north pole to the south pole
	point := func(row, col int) r3.Vec {
		phi := float64(col) / float64(segments) * 2 * math.Pi
		theta := float64(row) / float64(segments) * math.Pi

		return r3.Vec{
			X: -radius * math.Cos(phi) * math.Sin(theta),
			Y: radius * math.Cos(theta),
			Z: radius * math.Sin(phi) * math.Sin(theta),
		}
	}

	m := &Mesh{
		Name:      "sphere",
		Triangles: make([]Triangle, 0, 2*segments*(segments-1)),
	}

	for row := 0; row < segments; row++ {
		for col := 0; col < segments; col++ {
			a := point(row, col+1)
			b := point(row, col)
			c := point(row+1, col)
			d := point(row+1, col+1)

			if row != 0 {
				m.Triangles = append(m.Triangles, Triangle{A: a, B: b, C: d, Color: clr})
			}

			if row != segments-1 {
				m.Triangles = append(m.Triangles, Triangle{A: b, B: c, C: d, Color: clr})
			}
		}
	}

	return m
}

// Bounds returns the axis aligned bounding box of the mesh
func (m *Mesh) Bounds() (min, max r3.Vec) {

	if len(m.Triangles) == 0 {
		return r3.Vec{}, r3.Vec{}
	}

	min = m.Triangles[0].A
	max = min

	for _, t := range m.Triangles {
		for _, v := range [3]r3.Vec{t.A, t.B, t.C} {
			min = r3.Vec{X: math.Min(min.X, v.X), Y: math.Min(min.Y, v.Y), Z: math.Min(min.Z, v.Z)}
			max = r3.Vec{X: math.Max(max.X, v.X), Y: math.Max(max.Y, v.Y), Z: math.Max(max.Z, v.Z)}
		}
	}

	return min, max
}
