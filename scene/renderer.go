package scene

import (
	"errors"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/alankarika/go-tryon/position"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// MarkerRadius is the radius of the tracked position marker sphere
	MarkerRadius = 0.05
	// MarkerSegments is the number of sphere divisions of the marker
	MarkerSegments = 32
)

// Light is an ambient light plus a single directional light
type Light struct {
	Ambient float64
	// Direction points from the scene towards the light
	Direction r3.Vec
	Intensity float64
}

// DefaultLight returns the directional light positioned at (0,0,5) shining
// at the origin with a soft ambient fill
func DefaultLight() Light {
	return Light{
		Ambient:   0.4,
		Direction: r3.Unit(r3.Vec{X: 0, Y: 0, Z: 5}),
		Intensity: 0.8,
	}
}

// Overlay draws on the composed frame after the scene
type Overlay func(dst *gocv.Mat)

// Renderer composes the mirrored video frame with the marker and jewelry
// meshes placed at the tracked position
type Renderer struct {
	cell     position.Reader
	orbit    *Orbit
	light    Light
	marker   *Mesh
	asset    *Mesh
	mirror   bool
	overlays []Overlay
}

// NewRenderer returns a Renderer reading the tracked position from cell.
// The asset may be nil to only draw the marker.
func NewRenderer(cell position.Reader, orbit *Orbit, asset *Mesh) *Renderer {
	return &Renderer{
		cell:   cell,
		orbit:  orbit,
		light:  DefaultLight(),
		marker: Sphere(MarkerRadius, MarkerSegments, MarkerColor),
		asset:  asset,
		mirror: true,
	}
}

// SetMirror sets if the video frame is mirrored horizontally
func (r *Renderer) SetMirror(mirror bool) {
	r.mirror = mirror
}

// SetMarker replaces the marker mesh, nil hides the marker
func (r *Renderer) SetMarker(m *Mesh) {
	r.marker = m
}

// AddOverlay registers a function drawing over every rendered frame
func (r *Renderer) AddOverlay(o Overlay) {
	r.overlays = append(r.overlays, o)
}

// Render draws frame into dst followed by the scene.  The tracked position
// is read once so the marker and asset are always placed at the same
// coordinate, and when no position has been tracked both are omitted.
func (r *Renderer) Render(frame gocv.Mat, dst *gocv.Mat) error {

	if frame.Empty() {
		return errors.New("cannot render empty frame")
	}

	if r.mirror {
		gocv.Flip(frame, dst, 1)
	} else {
		frame.CopyTo(dst)
	}

	if p, ok := r.cell.Load(); ok {
		viewport := image.Pt(dst.Cols(), dst.Rows())

		for _, tri := range r.drawList(p, viewport) {
			pv := gocv.NewPointsVectorFromPoints([][]image.Point{tri.pts[:]})
			gocv.FillPoly(dst, pv, tri.clr)
			pv.Close()
		}
	}

	for _, o := range r.overlays {
		o(dst)
	}

	return nil
}

// screenTri is a projected and shaded triangle ready to draw
type screenTri struct {
	pts   [3]image.Point
	depth float64
	clr   color.RGBA
}

// drawList projects the scene objects placed at p and orders them back to
// front
func (r *Renderer) drawList(p position.Position, viewport image.Point) []screenTri {

	cam := r.orbit.Camera()
	at := p.Vec()
	list := make([]screenTri, 0)

	for _, m := range []*Mesh{r.marker, r.asset} {
		if m == nil {
			continue
		}

		for _, t := range m.Triangles {
			world := Triangle{
				A:     r3.Add(t.A, at),
				B:     r3.Add(t.B, at),
				C:     r3.Add(t.C, at),
				Color: t.Color,
			}

			if st, ok := r.project(cam, world, viewport); ok {
				list = append(list, st)
			}
		}
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].depth > list[j].depth
	})

	return list
}

// project maps a world triangle onto the viewport and shades it.  Triangles
// crossing the near plane are dropped.
func (r *Renderer) project(cam Camera, t Triangle, viewport image.Point) (screenTri, bool) {

	var st screenTri

	for i, v := range [3]r3.Vec{t.A, t.B, t.C} {
		pr, ok := cam.Project(v, viewport)

		if !ok {
			return screenTri{}, false
		}

		st.pts[i] = pr.Point()
	}

	centroid := t.Centroid()
	st.depth = r3.Dot(r3.Sub(centroid, cam.Position), r3.Unit(r3.Sub(cam.Target, cam.Position)))
	st.clr = r.shade(t, r3.Sub(cam.Position, centroid))

	return st, true
}

// shade applies flat lambert lighting.  Faces are lit on the side facing
// the viewer so meshes with mixed winding still shade.
func (r *Renderer) shade(t Triangle, toViewer r3.Vec) color.RGBA {

	n := t.Normal()

	if r3.Dot(n, toViewer) < 0 {
		n = r3.Scale(-1, n)
	}

	k := r.light.Ambient + r.light.Intensity*math.Max(0, r3.Dot(n, r.light.Direction))
	k = math.Min(k, 1)

	return color.RGBA{
		R: uint8(float64(t.Color.R) * k),
		G: uint8(float64(t.Color.G) * k),
		B: uint8(float64(t.Color.B) * k),
		A: 255,
	}
}
