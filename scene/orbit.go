package scene

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// polarLimit keeps the camera off the poles where the up vector is
	// undefined
	polarLimit  = 0.01
	minDistance = 0.5
	maxDistance = 50
)

// OrbitState is the spherical camera position around the orbit target
type OrbitState struct {
	// Azimuth is the angle around the Y axis in radians, 0 looks down -Z
	Azimuth float64 `json:"azimuth"`
	// Polar is the angle from the +Y axis in radians
	Polar float64 `json:"polar"`
	// Distance from the target
	Distance float64 `json:"distance"`
}

// Orbit rotates and dollies a camera around its target.  It is safe for
// concurrent use by the HTTP controls and the render loops.
type Orbit struct {
	mu    sync.RWMutex
	base  Camera
	home  OrbitState
	state OrbitState
}

// NewOrbit returns orbit controls starting from the given camera
func NewOrbit(cam Camera) *Orbit {

	off := r3.Sub(cam.Position, cam.Target)
	dist := r3.Norm(off)
	home := OrbitState{Distance: dist}

	if dist > 0 {
		home.Azimuth = math.Atan2(off.X, off.Z)
		home.Polar = math.Acos(clamp(off.Y/dist, -1, 1))
	}

	return &Orbit{
		base:  cam,
		home:  home,
		state: home,
	}
}

// Rotate turns the camera by the given azimuth and polar deltas in radians
func (o *Orbit) Rotate(dAzimuth, dPolar float64) {

	o.mu.Lock()
	defer o.mu.Unlock()

	o.state.Azimuth = math.Remainder(o.state.Azimuth+dAzimuth, 2*math.Pi)
	o.state.Polar = clamp(o.state.Polar+dPolar, polarLimit, math.Pi-polarLimit)
}

// Dolly multiplies the camera distance by factor, values below one move
// closer to the target
func (o *Orbit) Dolly(factor float64) {

	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.state.Distance = clamp(o.state.Distance*factor, minDistance, maxDistance)
}

// Reset returns the camera to its starting position
func (o *Orbit) Reset() {
	o.mu.Lock()
	o.state = o.home
	o.mu.Unlock()
}

// State returns the current spherical camera position
func (o *Orbit) State() OrbitState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Camera returns the camera at the current orbit position
func (o *Orbit) Camera() Camera {

	o.mu.RLock()
	s := o.state
	cam := o.base
	o.mu.RUnlock()

	sinPolar := math.Sin(s.Polar)
	off := r3.Vec{
		X: s.Distance * sinPolar * math.Sin(s.Azimuth),
		Y: s.Distance * math.Cos(s.Polar),
		Z: s.Distance * sinPolar * math.Cos(s.Azimuth),
	}

	cam.Position = r3.Add(cam.Target, off)

	return cam
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
