/*
Package detector estimates facial landmark keypoints on video frames.  A face
box is located first, then a face mesh model is run over the face region and
its landmarks are mapped back onto the source frame in pixel coordinates.
*/
package detector

import (
	"context"
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ErrInvalidIndex is returned when a keypoint index does not exist in a
// model's keypoint topology
var ErrInvalidIndex = errors.New("keypoint index not in topology")

// Keypoint is a single landmark in source frame pixel coordinates.  Z is the
// relative depth reported by the model and may be zero for 2D models.
type Keypoint struct {
	X float32
	Y float32
	Z float32
}

// Face is a detected face and its landmark keypoints in topology order
type Face struct {
	// Box is the face bounding box in the source frame
	Box image.Rectangle
	// Score is the detection confidence, 1 when the backend reports none
	Score float32
	// Keypoints are the face landmarks
	Keypoints []Keypoint
}

// Keypoint returns the keypoint at index i and false if the face does not
// have it
func (f Face) Keypoint(i int) (Keypoint, bool) {

	if i < 0 || i >= len(f.Keypoints) {
		return Keypoint{}, false
	}

	return f.Keypoints[i], true
}

// Detector defines the face landmark detection backend used by the
// coordinate bridge
type Detector interface {
	// EstimateFaces returns the faces found in img, most prominent first.
	// No faces is not an error.
	EstimateFaces(ctx context.Context, img gocv.Mat) ([]Face, error)
	// Topology describes the keypoints returned for each face
	Topology() Topology
	// Close releases the model and any resources held
	Close() error
}

// Topology describes the keypoint layout of a landmark model.  A keypoint
// index only has meaning within the topology it was chosen for.
type Topology struct {
	// Name identifies the model keypoint layout
	Name string
	// Size is the number of keypoints per face
	Size int
	// Labels names the anatomical location of well known indices
	Labels map[int]string
}

var (
	// MediaPipeFaceMesh is the 468 point MediaPipe face mesh topology
	MediaPipeFaceMesh = Topology{
		Name: "mediapipe-facemesh-468",
		Size: 468,
		Labels: map[int]string{
			1:   "nose tip",
			10:  "forehead",
			152: "chin",
			234: "near left ear",
			454: "near right ear",
		},
	}

	// topologies are the known topologies by name
	topologies = map[string]Topology{
		MediaPipeFaceMesh.Name: MediaPipeFaceMesh,
	}
)

// LookupTopology returns the named topology
func LookupTopology(name string) (Topology, error) {

	t, ok := topologies[name]

	if !ok {
		return Topology{}, fmt.Errorf("unknown keypoint topology %q", name)
	}

	return t, nil
}

// Validate checks that index addresses a keypoint of the topology
func (t Topology) Validate(index int) error {

	if index < 0 || index >= t.Size {
		return fmt.Errorf("%w: index %d, topology %s has %d keypoints",
			ErrInvalidIndex, index, t.Name, t.Size)
	}

	return nil
}

// Label returns the anatomical name of the keypoint at index, or its number
// if it has no name
func (t Topology) Label(index int) string {

	if l, ok := t.Labels[index]; ok {
		return l
	}

	return fmt.Sprintf("keypoint %d", index)
}
