package bridge

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alankarika/go-tryon/capture"
	"github.com/alankarika/go-tryon/detector"
	"github.com/alankarika/go-tryon/position"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

var testTopology = detector.Topology{Name: "test", Size: 468}

// fakeSource is a Source producing blank 640x480 frames once ready
type fakeSource struct {
	ready atomic.Bool
}

func (f *fakeSource) Ready() bool {
	return f.ready.Load()
}

func (f *fakeSource) Read(dst *gocv.Mat) error {

	if !f.ready.Load() {
		return capture.ErrNotReady
	}

	m := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer m.Close()
	m.CopyTo(dst)

	return nil
}

func (f *fakeSource) Size() image.Point {
	return image.Pt(640, 480)
}

func (f *fakeSource) Close() error {
	return nil
}

// fakeDetector returns scripted results, one per call, repeating the last
type fakeDetector struct {
	mu      sync.Mutex
	results [][]detector.Face
	errs    []error
	calls   int
	delay   time.Duration
	// inFlight and maxInFlight track concurrent EstimateFaces calls
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (f *fakeDetector) EstimateFaces(ctx context.Context, img gocv.Mat) ([]detector.Face, error) {

	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)

	for {
		max := f.maxInFlight.Load()
		if n <= max || f.maxInFlight.CompareAndSwap(max, n) {
			break
		}
	}

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.calls
	f.calls++

	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}

	if len(f.results) == 0 {
		return nil, nil
	}

	if i >= len(f.results) {
		i = len(f.results) - 1
	}

	return f.results[i], nil
}

func (f *fakeDetector) Topology() detector.Topology {
	return testTopology
}

func (f *fakeDetector) Close() error {
	return nil
}

func (f *fakeDetector) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// faceAt returns a face with all keypoints at the given pixel
func faceAt(px, py float32) detector.Face {

	kps := make([]detector.Keypoint, testTopology.Size)

	for i := range kps {
		kps[i] = detector.Keypoint{X: px, Y: py}
	}

	return detector.Face{Keypoints: kps}
}

func newDriver(t *testing.T, src capture.Source, det detector.Detector,
	cell *position.Cell, opts ...Option) *Driver {

	mapper, err := position.NewMapper(image.Pt(640, 480), 0, position.DefaultDepth)
	require.NoError(t, err)

	d, err := New(src, det, mapper, cell, opts...)
	require.NoError(t, err)

	t.Cleanup(func() { d.Close() })

	return d
}

func TestCycleNotReady(t *testing.T) {

	src := &fakeSource{}
	det := &fakeDetector{results: [][]detector.Face{{faceAt(400, 240)}}}
	cell := &position.Cell{}
	d := newDriver(t, src, det, cell)

	assert.Equal(t, OutcomeNotReady, d.Cycle(context.Background()))
	assert.Equal(t, 0, det.callCount())

	_, ok := cell.Load()
	assert.False(t, ok)
	assert.Equal(t, uint64(1), d.Stats().NotReady)
}

func TestCycleUpdates(t *testing.T) {

	tests := []struct {
		name   string
		px, py float32
		want   position.Position
	}{
		{"centre", 320, 240, position.Position{X: 0, Y: 0, Z: -0.5}},
		{"right", 400, 240, position.Position{X: 1, Y: 0, Z: -0.5}},
		{"up", 320, 160, position.Position{X: 0, Y: 1, Z: -0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {

			src := &fakeSource{}
			src.ready.Store(true)
			det := &fakeDetector{results: [][]detector.Face{{faceAt(tt.px, tt.py)}}}
			cell := &position.Cell{}
			d := newDriver(t, src, det, cell)

			assert.Equal(t, OutcomeUpdated, d.Cycle(context.Background()))

			got, ok := cell.Load()
			require.True(t, ok)
			assert.Equal(t, tt.want, got)

			stats := d.Stats()
			assert.Equal(t, uint64(1), stats.Updated)
			assert.False(t, stats.LastUpdate.IsZero())
		})
	}
}

func TestCycleNoFaceKeepsPosition(t *testing.T) {

	src := &fakeSource{}
	src.ready.Store(true)
	det := &fakeDetector{results: [][]detector.Face{
		{faceAt(400, 240)},
		{},
	}}
	cell := &position.Cell{}
	d := newDriver(t, src, det, cell)

	require.Equal(t, OutcomeUpdated, d.Cycle(context.Background()))
	assert.Equal(t, OutcomeNoFace, d.Cycle(context.Background()))

	got, ok := cell.Load()
	require.True(t, ok)
	assert.Equal(t, position.Position{X: 1, Y: 0, Z: -0.5}, got)
}

func TestCycleMissingKeypoint(t *testing.T) {

	src := &fakeSource{}
	src.ready.Store(true)
	// a face with too few keypoints for index 234
	short := detector.Face{Keypoints: make([]detector.Keypoint, 10)}
	det := &fakeDetector{results: [][]detector.Face{{short}}}
	cell := &position.Cell{}
	d := newDriver(t, src, det, cell)

	assert.Equal(t, OutcomeNoKeypoint, d.Cycle(context.Background()))

	_, ok := cell.Load()
	assert.False(t, ok)

	_, ok = d.LastFace()
	assert.True(t, ok)
}

func TestCycleDetectorError(t *testing.T) {

	src := &fakeSource{}
	src.ready.Store(true)
	det := &fakeDetector{
		results: [][]detector.Face{{faceAt(400, 240)}, {faceAt(320, 240)}},
		errs:    []error{nil, errors.New("inference failed")},
	}
	cell := &position.Cell{}
	d := newDriver(t, src, det, cell)

	require.Equal(t, OutcomeUpdated, d.Cycle(context.Background()))
	assert.Equal(t, OutcomeFailed, d.Cycle(context.Background()))

	got, ok := cell.Load()
	require.True(t, ok)
	assert.Equal(t, position.Position{X: 1, Y: 0, Z: -0.5}, got)
	assert.Equal(t, uint64(1), d.Stats().Failed)
}

func TestCycleUsesFirstFace(t *testing.T) {

	src := &fakeSource{}
	src.ready.Store(true)
	det := &fakeDetector{results: [][]detector.Face{
		{faceAt(320, 160), faceAt(400, 240)},
	}}
	cell := &position.Cell{}
	d := newDriver(t, src, det, cell)

	require.Equal(t, OutcomeUpdated, d.Cycle(context.Background()))

	got, _ := cell.Load()
	assert.Equal(t, position.Position{X: 0, Y: 1, Z: -0.5}, got)
}

func TestCycleCustomIndex(t *testing.T) {

	src := &fakeSource{}
	src.ready.Store(true)
	face := faceAt(0, 0)
	face.Keypoints[1] = detector.Keypoint{X: 400, Y: 240}
	det := &fakeDetector{results: [][]detector.Face{{face}}}
	cell := &position.Cell{}
	d := newDriver(t, src, det, cell, WithIndex(1))

	require.Equal(t, OutcomeUpdated, d.Cycle(context.Background()))

	got, _ := cell.Load()
	assert.Equal(t, position.Position{X: 1, Y: 0, Z: -0.5}, got)
}

func TestNewRejectsIndex(t *testing.T) {

	mapper, err := position.NewMapper(image.Pt(640, 480), 0, position.DefaultDepth)
	require.NoError(t, err)

	_, err = New(&fakeSource{}, &fakeDetector{}, mapper, &position.Cell{},
		WithIndex(468))
	assert.True(t, errors.Is(err, detector.ErrInvalidIndex))

	_, err = New(nil, &fakeDetector{}, mapper, &position.Cell{})
	assert.Error(t, err)
}

func TestRunSingleDetectionInFlight(t *testing.T) {

	src := &fakeSource{}
	src.ready.Store(true)
	det := &fakeDetector{
		results: [][]detector.Face{{faceAt(400, 240)}},
		// detection is slower than the tick interval
		delay: 5 * time.Millisecond,
	}
	cell := &position.Cell{}
	d := newDriver(t, src, det, cell, WithInterval(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- d.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return det.callCount() >= 5
	}, 2*time.Second, time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.Equal(t, int32(1), det.maxInFlight.Load())

	_, ok := cell.Load()
	assert.True(t, ok)
}

func TestRunStopsWhenCancelled(t *testing.T) {

	src := &fakeSource{}
	det := &fakeDetector{}
	d := newDriver(t, src, det, &position.Cell{}, WithInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, d.Run(ctx))
	assert.Equal(t, uint64(0), d.Stats().Cycles)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "updated", OutcomeUpdated.String())
	assert.Equal(t, "no_face", OutcomeNoFace.String())
	assert.Equal(t, "outcome(99)", Outcome(99).String())
}
