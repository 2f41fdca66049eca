package tryon

import (
	"bytes"
	"context"
	"errors"
	"image"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alankarika/go-tryon/capture"
	"github.com/alankarika/go-tryon/config"
	"github.com/alankarika/go-tryon/detector"
	"github.com/alankarika/go-tryon/position"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

type fakeSource struct {
	size    image.Point
	started atomic.Bool
	closed  atomic.Bool
}

func (f *fakeSource) Start(ctx context.Context) { f.started.Store(true) }
func (f *fakeSource) Ready() bool               { return f.started.Load() }

func (f *fakeSource) Read(dst *gocv.Mat) error {

	if !f.started.Load() {
		return capture.ErrNotReady
	}

	m := gocv.NewMatWithSize(f.size.Y, f.size.X, gocv.MatTypeCV8UC3)
	defer m.Close()
	m.CopyTo(dst)

	return nil
}

func (f *fakeSource) Size() image.Point { return f.size }

func (f *fakeSource) Close() error {
	f.closed.Store(true)
	return nil
}

// fakeDetector finds one face with every keypoint at the same pixel
type fakeDetector struct {
	topology detector.Topology
	at       image.Point
}

func (f *fakeDetector) EstimateFaces(ctx context.Context, img gocv.Mat) ([]detector.Face, error) {

	kps := make([]detector.Keypoint, f.topology.Size)

	for i := range kps {
		kps[i] = detector.Keypoint{X: float32(f.at.X), Y: float32(f.at.Y)}
	}

	return []detector.Face{{Box: image.Rect(0, 0, 10, 10), Keypoints: kps}}, nil
}

func (f *fakeDetector) Topology() detector.Topology { return f.topology }
func (f *fakeDetector) Close() error                { return nil }

func testConfig(t *testing.T) *config.Config {
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestNewDerivesMapperFromSource(t *testing.T) {

	cfg := testConfig(t)
	src := &fakeSource{size: image.Pt(1280, 720)}
	det := &fakeDetector{topology: detector.MediaPipeFaceMesh}

	s, err := New(cfg, src, det, nil)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, 120.0, s.Mapper.Divisor())
	assert.Equal(t, -0.5, s.Mapper.Depth())
	assert.Equal(t, 234, s.Driver.Index())

	var buf bytes.Buffer
	require.NoError(t, s.Describe(&buf))
	assert.Contains(t, buf.String(), "Capture: 1280x720")
	assert.Contains(t, buf.String(), "near left ear")
}

func TestNewRejectsInvalidIndex(t *testing.T) {

	cfg := testConfig(t)
	cfg.Bridge.Index = 468

	_, err := New(cfg, &fakeSource{size: image.Pt(640, 480)},
		&fakeDetector{topology: detector.MediaPipeFaceMesh}, nil)

	assert.True(t, errors.Is(err, config.ErrInvalid))
	assert.True(t, errors.Is(err, detector.ErrInvalidIndex))
}

func TestNewRejectsTopologyMismatch(t *testing.T) {

	cfg := testConfig(t)
	other := detector.Topology{Name: "blazeface-6", Size: 6}

	_, err := New(cfg, &fakeSource{size: image.Pt(640, 480)},
		&fakeDetector{topology: other}, nil)

	assert.True(t, errors.Is(err, config.ErrInvalid))
}

func TestRunTracksPosition(t *testing.T) {

	cfg := testConfig(t)
	cfg.Bridge.Interval = time.Millisecond
	cfg.Scene.Debug = true

	src := &fakeSource{size: image.Pt(640, 480)}
	det := &fakeDetector{topology: detector.MediaPipeFaceMesh, at: image.Pt(400, 240)}

	s, err := New(cfg, src, det, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- s.Run(ctx, false)
	}()

	require.Eventually(t, func() bool {
		_, ok := s.Cell.Load()
		return ok
	}, 2*time.Second, time.Millisecond)

	p, _ := s.Cell.Load()
	assert.Equal(t, position.Position{X: 1, Y: 0, Z: -0.5}, p)

	// a frame renders with the caption and debug overlays
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()
	dst := gocv.NewMat()
	defer dst.Close()
	require.NoError(t, s.Renderer.Render(frame, &dst))

	cancel()
	require.NoError(t, <-done)

	require.NoError(t, s.Close())
	assert.True(t, src.closed.Load())
}

func TestParseDevice(t *testing.T) {
	assert.Equal(t, 0, parseDevice("0"))
	assert.Equal(t, 2, parseDevice("2"))
	assert.Equal(t, "/dev/video0", parseDevice("/dev/video0"))
}

func TestOpenDetectorUnknownBackend(t *testing.T) {

	_, err := OpenDetector(config.DetectorConfig{Backend: "cuda"})
	assert.True(t, errors.Is(err, config.ErrInvalid))
}
