/*
Package capture provides the live video sources frames are read from.  A
source grabs frames continuously in the background and exposes the most
recent one, together with a readiness flag that turns true once the first
frame has been buffered.
*/
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// ErrNotReady is returned by Read when no frame has been buffered yet
var ErrNotReady = errors.New("capture source not ready")

// Source defines the video frame source used by the detection loop and the
// scene renderers
type Source interface {
	// Ready reports if a frame has been buffered and can be read
	Ready() bool
	// Read copies the current frame into dst
	Read(dst *gocv.Mat) error
	// Size returns the resolution of frames produced by the source
	Size() image.Point
	// Close stops capturing and releases the device
	Close() error
}

// frameReader is the subset of gocv.VideoCapture used by Stream
type frameReader interface {
	Read(m *gocv.Mat) bool
	Close() error
}

// Stream is a Source that grabs frames from a camera device or video file
type Stream struct {
	reader frameReader
	// size is the negotiated frame resolution
	size image.Point
	// interval paces reads of video files to their native FPS, cameras are
	// paced by the device so leave it at zero
	interval time.Duration
	// rewind restarts a video file from the first frame, nil for cameras
	rewind func() bool
	// mu guards frame
	mu    sync.RWMutex
	frame gocv.Mat
	ready atomic.Bool
	// cancel and done control the grab goroutine
	cancel context.CancelFunc
	done   chan struct{}
	log    log.FieldLogger
}

// OpenCamera opens the webcam at the given device index or path and requests
// the given resolution.  The device may settle on another resolution, which
// is what Size reports.
func OpenCamera(device interface{}, width, height int) (*Stream, error) {

	vc, err := gocv.OpenVideoCapture(device)

	if err != nil {
		return nil, fmt.Errorf("error opening video capture device %v: %w", device, err)
	}

	if width > 0 && height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}

	size := image.Pt(int(vc.Get(gocv.VideoCaptureFrameWidth)),
		int(vc.Get(gocv.VideoCaptureFrameHeight)))

	s := newStream(vc, size, 0, nil)

	if err := s.probeSize(); err != nil {
		vc.Close()
		return nil, err
	}

	s.log.WithField("size", fmt.Sprintf("%dx%d", s.size.X, s.size.Y)).
		Info("camera opened")

	return s, nil
}

// OpenFile opens a video file to be replayed as a live source at its native
// frame rate.  If loop is set playback restarts at the end of the file.
func OpenFile(path string, loop bool) (*Stream, error) {

	vc, err := gocv.VideoCaptureFile(path)

	if err != nil {
		return nil, fmt.Errorf("error opening video file %s: %w", path, err)
	}

	fps := vc.Get(gocv.VideoCaptureFPS)

	if fps <= 0 {
		fps = 30
	}

	size := image.Pt(int(vc.Get(gocv.VideoCaptureFrameWidth)),
		int(vc.Get(gocv.VideoCaptureFrameHeight)))

	var rewind func() bool

	if loop {
		rewind = func() bool {
			vc.Set(gocv.VideoCapturePosFrames, 0)
			return true
		}
	}

	s := newStream(vc, size, time.Duration(float64(time.Second)/fps), rewind)

	if err := s.probeSize(); err != nil {
		vc.Close()
		return nil, err
	}

	s.log.WithFields(log.Fields{
		"file": path,
		"size": fmt.Sprintf("%dx%d", s.size.X, s.size.Y),
		"fps":  fps,
	}).Info("video file opened")

	return s, nil
}

func newStream(r frameReader, size image.Point, interval time.Duration,
	rewind func() bool) *Stream {

	return &Stream{
		reader:   r,
		size:     size,
		interval: interval,
		rewind:   rewind,
		frame:    gocv.NewMat(),
		log:      log.WithField("component", "capture"),
	}
}

// probeSize reads a frame to determine the resolution when the backend does
// not report it.  The frame read is kept as the first buffered frame.
func (s *Stream) probeSize() error {

	if s.size.X > 0 && s.size.Y > 0 {
		return nil
	}

	img := gocv.NewMat()
	defer img.Close()

	if ok := s.reader.Read(&img); !ok || img.Empty() {
		return fmt.Errorf("unable to read frame to determine capture size")
	}

	s.size = image.Pt(img.Cols(), img.Rows())
	s.store(img)

	return nil
}

// SetLogger replaces the logger used by the stream
func (s *Stream) SetLogger(l log.FieldLogger) {
	s.log = l
}

// Start begins grabbing frames in the background until ctx is done or Close
// is called
func (s *Stream) Start(ctx context.Context) {

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)
}

// run is the frame grab loop
func (s *Stream) run(ctx context.Context) {

	defer close(s.done)

	img := gocv.NewMat()
	defer img.Close()

	var tick <-chan time.Time

	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return
		}

		if ok := s.reader.Read(&img); !ok {
			if s.rewind != nil && s.rewind() {
				continue
			}

			s.log.Warn("capture source ended, no more frames")
			return
		}

		if img.Empty() {
			continue
		}

		s.store(img)
	}
}

// store copies img into the current frame buffer and marks the source ready
func (s *Stream) store(img gocv.Mat) {
	s.mu.Lock()
	img.CopyTo(&s.frame)
	s.mu.Unlock()

	s.ready.Store(true)
}

// Ready reports if a frame has been buffered and can be read
func (s *Stream) Ready() bool {
	return s.ready.Load()
}

// Read copies the current frame into dst
func (s *Stream) Read(dst *gocv.Mat) error {

	if !s.ready.Load() {
		return ErrNotReady
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	s.frame.CopyTo(dst)

	return nil
}

// Size returns the resolution of frames produced by the source
func (s *Stream) Size() image.Point {
	return s.size
}

// Close stops the grab loop and releases the device
func (s *Stream) Close() error {

	if s.cancel != nil {
		s.cancel()
		<-s.done
	}

	err := s.reader.Close()

	s.mu.Lock()
	s.frame.Close()
	s.mu.Unlock()

	return err
}
