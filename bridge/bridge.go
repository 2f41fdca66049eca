/*
Package bridge drives face landmark detection over the live video source and
republishes the tracked keypoint, converted into scene space, through a
position.Cell read by the renderers.
*/
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alankarika/go-tryon/capture"
	"github.com/alankarika/go-tryon/detector"
	"github.com/alankarika/go-tryon/position"
	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

const (
	// DefaultIndex is the MediaPipe face mesh keypoint near the left ear
	DefaultIndex = 234
	// DefaultInterval is one animation frame at 60 FPS
	DefaultInterval = time.Second / 60
)

// Outcome is the result of a single detection cycle
type Outcome int

const (
	// OutcomeNotReady means the video source had no frame yet
	OutcomeNotReady Outcome = iota
	// OutcomeNoFace means no face was detected in the frame
	OutcomeNoFace
	// OutcomeNoKeypoint means the first face lacked the tracked keypoint
	OutcomeNoKeypoint
	// OutcomeFailed means reading the frame or detection returned an error
	OutcomeFailed
	// OutcomeUpdated means a new position was stored
	OutcomeUpdated
)

// String returns the outcome name used in logs and stats
func (o Outcome) String() string {
	switch o {
	case OutcomeNotReady:
		return "not_ready"
	case OutcomeNoFace:
		return "no_face"
	case OutcomeNoKeypoint:
		return "no_keypoint"
	case OutcomeFailed:
		return "failed"
	case OutcomeUpdated:
		return "updated"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Stats are the detection cycle counters of a Driver
type Stats struct {
	Cycles     uint64    `json:"cycles"`
	NotReady   uint64    `json:"notReady"`
	NoFace     uint64    `json:"noFace"`
	NoKeypoint uint64    `json:"noKeypoint"`
	Failed     uint64    `json:"failed"`
	Updated    uint64    `json:"updated"`
	LastUpdate time.Time `json:"lastUpdate"`
}

// Option configures a Driver
type Option func(*Driver)

// WithIndex sets the tracked keypoint index
func WithIndex(index int) Option {
	return func(d *Driver) {
		d.index = index
	}
}

// WithInterval sets the delay between the end of one detection and the start
// of the next
func WithInterval(interval time.Duration) Option {
	return func(d *Driver) {
		if interval > 0 {
			d.interval = interval
		}
	}
}

// WithLogger sets the logger used by the Driver
func WithLogger(l log.FieldLogger) Option {
	return func(d *Driver) {
		d.log = l
	}
}

// Driver runs the detection loop and is the only writer of its Cell
type Driver struct {
	src      capture.Source
	det      detector.Detector
	mapper   position.Mapper
	cell     *position.Cell
	index    int
	interval time.Duration
	log      log.FieldLogger
	// frame is the scratch buffer the current frame is read into
	frame gocv.Mat
	// mu guards stats and lastFace
	mu       sync.Mutex
	stats    Stats
	lastFace *detector.Face
}

// New returns a Driver detecting faces with det on frames from src and
// storing the mapped keypoint in cell
func New(src capture.Source, det detector.Detector, mapper position.Mapper,
	cell *position.Cell, opts ...Option) (*Driver, error) {

	if src == nil || det == nil || cell == nil {
		return nil, errors.New("bridge requires a source, detector and cell")
	}

	d := &Driver{
		src:      src,
		det:      det,
		mapper:   mapper,
		cell:     cell,
		index:    DefaultIndex,
		interval: DefaultInterval,
		log:      log.WithField("component", "bridge"),
	}

	for _, opt := range opts {
		opt(d)
	}

	if err := det.Topology().Validate(d.index); err != nil {
		return nil, err
	}

	d.frame = gocv.NewMat()

	return d, nil
}

// Run performs detection cycles until ctx is done.  The next cycle is only
// scheduled once the previous one has completed so there is never more than
// one detection in flight.
func (d *Driver) Run(ctx context.Context) error {

	topo := d.det.Topology()

	d.log.WithFields(log.Fields{
		"index":    d.index,
		"keypoint": topo.Label(d.index),
		"interval": d.interval,
	}).Info("Detection loop started")

	timer := time.NewTimer(d.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info("Detection loop stopped")
			return nil
		case <-timer.C:
		}

		d.Cycle(ctx)

		if ctx.Err() != nil {
			d.log.Info("Detection loop stopped")
			return nil
		}

		timer.Reset(d.interval)
	}
}

// Cycle performs a single detection on the current frame and updates the
// Cell on success.  Absence of a frame, face or keypoint leaves the Cell
// unchanged.
func (d *Driver) Cycle(ctx context.Context) Outcome {

	outcome := d.cycle(ctx)
	d.record(outcome)

	return outcome
}

func (d *Driver) cycle(ctx context.Context) Outcome {

	if !d.src.Ready() {
		return OutcomeNotReady
	}

	if err := d.src.Read(&d.frame); err != nil {
		if errors.Is(err, capture.ErrNotReady) {
			return OutcomeNotReady
		}

		d.log.WithError(err).Warn("Error reading frame")
		return OutcomeFailed
	}

	faces, err := d.det.EstimateFaces(ctx, d.frame)

	if err != nil {
		if ctx.Err() == nil {
			d.log.WithError(err).Warn("Face detection failed")
		}
		return OutcomeFailed
	}

	if len(faces) == 0 {
		return OutcomeNoFace
	}

	face := faces[0]
	d.setLastFace(&face)

	kp, ok := face.Keypoint(d.index)

	if !ok {
		d.log.WithField("index", d.index).Warn("Keypoint not found on detected face")
		return OutcomeNoKeypoint
	}

	p := d.mapper.Map(float64(kp.X), float64(kp.Y))

	if !p.IsFinite() {
		d.log.WithField("position", p).Warn("Discarding non finite position")
		return OutcomeFailed
	}

	d.cell.Store(p)
	d.log.WithField("position", p).Debug("Position updated")

	return OutcomeUpdated
}

// record counts the outcome of a cycle
func (d *Driver) record(o Outcome) {

	d.mu.Lock()
	defer d.mu.Unlock()

	d.stats.Cycles++

	switch o {
	case OutcomeNotReady:
		d.stats.NotReady++
	case OutcomeNoFace:
		d.stats.NoFace++
	case OutcomeNoKeypoint:
		d.stats.NoKeypoint++
	case OutcomeFailed:
		d.stats.Failed++
	case OutcomeUpdated:
		d.stats.Updated++
		d.stats.LastUpdate = time.Now()
	}
}

func (d *Driver) setLastFace(f *detector.Face) {
	d.mu.Lock()
	d.lastFace = f
	d.mu.Unlock()
}

// Stats returns a snapshot of the cycle counters
func (d *Driver) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// LastFace returns the most recently detected first face, used for the
// keypoint debug overlay
func (d *Driver) LastFace() (detector.Face, bool) {

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.lastFace == nil {
		return detector.Face{}, false
	}

	return *d.lastFace, true
}

// Index returns the tracked keypoint index
func (d *Driver) Index() int {
	return d.index
}

// Close releases the frame buffer.  It must not be called while Run is
// active.
func (d *Driver) Close() error {
	return d.frame.Close()
}
