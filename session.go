package tryon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/alankarika/go-tryon/bridge"
	"github.com/alankarika/go-tryon/capture"
	"github.com/alankarika/go-tryon/config"
	"github.com/alankarika/go-tryon/detector"
	"github.com/alankarika/go-tryon/npu"
	"github.com/alankarika/go-tryon/position"
	"github.com/alankarika/go-tryon/publish"
	"github.com/alankarika/go-tryon/render"
	"github.com/alankarika/go-tryon/scene"
	"github.com/alankarika/go-tryon/server"
	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
	"golang.org/x/sync/errgroup"
)

// starter is implemented by sources that grab frames in the background
type starter interface {
	Start(ctx context.Context)
}

// describer is implemented by detectors that can report model details
type describer interface {
	Describe(w io.Writer) error
}

// Session is an assembled try-on pipeline
type Session struct {
	cfg      *config.Config
	Source   capture.Source
	Detector detector.Detector
	Mapper   position.Mapper
	Cell     *position.Cell
	Driver   *bridge.Driver
	Orbit    *scene.Orbit
	Renderer *scene.Renderer
	log      log.FieldLogger
}

// Open opens the video source, detector and jewelry asset named by cfg and
// assembles a Session.  Failing to load the detector or asset is an error.
func Open(cfg *config.Config) (*Session, error) {

	src, err := OpenSource(cfg.Capture)

	if err != nil {
		return nil, err
	}

	det, err := OpenDetector(cfg.Detector)

	if err != nil {
		src.Close()
		return nil, err
	}

	asset, err := scene.LoadAsset(cfg.Scene.Asset, cfg.Scene.AssetScale)

	if err != nil {
		det.Close()
		src.Close()
		return nil, err
	}

	s, err := New(cfg, src, det, asset)

	if err != nil {
		det.Close()
		src.Close()
		return nil, err
	}

	return s, nil
}

// New assembles a Session around an already opened source and detector.
// The asset may be nil.
func New(cfg *config.Config, src capture.Source, det detector.Detector,
	asset *scene.Mesh) (*Session, error) {

	topo, err := detector.LookupTopology(cfg.Detector.Topology)

	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalid, err)
	}

	if det.Topology().Name != topo.Name {
		return nil, fmt.Errorf("%w: detector produces %s keypoints, configured topology is %s",
			config.ErrInvalid, det.Topology().Name, topo.Name)
	}

	// frame constants come from the resolution the device settled on
	mapper, err := position.NewMapper(src.Size(), cfg.Bridge.Divisor, cfg.Bridge.Depth)

	if err != nil {
		return nil, err
	}

	cell := &position.Cell{}

	driver, err := bridge.New(src, det, mapper, cell,
		bridge.WithIndex(cfg.Bridge.Index),
		bridge.WithInterval(cfg.Bridge.Interval),
	)

	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalid, err)
	}

	orbit := scene.NewOrbit(scene.DefaultCamera())
	renderer := scene.NewRenderer(cell, orbit, asset)
	renderer.SetMirror(cfg.Scene.Mirror)

	if !cfg.Scene.Marker {
		renderer.SetMarker(nil)
	}

	s := &Session{
		cfg:      cfg,
		Source:   src,
		Detector: det,
		Mapper:   mapper,
		Cell:     cell,
		Driver:   driver,
		Orbit:    orbit,
		Renderer: renderer,
		log:      log.WithField("component", "session"),
	}

	if cfg.Scene.Debug {
		renderer.AddOverlay(s.drawKeyPoints)
	}

	if cfg.Scene.Title != "" || cfg.Scene.Tagline != "" {
		caption, err := render.NewCaption(cfg.Scene.Title, cfg.Scene.Tagline,
			render.DefaultCaptionStyle())

		if err != nil {
			driver.Close()
			return nil, err
		}

		renderer.AddOverlay(func(dst *gocv.Mat) {
			if err := caption.Draw(dst); err != nil {
				s.log.WithError(err).Debug("Error drawing caption")
			}
		})
	}

	s.log.WithFields(log.Fields{
		"resolution": fmt.Sprintf("%dx%d", src.Size().X, src.Size().Y),
		"divisor":    mapper.Divisor(),
		"depth":      mapper.Depth(),
		"index":      driver.Index(),
		"keypoint":   topo.Label(driver.Index()),
	}).Info("Session assembled")

	return s, nil
}

// drawKeyPoints overlays the last detected face for debugging
func (s *Session) drawKeyPoints(dst *gocv.Mat) {

	face, ok := s.Driver.LastFace()

	if !ok {
		return
	}

	render.FaceKeyPoints(dst, face, s.Driver.Index(), s.cfg.Scene.Mirror,
		render.DefaultKeyPointStyle())
}

// Run starts frame capture, the detection loop, the optional MQTT publisher
// and, unless serve is false, the HTTP server.  It blocks until ctx is done
// or a component fails.
func (s *Session) Run(ctx context.Context, serve bool) error {

	if st, ok := s.Source.(starter); ok {
		st.Start(ctx)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.Driver.Run(ctx)
	})

	if s.cfg.MQTT.Enabled {
		pub := publish.New(s.cfg.MQTT, s.Cell)

		g.Go(func() error {
			return pub.Run(ctx)
		})
	}

	if serve {
		srv := s.Server()

		g.Go(func() error {
			return srv.Run(ctx)
		})
	}

	return g.Wait()
}

// Server returns the HTTP server presenting the session
func (s *Session) Server() *server.Server {
	return server.New(s.cfg.Server, server.Deps{
		Source:   s.Source,
		Renderer: s.Renderer,
		Orbit:    s.Orbit,
		Position: s.Cell,
		Bridge:   s.Driver,
		Topology: s.Detector.Topology(),
		Index:    s.Driver.Index(),
		Title:    s.cfg.Scene.Title,
		Tagline:  s.cfg.Scene.Tagline,
	})
}

// Describe writes the negotiated capture resolution, coordinate mapping and
// detector details to w
func (s *Session) Describe(w io.Writer) error {

	size := s.Source.Size()
	topo := s.Detector.Topology()

	fmt.Fprintf(w, "Capture: %dx%d\n", size.X, size.Y)
	fmt.Fprintf(w, "Scale divisor: %g, depth: %g\n", s.Mapper.Divisor(), s.Mapper.Depth())
	fmt.Fprintf(w, "Keypoint: %d (%s)\n", s.Driver.Index(), topo.Label(s.Driver.Index()))

	if d, ok := s.Detector.(describer); ok {
		return d.Describe(w)
	}

	_, err := fmt.Fprintf(w, "Topology: %s (%d keypoints)\n", topo.Name, topo.Size)
	return err
}

// Close releases the detection loop, detector and source
func (s *Session) Close() error {
	return errors.Join(
		s.Driver.Close(),
		s.Detector.Close(),
		s.Source.Close(),
	)
}

// OpenSource opens the video file or camera named by cfg
func OpenSource(cfg config.CaptureConfig) (capture.Source, error) {

	var (
		src *capture.Stream
		err error
	)

	if cfg.File != "" {
		src, err = capture.OpenFile(cfg.File, cfg.Loop)
	} else {
		src, err = capture.OpenCamera(parseDevice(cfg.Device), cfg.Width, cfg.Height)
	}

	if err != nil {
		return nil, err
	}

	return src, nil
}

// parseDevice returns a numeric camera index or the device path as given
func parseDevice(device string) interface{} {

	if id, err := strconv.Atoi(device); err == nil {
		return id
	}

	return device
}

// OpenDetector loads the face mesh detector for the configured backend
func OpenDetector(cfg config.DetectorConfig) (detector.Detector, error) {

	params := detector.MediaPipeFaceMeshParams()
	params.MaxFaces = cfg.MaxFaces

	switch cfg.Backend {
	case "npu":
		if err := npu.SetCPUAffinityByPlatform(cfg.Platform); err != nil {
			log.WithError(err).Warn("Unable to pin CPU affinity")
		}

		det, err := detector.NewNPUFaceMesh(cfg.Cascade, cfg.Model, cfg.Platform,
			cfg.PoolSize, params)

		if err != nil {
			return nil, fmt.Errorf("error loading NPU face mesh: %w", err)
		}

		return det, nil

	case "opencv":
		det, err := detector.NewFaceMesh(cfg.Cascade, cfg.Model, params)

		if err != nil {
			return nil, fmt.Errorf("error loading face mesh: %w", err)
		}

		return det, nil

	default:
		return nil, fmt.Errorf("%w: unknown detector backend %q", config.ErrInvalid, cfg.Backend)
	}
}
