/*
Package server serves the composed try-on view over HTTP as an MJPEG stream
with a small JSON API for the tracked position, pipeline status and the
orbit camera controls.
*/
package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/alankarika/go-tryon/bridge"
	"github.com/alankarika/go-tryon/capture"
	"github.com/alankarika/go-tryon/config"
	"github.com/alankarika/go-tryon/detector"
	"github.com/alankarika/go-tryon/position"
	"github.com/alankarika/go-tryon/scene"
	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	log "github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// shutdownTimeout bounds the graceful shutdown of the HTTP server
const shutdownTimeout = 5 * time.Second

// StatsProvider reports the detection loop counters, implemented by
// bridge.Driver
type StatsProvider interface {
	Stats() bridge.Stats
}

// Deps are the pipeline parts the server presents
type Deps struct {
	Source   capture.Source
	Renderer *scene.Renderer
	Orbit    *scene.Orbit
	Position position.Reader
	Bridge   StatsProvider
	Topology detector.Topology
	Index    int
	Title    string
	Tagline  string
}

// Server is the HTTP presentation of the try-on pipeline
type Server struct {
	cfg     config.ServerConfig
	deps    Deps
	engine  *gin.Engine
	clients atomic.Int64
	log     log.FieldLogger
}

// New returns a Server with its routes registered
func New(cfg config.ServerConfig, deps Deps) *Server {

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		engine: gin.New(),
		log:    log.WithField("component", "server"),
	}

	s.engine.Use(gin.Recovery())
	s.engine.SetHTMLTemplate(template.Must(template.New("index").Parse(indexHTML)))
	s.registerRoutes()

	return s
}

// registerRoutes registers the page, stream and API routes
func (s *Server) registerRoutes() {

	s.engine.GET("/", s.handleIndex)
	s.engine.GET("/stream", s.handleStream)

	api := s.engine.Group("/api")
	api.GET("/position", s.handlePosition)
	api.GET("/status", s.handleStatus)
	api.POST("/orbit", s.handleOrbit)
	api.POST("/orbit/reset", s.handleOrbitReset)
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on the configured address until ctx is done.  Open streams are
// ended through the request context when ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:    s.cfg.Addr(),
		Handler: s.engine,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)

	go func() {
		s.log.WithField("addr", srv.Addr).Info("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)

	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	s.log.Info("HTTP server stopped")

	return nil
}

// writeJSON encodes v as the response body
func writeJSON(c *gin.Context, code int, v interface{}) {

	data, err := json.Marshal(v)

	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	c.Data(code, "application/json; charset=utf-8", data)
}

// handleIndex serves the viewer page
func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index", gin.H{
		"Title":   s.deps.Title,
		"Tagline": s.deps.Tagline,
	})
}

// positionResponse is the tracked position, coordinates are omitted when
// no position has been tracked yet
type positionResponse struct {
	Present bool     `json:"present"`
	X       *float64 `json:"x,omitempty"`
	Y       *float64 `json:"y,omitempty"`
	Z       *float64 `json:"z,omitempty"`
}

// handlePosition returns the latest tracked position
func (s *Server) handlePosition(c *gin.Context) {

	p, ok := s.deps.Position.Load()

	if !ok {
		writeJSON(c, http.StatusOK, positionResponse{})
		return
	}

	writeJSON(c, http.StatusOK, positionResponse{
		Present: true,
		X:       &p.X,
		Y:       &p.Y,
		Z:       &p.Z,
	})
}

type captureStatus struct {
	Width  int  `json:"width"`
	Height int  `json:"height"`
	Ready  bool `json:"ready"`
}

type topologyStatus struct {
	Name  string `json:"name"`
	Size  int    `json:"size"`
	Index int    `json:"index"`
	Label string `json:"label"`
}

type statusResponse struct {
	Bridge   bridge.Stats     `json:"bridge"`
	Capture  captureStatus    `json:"capture"`
	Topology topologyStatus   `json:"topology"`
	Orbit    scene.OrbitState `json:"orbit"`
	Clients  int64            `json:"clients"`
}

// handleStatus returns the pipeline status
func (s *Server) handleStatus(c *gin.Context) {

	size := s.deps.Source.Size()
	resp := statusResponse{
		Capture: captureStatus{
			Width:  size.X,
			Height: size.Y,
			Ready:  s.deps.Source.Ready(),
		},
		Topology: topologyStatus{
			Name:  s.deps.Topology.Name,
			Size:  s.deps.Topology.Size,
			Index: s.deps.Index,
			Label: s.deps.Topology.Label(s.deps.Index),
		},
		Orbit:   s.deps.Orbit.State(),
		Clients: s.clients.Load(),
	}

	if s.deps.Bridge != nil {
		resp.Bridge = s.deps.Bridge.Stats()
	}

	writeJSON(c, http.StatusOK, resp)
}

// orbitRequest moves the camera, angles are in radians and a dolly of zero
// leaves the distance unchanged
type orbitRequest struct {
	Azimuth float64 `json:"azimuth"`
	Polar   float64 `json:"polar"`
	Dolly   float64 `json:"dolly"`
}

// handleOrbit rotates and dollies the scene camera
func (s *Server) handleOrbit(c *gin.Context) {

	var req orbitRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.deps.Orbit.Rotate(req.Azimuth, req.Polar)

	if req.Dolly != 0 {
		s.deps.Orbit.Dolly(req.Dolly)
	}

	writeJSON(c, http.StatusOK, s.deps.Orbit.State())
}

// handleOrbitReset returns the scene camera to its start position
func (s *Server) handleOrbitReset(c *gin.Context) {
	s.deps.Orbit.Reset()
	writeJSON(c, http.StatusOK, s.deps.Orbit.State())
}
