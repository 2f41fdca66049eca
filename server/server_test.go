package server

import (
	"bufio"
	"context"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alankarika/go-tryon/bridge"
	"github.com/alankarika/go-tryon/capture"
	"github.com/alankarika/go-tryon/config"
	"github.com/alankarika/go-tryon/detector"
	"github.com/alankarika/go-tryon/position"
	"github.com/alankarika/go-tryon/scene"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSource struct {
	ready atomic.Bool
}

func (f *fakeSource) Ready() bool { return f.ready.Load() }

func (f *fakeSource) Read(dst *gocv.Mat) error {

	if !f.ready.Load() {
		return capture.ErrNotReady
	}

	m := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer m.Close()
	m.CopyTo(dst)

	return nil
}

func (f *fakeSource) Size() image.Point { return image.Pt(160, 120) }
func (f *fakeSource) Close() error      { return nil }

type fakeStats struct{}

func (fakeStats) Stats() bridge.Stats {
	return bridge.Stats{Cycles: 10, Updated: 7, NoFace: 3}
}

func newTestServer(cell *position.Cell, src *fakeSource) (*Server, *scene.Orbit) {

	orbit := scene.NewOrbit(scene.DefaultCamera())

	s := New(config.ServerConfig{
		Host:        "127.0.0.1",
		Port:        0,
		FPS:         30,
		JPEGQuality: 80,
	}, Deps{
		Source:   src,
		Renderer: scene.NewRenderer(cell, orbit, nil),
		Orbit:    orbit,
		Position: cell,
		Bridge:   fakeStats{},
		Topology: detector.MediaPipeFaceMesh,
		Index:    234,
		Title:    "Alankarikā",
		Tagline:  "Virtual jewelry try-on",
	})

	return s, orbit
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {

	req := httptest.NewRequest(method, path, strings.NewReader(body))

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	return w
}

func TestPositionAbsent(t *testing.T) {

	s, _ := newTestServer(&position.Cell{}, &fakeSource{})

	w := do(t, s, http.MethodGet, "/api/position", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"present":false}`, w.Body.String())
}

func TestPositionPresent(t *testing.T) {

	cell := &position.Cell{}
	cell.Store(position.Position{X: 1, Y: 0, Z: -0.5})
	s, _ := newTestServer(cell, &fakeSource{})

	w := do(t, s, http.MethodGet, "/api/position", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"present":true,"x":1,"y":0,"z":-0.5}`, w.Body.String())
}

func TestStatus(t *testing.T) {

	src := &fakeSource{}
	src.ready.Store(true)
	s, _ := newTestServer(&position.Cell{}, src)

	w := do(t, s, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, uint64(7), resp.Bridge.Updated)
	assert.Equal(t, 160, resp.Capture.Width)
	assert.True(t, resp.Capture.Ready)
	assert.Equal(t, 468, resp.Topology.Size)
	assert.Equal(t, "near left ear", resp.Topology.Label)
	assert.InDelta(t, 5, resp.Orbit.Distance, 1e-9)
}

func TestOrbit(t *testing.T) {

	s, orbit := newTestServer(&position.Cell{}, &fakeSource{})

	w := do(t, s, http.MethodPost, "/api/orbit", `{"azimuth":0.5,"dolly":0.5}`)
	require.Equal(t, http.StatusOK, w.Code)

	st := orbit.State()
	assert.InDelta(t, 0.5, st.Azimuth, 1e-9)
	assert.InDelta(t, 2.5, st.Distance, 1e-9)

	var resp scene.OrbitState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, st, resp)

	w = do(t, s, http.MethodPost, "/api/orbit/reset", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 0, orbit.State().Azimuth, 1e-9)
	assert.InDelta(t, 5, orbit.State().Distance, 1e-9)
}

func TestOrbitBadRequest(t *testing.T) {

	s, orbit := newTestServer(&position.Cell{}, &fakeSource{})

	w := do(t, s, http.MethodPost, "/api/orbit", `{"azimuth":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.InDelta(t, 5, orbit.State().Distance, 1e-9)
}

func TestIndex(t *testing.T) {

	s, _ := newTestServer(&position.Cell{}, &fakeSource{})

	w := do(t, s, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Contains(t, w.Body.String(), "Alankarikā")
	assert.Contains(t, w.Body.String(), `src="/stream"`)
}

func TestStream(t *testing.T) {

	src := &fakeSource{}
	src.ready.Store(true)
	s, _ := newTestServer(&position.Cell{}, src)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/stream", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "multipart/x-mixed-replace; boundary=frame",
		resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)

	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "--frame\r\n", line)

	line, err = r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "Content-Type: image/jpeg\r\n", line)

	require.Eventually(t, func() bool {
		return s.clients.Load() == 1
	}, time.Second, 5*time.Millisecond)

	// disconnecting ends the client stream
	cancel()

	require.Eventually(t, func() bool {
		return s.clients.Load() == 0
	}, 2*time.Second, 5*time.Millisecond)
}
