package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gocv.io/x/gocv"
)

// boundary separates the JPEG parts of the MJPEG stream
const boundary = "frame"

// handleStream renders the scene over the live video for a single client and
// sends it as a multipart JPEG stream until the client disconnects
func (s *Server) handleStream(c *gin.Context) {

	id := uuid.New().String()
	l := s.log.WithField("client", id)

	n := s.clients.Add(1)
	defer s.clients.Add(-1)

	l.WithField("clients", n).Info("Stream client connected")
	defer l.Info("Stream client disconnected")

	c.Header("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "close")
	c.Status(http.StatusOK)

	// each client owns its scratch buffers
	frame := gocv.NewMat()
	defer frame.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	ticker := time.NewTicker(time.Second / time.Duration(s.cfg.FPS))
	defer ticker.Stop()

	ctx := c.Request.Context()
	params := []int{int(gocv.IMWriteJpegQuality), s.cfg.JPEGQuality}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !s.deps.Source.Ready() {
			continue
		}

		if err := s.deps.Source.Read(&frame); err != nil {
			continue
		}

		if err := s.deps.Renderer.Render(frame, &dst); err != nil {
			l.WithError(err).Warn("Error rendering frame")
			continue
		}

		if err := s.writeFrame(c, dst, params); err != nil {
			l.WithError(err).Debug("Error writing frame")
			return
		}
	}
}

// writeFrame encodes img as JPEG and writes it as the next stream part
func (s *Server) writeFrame(c *gin.Context, img gocv.Mat, params []int) error {

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, params)

	if err != nil {
		return err
	}

	defer buf.Close()

	w := c.Writer

	if _, err := w.Write([]byte("--" + boundary + "\r\n")); err != nil {
		return err
	}

	if _, err := w.Write([]byte("Content-Type: image/jpeg\r\n\r\n")); err != nil {
		return err
	}

	if _, err := w.Write(buf.GetBytes()); err != nil {
		return err
	}

	if _, err := w.Write([]byte("\r\n")); err != nil {
		return err
	}

	w.Flush()

	return nil
}
