package main

import (
	"context"
	"fmt"
	"math"
	"time"

	tryon "github.com/alankarika/go-tryon"
	"github.com/alankarika/go-tryon/config"
	"github.com/alankarika/go-tryon/render"
	"gocv.io/x/gocv"
)

const (
	// orbitStep is the camera rotation per key press in radians
	orbitStep = math.Pi / 36
	// zoomStep is the dolly factor per key press
	zoomStep = 0.9
)

// key codes returned by WaitKey, arrow keys report the low byte of their
// GTK/Qt key symbols
const (
	keyEsc   = 27
	keyLeft  = 81
	keyUp    = 82
	keyRight = 83
	keyDown  = 84
)

// runWindow shows the rendered scene in an OpenCV window until ctx is done
// or the user quits
func runWindow(ctx context.Context, s *tryon.Session, c *config.Config) error {

	window := gocv.NewWindow(c.Scene.Title)
	defer window.Close()

	frame := gocv.NewMat()
	defer frame.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	font := render.DefaultFont()
	interval := time.Second / time.Duration(c.Server.FPS)
	frames := 0
	fps := 0.0
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if s.Source.Ready() {
			if err := s.Source.Read(&frame); err == nil {
				if err := s.Renderer.Render(frame, &dst); err != nil {
					return fmt.Errorf("error rendering frame: %w", err)
				}

				render.Status(&dst, statusLines(s, fps), font)
				window.IMShow(dst)

				frames++
			}
		}

		if elapsed := time.Since(start).Seconds(); elapsed >= 1.0 {
			fps = float64(frames) / elapsed
			frames = 0
			start = time.Now()
		}

		if quit := handleKey(window.WaitKey(int(interval.Milliseconds())), s); quit {
			return nil
		}
	}
}

// statusLines returns the window readout of frame rate and tracked position
func statusLines(s *tryon.Session, fps float64) []string {

	lines := []string{fmt.Sprintf("FPS: %.1f", fps)}

	if p, ok := s.Cell.Load(); ok {
		lines = append(lines, fmt.Sprintf("Position: %s", p))
	} else {
		lines = append(lines, "Position: no face tracked")
	}

	return lines
}

// handleKey applies orbit controls and reports if the window should close
func handleKey(key int, s *tryon.Session) bool {

	switch key {
	case 'q', keyEsc:
		return true
	case keyLeft, 'a':
		s.Orbit.Rotate(-orbitStep, 0)
	case keyRight, 'd':
		s.Orbit.Rotate(orbitStep, 0)
	case keyUp, 'w':
		s.Orbit.Rotate(0, -orbitStep)
	case keyDown, 's':
		s.Orbit.Rotate(0, orbitStep)
	case '+', '=':
		s.Orbit.Dolly(zoomStep)
	case '-', '_':
		s.Orbit.Dolly(1 / zoomStep)
	case 'r':
		s.Orbit.Reset()
	}

	return false
}
