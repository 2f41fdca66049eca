package position

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vgaMapper(t *testing.T) Mapper {
	t.Helper()

	m, err := NewMapper(image.Pt(640, 480), 0, DefaultDepth)
	require.NoError(t, err)

	return m
}

func TestMapReferenceScenarios(t *testing.T) {

	m := vgaMapper(t)

	tests := []struct {
		name   string
		px, py float64
		want   Position
	}{
		{"frame centre maps to origin plane", 320, 240, Position{X: 0, Y: 0, Z: -0.5}},
		{"right of centre", 400, 240, Position{X: 1.0, Y: 0, Z: -0.5}},
		{"above centre gives positive y", 320, 160, Position{X: 0, Y: 1.0, Z: -0.5}},
		{"top left corner", 0, 0, Position{X: -4, Y: 3, Z: -0.5}},
		{"bottom right corner", 640, 480, Position{X: 4, Y: -3, Z: -0.5}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, m.Map(tc.px, tc.py))
		})
	}
}

func TestMapMatchesFormulaAcrossFrame(t *testing.T) {

	m := vgaMapper(t)

	for py := 0.0; py <= 480; py += 7.5 {
		for px := 0.0; px <= 640; px += 9.25 {
			got := m.Map(px, py)

			// exact equality is required, not approximate
			if got.X != (px-320)/80 || got.Y != -(py-240)/80 || got.Z != -0.5 {
				t.Fatalf("Map(%v, %v) = %v", px, py, got)
			}

			require.True(t, got.IsFinite())
		}
	}
}

func TestMapIsIdempotent(t *testing.T) {

	m := vgaMapper(t)

	first := m.Map(123.25, 456.5)
	second := m.Map(123.25, 456.5)

	assert.Equal(t, first, second)
}

func TestNewMapperDerivesDivisor(t *testing.T) {

	tests := []struct {
		frame   image.Point
		divisor float64
		want    float64
	}{
		{image.Pt(640, 480), 0, 80},
		{image.Pt(1280, 720), 0, 120},
		{image.Pt(1280, 720), 80, 80},
	}

	for _, tc := range tests {
		m, err := NewMapper(tc.frame, tc.divisor, DefaultDepth)
		require.NoError(t, err)
		assert.Equal(t, tc.want, m.Divisor(), "frame %v", tc.frame)
	}

	hd, err := NewMapper(image.Pt(1280, 720), 0, -1)
	require.NoError(t, err)
	assert.Equal(t, Position{X: 0, Y: 0, Z: -1}, hd.Map(640, 360))
}

func TestNewMapperRejectsInvalidInput(t *testing.T) {

	_, err := NewMapper(image.Pt(0, 480), 0, DefaultDepth)
	assert.Error(t, err)

	_, err = NewMapper(image.Pt(640, 480), -1, DefaultDepth)
	assert.Error(t, err)

	_, err = NewMapper(image.Pt(640, 480), 0, math.NaN())
	assert.Error(t, err)
}

func TestIsFinite(t *testing.T) {
	assert.True(t, Position{X: 1, Y: 2, Z: 3}.IsFinite())
	assert.False(t, Position{X: math.Inf(1)}.IsFinite())
	assert.False(t, Position{Y: math.NaN()}.IsFinite())
}
