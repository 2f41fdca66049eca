package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Font defines the parameters for rendering ASCII status text on an image
// using the GoCV Hershey fonts
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// Padding to place around text
	LeftPad   int
	TopPad    int
	BottomPad int
}

// DefaultFont returns default font settings
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.5,
		Color:     White,
		Thickness: 1,
		LineType:  gocv.LineAA,
		LeftPad:   8,
		TopPad:    4,
		BottomPad: 8,
	}
}

// Status renders lines of text in the bottom left corner of the image on a
// dark background, used for FPS and tracking readouts
func Status(img *gocv.Mat, lines []string, font Font) {

	if len(lines) == 0 {
		return
	}

	lineHeight := 0
	width := 0

	for _, l := range lines {
		size := gocv.GetTextSize(l, font.Face, font.Scale, font.Thickness)

		if size.Y > lineHeight {
			lineHeight = size.Y
		}

		if size.X > width {
			width = size.X
		}
	}

	lineHeight += font.TopPad + font.BottomPad
	top := img.Rows() - lineHeight*len(lines)

	gocv.Rectangle(img, image.Rect(0, top, width+font.LeftPad*2, img.Rows()), Black, -1)

	for i, l := range lines {
		pos := image.Pt(font.LeftPad, top+lineHeight*(i+1)-font.BottomPad)

		gocv.PutTextWithParams(img, l, pos, font.Face, font.Scale, font.Color,
			font.Thickness, font.LineType, false)
	}
}
