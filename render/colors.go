package render

import "image/color"

var (
	Black  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Red    = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Green  = color.RGBA{R: 72, G: 249, B: 10, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 50, A: 255}
	Gold   = color.RGBA{R: 212, G: 175, B: 55, A: 255}

	// Shadow is the translucent black drawn behind caption text
	Shadow = color.RGBA{R: 0, G: 0, B: 0, A: 160}
)
