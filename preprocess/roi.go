package preprocess

import "image"

// FaceROI converts a detected face box into the square region fed to the
// face mesh model.  The box is centred in a square whose side is the longest
// box side multiplied by expand, then clamped to the frame bounds.
func FaceROI(box image.Rectangle, frame image.Point, expand float64) image.Rectangle {

	if box.Empty() {
		return image.Rectangle{}
	}

	if expand < 1 {
		expand = 1
	}

	side := box.Dx()

	if box.Dy() > side {
		side = box.Dy()
	}

	side = int(float64(side) * expand)
	cx := box.Min.X + box.Dx()/2
	cy := box.Min.Y + box.Dy()/2

	roi := image.Rect(cx-side/2, cy-side/2, cx-side/2+side, cy-side/2+side)

	return roi.Intersect(image.Rect(0, 0, frame.X, frame.Y))
}
